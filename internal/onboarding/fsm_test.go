package onboarding

import (
	"errors"
	"testing"

	"assistant/internal/chat"
)

func TestReverseIsInverseOfForward(t *testing.T) {
	m := New(Callbacks{})
	for _, tr := range DefaultTransitions() {
		preds := m.predecessors(tr.To)
		if len(preds) == 0 {
			t.Fatalf("%s has no back edge", tr.To)
		}
		for _, prev := range preds {
			found := false
			for _, to := range m.forward[prev] {
				if to == tr.To {
					found = true
				}
			}
			if !found {
				t.Fatalf("back edge %s -> %s has no matching forward edge", tr.To, prev)
			}
		}
	}
	if got := m.predecessors(UserInfo); len(got) != 2 || got[0] != Features || got[1] != Greeting {
		t.Fatalf("UserInfo predecessors = %v", got)
	}
	if got := m.predecessors(Greeting); len(got) != 0 {
		t.Fatalf("initial state should have no back edge, got %v", got)
	}
}

func TestFullFlowCompletes(t *testing.T) {
	var got *chat.UserSettings
	m := New(Callbacks{
		OnComplete: func(s chat.UserSettings) { got = &s },
		OnSkip:     func() { t.Fatal("unexpected skip") },
	})

	steps := []func() (State, error){
		func() (State, error) { return m.Fire(ActionNext) },
		func() (State, error) { return m.Fire(ActionNext) },
		func() (State, error) { return m.Fire(ActionNext) },
		func() (State, error) { return m.Fire(ActionNext) },
		func() (State, error) { return m.Submit(" 김민수 ") },
		func() (State, error) { return m.Submit("") },
		func() (State, error) { return m.Submit("Professional") },
		func() (State, error) { return m.Submit("long") },
		func() (State, error) { return m.Submit("아니오") },
		func() (State, error) { return m.Submit("yes") },
	}
	want := []State{Introduction, Features, UserInfo, UserName, AssistantName, ToneStyle, AnswerLength, WebSearch, FollowUp, Complete}
	for i, step := range steps {
		s, err := step()
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if s != want[i] {
			t.Fatalf("step %d: state=%s, want %s", i, s, want[i])
		}
	}
	if got == nil {
		t.Fatal("OnComplete not called")
	}
	exp := chat.UserSettings{
		UserName:               "김민수",
		AssistantName:          chat.DefaultUserSettings().AssistantName,
		ToneStyle:              chat.ToneProfessional,
		AnswerLength:           chat.LengthLong,
		AllowWebSearch:         false,
		AllowFollowUpQuestions: true,
	}
	if *got != exp {
		t.Fatalf("settings=%+v, want %+v", *got, exp)
	}
	if !m.Finished() {
		t.Fatal("machine should be finished")
	}
	if _, err := m.Fire(ActionNext); !errors.Is(err, ErrFinished) {
		t.Fatalf("Fire after finish err=%v", err)
	}
}

func TestSkipIntroAndBack(t *testing.T) {
	m := New(Callbacks{})
	if s, err := m.Fire(ActionSkipIntro); err != nil || s != UserInfo {
		t.Fatalf("skipIntro: state=%s err=%v", s, err)
	}
	res, err := m.Back()
	if err != nil {
		t.Fatal(err)
	}
	if res.To != Greeting || res.FellBack {
		t.Fatalf("back from UserInfo after skipIntro = %+v", res)
	}
}

func TestBackRetracesPathTaken(t *testing.T) {
	m := New(Callbacks{})
	for i := 0; i < 4; i++ {
		if _, err := m.Fire(ActionNext); err != nil {
			t.Fatal(err)
		}
	}
	want := []State{UserInfo, Features, Introduction, Greeting}
	for _, w := range want {
		res, err := m.Back()
		if err != nil {
			t.Fatal(err)
		}
		if res.To != w || res.FellBack {
			t.Fatalf("back = %+v, want %s", res, w)
		}
	}
}

func TestBackWithoutHistoryUsesFirstPredecessor(t *testing.T) {
	m := New(Callbacks{})
	m.state = UserInfo
	res, err := m.Back()
	if err != nil {
		t.Fatal(err)
	}
	if res.To != Features || res.FellBack {
		t.Fatalf("res=%+v", res)
	}
}

func TestBackFromInitialFallsBack(t *testing.T) {
	m := New(Callbacks{})
	res, err := m.Back()
	if err != nil {
		t.Fatal(err)
	}
	if !res.FellBack || res.To != Greeting || m.State() != Greeting {
		t.Fatalf("back from greeting = %+v", res)
	}
}

func TestBackUnmappedStateFallsBackToInitial(t *testing.T) {
	m, err := NewWithTable("a", "done", []Transition{
		{"a", ActionNext, "b"},
		{"c", ActionNext, "done"},
	}, Callbacks{})
	if err != nil {
		t.Fatal(err)
	}
	m.state = "c"
	res, err := m.Back()
	if err != nil {
		t.Fatal(err)
	}
	if !res.FellBack || res.From != "c" || res.To != "a" {
		t.Fatalf("res=%+v", res)
	}
}

func TestBackKeepsCollectedValues(t *testing.T) {
	m := New(Callbacks{})
	m.Fire(ActionSkipIntro)
	m.Fire(ActionNext)
	if _, err := m.Submit("지수"); err != nil {
		t.Fatal(err)
	}
	res, _ := m.Back()
	if res.To != UserName {
		t.Fatalf("back from AssistantName went to %s", res.To)
	}
	if m.Settings().UserName != "지수" {
		t.Fatalf("UserName=%q", m.Settings().UserName)
	}
}

func TestInvalidInputsChangeNothing(t *testing.T) {
	m := New(Callbacks{})
	if _, err := m.Submit("x"); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("Submit in greeting err=%v", err)
	}
	if _, err := m.Fire(ActionSubmit); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("Fire submit in greeting err=%v", err)
	}
	m.Fire(ActionSkipIntro)
	m.Fire(ActionNext)
	m.Submit("a")
	m.Submit("b")
	before := m.Settings()
	if _, err := m.Submit("grumpy"); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("invalid tone err=%v", err)
	}
	if m.State() != ToneStyle || m.Settings() != before {
		t.Fatalf("state=%s settings changed", m.State())
	}
}

func TestSkipFromAnyState(t *testing.T) {
	for _, tr := range DefaultTransitions() {
		skipped := 0
		m := New(Callbacks{
			OnSkip:     func() { skipped++ },
			OnComplete: func(chat.UserSettings) { t.Fatal("complete after skip") },
		})
		m.state = tr.From
		if err := m.Skip(); err != nil {
			t.Fatalf("skip from %s: %v", tr.From, err)
		}
		if skipped != 1 {
			t.Fatalf("OnSkip called %d times", skipped)
		}
		if err := m.Skip(); !errors.Is(err, ErrFinished) {
			t.Fatalf("second skip err=%v", err)
		}
		if _, err := m.Back(); !errors.Is(err, ErrFinished) {
			t.Fatalf("back after skip err=%v", err)
		}
	}
}

func TestNewWithTableRejectsBadTables(t *testing.T) {
	if _, err := NewWithTable("a", "z", []Transition{{"a", ActionNext, "b"}, {"a", ActionNext, "c"}}, Callbacks{}); err == nil {
		t.Fatal("duplicate edge accepted")
	}
	if _, err := NewWithTable("a", "z", []Transition{{"z", ActionNext, "a"}}, Callbacks{}); err == nil {
		t.Fatal("terminal outgoing edge accepted")
	}
}

func TestKinds(t *testing.T) {
	if KindOf(Greeting) != KindMessage || KindOf(UserName) != KindText || KindOf(ToneStyle) != KindChoice ||
		KindOf(WebSearch) != KindYesNo || KindOf(Complete) != KindDone {
		t.Fatal("unexpected kinds")
	}
	if len(Choices(AnswerLength)) != 3 || Choices(UserName) != nil {
		t.Fatal("unexpected choices")
	}
	if v, ok := ParseYesNo(" 네 "); !ok || !v {
		t.Fatal("네 should parse as yes")
	}
	if _, ok := ParseYesNo("maybe"); ok {
		t.Fatal("maybe should not parse")
	}
}
