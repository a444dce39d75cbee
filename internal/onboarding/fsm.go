// Package onboarding drives the first-run dialogue that collects UserSettings.
//
// The flow is a transition table of (state, action) -> state. Back-navigation uses
// the inverse of that table, built once at construction, and follows the edge
// that was actually taken into the current state.
package onboarding

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"assistant/internal/chat"
)

type State string

const (
	Greeting      State = "greeting"
	Introduction  State = "introduction"
	Features      State = "features"
	UserInfo      State = "userInfo"
	UserName      State = "userName"
	AssistantName State = "assistantName"
	ToneStyle     State = "toneStyle"
	AnswerLength  State = "answerLength"
	WebSearch     State = "webSearch"
	FollowUp      State = "followUp"
	Complete      State = "complete"
)

type Action string

const (
	// ActionNext advances an informational step.
	ActionNext Action = "next"
	// ActionSkipIntro jumps from the greeting straight to the settings questions.
	ActionSkipIntro Action = "skipIntro"
	// ActionSubmit is fired by Submit after a value was accepted.
	ActionSubmit Action = "submit"
)

// Transition is one row of the table.
type Transition struct {
	From   State
	Action Action
	To     State
}

// DefaultTransitions is the onboarding dialogue.
func DefaultTransitions() []Transition {
	return []Transition{
		{Greeting, ActionNext, Introduction},
		{Introduction, ActionNext, Features},
		{Features, ActionNext, UserInfo},
		{Greeting, ActionSkipIntro, UserInfo},
		{UserInfo, ActionNext, UserName},
		{UserName, ActionSubmit, AssistantName},
		{AssistantName, ActionSubmit, ToneStyle},
		{ToneStyle, ActionSubmit, AnswerLength},
		{AnswerLength, ActionSubmit, WebSearch},
		{WebSearch, ActionSubmit, FollowUp},
		{FollowUp, ActionSubmit, Complete},
	}
}

var (
	// ErrFinished is returned once the flow completed or was skipped.
	ErrFinished = errors.New("onboarding already finished")
	// ErrInvalidAction means the current state has no edge for the action.
	ErrInvalidAction = errors.New("action not allowed in this step")
	// ErrInvalidValue means Submit got a value the step cannot accept.
	ErrInvalidValue = errors.New("invalid value for this step")
)

// BackResult describes a Back call. FellBack is set when the state had no inverse
// edge and the machine returned to the initial state instead.
type BackResult struct {
	From     State
	To       State
	FellBack bool
}

// Callbacks are invoked synchronously from Fire/Submit/Skip.
type Callbacks struct {
	// OnComplete receives the collected settings, defaults filling anything not asked.
	OnComplete func(chat.UserSettings)
	// OnSkip is called instead when the user abandons onboarding. Nothing is persisted.
	OnSkip func()
}

// Machine 引导流程状态机，非并发安全
// Machine is the onboarding stepper. It is not safe for concurrent use.
type Machine struct {
	initial  State
	terminal State
	forward  map[State]map[Action]State
	reverse  map[State][]State

	state    State
	trail    []State // states left by Fire, most recent last
	settings chat.UserSettings
	finished bool
	cb       Callbacks
}

// New builds the default dialogue.
func New(cb Callbacks) *Machine {
	m, err := NewWithTable(Greeting, Complete, DefaultTransitions(), cb)
	if err != nil {
		panic(err)
	}
	return m
}

// NewWithTable builds a machine from an explicit table. A (state, action) pair may
// appear only once and the terminal state may have no outgoing rows.
func NewWithTable(initial, terminal State, table []Transition, cb Callbacks) (*Machine, error) {
	m := &Machine{
		initial:  initial,
		terminal: terminal,
		forward:  make(map[State]map[Action]State),
		reverse:  make(map[State][]State),
		state:    initial,
		settings: chat.DefaultUserSettings(),
		cb:       cb,
	}
	for _, t := range table {
		if t.From == terminal {
			return nil, fmt.Errorf("terminal state %q has an outgoing transition", terminal)
		}
		edges := m.forward[t.From]
		if edges == nil {
			edges = make(map[Action]State)
			m.forward[t.From] = edges
		}
		if prev, dup := edges[t.Action]; dup {
			return nil, fmt.Errorf("duplicate transition %s --%s--> %s (already %s)", t.From, t.Action, t.To, prev)
		}
		edges[t.Action] = t.To
		if !slices.Contains(m.reverse[t.To], t.From) {
			m.reverse[t.To] = append(m.reverse[t.To], t.From)
		}
	}
	return m, nil
}

func (m *Machine) State() State { return m.state }

// Finished reports whether the flow completed or was skipped.
func (m *Machine) Finished() bool { return m.finished }

// Settings returns the values collected so far over the defaults.
func (m *Machine) Settings() chat.UserSettings { return m.settings }

// Actions lists the actions the current state accepts, in a stable order.
func (m *Machine) Actions() []Action {
	var out []Action
	for _, a := range []Action{ActionNext, ActionSkipIntro, ActionSubmit} {
		if _, ok := m.forward[m.state][a]; ok {
			out = append(out, a)
		}
	}
	return out
}

// predecessors returns the states with an edge into s, in table order.
func (m *Machine) predecessors(s State) []State {
	return slices.Clone(m.reverse[s])
}

// Fire takes the edge for action from the current state.
func (m *Machine) Fire(action Action) (State, error) {
	if m.finished {
		return m.state, ErrFinished
	}
	next, ok := m.forward[m.state][action]
	if !ok {
		return m.state, fmt.Errorf("%w: %s in %s", ErrInvalidAction, action, m.state)
	}
	m.trail = append(m.trail, m.state)
	m.state = next
	if next == m.terminal {
		m.finished = true
		if m.cb.OnComplete != nil {
			m.cb.OnComplete(m.settings)
		}
	}
	return next, nil
}

// Submit stores value into the field the current state asks for and advances.
// Invalid values leave both the state and the settings unchanged.
func (m *Machine) Submit(value string) (State, error) {
	if m.finished {
		return m.state, ErrFinished
	}
	if _, ok := m.forward[m.state][ActionSubmit]; !ok {
		return m.state, fmt.Errorf("%w: %s in %s", ErrInvalidAction, ActionSubmit, m.state)
	}
	if err := applyField(&m.settings, m.state, value); err != nil {
		return m.state, err
	}
	return m.Fire(ActionSubmit)
}

// Back moves along the inverse of the edge that led into the current state. When
// the way in is unknown the first predecessor in table order is used. States with
// no inverse edge return to the initial state and report FellBack.
func (m *Machine) Back() (BackResult, error) {
	if m.finished {
		return BackResult{From: m.state, To: m.state}, ErrFinished
	}
	from := m.state
	preds := m.predecessors(from)
	if len(preds) == 0 {
		m.state = m.initial
		m.trail = nil
		return BackResult{From: from, To: m.initial, FellBack: true}, nil
	}
	prev := preds[0]
	if n := len(m.trail); n > 0 && slices.Contains(preds, m.trail[n-1]) {
		prev = m.trail[n-1]
		m.trail = m.trail[:n-1]
	} else {
		m.trail = nil
	}
	m.state = prev
	return BackResult{From: from, To: prev}, nil
}

// Skip abandons the flow from any non-terminal state.
func (m *Machine) Skip() error {
	if m.finished {
		return ErrFinished
	}
	m.finished = true
	if m.cb.OnSkip != nil {
		m.cb.OnSkip()
	}
	return nil
}

func applyField(s *chat.UserSettings, state State, value string) error {
	value = strings.TrimSpace(value)
	switch state {
	case UserName:
		s.UserName = value
	case AssistantName:
		if value == "" {
			value = chat.DefaultUserSettings().AssistantName
		}
		s.AssistantName = value
	case ToneStyle:
		t, ok := chat.ParseToneStyle(strings.ToLower(value))
		if !ok {
			return fmt.Errorf("%w: tone %q", ErrInvalidValue, value)
		}
		s.ToneStyle = t
	case AnswerLength:
		l, ok := chat.ParseAnswerLength(strings.ToLower(value))
		if !ok {
			return fmt.Errorf("%w: length %q", ErrInvalidValue, value)
		}
		s.AnswerLength = l
	case WebSearch:
		b, ok := ParseYesNo(value)
		if !ok {
			return fmt.Errorf("%w: %q is not yes/no", ErrInvalidValue, value)
		}
		s.AllowWebSearch = b
	case FollowUp:
		b, ok := ParseYesNo(value)
		if !ok {
			return fmt.Errorf("%w: %q is not yes/no", ErrInvalidValue, value)
		}
		s.AllowFollowUpQuestions = b
	}
	return nil
}

// ParseYesNo accepts y/yes/true/예/네 and n/no/false/아니오/아니요.
func ParseYesNo(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1", "예", "네":
		return true, true
	case "n", "no", "false", "0", "아니오", "아니요":
		return false, true
	}
	return false, false
}

// Kind tells a renderer how to ask for a state.
type Kind int

const (
	KindMessage Kind = iota // informational, advanced with Fire
	KindText
	KindChoice
	KindYesNo
	KindDone
)

// KindOf classifies a default-dialogue state.
func KindOf(s State) Kind {
	switch s {
	case UserName, AssistantName:
		return KindText
	case ToneStyle, AnswerLength:
		return KindChoice
	case WebSearch, FollowUp:
		return KindYesNo
	case Complete:
		return KindDone
	default:
		return KindMessage
	}
}

// Choices lists the accepted values of a KindChoice state.
func Choices(s State) []string {
	switch s {
	case ToneStyle:
		return []string{string(chat.ToneFriendly), string(chat.ToneProfessional), string(chat.ToneCasual)}
	case AnswerLength:
		return []string{string(chat.LengthShort), string(chat.LengthMedium), string(chat.LengthLong)}
	}
	return nil
}
