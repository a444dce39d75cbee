// Package tui holds the terminal presentation layer: the Bubble Tea onboarding
// wizard plus the theme and renderers the REPL shares.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"assistant/internal/chat"
	"assistant/internal/onboarding"
)

// Prompt 返回每个步骤展示的问题
// Prompt returns the text shown for a step.
func Prompt(s onboarding.State) string {
	switch s {
	case onboarding.Greeting:
		return "안녕하세요! 업무를 함께할 AI 비서예요.\n먼저 간단히 소개해 드릴까요?"
	case onboarding.Introduction:
		return "일정 확인, 사내 소식 정리, 자주 쓰는 업무 바로가기를 한곳에서 도와드려요."
	case onboarding.Features:
		return "대화 기록은 고정하거나 보관할 수 있고, 챗봇과 업무 즐겨찾기도 관리할 수 있어요."
	case onboarding.UserInfo:
		return "이제 몇 가지만 여쭤볼게요. 언제든 ctrl+s로 건너뛸 수 있어요."
	case onboarding.UserName:
		return "어떻게 불러 드릴까요?"
	case onboarding.AssistantName:
		return "제 이름을 지어 주세요. 비워 두면 기본 이름을 쓸게요."
	case onboarding.ToneStyle:
		return "어떤 말투가 편하세요?"
	case onboarding.AnswerLength:
		return "답변 길이는 어느 정도가 좋을까요?"
	case onboarding.WebSearch:
		return "답변할 때 웹 검색을 활용해도 될까요?"
	case onboarding.FollowUp:
		return "답변 끝에 이어서 물어볼 만한 질문을 제안해 드릴까요?"
	case onboarding.Complete:
		return "설정이 끝났어요. 이제 무엇이든 물어보세요!"
	}
	return string(s)
}

var choiceLabels = map[string]string{
	string(chat.ToneFriendly):     "친근하게",
	string(chat.ToneProfessional): "격식 있게",
	string(chat.ToneCasual):       "편하게",
	string(chat.LengthShort):      "짧게",
	string(chat.LengthMedium):     "보통",
	string(chat.LengthLong):       "자세하게",
}

func actionLabel(a onboarding.Action) string {
	switch a {
	case onboarding.ActionNext:
		return "다음"
	case onboarding.ActionSkipIntro:
		return "바로 설정하기"
	}
	return string(a)
}

// Options 返回当前步骤可选项的显示文本；文本输入步骤返回 nil
// Options lists the selectable labels of the machine's current step. Text steps return nil.
func Options(m *onboarding.Machine) []string {
	state := m.State()
	switch onboarding.KindOf(state) {
	case onboarding.KindMessage:
		actions := m.Actions()
		out := make([]string, 0, len(actions))
		for _, a := range actions {
			out = append(out, actionLabel(a))
		}
		return out
	case onboarding.KindChoice:
		choices := onboarding.Choices(state)
		out := make([]string, 0, len(choices))
		for _, c := range choices {
			out = append(out, choiceLabels[c])
		}
		return out
	case onboarding.KindYesNo:
		return []string{"예", "아니요"}
	}
	return nil
}

// Advance 以选项下标或文本推进一步
// Advance answers the current step with the option at index, or with text on
// text steps.
func Advance(m *onboarding.Machine, index int, text string) error {
	state := m.State()
	opts := Options(m)
	kind := onboarding.KindOf(state)
	if kind != onboarding.KindText && (index < 0 || index >= len(opts)) {
		return fmt.Errorf("%w: option %d", onboarding.ErrInvalidValue, index+1)
	}
	var err error
	switch kind {
	case onboarding.KindMessage:
		_, err = m.Fire(m.Actions()[index])
	case onboarding.KindText:
		_, err = m.Submit(text)
	case onboarding.KindChoice:
		_, err = m.Submit(onboarding.Choices(state)[index])
	case onboarding.KindYesNo:
		v := "yes"
		if index == 1 {
			v = "no"
		}
		_, err = m.Submit(v)
	default:
		err = onboarding.ErrFinished
	}
	return err
}

// Outcome 向导结束时的结果；Completed 为 false 表示被跳过或中断
// Outcome is what the wizard collected. Completed is false when the user skipped or quit.
type Outcome struct {
	Settings  chat.UserSettings
	Completed bool
}

// Wizard Bubble Tea 引导向导 Model
// Wizard is the Bubble Tea model of the onboarding dialogue
type Wizard struct {
	machine *onboarding.Machine
	input   textinput.Model
	help    help.Model
	cursor  int

	notice    string
	noticeErr bool
	width     int
	quitting  bool
	outcome   Outcome

	theme Theme
	keys  KeyMap
}

// NewWizard 创建引导向导
// NewWizard creates the wizard on a fresh machine
func NewWizard(theme Theme) Wizard {
	ti := textinput.New()
	ti.CharLimit = 40
	ti.Prompt = "> "

	w := Wizard{
		machine: onboarding.New(onboarding.Callbacks{}),
		input:   ti,
		help:    help.New(),
		theme:   theme,
		keys:    DefaultKeyMap(),
	}
	w.enter()
	return w
}

func (w Wizard) Init() tea.Cmd {
	return textinput.Blink
}

func (w Wizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	kind := onboarding.KindOf(w.machine.State())

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w.width = msg.Width
		w.help.Width = msg.Width
		return w, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, w.keys.Quit):
			w.quitting = true
			return w, tea.Quit
		case key.Matches(msg, w.keys.Skip):
			_ = w.machine.Skip()
			w.quitting = true
			return w, tea.Quit
		case key.Matches(msg, w.keys.Back):
			res, err := w.machine.Back()
			if err != nil {
				return w, nil
			}
			w.setNotice("", false)
			if res.FellBack {
				w.setNotice("처음 단계로 돌아왔어요.", false)
			}
			w.enter()
			return w, nil
		case key.Matches(msg, w.keys.Submit):
			return w.submit()
		case kind != onboarding.KindText && key.Matches(msg, w.keys.Up):
			w.move(-1)
			return w, nil
		case kind != onboarding.KindText && key.Matches(msg, w.keys.Down):
			w.move(1)
			return w, nil
		}
	}

	if kind == onboarding.KindText {
		var cmd tea.Cmd
		w.input, cmd = w.input.Update(msg)
		return w, cmd
	}
	return w, nil
}

func (w Wizard) View() string {
	if w.quitting {
		if w.outcome.Completed {
			return w.theme.SuccessStyle.Render(Prompt(onboarding.Complete)) + "\n"
		}
		return ""
	}

	state := w.machine.State()
	parts := []string{
		w.theme.TitleStyle.Render("AI 비서 시작하기"),
		"",
		Prompt(state),
		"",
	}
	if onboarding.KindOf(state) == onboarding.KindText {
		parts = append(parts, w.input.View())
	} else {
		for i, opt := range Options(w.machine) {
			if i == w.cursor {
				parts = append(parts, w.theme.SelectedStyle.Render("› "+opt))
			} else {
				parts = append(parts, "  "+opt)
			}
		}
	}
	if w.notice != "" {
		style := w.theme.MutedStyle
		if w.noticeErr {
			style = w.theme.ErrorStyle
		}
		parts = append(parts, "", style.Render(w.notice))
	}
	parts = append(parts, "", w.help.ShortHelpView(w.keys.ShortHelp()))

	panel := w.theme.PanelStyle
	if w.width > 4 {
		panel = panel.Width(w.width - 4)
	}
	return panel.Render(lipgloss.JoinVertical(lipgloss.Left, parts...)) + "\n"
}

// Outcome returns the result once the program has exited.
func (w Wizard) Outcome() Outcome {
	return w.outcome
}

func (w Wizard) submit() (tea.Model, tea.Cmd) {
	if err := Advance(w.machine, w.cursor, w.input.Value()); err != nil {
		w.setNotice(err.Error(), true)
		return w, nil
	}
	if w.machine.Finished() {
		w.outcome = Outcome{Settings: w.machine.Settings(), Completed: true}
		w.quitting = true
		return w, tea.Quit
	}
	w.setNotice("", false)
	w.enter()
	return w, nil
}

// enter prepares cursor and input for the machine's current step.
func (w *Wizard) enter() {
	state := w.machine.State()
	current := w.machine.Settings()
	w.cursor = 0
	w.input.Reset()
	w.input.Blur()

	switch state {
	case onboarding.UserName:
		w.input.Placeholder = "이름"
		w.input.SetValue(current.UserName)
	case onboarding.AssistantName:
		w.input.Placeholder = chat.DefaultUserSettings().AssistantName
		w.input.SetValue(current.AssistantName)
	case onboarding.ToneStyle:
		w.cursor = indexOf(onboarding.Choices(state), string(current.ToneStyle))
	case onboarding.AnswerLength:
		w.cursor = indexOf(onboarding.Choices(state), string(current.AnswerLength))
	case onboarding.WebSearch:
		if !current.AllowWebSearch {
			w.cursor = 1
		}
	case onboarding.FollowUp:
		if !current.AllowFollowUpQuestions {
			w.cursor = 1
		}
	}
	if onboarding.KindOf(state) == onboarding.KindText {
		w.input.CursorEnd()
		w.input.Focus()
	}
}

func (w *Wizard) move(delta int) {
	n := len(Options(w.machine))
	if n == 0 {
		return
	}
	w.cursor = ((w.cursor+delta)%n + n) % n
}

func (w *Wizard) setNotice(msg string, isErr bool) {
	w.notice = strings.TrimSpace(msg)
	w.noticeErr = isErr
}

func indexOf(items []string, v string) int {
	for i, item := range items {
		if item == v {
			return i
		}
	}
	return 0
}

// RunOnboarding 启动引导向导并在退出后返回结果
// RunOnboarding runs the wizard to completion and returns what it collected.
func RunOnboarding(theme Theme, opts ...tea.ProgramOption) (Outcome, error) {
	p := tea.NewProgram(NewWizard(theme), opts...)
	final, err := p.Run()
	if err != nil {
		return Outcome{}, err
	}
	w, ok := final.(Wizard)
	if !ok {
		return Outcome{}, fmt.Errorf("unexpected model %T", final)
	}
	return w.Outcome(), nil
}
