package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap 定义向导快捷键绑定
// KeyMap defines the wizard keybindings
type KeyMap struct {
	Submit key.Binding
	Back   key.Binding
	Skip   key.Binding
	Up     key.Binding
	Down   key.Binding
	Quit   key.Binding
}

// DefaultKeyMap 默认快捷键
// DefaultKeyMap returns default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "다음"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "이전"),
		),
		Skip: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "건너뛰기"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "left", "shift+tab"),
			key.WithHelp("↑", "위"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "right", "tab"),
			key.WithHelp("↓", "아래"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "종료"),
		),
	}
}

// ShortHelp lists the bindings shown under the wizard.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Back, k.Skip, k.Quit}
}
