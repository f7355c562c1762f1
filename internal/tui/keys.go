package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"tekshila/internal/model"
)

type keyMap struct {
	Quit    key.Binding
	NextTab key.Binding
	PrevTab key.Binding
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Scroll  key.Binding

	Add          key.Binding
	Remove       key.Binding
	Purpose      key.Binding
	Project      key.Binding
	Instructions key.Binding
	Generate     key.Binding
	Analyze      key.Binding
	Copy         key.Binding
	Save         key.Binding
	Diff         key.Binding

	Connect    key.Binding
	Disconnect key.Binding
	Refresh    key.Binding
	Edit       key.Binding
	Submit     key.Binding
	Open       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		NextTab: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		PrevTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab")),
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev branch")),
		Right:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next branch")),
		Scroll:  key.NewBinding(key.WithKeys("pgup", "pgdown"), key.WithHelp("pgup/pgdn", "scroll")),

		Add:          key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add files")),
		Remove:       key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove")),
		Purpose:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "readme/comments")),
		Project:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "project name")),
		Instructions: key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "instructions")),
		Generate:     key.NewBinding(key.WithKeys("g", "enter"), key.WithHelp("g", "generate")),
		Analyze:      key.NewBinding(key.WithKeys("g", "enter"), key.WithHelp("g", "analyze")),
		Copy:         key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy")),
		Save:         key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
		Diff:         key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "diff")),

		Connect:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "connect")),
		Disconnect: key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "disconnect")),
		Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Edit:       key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit PR")),
		Submit:     key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "create PR")),
		Open:       key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open PR")),
	}
}

// bindings is a help.KeyMap over a fixed list.
type bindings []key.Binding

func (b bindings) ShortHelp() []key.Binding  { return b }
func (b bindings) FullHelp() [][]key.Binding { return [][]key.Binding{b} }

// helpFor returns the bindings shown in the footer for view v.
func (k keyMap) helpFor(v model.View, connected bool) bindings {
	switch v {
	case model.ViewQuality:
		return bindings{k.NextTab, k.Add, k.Remove, k.Analyze, k.Scroll, k.Quit}
	case model.ViewRepoIntegration:
		if !connected {
			return bindings{k.NextTab, k.Connect, k.Quit}
		}
		return bindings{k.NextTab, k.Up, k.Left, k.Right, k.Refresh, k.Edit, k.Submit, k.Open, k.Disconnect, k.Quit}
	default:
		return bindings{k.NextTab, k.Add, k.Remove, k.Purpose, k.Project, k.Instructions, k.Generate, k.Copy, k.Save, k.Diff, k.Quit}
	}
}
