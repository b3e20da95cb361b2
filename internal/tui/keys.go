package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	New        key.Binding
	Open       key.Binding
	Save       key.Binding
	SaveAs     key.Binding
	ExportHTML key.Binding
	ExportPDF  key.Binding
	Quit       key.Binding
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.New, k.Open, k.Save, k.SaveAs, k.ExportHTML, k.ExportPDF, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// The editor bindings shadow the textarea's own ctrl+a/e/n/p motions.
var editorKeys = keyMap{
	New:        key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("^N", "new")),
	Open:       key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("^O", "open")),
	Save:       key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("^S", "save")),
	SaveAs:     key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("^A", "save as")),
	ExportHTML: key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("^E", "html")),
	ExportPDF:  key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("^P", "pdf")),
	Quit:       key.NewBinding(key.WithKeys("ctrl+q", "ctrl+c"), key.WithHelp("^Q", "quit")),
}

type promptKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

func (k promptKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

func (k promptKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var promptKeys = promptKeyMap{
	Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
	Cancel:  key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "cancel")),
}
