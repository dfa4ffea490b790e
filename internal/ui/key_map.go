package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
//
// Form views receive typed text, so their actions use ctrl chords.
type keyMap struct {
	next     key.Binding
	prev     key.Binding
	submit   key.Binding
	toggle   key.Binding
	back     key.Binding
	logout   key.Binding
	history  key.Binding
	again    key.Binding
	showHist key.Binding
	quit     key.Binding
	forceQ   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		next:     key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		prev:     key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous field")),
		submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		toggle:   key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "login/register")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		logout:   key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "logout")),
		history:  key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "history")),
		again:    key.NewBinding(key.WithKeys("r", "enter"), key.WithHelp("r", "upload another")),
		showHist: key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "history")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		forceQ:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.forceQ}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.next, k.prev, k.submit},
		{k.toggle, k.logout, k.history},
		{k.again, k.back, k.quit},
	}
}
