package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Next    key.Binding
	Prev    key.Binding
	Resume  key.Binding
	Select  key.Binding
	Display key.Binding
	Reset   key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Next:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		Prev:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "prev")),
		Resume:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "resume playlist")),
		Select:  key.NewBinding(key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("0-9", "jump")),
		Display: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "layout")),
		Reset:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "reset effect")),
		Help:    key.NewBinding(key.WithKeys("h", "?"), key.WithHelp("h", "help")),
		Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Resume, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Resume, k.Select},
		{k.Display, k.Reset, k.Help, k.Quit},
	}
}
