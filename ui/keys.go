package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Next        key.Binding
	Prev        key.Binding
	First       key.Binding
	Last        key.Binding
	NextChapter key.Binding
	PrevChapter key.Binding
	Search      key.Binding
	Copy        key.Binding
	Edit        key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Next: key.NewBinding(
			key.WithKeys("right", "l", "space", "pgdown", "f", "n"),
			key.WithHelp("→/l/space", "next page"),
		),
		Prev: key.NewBinding(
			key.WithKeys("left", "h", "pgup", "b", "p"),
			key.WithHelp("←/h/b", "previous page"),
		),
		First: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g/home", "first page"),
		),
		Last: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G/end", "last page"),
		),
		NextChapter: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next chapter"),
		),
		PrevChapter: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "previous chapter"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "find chapter"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y", "c"),
			key.WithHelp("y", "copy page"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "open in editor"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// helpColumns lays the bindings out in the two columns of the help view.
func (k keyMap) helpColumns() [2][]key.Binding {
	return [2][]key.Binding{
		{k.Next, k.Prev, k.First, k.Last, k.NextChapter, k.PrevChapter},
		{k.Search, k.Copy, k.Edit, k.Help, k.Quit},
	}
}
