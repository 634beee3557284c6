package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"todopanel/internal/config"
)

type keyMap struct {
	Up           key.Binding
	Down         key.Binding
	Add          key.Binding
	Rename       key.Binding
	Toggle       key.Binding
	PriorityUp   key.Binding
	PriorityDown key.Binding
	Delete       key.Binding
	HideFinished key.Binding
	SortPriority key.Binding
	Copy         key.Binding
	Help         key.Binding
	Quit         key.Binding
	Confirm      key.Binding
	Cancel       key.Binding
}

func newKeyMap(k config.Keymap) keyMap {
	return keyMap{
		Up:           key.NewBinding(key.WithKeys(k.Up, "up"), key.WithHelp(k.Up+"/↑", "up")),
		Down:         key.NewBinding(key.WithKeys(k.Down, "down"), key.WithHelp(k.Down+"/↓", "down")),
		Add:          key.NewBinding(key.WithKeys(k.Add), key.WithHelp(k.Add, "add")),
		Rename:       key.NewBinding(key.WithKeys(k.Rename), key.WithHelp(k.Rename, "rename")),
		Toggle:       key.NewBinding(key.WithKeys(k.Toggle), key.WithHelp(keyLabel(k.Toggle), "status")),
		PriorityUp:   key.NewBinding(key.WithKeys(k.PriorityUp), key.WithHelp(k.PriorityUp, "priority up")),
		PriorityDown: key.NewBinding(key.WithKeys(k.PriorityDown), key.WithHelp(k.PriorityDown, "priority down")),
		Delete:       key.NewBinding(key.WithKeys(k.Delete), key.WithHelp(k.Delete, "delete")),
		HideFinished: key.NewBinding(key.WithKeys(k.HideFinished), key.WithHelp(k.HideFinished, "hide finished")),
		SortPriority: key.NewBinding(key.WithKeys(k.SortPriority), key.WithHelp(k.SortPriority, "sort")),
		Copy:         key.NewBinding(key.WithKeys(k.Copy), key.WithHelp(k.Copy, "copy")),
		Help:         key.NewBinding(key.WithKeys(k.Help), key.WithHelp(k.Help, "help")),
		Quit:         key.NewBinding(key.WithKeys(k.Quit, "ctrl+c"), key.WithHelp(k.Quit, "quit")),
		Confirm:      key.NewBinding(key.WithKeys(k.Confirm), key.WithHelp(k.Confirm, "confirm")),
		Cancel:       key.NewBinding(key.WithKeys(k.Cancel), key.WithHelp(k.Cancel, "cancel")),
	}
}

func keyLabel(k string) string {
	if k == " " {
		return "space"
	}
	return k
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Toggle, k.PriorityUp, k.PriorityDown, k.Delete, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Add, k.Rename},
		{k.Toggle, k.PriorityUp, k.PriorityDown, k.Delete},
		{k.HideFinished, k.SortPriority, k.Copy},
		{k.Help, k.Quit},
	}
}

// binding pairs a key with the handler it triggers in list mode.
type binding struct {
	key key.Binding
	run func(Model) (Model, tea.Cmd)
}

func (m Model) listBindings() []binding {
	return []binding{
		{m.keys.Quit, Model.quit},
		{m.keys.Up, Model.moveUp},
		{m.keys.Down, Model.moveDown},
		{m.keys.Add, Model.addTask},
		{m.keys.Rename, Model.renameSelected},
		{m.keys.Toggle, Model.cycleStatus},
		{m.keys.PriorityUp, Model.raisePriority},
		{m.keys.PriorityDown, Model.lowerPriority},
		{m.keys.Delete, Model.requestDelete},
		{m.keys.HideFinished, Model.toggleHideFinished},
		{m.keys.SortPriority, Model.toggleSort},
		{m.keys.Copy, Model.copyList},
		{m.keys.Help, Model.toggleHelp},
	}
}
