package storage

import (
	"fmt"
	"strings"
)

const (
	DefaultTaskName     = "new task"
	DefaultTaskPriority = 1
)

type Status int

const (
	StatusWaiting Status = iota
	StatusInProgress
	StatusFinished
)

var statusLabels = [...]string{"waiting", "in progress", "finished"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusLabels) {
		return fmt.Sprintf("status %d", int(s))
	}
	return statusLabels[s]
}

// Next returns the following status, wrapping from finished back to waiting.
// Out-of-range values restart at waiting.
func (s Status) Next() Status {
	if s < StatusWaiting || s >= StatusFinished {
		return StatusWaiting
	}
	return s + 1
}

type placementKind int

const (
	placementVisible placementKind = iota
	placementHidden
	placementPendingRemoval
)

// Placement says where a task sits in the current view: at a visible rank,
// hidden by the finished filter, or on its way out after a delete.
type Placement struct {
	kind placementKind
	rank int
}

const (
	IndexHidden         = -1
	IndexPendingRemoval = -2
)

func Visible(rank int) Placement { return Placement{kind: placementVisible, rank: rank} }

var (
	Hidden         = Placement{kind: placementHidden}
	PendingRemoval = Placement{kind: placementPendingRemoval}
)

func (p Placement) IsVisible() bool { return p.kind == placementVisible }
func (p Placement) IsHidden() bool { return p.kind == placementHidden }
func (p Placement) IsPendingRemoval() bool { return p.kind == placementPendingRemoval }

// Rank reports the display rank of a visible placement.
func (p Placement) Rank() (int, bool) {
	if p.kind != placementVisible {
		return 0, false
	}
	return p.rank, true
}

// Index is the signed integer form: the rank when visible, -1 when hidden
// and -2 when pending removal.
func (p Placement) Index() int {
	switch p.kind {
	case placementHidden:
		return IndexHidden
	case placementPendingRemoval:
		return IndexPendingRemoval
	default:
		return p.rank
	}
}

func (p Placement) String() string {
	switch p.kind {
	case placementHidden:
		return "hidden"
	case placementPendingRemoval:
		return "pending-removal"
	default:
		return fmt.Sprintf("visible(%d)", p.rank)
	}
}

// Task is a single to-do item. Fields are not validated: any name, priority
// and status value is accepted.
type Task struct {
	Name     string
	Priority int
	Status   Status

	placement Placement
}

func NewTask() *Task {
	return &Task{
		Name:     DefaultTaskName,
		Priority: DefaultTaskPriority,
		Status:   StatusWaiting,
	}
}

func (t *Task) SetName(name string) { t.Name = name }
func (t *Task) SetPriority(priority int) { t.Priority = priority }
func (t *Task) SetStatus(status Status) { t.Status = status }
func (t *Task) Placement() Placement { return t.placement }
func (t *Task) Index() int { return t.placement.Index() }
func (t *Task) Raise() { t.Priority++ }
func (t *Task) Lower() { t.Priority-- }
func (t *Task) Cycle() { t.Status = t.Status.Next() }
func (t *Task) MarkForRemoval() { t.placement = PendingRemoval }
func (t *Task) setPlacement(p Placement) { t.placement = p }
func (t *Task) Finished() bool { return t.Status == StatusFinished }

// String renders the task the way it is copied to the clipboard.
func (t *Task) String() string {
	return fmt.Sprintf("%s\np%d:\t\t%s\t\t (%s)", strings.Repeat("-", 20), t.Priority, t.Name, t.Status)
}

// FormatList renders tasks one after another in their clipboard form.
func FormatList(tasks []*Task) string {
	parts := make([]string, 0, len(tasks))
	for _, t := range tasks {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, "\n")
}
