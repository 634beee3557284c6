package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sort"
)

// Store owns the task list. Storage order is insertion order with new tasks
// first; display order lives only in each task's placement.
type Store struct {
	path     string
	tasks    []*Task
	settings Settings
}

// Open loads the tasks and settings saved at path. An empty or missing path
// yields a single default task.
func Open(path string) (*Store, error) {
	tasks, settings, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path, tasks: tasks, settings: settings}
	s.ResetIndices()
	return s, nil
}

// New builds a store over tasks without touching the filesystem.
func New(path string, tasks ...*Task) *Store {
	s := &Store{path: path, tasks: slices.Clone(tasks)}
	s.ResetIndices()
	return s
}

func (s *Store) Path() string { return s.path }

func (s *Store) Len() int { return len(s.tasks) }

// Tasks returns the tasks in storage order.
func (s *Store) Tasks() []*Task {
	return slices.Clone(s.tasks)
}

func (s *Store) Settings() Settings { return s.settings }

func (s *Store) SetSettings(settings Settings) { s.settings = settings }

// Add inserts a default task at the front and returns it.
func (s *Store) Add() *Task {
	t := NewTask()
	s.tasks = slices.Insert(s.tasks, 0, t)
	return t
}

// Append adds tasks after the existing ones, keeping their order.
func (s *Store) Append(tasks ...*Task) {
	s.tasks = append(s.tasks, tasks...)
	s.ResetIndices()
}

// Remove drops t, matched by identity, and renumbers what is left. It
// reports whether t was in the store.
func (s *Store) Remove(t *Task) bool {
	i := slices.Index(s.tasks, t)
	if i < 0 {
		return false
	}
	s.tasks = slices.Delete(s.tasks, i, i+1)
	s.ResetIndices()
	return true
}

// ResetIndices ranks every task by storage position. Tasks pending removal
// keep their placement and are skipped.
func (s *Store) ResetIndices() {
	rank := 0
	for _, t := range s.tasks {
		if t.placement.IsPendingRemoval() {
			continue
		}
		t.setPlacement(Visible(rank))
		rank++
	}
}

// FilterFinished hides finished tasks when hide is set and leaves every
// other placement as it is.
func (s *Store) FilterFinished(hide bool) {
	if !hide {
		return
	}
	for _, t := range s.tasks {
		if t.placement.IsPendingRemoval() {
			continue
		}
		if t.Finished() {
			t.setPlacement(Hidden)
		}
	}
}

// SortByPriority re-ranks the visible tasks by ascending priority, keeping
// storage order for ties, then reverses the result when descending is set.
func (s *Store) SortByPriority(descending bool) {
	visible := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.placement.IsVisible() {
			visible = append(visible, t)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].Priority < visible[j].Priority
	})
	if descending {
		slices.Reverse(visible)
	}
	for i, t := range visible {
		t.setPlacement(Visible(i))
	}
}

// Recompute runs reset, filter and sort with the given toggles, remembers
// them for the next save, and returns the visible tasks in display order.
func (s *Store) Recompute(hideFinished, sortDescending bool) []*Task {
	s.settings = Settings{HideFinished: hideFinished, SortDescending: sortDescending}
	s.ResetIndices()
	s.FilterFinished(hideFinished)
	s.SortByPriority(sortDescending)
	return s.Visible()
}

// Visible returns the visible tasks ordered by rank.
func (s *Store) Visible() []*Task {
	out := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.placement.IsVisible() {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].placement.rank < out[j].placement.rank
	})
	return out
}

// Serialize encodes the settings and all tasks in storage order.
func (s *Store) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, s.tasks, s.settings); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the store back to its path. The file is replaced in one
// rename so a failed save leaves the previous contents intact.
func (s *Store) Save() error {
	if s.path == "" {
		return errors.New("tasks path is empty")
	}
	data, err := s.Serialize()
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
