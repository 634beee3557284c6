package ui

import (
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"todopanel/internal/config"
	"todopanel/internal/motion"
	"todopanel/internal/storage"
)

type mode int

const (
	modeList mode = iota
	modeRename
	modeConfirmDelete
)

// Lines taken by everything around the task list: header, blank, input,
// blank, status and help.
const chromeHeight = 6

const frameInterval = time.Second / 30

type frameMsg time.Time

type statusMsg string

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

// row is the on-screen state of one task. Rows outlive their task in the
// store while they animate out.
type row struct {
	task    *storage.Task
	y       float64
	track   motion.Track
	leaving bool
}

type Model struct {
	store  *storage.Store
	cfg    config.Config
	logger *log.Logger

	keys     keyMap
	help     help.Model
	input    textinput.Model
	viewport viewport.Model

	rows   []*row
	cursor int
	mode   mode
	status string

	hideFinished   bool
	sortDescending bool
	sortPending    bool
	animating      bool

	pendingDel *storage.Task
	renaming   *storage.Task
	renameFrom string

	width  int
	height int

	now       func() time.Time
	clipboard func(string) error
}

type Option func(*Model)

// WithClock replaces time.Now for animation timing.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) { m.clipboard = write }
}

func New(store *storage.Store, cfg config.Config, logger *log.Logger, opts ...Option) Model {
	if cfg.RowHeight <= 0 {
		cfg.RowHeight = config.DefaultRowHeight
	}
	ti := textinput.New()
	ti.Placeholder = "Task name"
	ti.CharLimit = 0
	ti.Width = 40

	settings := store.Settings()
	m := Model{
		store:          store,
		cfg:            cfg,
		logger:         logger,
		keys:           newKeyMap(cfg.Keys),
		help:           help.New(),
		input:          ti,
		viewport:       viewport.New(0, 0),
		mode:           modeList,
		status:         fmt.Sprintf("Press '%s' to add a task, '%s' for help.", cfg.Keys.Add, cfg.Keys.Help),
		hideFinished:   settings.HideFinished,
		sortDescending: settings.SortDescending,
		now:            time.Now,
		clipboard:      clipboard.WriteAll,
	}
	for _, opt := range opts {
		opt(&m)
	}

	m.store.Recompute(m.hideFinished, m.sortDescending)
	now := m.now()
	container := m.containerHeight()
	for _, t := range store.Tasks() {
		y := float64(motion.Target(t.Index(), m.cfg.RowHeight, container))
		m.rows = append(m.rows, &row{task: t, y: y, track: motion.NewTrack(y, y, now, 0, nil)})
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case frameMsg:
		cmd = m.advance()
	case statusMsg:
		m.status = string(msg)
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		cmd = m.relayout()
	case tea.KeyMsg:
		switch m.mode {
		case modeRename:
			m, cmd = m.updateRename(msg)
		case modeConfirmDelete:
			m, cmd = m.updateDeleteConfirm(msg)
		default:
			m, cmd = m.updateList(msg)
		}
	}
	m.syncViewport()
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (Model, tea.Cmd) {
	for _, b := range m.listBindings() {
		if key.Matches(msg, b.key) {
			return b.run(m)
		}
	}
	return m, nil
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = max(10, width-10)
	m.help.Width = width
	m.viewport.Width = width
	m.viewport.Height = max(1, height-chromeHeight)
}

// relayout recomputes the task order and points every row at its new
// position. Rows already heading to the right place keep their track.
func (m *Model) relayout() tea.Cmd {
	m.store.Recompute(m.hideFinished, m.sortDescending)
	m.sortPending = false

	now := m.now()
	container := m.containerHeight()
	for _, r := range m.rows {
		idx := r.task.Index()
		to := float64(motion.Target(idx, m.cfg.RowHeight, container))
		if to == r.track.To {
			continue
		}
		r.track = motion.NewTrack(r.y, to, now, m.cfg.AnimationDuration(), motion.EaseFor(idx))
	}
	m.cursor = clampCursor(m.cursor, len(m.store.Visible()))
	return m.animate(now)
}

func (m *Model) animate(now time.Time) tea.Cmd {
	if !m.step(now) {
		m.animating = false
		return nil
	}
	if m.animating {
		return nil
	}
	m.animating = true
	return frame()
}

func (m *Model) advance() tea.Cmd {
	if m.step(m.now()) {
		return frame()
	}
	m.animating = false
	return nil
}

// step moves every row to its position at now and drops rows that have
// finished leaving. It reports whether anything is still moving.
func (m *Model) step(now time.Time) bool {
	moving := false
	kept := make([]*row, 0, len(m.rows))
	for _, r := range m.rows {
		r.y = r.track.At(now)
		done := r.track.Done(now)
		if r.leaving && done {
			continue
		}
		if !done {
			moving = true
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return moving
}

func (m Model) containerHeight() int {
	h := len(m.rows) * m.cfg.RowHeight
	if m.height > 0 {
		h = max(h, m.viewport.Height)
	}
	return h
}

// settle applies a priority change that was waiting for the cursor to
// leave its task.
func (m *Model) settle() tea.Cmd {
	if !m.sortPending {
		return nil
	}
	t := m.selected()
	cmd := m.relayout()
	m.focus(t)
	return cmd
}

func (m Model) selected() *storage.Task {
	visible := m.store.Visible()
	if len(visible) == 0 {
		return nil
	}
	return visible[clampCursor(m.cursor, len(visible))]
}

// focus moves the cursor onto t when it is visible.
func (m *Model) focus(t *storage.Task) {
	if t == nil {
		return
	}
	if rank, ok := t.Placement().Rank(); ok {
		m.cursor = rank
	}
	m.cursor = clampCursor(m.cursor, len(m.store.Visible()))
}

func (m Model) quit() (Model, tea.Cmd) {
	return m, tea.Quit
}

func (m Model) moveUp() (Model, tea.Cmd) {
	cmd := m.settle()
	if m.cursor > 0 {
		m.cursor = clampCursor(m.cursor-1, len(m.store.Visible()))
	}
	return m, cmd
}

func (m Model) moveDown() (Model, tea.Cmd) {
	cmd := m.settle()
	m.cursor = clampCursor(m.cursor+1, len(m.store.Visible()))
	return m, cmd
}

func (m Model) addTask() (Model, tea.Cmd) {
	t := m.store.Add()
	y := -float64(m.cfg.RowHeight)
	m.rows = append(m.rows, &row{task: t, y: y, track: motion.NewTrack(y, y, m.now(), 0, nil)})
	cmd := m.relayout()
	m.focus(t)
	m.logger.Debug("added task", "tasks", m.store.Len())

	m, focusCmd := m.startRename(t, "New task: type a name and press "+m.cfg.Keys.Confirm)
	return m, tea.Batch(cmd, focusCmd)
}

func (m Model) renameSelected() (Model, tea.Cmd) {
	cmd := m.settle()
	t := m.selected()
	if t == nil {
		m.status = "No task to rename"
		return m, cmd
	}
	m, focusCmd := m.startRename(t, "Rename: Enter to keep, Esc to cancel")
	return m, tea.Batch(cmd, focusCmd)
}

func (m Model) startRename(t *storage.Task, status string) (Model, tea.Cmd) {
	m.mode = modeRename
	m.renaming = t
	m.renameFrom = t.Name
	m.input.SetValue(t.Name)
	m.input.CursorEnd()
	m.status = status
	return m, m.input.Focus()
}

func (m Model) updateRename(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.renaming.SetName(m.renameFrom)
		m.endRename()
		m.status = "Rename cancelled"
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		m.renaming.SetName(m.input.Value())
		m.endRename()
		m.status = "Saved name"
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.renaming.SetName(m.input.Value())
		return m, cmd
	}
}

func (m *Model) endRename() {
	m.mode = modeList
	m.renaming = nil
	m.renameFrom = ""
	m.input.SetValue("")
	m.input.Blur()
}

func (m Model) cycleStatus() (Model, tea.Cmd) {
	t := m.selected()
	if t == nil {
		return m, nil
	}
	t.Cycle()
	cmd := m.relayout()
	m.focus(t)
	m.status = fmt.Sprintf("%q is %s", t.Name, t.Status)
	return m, cmd
}

func (m Model) raisePriority() (Model, tea.Cmd) {
	return m.nudgePriority((*storage.Task).Raise)
}

func (m Model) lowerPriority() (Model, tea.Cmd) {
	return m.nudgePriority((*storage.Task).Lower)
}

// nudgePriority changes the selected task's priority but holds off
// re-sorting until the cursor moves away, so the row stays put while the
// value is being adjusted.
func (m Model) nudgePriority(change func(*storage.Task)) (Model, tea.Cmd) {
	t := m.selected()
	if t == nil {
		return m, nil
	}
	change(t)
	m.sortPending = true
	m.status = fmt.Sprintf("Priority %d", t.Priority)
	return m, nil
}

func (m Model) requestDelete() (Model, tea.Cmd) {
	cmd := m.settle()
	t := m.selected()
	if t == nil {
		m.status = "No tasks"
		return m, cmd
	}
	if !m.cfg.ConfirmDelete {
		m, delCmd := m.deleteTask(t)
		return m, tea.Batch(cmd, delCmd)
	}
	m.mode = modeConfirmDelete
	m.pendingDel = t
	m.status = fmt.Sprintf("Delete %q? y/n", t.Name)
	return m, cmd
}

func (m Model) updateDeleteConfirm(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		t := m.pendingDel
		m.mode = modeList
		m.pendingDel = nil
		if t == nil {
			m.status = "Nothing to delete"
			return m, nil
		}
		return m.deleteTask(t)
	case "n", "N", "esc", m.cfg.Keys.Cancel:
		m.mode = modeList
		m.pendingDel = nil
		m.status = "Delete cancelled"
		return m, nil
	default:
		return m, nil
	}
}

// deleteTask marks t as leaving so its row drops out of view, then takes it
// out of the store.
func (m Model) deleteTask(t *storage.Task) (Model, tea.Cmd) {
	t.MarkForRemoval()
	for _, r := range m.rows {
		if r.task == t {
			r.leaving = true
		}
	}
	m.store.Remove(t)
	m.logger.Info("deleted task", "name", t.Name, "tasks", m.store.Len())
	m.status = "Deleted task"
	return m, m.relayout()
}

func (m Model) toggleHideFinished() (Model, tea.Cmd) {
	t := m.selected()
	m.hideFinished = !m.hideFinished
	cmd := m.relayout()
	m.focus(t)
	if m.hideFinished {
		m.status = "Hiding finished tasks"
	} else {
		m.status = "Showing finished tasks"
	}
	return m, cmd
}

func (m Model) toggleSort() (Model, tea.Cmd) {
	t := m.selected()
	m.sortDescending = !m.sortDescending
	cmd := m.relayout()
	m.focus(t)
	if m.sortDescending {
		m.status = "Highest priority first"
	} else {
		m.status = "Lowest priority first"
	}
	return m, cmd
}

func (m Model) copyList() (Model, tea.Cmd) {
	cmd := m.settle()
	visible := m.store.Visible()
	text := storage.FormatList(visible)
	write := m.clipboard
	n := len(visible)
	return m, tea.Batch(cmd, func() tea.Msg {
		if err := write(text); err != nil {
			return statusMsg("Failed to copy: " + err.Error())
		}
		return statusMsg(fmt.Sprintf("Copied %d tasks", n))
	})
}

func (m Model) toggleHelp() (Model, tea.Cmd) {
	m.help.ShowAll = !m.help.ShowAll
	return m, nil
}

// syncViewport refreshes the scroll area and keeps the cursor row in view.
func (m *Model) syncViewport() {
	if m.height == 0 {
		return
	}
	m.viewport.SetContent(m.renderCanvas())
	y := m.cursor * m.cfg.RowHeight
	switch {
	case y < m.viewport.YOffset:
		m.viewport.SetYOffset(y)
	case y >= m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(y - m.viewport.Height + 1)
	}
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
