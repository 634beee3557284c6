package storage

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func task(name string, priority int, status Status) *Task {
	return &Task{Name: name, Priority: priority, Status: status}
}

func names(tasks []*Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Name)
	}
	return out
}

func indices(tasks []*Task) []int {
	out := make([]int, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Index())
	}
	return out
}

func TestResetIndicesFollowsStorageOrder(t *testing.T) {
	a, b, c := task("a", 5, StatusFinished), task("b", 1, StatusWaiting), task("c", 3, StatusInProgress)
	s := New("", a, b, c)
	s.FilterFinished(true)
	s.SortByPriority(true)

	s.ResetIndices()

	assert.Equal(t, []int{0, 1, 2}, indices(s.Tasks()))
}

func TestResetIndicesSkipsPendingRemoval(t *testing.T) {
	a, b, c := task("a", 1, 0), task("b", 1, 0), task("c", 1, 0)
	s := New("", a, b, c)
	b.MarkForRemoval()

	s.ResetIndices()

	assert.Equal(t, []int{0, IndexPendingRemoval, 1}, indices(s.Tasks()))
}

func TestFilterFinished(t *testing.T) {
	tests := []struct {
		name string
		hide bool
		want []int
	}{
		{"hide", true, []int{IndexHidden, 1, IndexHidden}},
		{"show", false, []int{0, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("", task("a", 1, StatusFinished), task("b", 3, StatusWaiting), task("c", 2, StatusFinished))
			s.FilterFinished(tt.hide)
			assert.Equal(t, tt.want, indices(s.Tasks()))
		})
	}
}

func TestFilterFinishedKeepsSortedRanks(t *testing.T) {
	a, b, c, d := task("a", 4, StatusWaiting), task("b", 1, StatusFinished), task("c", 2, StatusInProgress), task("d", 3, StatusWaiting)
	s := New("", a, b, c, d)
	s.SortByPriority(false)
	require.Equal(t, []int{3, 0, 1, 2}, indices(s.Tasks()))

	s.FilterFinished(true)
	assert.Equal(t, []int{3, IndexHidden, 1, 2}, indices(s.Tasks()))
}

func TestSortByPriorityIsStable(t *testing.T) {
	a, b, c, d := task("a", 2, 0), task("b", 1, 0), task("c", 2, 0), task("d", 1, 0)
	s := New("", a, b, c, d)

	s.SortByPriority(false)
	assert.Equal(t, []string{"b", "d", "a", "c"}, names(s.Visible()))
	assert.Equal(t, []int{2, 0, 3, 1}, indices(s.Tasks()))

	s.ResetIndices()
	s.SortByPriority(true)
	assert.Equal(t, []string{"c", "a", "d", "b"}, names(s.Visible()))
}

func TestSortByPriorityLeavesHiddenAlone(t *testing.T) {
	a, b, c := task("a", 9, StatusFinished), task("b", 1, 0), task("c", 5, 0)
	s := New("", a, b, c)
	s.FilterFinished(true)
	s.SortByPriority(true)

	assert.Equal(t, IndexHidden, a.Index())
	assert.Equal(t, 0, c.Index())
	assert.Equal(t, 1, b.Index())
}

func TestRecomputeScenarios(t *testing.T) {
	tests := []struct {
		name       string
		hide, desc bool
		want       []string
		wantIdx    []int
	}{
		{"hide finished descending", true, true, []string{"B"}, []int{IndexHidden, 0, IndexHidden}},
		{"show all descending", false, true, []string{"B", "C", "A"}, []int{2, 0, 1}},
		{"show all ascending", false, false, []string{"A", "C", "B"}, []int{0, 2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("",
				task("A", 1, StatusFinished),
				task("B", 3, StatusWaiting),
				task("C", 2, StatusFinished),
			)
			got := s.Recompute(tt.hide, tt.desc)
			assert.Equal(t, tt.want, names(got))
			assert.Equal(t, tt.wantIdx, indices(s.Tasks()))
			assert.Equal(t, Settings{HideFinished: tt.hide, SortDescending: tt.desc}, s.Settings())
		})
	}
}

func TestRecomputeIsDense(t *testing.T) {
	s := New("",
		task("a", 4, StatusFinished),
		task("b", 4, StatusWaiting),
		task("c", -1, StatusInProgress),
		task("d", 7, StatusFinished),
		task("e", 0, StatusWaiting),
	)
	visible := s.Recompute(true, false)
	require.Len(t, visible, 3)
	for i, v := range visible {
		rank, ok := v.Placement().Rank()
		require.True(t, ok)
		assert.Equal(t, i, rank)
	}
}

func TestAddInsertsDefaultAtFront(t *testing.T) {
	s := New("", task("a", 1, 0))
	added := s.Add()

	require.Equal(t, 2, s.Len())
	assert.Same(t, added, s.Tasks()[0])
	assert.Equal(t, DefaultTaskName, added.Name)
	assert.Equal(t, DefaultTaskPriority, added.Priority)
	assert.Equal(t, StatusWaiting, added.Status)
}

func TestRemoveByIdentity(t *testing.T) {
	a, b, c := task("same", 1, 0), task("same", 1, 0), task("other", 2, 0)
	s := New("", a, b, c)
	b.MarkForRemoval()

	require.True(t, s.Remove(b))
	assert.Equal(t, []*Task{a, c}, s.Tasks())
	assert.Equal(t, []int{0, 1}, indices(s.Tasks()))
	assert.False(t, s.Remove(b))
}

func TestOpenDefaults(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"empty path", func(*testing.T) string { return "" }},
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.xml") }},
		{"no task records", func(t *testing.T) string {
			p := filepath.Join(t.TempDir(), "tasks.xml")
			require.NoError(t, os.WriteFile(p, []byte(`<ToDoPanel><Settings><hideFinished>True</hideFinished><sortState>False</sortState></Settings></ToDoPanel>`), 0o644))
			return p
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.path(t))
			require.NoError(t, err)
			require.Equal(t, 1, s.Len())
			got := s.Tasks()[0]
			assert.Equal(t, "new task", got.Name)
			assert.Equal(t, 1, got.Priority)
			assert.Equal(t, StatusWaiting, got.Status)
		})
	}
}

func TestOpenMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"broken xml", `<ToDoPanel><Task>`},
		{"empty file", ``},
		{"non-numeric priority", `<ToDoPanel><Task><name>x</name><priority>high</priority><status>0</status></Task></ToDoPanel>`},
		{"non-numeric status", `<ToDoPanel><Task><name>x</name><priority>1</priority><status>done</status></Task></ToDoPanel>`},
		{"missing status", `<ToDoPanel><Task><name>x</name><priority>1</priority></Task></ToDoPanel>`},
		{"bad flag", `<ToDoPanel><Settings><hideFinished>maybe</hideFinished></Settings></ToDoPanel>`},
		{"element after root", `<ToDoPanel><Task><name>x</name><priority>1</priority><status>0</status></Task></ToDoPanel><garbage`},
		{"text after root", `<ToDoPanel></ToDoPanel> trailing text`},
		{"two roots", `<ToDoPanel/><ToDoPanel/>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "tasks.xml")
			require.NoError(t, os.WriteFile(p, []byte(tt.body), 0o644))
			_, err := Open(p)
			require.Error(t, err)
			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, p, perr.Path)
		})
	}
}

func TestSaveAndOpenRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "tasks.xml")
	s := New(p,
		task("comp <final>", 3, StatusInProgress),
		task("", -2, StatusFinished),
		task("odd status", 0, Status(7)),
	)
	s.Recompute(true, true)
	require.NoError(t, s.Save())

	loaded, err := Open(p)
	require.NoError(t, err)
	assert.Equal(t, Settings{HideFinished: true, SortDescending: true}, loaded.Settings())
	require.Equal(t, s.Len(), loaded.Len())
	for i, want := range s.Tasks() {
		got := loaded.Tasks()[i]
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Priority, got.Priority)
		assert.Equal(t, want.Status, got.Status)
		assert.Equal(t, i, got.Index())
	}
}

func TestDecodeIgnoresStoredIndex(t *testing.T) {
	doc := `<ToDoPanel>
  <Task><index>-2</index><status>2</status><name>a</name><priority>4</priority></Task>
  <Task><name>b</name><priority> 2 </priority><status>1</status><index>9</index></Task>
</ToDoPanel>`
	s, err := Open(writeFile(t, doc))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, indices(s.Tasks()))
	assert.Equal(t, 2, s.Tasks()[1].Priority)
	assert.Equal(t, Settings{}, s.Settings())
}

func TestDecodeFlags(t *testing.T) {
	doc := `<ToDoPanel><Settings><hideFinished>1</hideFinished><sortState>True</sortState></Settings></ToDoPanel>`
	s, err := Open(writeFile(t, doc))
	require.NoError(t, err)
	assert.Equal(t, Settings{HideFinished: true, SortDescending: true}, s.Settings())
}

func TestSerializeFormat(t *testing.T) {
	s := New("", task("roto", 2, StatusFinished))
	s.SetSettings(Settings{HideFinished: true})
	data, err := s.Serialize()
	require.NoError(t, err)

	out := string(data)
	assert.True(t, strings.HasPrefix(out, "<ToDoPanel>"))
	assert.Contains(t, out, "<hideFinished>True</hideFinished>")
	assert.Contains(t, out, "<sortState>False</sortState>")
	assert.Contains(t, out, "<name>roto</name>")
	assert.Contains(t, out, "<priority>2</priority>")
	assert.Contains(t, out, "<status>2</status>")
	assert.Contains(t, out, "<index>0</index>")
}

func TestOpenAllowsTrailingComments(t *testing.T) {
	p := writeFile(t, "<ToDoPanel><Task><name>x</name><priority>1</priority><status>0</status></Task></ToDoPanel>\n<!-- saved -->\n<?panel v1?>\n")
	s, err := Open(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, names(s.Tasks()))
}

func TestSaveRejectsNamesXMLCannotHold(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tasks.xml")
	require.NoError(t, New(p, task("plate", 1, StatusWaiting)).Save())

	s := New(p, task("a\x01b", 1, StatusWaiting))
	err := s.Save()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "U+0001")

	kept, err := Open(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"plate"}, names(kept.Tasks()))

	s = New(p, task("tab\there \u00e9\U0001F600", 1, StatusWaiting))
	require.NoError(t, s.Save())
	reloaded, err := Open(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"tab\there \u00e9\U0001F600"}, names(reloaded.Tasks()))
}

func TestSaveWithoutPath(t *testing.T) {
	s := New("")
	assert.Error(t, s.Save())
}

func TestTaskString(t *testing.T) {
	got := task("paint", 4, StatusInProgress).String()
	assert.Equal(t, "--------------------\np4:\t\tpaint\t\t (in progress)", got)
	assert.Contains(t, task("x", 0, Status(9)).String(), "(status 9)")
}

func TestStatusNext(t *testing.T) {
	assert.Equal(t, StatusInProgress, StatusWaiting.Next())
	assert.Equal(t, StatusFinished, StatusInProgress.Next())
	assert.Equal(t, StatusWaiting, StatusFinished.Next())
	assert.Equal(t, StatusWaiting, Status(-3).Next())
}

func TestImportSQLite(t *testing.T) {
	p := filepath.Join(t.TempDir(), "todo.db")
	db, err := sql.Open("sqlite", p)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	done INTEGER NOT NULL DEFAULT 0,
	priority INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO tasks (title, done, priority, created_at) VALUES ('plate', 0, 2, 'x'), ('track', 1, 5, 'x');`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	tasks, err := ImportSQLite(p)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "plate", tasks[0].Name)
	assert.Equal(t, 2, tasks[0].Priority)
	assert.Equal(t, StatusWaiting, tasks[0].Status)
	assert.Equal(t, StatusFinished, tasks[1].Status)

	s := New("", task("existing", 1, 0))
	s.Append(tasks...)
	assert.Equal(t, []string{"existing", "plate", "track"}, names(s.Tasks()))
}

func TestImportSQLiteMissing(t *testing.T) {
	_, err := ImportSQLite(filepath.Join(t.TempDir(), "missing.db"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tasks.xml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestFormatList(t *testing.T) {
	s := New("", task("a", 1, StatusWaiting), task("b", 2, StatusFinished))
	got := FormatList(s.Recompute(false, true))
	want := "--------------------\np2:\t\tb\t\t (finished)\n--------------------\np1:\t\ta\t\t (waiting)"
	assert.Equal(t, want, got)
	assert.Equal(t, "", FormatList(nil))
}
