package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// ImportSQLite reads the tasks table of a SQLite to-do database. Rows are
// returned in id order; done rows become finished tasks.
func ImportSQLite(dbPath string) ([]*Task, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	if _, err := os.Stat(dbPath); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, err
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	rows, err := db.Query(`SELECT title, done, priority FROM tasks ORDER BY id;`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		var title string
		var done, priority int
		if err := rows.Scan(&title, &done, &priority); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t := &Task{Name: title, Priority: priority, Status: StatusWaiting}
		if done == 1 {
			t.Status = StatusFinished
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "ro")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
