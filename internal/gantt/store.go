package gantt

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// Store reads task snapshots from the Gantt application's SQLite database.
// The database is opened read-only; the application owns writes.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore opens the database at path. The file must already exist.
func OpenStore(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open gantt db: %w", err)
	}

	dsn := "file:" + path + "?mode=ro&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	return &Store{db: db, path: path}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file the store reads.
func (s *Store) Path() string {
	return s.path
}

// Snapshot loads every task and link in one read transaction.
func (s *Store) Snapshot(ctx context.Context) (*Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin read: %w", err)
	}
	defer tx.Rollback()

	tasks, err := s.listTasks(ctx, tx)
	if err != nil {
		return nil, err
	}
	links, err := s.listLinks(ctx, tx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Tasks: tasks, Links: links}, nil
}

func (s *Store) listTasks(ctx context.Context, tx *sql.Tx) ([]TaskRecord, error) {
	// Databases created before the view/order migration lack both columns.
	hasView, err := hasColumn(ctx, tx, "tasks", "view")
	if err != nil {
		return nil, err
	}
	viewExpr := "'project'"
	if hasView {
		viewExpr = "COALESCE(view, 'project')"
	}
	orderBy := "id"
	if ok, _ := hasColumn(ctx, tx, "tasks", "order"); ok {
		orderBy = `"order", id`
	}

	query := `SELECT id, text, COALESCE(type, 'task'), COALESCE(parent, ''),
		COALESCE(start_date, ''), COALESCE(end_date, ''), duration,
		COALESCE(progress, 0), COALESCE(status, ''), COALESCE(owner, ''),
		COALESCE(phase, ''), COALESCE(priority, ''), COALESCE(is_milestone, 0), ` + viewExpr + `
		FROM tasks ORDER BY ` + orderBy

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []TaskRecord
	for rows.Next() {
		var (
			t         TaskRecord
			milestone int
		)
		if err := rows.Scan(&t.ID, &t.Text, &t.Type, &t.Parent, &t.StartDate, &t.EndDate,
			&t.Duration, &t.Progress, &t.Status, &t.Owner, &t.Phase, &t.Priority, &milestone, &t.View); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.IsMilestone = milestone != 0
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

func (s *Store) listLinks(ctx context.Context, tx *sql.Tx) ([]LinkRecord, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, source, target, COALESCE(type, '0') FROM task_links ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	var links []LinkRecord
	for rows.Next() {
		var l LinkRecord
		var typ any
		if err := rows.Scan(&l.ID, &l.Source, &l.Target, &typ); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		l.Type = linkTypeCode(typ)
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}
	return links, nil
}

// linkTypeCode normalizes the type column, which older rows store as an integer.
func linkTypeCode(v any) string {
	switch t := v.(type) {
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.Itoa(int(t))
	case string:
		return t
	case []byte:
		return string(t)
	}
	return "0"
}

func hasColumn(ctx context.Context, tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return false, fmt.Errorf("inspect %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, fmt.Errorf("inspect %s: %w", table, err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
