package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/dustin/go-humanize"
	_ "github.com/mattn/go-sqlite3"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Sqlite reads a frame log stored as a table of a capture database. Every
// column of the table is a log column, in declaration order.
type Sqlite struct {
	dbPath string
	table  string
	logger *slog.Logger

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

func NewSqlite(dbPath, table string, logger *slog.Logger) (*Sqlite, error) {
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return &Sqlite{dbPath: dbPath, table: table, logger: logger}, nil
}

func (s *Sqlite) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *Sqlite) Read(ctx context.Context) (t *Table, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	var n int
	if err = db.QueryRowContext(ctx, tableExistsSQL, s.table).Scan(&n); err != nil {
		return nil, fmt.Errorf("looking up table: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchTable, s.table)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(selectFramesSQL, s.table))
	if err != nil {
		return nil, fmt.Errorf("querying frames: %w", err)
	}
	defer closeWithError(rows, &err)

	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}
	if len(header) == 0 {
		return nil, ErrEmptyInput
	}

	t = &Table{Header: header}

	values := make([]sql.NullString, len(header))
	dest := make([]any, len(header))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err = rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning row %d: %w", len(t.Rows)+1, err)
		}

		row := make([]string, len(values))
		for i, v := range values {
			row[i] = v.String
		}
		t.Rows = append(t.Rows, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating frames: %w", err)
	}

	s.logger.Info("capture database loaded",
		slog.String("path", s.dbPath),
		slog.String("table", s.table),
		slog.Int("columns", len(header)),
		slog.String("rows", humanize.Comma(int64(len(t.Rows)))))

	return t, nil
}

func (s *Sqlite) Close() error {
	s.closeOnce.Do(func() {
		if s.readDB != nil {
			s.closeErr = s.readDB.Close()
			s.readDB = nil
		}
	})

	return s.closeErr
}
