package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

var (
	ErrEmptyInput   = errors.New("source: input has no header row")
	ErrInvalidTable = errors.New("source: invalid table name")
	ErrNoSuchTable  = errors.New("source: no such table")
)

// DefaultTable is the capture database table read when none is configured.
const DefaultTable = "frames"

// Table is a header row followed by the data rows, every field as text.
type Table struct {
	Header []string
	Rows   [][]string
}

// Source yields one complete frame log.
type Source interface {
	// Read loads the whole table. Row order is the log order.
	Read(ctx context.Context) (*Table, error)

	Close() error
}

type options struct {
	table  string
	logger *slog.Logger
}

type Option func(*options)

// WithTable selects the table of a capture database.
func WithTable(name string) Option {
	return func(o *options) {
		o.table = name
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger.With(slog.String("component", "source"))
	}
}

// Open picks the source for path by its extension: SQLite capture databases
// for .sqlite, .sqlite3 and .db, semicolon-delimited text otherwise.
func Open(path string, opts ...Option) (Source, error) {
	o := options{
		table:  DefaultTable,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".sqlite", ".sqlite3", ".db":
		s, err := NewSqlite(path, o.table, o.logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return NewDelimited(path, o.logger), nil
	}
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
