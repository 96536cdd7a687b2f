package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
)

// Comma is the field separator of frame logs.
const Comma = ';'

// Delimited reads a semicolon-delimited frame log file.
type Delimited struct {
	path   string
	logger *slog.Logger
}

func NewDelimited(path string, logger *slog.Logger) *Delimited {
	return &Delimited{path: path, logger: logger}
}

func (d *Delimited) Read(ctx context.Context) (t *Table, err error) {
	f, err := os.Open(d.path)
	if err != nil {
		return nil, fmt.Errorf("opening frame log: %w", err)
	}
	defer closeWithError(f, &err)

	t, err = ReadDelimited(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", d.path, err)
	}

	attrs := []any{
		slog.String("path", d.path),
		slog.Int("columns", len(t.Header)),
		slog.String("rows", humanize.Comma(int64(len(t.Rows)))),
	}
	if fi, sErr := f.Stat(); sErr == nil {
		attrs = append(attrs, slog.String("size", humanize.Bytes(uint64(fi.Size()))))
	}
	d.logger.Info("frame log loaded", attrs...)

	return t, nil
}

func (d *Delimited) Close() error {
	return nil
}

// ReadDelimited parses a semicolon-delimited table. Rows may have any number
// of fields; length checks belong to the consumer. Blank lines are skipped.
func ReadDelimited(ctx context.Context, r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = Comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	t := Table{Header: header}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(t.Rows)+1, err)
		}
		t.Rows = append(t.Rows, row)
	}

	return &t, nil
}
