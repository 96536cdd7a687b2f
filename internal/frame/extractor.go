package frame

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/roman-kulish/pipeline-latency/internal/schema"
)

// chunkSize is the number of rows handed to one worker at a time.
const chunkSize = 1024

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger for extraction diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger.With(slog.String("component", "frame"))
	}
}

// WithWorkers extracts rows on up to n goroutines, one chunk of chunkSize
// rows per goroutine. Values below 2 keep extraction sequential, and so does
// any input of at most chunkSize rows whatever n is.
func WithWorkers(n int) Option {
	return func(e *Extractor) {
		e.workers = n
	}
}

// WithClockJumps enables the clock jump scan with the given configuration.
func WithClockJumps(c ClockJumpConfig) Option {
	return func(e *Extractor) {
		e.clockJumps = &c
	}
}

type group struct {
	role    schema.Role
	indices []int
}

// Extractor turns raw rows into Records according to a resolved schema.
type Extractor struct {
	schema   *schema.Schema
	required int

	groups     []group
	singletons []schema.SingletonRole

	workers    int
	clockJumps *ClockJumpConfig
	logger     *slog.Logger
}

// NewExtractor creates an Extractor for rows laid out as described by s.
func NewExtractor(s *schema.Schema, options ...Option) *Extractor {
	e := Extractor{
		schema:   s,
		required: s.MaxIndex() + 1,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, role := range s.Roles() {
		c, _ := s.Column(role)
		switch c := c.(type) {
		case schema.GroupRole:
			e.groups = append(e.groups, group{role: c.Role(), indices: c.Indices()})
		case schema.SingletonRole:
			e.singletons = append(e.singletons, c)
		}
	}

	for _, option := range options {
		option(&e)
	}

	return &e
}

// Extract builds the Record of a single row. rowNum is the 1-based data row
// number used in errors and diagnostics.
func (e *Extractor) Extract(rowNum int, row []string) (Record, error) {
	if len(row) < e.required {
		return Record{}, &RowFormatError{Row: rowNum, Fields: len(row), Required: e.required}
	}

	rec := Record{row: rowNum}

	samples := make([]float64, 0, 8)
	for _, g := range e.groups {
		samples = samples[:0]
		for _, i := range g.indices {
			samples = append(samples, parseValue(row[i]))
		}

		mean, spread, err := consolidate(samples)
		if err != nil {
			return Record{}, fmt.Errorf("row %d: %s: %w", rowNum, g.role, err)
		}

		fields := groupFields[g.role]
		rec.set(fields[0], mean)
		rec.set(fields[1], spread)
	}

	for _, c := range e.singletons {
		rec.set(singletonFields[c.Role()], parseValue(row[c.Index()]))
	}

	return rec, nil
}

// ExtractAll extracts every row, preserving row order. Row lengths are
// validated before any record is built so a malformed row aborts the whole
// run.
func (e *Extractor) ExtractAll(ctx context.Context, rows [][]string) ([]Record, error) {
	for i, row := range rows {
		if len(row) < e.required {
			return nil, &RowFormatError{Row: i + 1, Fields: len(row), Required: e.required}
		}
	}

	if e.clockJumps != nil {
		e.scanClockJumps(rows)
	}

	records := make([]Record, len(rows))

	workers := e.poolSize(len(rows))
	e.logger.Debug("extracting rows",
		slog.Int("rows", len(rows)),
		slog.Int("workers", workers))

	if workers < 2 {
		for i, row := range rows {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			rec, err := e.Extract(i+1, row)
			if err != nil {
				return nil, err
			}
			records[i] = rec
		}
		return records, nil
	}

	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx).WithCancelOnError()
	for start := 0; start < len(rows); start += chunkSize {
		start := start
		end := min(start+chunkSize, len(rows))

		p.Go(func(ctx context.Context) error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}

				rec, err := e.Extract(i+1, rows[i])
				if err != nil {
					return err
				}
				records[i] = rec
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	return records, nil
}

// parseValue converts a text field to a number; anything unparseable,
// including the empty string, NaN and infinities, reads as zero.
func parseValue(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// consolidate returns the arithmetic mean and the max - min range of the
// samples.
func consolidate(samples []float64) (mean, spread float64, err error) {
	if len(samples) == 0 {
		return 0, 0, ErrEmptyGroup
	}
	return stat.Mean(samples, nil), floats.Max(samples) - floats.Min(samples), nil
}

// poolSize is the number of goroutines ExtractAll uses for n rows.
func (e *Extractor) poolSize(n int) int {
	if e.workers < 2 || n <= chunkSize {
		return 1
	}
	return min(e.workers, (n+chunkSize-1)/chunkSize)
}
