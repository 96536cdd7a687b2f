package frame

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
)

// ClockJumpConfig describes the suspicious band of differences between two
// adjacent timing columns, and what to log when one is found.
type ClockJumpConfig struct {
	// Min and Max bound the band exclusively.
	Min float64
	Max float64

	// ContextRows is the number of rows logged before and after the offending row.
	ContextRows int

	// FromColumn and ToColumn select the column window [FromColumn, ToColumn)
	// of the context rows. ToColumn <= 0 means up to the end of the row.
	FromColumn int
	ToColumn   int
}

// DefaultClockJumpConfig flags adjacent columns roughly one second apart.
func DefaultClockJumpConfig() ClockJumpConfig {
	return ClockJumpConfig{
		Min:         0.5,
		Max:         1.5,
		ContextRows: 1,
		FromColumn:  0,
		ToColumn:    12,
	}
}

// ClockJump is an adjacent-column discontinuity found in one row.
type ClockJump struct {
	Row        int // 1-based data row number
	Column     int
	NextColumn int
	Diff       float64
}

// inBand reports whether d lies strictly inside the band.
func (c ClockJumpConfig) inBand(d float64) bool {
	return d > c.Min && d < c.Max
}

// window returns the configured column window of a row.
func (c ClockJumpConfig) window(row []string) []string {
	from := min(max(c.FromColumn, 0), len(row))
	to := len(row)
	if c.ToColumn > 0 {
		to = min(c.ToColumn, len(row))
	}
	if from >= to {
		return nil
	}
	return row[from:to]
}

// FindClockJumps returns the clock jumps of a single row. cols are the
// timing columns in header order.
func FindClockJumps(c ClockJumpConfig, rowNum int, row []string, cols []int) []ClockJump {
	var jumps []ClockJump
	for k := 0; k+1 < len(cols); k++ {
		a, b := cols[k], cols[k+1]
		if a >= len(row) || b >= len(row) {
			break
		}

		d := math.Abs(parseValue(row[b]) - parseValue(row[a]))
		if c.inBand(d) {
			jumps = append(jumps, ClockJump{Row: rowNum, Column: a, NextColumn: b, Diff: d})
		}
	}
	return jumps
}

// scanClockJumps logs every clock jump along with the surrounding rows. It
// never alters records and never fails.
func (e *Extractor) scanClockJumps(rows [][]string) int {
	cfg := *e.clockJumps
	cols := e.schema.TimingColumns()
	header := e.schema.Header()

	var found int
	for i, row := range rows {
		for _, j := range FindClockJumps(cfg, i+1, row, cols) {
			found++

			attrs := []any{
				slog.Int("row", j.Row),
				slog.String("column", header[j.Column]),
				slog.String("nextColumn", header[j.NextColumn]),
				slog.String("diff", fmt.Sprintf("%0.6fs", j.Diff)),
			}

			var around []any
			for n := max(i-cfg.ContextRows, 0); n <= min(i+cfg.ContextRows, len(rows)-1); n++ {
				around = append(around, slog.String(fmt.Sprintf("row%d", n+1), strings.Join(cfg.window(rows[n]), ";")))
			}
			attrs = append(attrs, slog.Group("context", around...))

			e.logger.Warn("clock jump detected", attrs...)
		}
	}

	if found > 0 {
		e.logger.Info("clock jump scan finished", slog.Int("jumps", found))
	}
	return found
}
