package latency

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/pipeline-latency/internal/frame"
	"github.com/roman-kulish/pipeline-latency/internal/schema"
	"github.com/roman-kulish/pipeline-latency/internal/stats"
)

const (
	JitterTitle = "Timestamp difference"
	TotalTitle  = "Total time"
)

// Line is one reduced report line. Values follow the order of the report's
// battery, in seconds.
type Line struct {
	Title   string
	Values  []float64
	Samples int
}

// Report is the ordered set of reduced lines for one dataset.
type Report struct {
	Profile string
	Battery []stats.Reducer
	Lines   []Line
	Frames  int
}

// Series is the latency series of one report line before reduction.
type Series struct {
	Title    string
	Values   []float64
	Dropped  int
	Glitches int
}

type Option func(*Aggregator)

// WithLogger sets the logger for filtering diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger.With(slog.String("component", "latency"))
	}
}

// Aggregator derives latency series from frame records and reduces them
// through the statistic battery.
type Aggregator struct {
	profile Profile
	battery []stats.Reducer
	logger  *slog.Logger
}

func NewAggregator(p Profile, options ...Option) *Aggregator {
	a := Aggregator{
		profile: p,
		battery: stats.Battery(p.TailPercentile),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(&a)
	}
	return &a
}

// Aggregate builds the report lines in pipeline order: timestamp jitter,
// one line per adjacent pair of the stage chain, then the end-to-end total.
func (a *Aggregator) Aggregate(s *schema.Schema, records []frame.Record) (*Report, error) {
	if err := s.Require(schema.Timestamps); err != nil {
		return nil, err
	}

	chain, err := BuildChain(a.profile, s)
	if err != nil {
		return nil, err
	}

	series := make([]Series, 0, len(chain)+1)
	series = append(series, a.jitter(records))
	for i := 1; i < len(chain); i++ {
		series = append(series, a.stage(records, chain[i-1].Field, chain[i].Field, chain[i].Title, true))
	}
	series = append(series, a.stage(records, chain[0].Field, chain[len(chain)-1].Field, TotalTitle, false))

	report := Report{
		Profile: a.profile.Name,
		Battery: a.battery,
		Lines:   make([]Line, 0, len(series)),
		Frames:  len(records),
	}

	var dropped, glitches int
	for _, ser := range series {
		line, err := a.reduce(ser, len(records))
		if err != nil {
			return nil, err
		}
		report.Lines = append(report.Lines, line)

		dropped += ser.Dropped
		glitches += ser.Glitches
	}

	a.logger.Info("latency report aggregated",
		slog.String("profile", a.profile.Name),
		slog.String("frames", humanize.Comma(int64(len(records)))),
		slog.Int("lines", len(report.Lines)),
		slog.String("droppedPairs", humanize.Comma(int64(dropped))),
		slog.String("glitches", humanize.Comma(int64(glitches))))

	return &report, nil
}

func (a *Aggregator) reduce(ser Series, frames int) (Line, error) {
	if ser.Dropped > 0 {
		a.logger.Warn("dropped pairs skipped",
			slog.String("line", ser.Title),
			slog.Int("skipped", ser.Dropped))
	}

	if len(ser.Values) == 0 {
		return Line{}, &EmptySeriesError{Line: ser.Title, Frames: frames}
	}

	values, err := stats.Summarize(a.battery, ser.Values)
	if err != nil {
		return Line{}, fmt.Errorf("line %q: %w", ser.Title, err)
	}

	a.logger.Debug("line reduced",
		slog.String("line", ser.Title),
		slog.Int("samples", len(ser.Values)),
		slog.Int("dropped", ser.Dropped),
		slog.Int("glitches", ser.Glitches))

	return Line{Title: ser.Title, Values: values, Samples: len(ser.Values)}, nil
}

// jitter is the spread of the primary timestamp group per frame. It covers
// every frame, warm-up included. Dropped
// frames are left out when filtering is on.
func (a *Aggregator) jitter(records []frame.Record) Series {
	ser := Series{Title: JitterTitle}
	for i := range records {
		if a.profile.Filter && records[i].Dropped() {
			ser.Dropped++
			continue
		}
		ser.Values = append(ser.Values, records[i].Value(frame.TSSpread))
	}
	return ser
}

// stage computes |from - to| for every frame past warm-up. With filtering
// on, an entry touching a dropped frame is skipped, and with glitches set a
// difference above the threshold is logged and skipped.
func (a *Aggregator) stage(records []frame.Record, from, to frame.Field, title string, glitches bool) Series {
	ser := Series{Title: title}

	start := a.profile.WarmupFrames
	if a.profile.DiffMode == DiffAdjacent {
		start = max(start, 1)
	}

	for i := start; i < len(records); i++ {
		prev := i
		if a.profile.DiffMode == DiffAdjacent {
			prev = i - 1
		}

		if a.profile.Filter && droppedPair(records, i) {
			ser.Dropped++
			a.logger.Debug("dropped pair skipped",
				slog.String("line", title),
				slog.Int("row", records[i].Row()))
			continue
		}

		d := math.Abs(records[prev].Value(from) - records[i].Value(to))

		if a.profile.Filter && glitches && a.profile.GlitchThreshold > 0 && d > a.profile.GlitchThreshold {
			ser.Glitches++
			a.logger.Warn("glitch filtered",
				slog.String("line", title),
				slog.Int("row", records[i].Row()),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
				slog.String("diff", fmt.Sprintf("%0.4fms", d*1000)),
				slog.String("threshold", fmt.Sprintf("%0.4fms", a.profile.GlitchThreshold*1000)))
			continue
		}

		ser.Values = append(ser.Values, d)
	}

	return ser
}

// droppedPair reports whether frame i or its predecessor is dropped.
func droppedPair(records []frame.Record, i int) bool {
	return records[i].Dropped() || (i > 0 && records[i-1].Dropped())
}
