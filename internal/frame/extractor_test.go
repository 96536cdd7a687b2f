package frame

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/pipeline-latency/internal/schema"
)

func mustResolve(t *testing.T, header ...string) *schema.Schema {
	t.Helper()

	s, err := schema.Resolve(header)
	require.NoError(t, err)
	return s
}

func TestExtract_GroupMeanAndSpread(t *testing.T) {
	s := mustResolve(t, "timestamp0", "timestamp1", "timestamp2", "encode")
	e := NewExtractor(s)

	rec, err := e.Extract(1, []string{"1.0", "1.02", "0.98", "2.5"})
	require.NoError(t, err)

	ts, ok := rec.Get(TS)
	require.True(t, ok)
	assert.InDelta(t, 1.0, ts, 1e-12)

	spread, ok := rec.Get(TSSpread)
	require.True(t, ok)
	assert.InDelta(t, 0.04, spread, 1e-12)

	assert.Equal(t, 2.5, rec.Value(Encode))
	assert.Equal(t, 1, rec.Row())
}

func TestExtract_SingleSampleGroupHasZeroSpread(t *testing.T) {
	s := mustResolve(t, "timestamp0", "dolphin0")
	e := NewExtractor(s)

	rec, err := e.Extract(1, []string{"3.25", "3.5"})
	require.NoError(t, err)

	assert.Equal(t, 3.25, rec.Value(TS))
	assert.Equal(t, 0.0, rec.Value(TSSpread))
	assert.Equal(t, 3.5, rec.Value(Capture))
	assert.Equal(t, 0.0, rec.Value(CaptureSpread))
}

func TestExtract_MeanAndSpreadProperty(t *testing.T) {
	s := mustResolve(t, "dolphin0", "dolphin1", "dolphin2")
	e := NewExtractor(s)

	samples := [][3]float64{
		{0.1, 0.2, 0.3},
		{5, 5, 5},
		{-1, 7, 3},
		{1234.5678, 1234.5679, 1234.5601},
	}
	for _, smp := range samples {
		row := []string{fmt.Sprint(smp[0]), fmt.Sprint(smp[1]), fmt.Sprint(smp[2])}

		rec, err := e.Extract(1, row)
		require.NoError(t, err)

		mean := (smp[0] + smp[1] + smp[2]) / 3
		spread := max(smp[0], smp[1], smp[2]) - min(smp[0], smp[1], smp[2])
		assert.InDelta(t, mean, rec.Value(Capture), 1e-9, "mean of %v", smp)
		assert.InDelta(t, spread, rec.Value(CaptureSpread), 1e-9, "spread of %v", smp)
	}
}

func TestExtract_UnparseableValuesReadAsZero(t *testing.T) {
	s := mustResolve(t, "timestamp0", "timestamp1", "sync", "encode", "dropped")
	e := NewExtractor(s)

	rec, err := e.Extract(1, []string{"", "abc", " 1.5 ", "NaN", "x"})
	require.NoError(t, err)

	assert.Equal(t, 0.0, rec.Value(TS))
	assert.Equal(t, 1.5, rec.Value(Sync))
	assert.Equal(t, 0.0, rec.Value(Encode))
	assert.False(t, rec.Dropped())
}

func TestExtract_OptionalRolesOmitted(t *testing.T) {
	s := mustResolve(t, "timestamp0", "sync", "bayer")
	e := NewExtractor(s)

	rec, err := e.Extract(1, []string{"1", "2", "3"})
	require.NoError(t, err)

	assert.False(t, rec.Has(Upload))
	_, ok := rec.Get(Upload)
	assert.False(t, ok)
	_, ok = rec.FrameNumber()
	assert.False(t, ok)
}

func TestExtract_PassThroughFields(t *testing.T) {
	s := mustResolve(t, "num", "timestamp0", "dropped")
	e := NewExtractor(s)

	rec, err := e.Extract(1, []string{"42", "1.0", "1"})
	require.NoError(t, err)

	n, ok := rec.FrameNumber()
	require.True(t, ok)
	assert.Equal(t, int64(42), n)
	assert.True(t, rec.Dropped())
}

func TestExtract_ShortRow(t *testing.T) {
	s := mustResolve(t, "timestamp0", "timestamp1", "encode")
	e := NewExtractor(s)

	_, err := e.Extract(7, []string{"1", "2"})

	var rowErr *RowFormatError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 7, rowErr.Row)
	assert.Equal(t, 2, rowErr.Fields)
	assert.Equal(t, 3, rowErr.Required)
}

func TestExtractAll_AbortsOnMalformedRow(t *testing.T) {
	s := mustResolve(t, "timestamp0", "encode")
	e := NewExtractor(s)

	rows := [][]string{{"1", "2"}, {"1", "2"}, {"1"}, {"1", "2"}}
	records, err := e.ExtractAll(context.Background(), rows)

	assert.Nil(t, records)
	var rowErr *RowFormatError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 3, rowErr.Row)
}

func TestExtractAll_PreservesOrder(t *testing.T) {
	s := mustResolve(t, "num", "timestamp0", "encode")

	rows := make([][]string, 5000)
	for i := range rows {
		rows[i] = []string{fmt.Sprint(i), fmt.Sprintf("%d.5", i), fmt.Sprintf("%d.75", i)}
	}

	for _, workers := range []int{0, 1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			e := NewExtractor(s, WithWorkers(workers))

			records, err := e.ExtractAll(context.Background(), rows)
			require.NoError(t, err)
			require.Len(t, records, len(rows))

			for i, rec := range records {
				n, _ := rec.FrameNumber()
				require.Equal(t, int64(i), n)
				require.Equal(t, i+1, rec.Row())
				require.InDelta(t, float64(i)+0.5, rec.Value(TS), 1e-9)
			}
		})
	}
}

func TestExtractAll_SmallInputRunsSequentially(t *testing.T) {
	testCases := []struct {
		workers int
		rows    int
		want    int
	}{
		{workers: 0, rows: 5000, want: 1},
		{workers: 1, rows: 5000, want: 1},
		{workers: 4, rows: 3, want: 1},
		{workers: 4, rows: chunkSize, want: 1},
		{workers: 4, rows: chunkSize + 1, want: 2},
		{workers: 4, rows: 5000, want: 4},
		{workers: 16, rows: 5000, want: 5},
	}

	s := mustResolve(t, "timestamp0", "encode")
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("workers=%d/rows=%d", tc.workers, tc.rows), func(t *testing.T) {
			e := NewExtractor(s, WithWorkers(tc.workers))
			assert.Equal(t, tc.want, e.poolSize(tc.rows))
		})
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := NewExtractor(s, WithWorkers(4), WithLogger(logger))

	records, err := e.ExtractAll(context.Background(), [][]string{{"1.0", "1.5"}, {"2.0", "2.5"}})
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Contains(t, buf.String(), "rows=2 workers=1")
}

func TestExtractAll_Cancelled(t *testing.T) {
	s := mustResolve(t, "timestamp0")
	e := NewExtractor(s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.ExtractAll(ctx, [][]string{{"1"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsolidate_EmptyGroup(t *testing.T) {
	_, _, err := consolidate(nil)
	assert.ErrorIs(t, err, ErrEmptyGroup)
}

func TestParseField(t *testing.T) {
	for f := TS; f < numFields; f++ {
		parsed, ok := ParseField(f.String())
		require.True(t, ok, "field %d", f)
		assert.Equal(t, f, parsed)
	}

	_, ok := ParseField("bogus")
	assert.False(t, ok)
}

func TestFieldRole(t *testing.T) {
	assert.Equal(t, schema.Timestamps, TSSpread.Role())
	assert.Equal(t, schema.Encode, Encode.Role())

	f, ok := FieldOf(schema.Captures)
	assert.True(t, ok)
	assert.Equal(t, Capture, f)
}

func TestExtractAll_LogsClockJumps(t *testing.T) {
	s := mustResolve(t, "num", "timestamp0", "timestamp1", "encode")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	e := NewExtractor(s, WithLogger(logger), WithClockJumps(DefaultClockJumpConfig()))

	rows := [][]string{
		{"1", "10.000", "10.001", "10.010"},
		{"2", "10.100", "11.101", "11.110"}, // timestamp1 one second ahead
		{"3", "10.200", "10.201", "10.210"},
	}
	records, err := e.ExtractAll(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Records are unaffected by the diagnostic.
	assert.InDelta(t, 10.6005, records[1].Value(TS), 1e-9)

	out := buf.String()
	assert.Contains(t, out, "clock jump detected")
	assert.Contains(t, out, "row=2")
	assert.Contains(t, out, "column=timestamp0")
	assert.Contains(t, out, "nextColumn=timestamp1")
	assert.Contains(t, out, "context.row1=")
	assert.Contains(t, out, "context.row3=")
}
