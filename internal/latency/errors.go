package latency

import "fmt"

// EmptySeriesError reports a report line left without samples after
// filtering and warm-up.
type EmptySeriesError struct {
	Line   string
	Frames int
}

func (e *EmptySeriesError) Error() string {
	return fmt.Sprintf("latency: %q has no samples left out of %d frames", e.Line, e.Frames)
}
