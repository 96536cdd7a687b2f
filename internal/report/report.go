package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/roman-kulish/pipeline-latency/internal/latency"
)

const (
	titleWidth  = 20
	columnWidth = 12

	// Report values are in seconds and printed in milliseconds.
	scale = 1000
)

// Write renders the report as a text table: a header row of statistic
// names followed by one row per line.
func Write(w io.Writer, r *latency.Report) error {
	bw := bufio.NewWriter(w)

	bw.WriteString(strings.Repeat(" ", titleWidth+1))
	for _, reducer := range r.Battery {
		fmt.Fprintf(bw, " %s", label(reducer.Name()))
	}
	bw.WriteString("\n")

	for _, line := range r.Lines {
		if len(line.Values) != len(r.Battery) {
			return fmt.Errorf("report: line %q has %d values for %d statistics", line.Title, len(line.Values), len(r.Battery))
		}

		bw.WriteString(title(line.Title))
		bw.WriteString(":")
		for _, v := range line.Values {
			fmt.Fprintf(bw, " %*.4f", columnWidth, v*scale)
		}
		bw.WriteString("\n")
	}

	return bw.Flush()
}

// label right-aligns a statistic name to the column width, cutting longer
// names.
func label(name string) string {
	s := fmt.Sprintf("%*s", columnWidth, name)
	return s[:columnWidth]
}

// title left-aligns a line title, padding it with dots.
func title(t string) string {
	if len(t) >= titleWidth {
		return t
	}
	return t + strings.Repeat(".", titleWidth-len(t))
}
