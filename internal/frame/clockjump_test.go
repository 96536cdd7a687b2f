package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindClockJumps(t *testing.T) {
	cfg := DefaultClockJumpConfig()

	testCases := []struct {
		name     string
		row      []string
		cols     []int
		expected []ClockJump
	}{
		{
			name: "no jump",
			row:  []string{"1.000", "1.001", "1.002"},
			cols: []int{0, 1, 2},
		},
		{
			name:     "one second ahead",
			row:      []string{"1.000", "2.000", "2.001"},
			cols:     []int{0, 1, 2},
			expected: []ClockJump{{Row: 4, Column: 0, NextColumn: 1, Diff: 1}},
		},
		{
			name:     "one second behind",
			row:      []string{"2.000", "2.001", "1.001"},
			cols:     []int{0, 1, 2},
			expected: []ClockJump{{Row: 4, Column: 1, NextColumn: 2, Diff: 1}},
		},
		{
			name: "band is exclusive",
			row:  []string{"1.0", "1.5", "3.0"},
			cols: []int{0, 1, 2},
		},
		{
			name: "non timing columns skipped",
			row:  []string{"1.0", "7", "1.001"},
			cols: []int{0, 2},
		},
		{
			name: "columns outside row ignored",
			row:  []string{"1.0"},
			cols: []int{0, 3},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			jumps := FindClockJumps(cfg, 4, tc.row, tc.cols)
			if len(tc.expected) == 0 {
				assert.Empty(t, jumps)
				return
			}

			assert.Len(t, jumps, len(tc.expected))
			for i, exp := range tc.expected {
				assert.Equal(t, exp.Row, jumps[i].Row)
				assert.Equal(t, exp.Column, jumps[i].Column)
				assert.Equal(t, exp.NextColumn, jumps[i].NextColumn)
				assert.InDelta(t, exp.Diff, jumps[i].Diff, 1e-9)
			}
		})
	}
}

func TestClockJumpConfig_Window(t *testing.T) {
	row := []string{"a", "b", "c", "d"}

	assert.Equal(t, []string{"b", "c"}, ClockJumpConfig{FromColumn: 1, ToColumn: 3}.window(row))
	assert.Equal(t, []string{"c", "d"}, ClockJumpConfig{FromColumn: 2}.window(row))
	assert.Equal(t, row, ClockJumpConfig{ToColumn: 10}.window(row))
	assert.Nil(t, ClockJumpConfig{FromColumn: 5}.window(row))
}
