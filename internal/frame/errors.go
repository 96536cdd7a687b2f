package frame

import (
	"errors"
	"fmt"
)

// ErrEmptyGroup is returned when mean and spread are requested over zero
// samples.
var ErrEmptyGroup = errors.New("frame: no samples in group")

// RowFormatError reports a row that is shorter than the schema requires.
type RowFormatError struct {
	Row      int // 1-based data row number, header excluded
	Fields   int
	Required int
}

func (e *RowFormatError) Error() string {
	return fmt.Sprintf("frame: row %d has %d fields, schema requires at least %d", e.Row, e.Fields, e.Required)
}
