package schema

import (
	"errors"
	"fmt"
)

// ErrEmptyHeader is returned when the log has no header columns at all.
var ErrEmptyHeader = errors.New("schema: empty header")

// Error reports a schema that cannot serve the requested computation, e.g. a
// required group that resolved to zero columns.
type Error struct {
	Role Role
	Msg  string
}

func newError(role Role, format string, args ...any) *Error {
	return &Error{Role: role, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("schema: role %q: %s", e.Role, e.Msg)
}
