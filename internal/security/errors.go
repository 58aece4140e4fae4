package security

import "fmt"

// PathError describes why a path was rejected.
type PathError struct {
	Msg string
}

func (e *PathError) Error() string { return e.Msg }

func errInvalidPath(format string, args ...any) error {
	return &PathError{Msg: fmt.Sprintf(format, args...)}
}
