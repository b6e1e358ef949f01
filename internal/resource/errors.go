package resource

import (
	"errors"
	"fmt"
)

// MalformedRecordError is returned when a resource file exists but its
// payload fails to deserialize. Callers enumerating the library treat it as
// "could not load" and keep going; it never aborts a whole scan.
type MalformedRecordError struct {
	Type Type
	ID   string
	Path string
	Err  error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record %q at %s: %v", e.Type, e.ID, e.Path, e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// IsMalformed reports whether the error is a MalformedRecordError.
func IsMalformed(err error) bool {
	var target *MalformedRecordError
	return errors.As(err, &target)
}
