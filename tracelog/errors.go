package tracelog

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable reports an expected log directory or file that is absent or unreadable.
	ErrDataUnavailable = errors.New("tracelog: data unavailable")
	// ErrMalformedRecord reports a file that exists but is not the expected tabular text.
	ErrMalformedRecord = errors.New("tracelog: malformed record")
	ErrUnknownColumn   = errors.New("tracelog: unknown column")
	ErrNotNumeric      = errors.New("tracelog: column is not numeric")
)

// MalformedRecordError names the offending file and line.
type MalformedRecordError struct {
	Path   string
	Line   int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("tracelog: malformed record in %s line %d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("tracelog: malformed record in %s: %s", e.Path, e.Reason)
}

func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}
