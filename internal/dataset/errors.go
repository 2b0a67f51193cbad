package dataset

import "fmt"

// DataError reports a dataset whose content cannot be processed: a missing
// target, a non-numeric feature, an empty table.
type DataError struct {
	Column string
	Reason string
}

func (e *DataError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("data error: %s", e.Reason)
	}
	return fmt.Sprintf("data error: column %q: %s", e.Column, e.Reason)
}

// IOError wraps failures reading or writing dataset and artifact files.
type IOError struct {
	Op   string // read|write
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e == nil {
		return "io error"
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
