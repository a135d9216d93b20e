package loader

import "fmt"

// DataLoadError reports an input file that is missing, malformed or lacks a
// required column. It is fatal for startup.
type DataLoadError struct {
	Path   string
	Column string
	Row    int // 1-based line number in the file, 0 when not row specific
	Err    error
}

func (e *DataLoadError) Error() string {
	msg := "failed to load " + e.Path
	if e.Path == "" {
		msg = "failed to load input"
	}
	if e.Column != "" {
		msg += fmt.Sprintf(" (column %q", e.Column)
		if e.Row > 0 {
			msg += fmt.Sprintf(", line %d", e.Row)
		}
		msg += ")"
	}
	return msg + ": " + e.Err.Error()
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}
