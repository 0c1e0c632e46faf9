package platform

import "fmt"

// LoadError reports a missing or malformed input file. It is fatal: the
// pipeline never runs on a partially loaded platform.
type LoadError struct {
	File   string
	Reason string
}

func (e LoadError) Error() string {
	return fmt.Sprintf("load %s: %s", e.File, e.Reason)
}

func loadErrf(file, format string, args ...interface{}) LoadError {
	return LoadError{File: file, Reason: fmt.Sprintf(format, args...)}
}
