package config

import "fmt"

// ValidationError reports a config file that could not be parsed or that
// violates the schema. Load degrades to defaults when returning it.
type ValidationError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid config %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid config %s: %s", e.Path, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// WriteError reports a failure to persist the config file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write config %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
