package orchestrator

import "errors"

var (
	ErrNoTopicsSelected = errors.New("no topics selected")
	// ErrSessionRunning is returned when a start is attempted while another
	// session of the same workspace is running or being submitted.
	ErrSessionRunning = errors.New("a generation session is already running")
)
