package privshell

import "fmt"

// SpawnError means the elevated shell couldn't be started. Either the
// launcher is missing, the user refused the prompt, or the pipes couldn't be
// set up.
type SpawnError struct {
	Launcher string
	Err      error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s shell: %v", e.Launcher, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// IOError means talking to a running shell failed. Usually the shell exited or
// was killed.
type IOError struct {
	// Op is one of "write", "flush" or "read".
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("privileged shell %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
