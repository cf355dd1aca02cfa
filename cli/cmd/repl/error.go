package repl

import "errors"

var (
	// ErrNoEntry is returned for a history index outside the recorded lines.
	ErrNoEntry = errors.New("no such history entry")

	// ErrEditDeclined ends the session when the user gives up on a transcript
	// that does not parse.
	ErrEditDeclined = errors.New("edited session does not parse")
)
