package scheduler

import "errors"

// ErrUnknownProcess is returned by JoinThread for an id the scheduler never assigned.
var ErrUnknownProcess = errors.New("scheduler: unknown process id")

// ErrJoinTimeout is returned by JoinThread when the target does not terminate within
// the requested timeout.
var ErrJoinTimeout = errors.New("scheduler: join timed out")
