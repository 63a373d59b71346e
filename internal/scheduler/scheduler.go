// Package scheduler owns every Process in a running program and the single global
// processor lock that serializes access to VM state, per the concurrency model: one
// active mutator at any instant, with designated suspension points around I/O,
// blocking plugin calls, and explicit yields.
package scheduler

import (
	"log"
	"sync"
	"time"

	"ember/internal/cursor"
	"ember/internal/value"
)

// StepFunc advances p's cursor by one instruction, returning false when the process
// should give up its quantum (voluntary yield, completion, or a cancelled cursor). It
// receives the Scheduler itself so that an unhandled Raise can call Escalate directly.
// Supplied by package dispatch at wiring time — scheduler never imports dispatch,
// since dispatch depends on scheduler, not the reverse.
type StepFunc func(s *Scheduler, p *Process) (bool, error)

// ExceptionCursorBuilder constructs the Cursor an Exception process should run (a
// call into the raised value's `show` member) when a cursor raises with no retrieve
// point left to catch it. Returning ok == false means no `show` overload exists and
// the process simply dies unhandled.
type ExceptionCursorBuilder func(exc value.WeakReference) (c *cursor.Cursor, ok bool)

// Scheduler runs every Process cooperatively in FIFO order behind one processor lock.
type Scheduler struct {
	step          StepFunc
	buildExcCursor ExceptionCursorBuilder
	logger        *log.Logger

	processorLock sync.Mutex

	mu       sync.Mutex
	queue    []*Process
	byID     map[uint64]*Process
	nextID   uint64
	running  bool
	exitCode int
	exiting  bool
}

// New constructs a Scheduler driven by step. logger may be nil, in which case
// log.Default() is used — matching the ambient logging story (§4.K): no third-party
// structured-logging library appears anywhere in the retrieved corpus, so process
// transitions are logged through the standard library's log package.
func New(step StepFunc, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{step: step, logger: logger, byID: make(map[uint64]*Process)}
}

// SetExceptionCursorBuilder installs the hook used to construct Exception processes.
func (s *Scheduler) SetExceptionCursorBuilder(b ExceptionCursorBuilder) { s.buildExcCursor = b }

// LockProcessor acquires the single global processor lock. Entered on process
// activation.
func (s *Scheduler) LockProcessor() { s.processorLock.Lock() }

// UnlockProcessor releases the processor lock; call around any syscall, `wait`, or
// blocking plugin call so other processes can run while this one blocks.
func (s *Scheduler) UnlockProcessor() { s.processorLock.Unlock() }

// Spawn creates and enqueues a new Process wrapping c with the given role.
func (s *Scheduler) Spawn(role Role, c *cursor.Cursor) *Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p := &Process{ID: s.nextID, Role: role, Cursor: c, Status: StatusRunnable}
	s.byID[p.ID] = p
	s.queue = append(s.queue, p)
	s.logger.Printf("scheduler: spawned process %d role=%s", p.ID, role)
	return p
}

// Get looks up a process by id.
func (s *Scheduler) Get(id uint64) (*Process, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	return p, ok
}

// Exit requests the scheduler stop after the current tick, recording status.
func (s *Scheduler) Exit(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exiting = true
	s.exitCode = status
}

// Run drains the FIFO, ticking each runnable process until it yields, completes, or
// fails, moving it to the back of the queue in between. Returns once the queue is
// empty or Exit has been called.
func (s *Scheduler) Run() int {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	for {
		s.mu.Lock()
		if s.exiting || len(s.queue) == 0 {
			code := s.exitCode
			s.running = false
			s.mu.Unlock()
			return code
		}
		p := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		if p.Done() {
			continue
		}

		s.tick(p)

		s.mu.Lock()
		if !p.Done() {
			s.queue = append(s.queue, p)
		} else {
			s.logger.Printf("scheduler: process %d role=%s terminated status=%v", p.ID, p.Role, p.Status)
			s.notifyJoiners(p)
		}
		s.mu.Unlock()
	}
}

// tick runs one quantum of p under the processor lock.
func (s *Scheduler) tick(p *Process) {
	s.LockProcessor()
	defer s.UnlockProcessor()

	s.logger.Printf("scheduler: ticking process %d role=%s", p.ID, p.Role)

	for {
		if p.Cursor.Cancelled() || p.Cursor.Finished() {
			p.Status = StatusDone
			return
		}
		cont, err := s.step(s, p)
		if err != nil {
			// A StepFunc error signals a malformed program (bad jump target, stack
			// underflow) rather than a language-level exception — RunStep is
			// responsible for converting anything the language can catch into a
			// Cursor.Raise call before returning a nil error. This is unconditionally
			// fatal to the process.
			p.Status = StatusFailed
			p.Err = err
			s.logger.Printf("scheduler: process %d role=%s failed: %v", p.ID, p.Role, err)
			return
		}
		if !cont {
			if p.Cursor.Finished() {
				p.Status = StatusDone
			} else {
				p.Status = StatusSuspended
			}
			return
		}
	}
}

// Escalate is called by dispatch when Cursor.Raise reports no retrieve point was
// available: it builds an Exception process for exc (if a `show` overload exists) and
// marks p terminated, per the exception-escalation contract: the original process
// always dies, regardless of whether `show` ran.
func (s *Scheduler) Escalate(p *Process, exc value.WeakReference) {
	p.Status = StatusFailed
	s.logger.Printf("scheduler: process %d role=%s raised with no retrieve point, escalating", p.ID, p.Role)
	if s.buildExcCursor == nil {
		return
	}
	excCursor, ok := s.buildExcCursor(exc)
	if !ok {
		return
	}
	s.Spawn(RoleException, excCursor)
}

func (s *Scheduler) notifyJoiners(p *Process) {
	for _, ch := range p.joinWaiters {
		close(ch)
	}
	p.joinWaiters = nil
}

// JoinThread blocks the calling goroutine (releasing the processor lock first, since
// the caller necessarily holds it while issuing `thread.join`) until the target
// process terminates or timeout elapses.
func (s *Scheduler) JoinThread(id uint64, timeout time.Duration) error {
	s.mu.Lock()
	p, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownProcess
	}
	if p.Done() {
		s.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	p.joinWaiters = append(p.joinWaiters, ch)
	s.mu.Unlock()

	s.UnlockProcessor()
	defer s.LockProcessor()

	if timeout <= 0 {
		<-ch
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-time.After(timeout):
		return ErrJoinTimeout
	}
}
