package cursor

// SavedState is one generator frame's detached state: the Context itself plus any
// retrieve points installed while that frame was on top. A generator function is
// called through the same Cursor.Call as any other call, so yielding only needs to
// lift its own topmost frame back off — the caller's frames beneath it are untouched
// and resume running in the same Cursor the instant Interrupt returns.
type SavedState struct {
	ctx            *Context
	retrievePoints []RetrievePoint
}

// Interrupt detaches the current (innermost) frame, along with any retrieve points
// installed since it started, into a SavedState. The frame beneath it becomes current.
// Per the single-empty-operand-stack-at-yield invariant this repository's generator
// bodies honor, the shared value stack needs no splitting: YIELD always fires with the
// yielded value already popped and nothing else belonging to the generator frame left
// on it.
func (c *Cursor) Interrupt() *SavedState {
	n := len(c.calls)
	if n == 0 {
		return &SavedState{}
	}
	ctx := c.calls[n-1]
	c.calls = c.calls[:n-1]

	boundary := len(c.retrievePoints)
	for boundary > 0 && c.retrievePoints[boundary-1].CallStackSize >= n {
		boundary--
	}
	saved := append([]RetrievePoint(nil), c.retrievePoints[boundary:]...)
	c.retrievePoints = c.retrievePoints[:boundary]

	return &SavedState{ctx: ctx, retrievePoints: saved}
}

// Restore pushes a previously detached frame back onto this cursor, the inverse of
// Interrupt, making it current again.
func (c *Cursor) Restore(s *SavedState) {
	if s.ctx == nil {
		return
	}
	c.calls = append(c.calls, s.ctx)
	c.retrievePoints = append(c.retrievePoints, s.retrievePoints...)
}
