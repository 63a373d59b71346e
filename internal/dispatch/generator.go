package dispatch

import (
	"ember/internal/cursor"
	"ember/internal/errors"
	"ember/internal/module"
	"ember/internal/object"
	"ember/internal/value"
)

// generatorState is the object.GeneratorState a generator call installs into its
// IteratorData: a private cursor seeded with the call's arguments, driven one
// suspension at a time through the dispatcher's own step loop. Nothing outside this
// package ever touches the cursor directly — IteratorData.Next only sees Resume/Close.
type generatorState struct {
	d       *Dispatcher
	c       *cursor.Cursor
	saved   *cursor.SavedState
	done    bool
	closing bool
}

// newGenerator builds the private cursor a generator call runs against: a fresh frame
// on handle, with args bound exactly as an ordinary Call would bind them.
func (d *Dispatcher) newGenerator(handle *module.Handle, args []value.WeakReference) *generatorState {
	c := cursor.NewCursor(d.RT, handle)
	c.Seed(args)
	return &generatorState{d: d, c: c}
}

// Resume drives the generator cursor until it yields, exits, or fails. It loops step
// internally rather than returning after one instruction, since most instructions in a
// generator body aren't Yield — only the step that actually suspends ends a Resume.
func (g *generatorState) Resume() (value.WeakReference, bool, error) {
	if g.done {
		return value.WeakReference{}, false, nil
	}
	if g.saved != nil {
		g.c.Restore(g.saved)
		g.saved = nil
	}
	var escaped value.WeakReference
	var hasEscaped bool
	for {
		if g.c.Finished() {
			g.done = true
			return value.WeakReference{}, false, nil
		}
		cont, susp, err := g.d.step(g.c, func(exc value.WeakReference) {
			escaped = exc
			hasEscaped = true
		}, g.closing)
		if err != nil {
			g.done = true
			return value.WeakReference{}, false, err
		}
		if hasEscaped {
			g.done = true
			return value.WeakReference{}, false, errors.Newf(errors.Unhandled,
				"uncaught exception in generator: %s", object.Display(escaped.Data()))
		}
		if susp != nil {
			if susp.State == nil {
				g.done = true
			} else {
				g.saved = susp.State
			}
			return susp.Value, true, nil
		}
		if !cont {
			g.done = true
			return value.WeakReference{}, false, nil
		}
	}
}

// Close finalizes the generator in a single pass: once closing is latched, any
// subsequent Yield the body hits behaves like Abort instead of suspending again, so
// Resume drains straight through remaining cleanup code to completion.
func (g *generatorState) Close() {
	if g.done {
		return
	}
	g.closing = true
	for !g.done {
		g.Resume()
	}
}
