package dispatch

import (
	"fmt"

	"ember/internal/cursor"
	"ember/internal/errors"
	"ember/internal/object"
	"ember/internal/value"
)

// print implements PRINT: display the popped value and write it to whichever sink is
// active. An open `print <expr> { }` redirection (OPEN_PRINTER/CLOSE_PRINTER) targets
// an Array — each PRINT inside the block appends the displayed text as one more
// element instead of writing straight to the dispatcher's stdout, letting the block
// collect its output as a value.
func (d *Dispatcher) print(c *cursor.Cursor) (bool, error) {
	v, ok := c.Pop()
	if !ok {
		return false, cursor.ErrStackUnderflow
	}
	text := object.Display(v.Data())

	ctx := c.Current()
	if n := len(ctx.PrinterStack); n > 0 {
		if arr, ok := ctx.PrinterStack[n-1].Data().(*object.ArrayData); ok {
			arr.Push(value.NewWeakReference(d.RT, value.Default, object.NewString(d.RT, text)))
			return true, nil
		}
	}
	fmt.Fprintln(d.Stdout, text)
	return true, nil
}

// regexMatch implements REGEX_MATCH/REGEX_UNMATCH: pop the pattern then the subject,
// pushing whether the subject matches (or, for UNMATCH, does not match) the pattern.
func (d *Dispatcher) regexMatch(c *cursor.Cursor, negate bool) (bool, error) {
	pat, ok := c.Pop()
	if !ok {
		return false, cursor.ErrStackUnderflow
	}
	subj, ok := c.Pop()
	if !ok {
		return false, cursor.ErrStackUnderflow
	}
	re, ok := pat.Data().(*object.RegexData)
	if !ok {
		return false, errors.New(errors.InvalidCast, "regex operand is not a Regex")
	}
	s, ok := subj.Data().(*object.StringData)
	if !ok {
		return false, errors.New(errors.InvalidCast, "regex operand is not a String")
	}
	matched := re.Compiled.MatchString(s.String())
	if negate {
		matched = !matched
	}
	c.Push(d.boolean(matched))
	return true, nil
}
