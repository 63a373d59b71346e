package object

import (
	"regexp"

	"ember/internal/gc"
)

// RegexData pairs a compiled Go regexp with the original source text, since the
// language surfaces the pattern's literal text (for Typeof/display) distinctly from
// its compiled form.
type RegexData struct {
	Base
	Source   string
	Compiled *regexp.Regexp
}

// NewRegex compiles source and registers the resulting Data with rt.
func NewRegex(rt *gc.Runtime, source string) (*RegexData, error) {
	re, err := regexp.Compile(source)
	if err != nil {
		return nil, err
	}
	d := &RegexData{Source: source, Compiled: re}
	rt.Register(d)
	return d, nil
}

func (r *RegexData) CloneData(rt *gc.Runtime) gc.Data {
	d, err := NewRegex(rt, r.Source)
	if err != nil {
		// Source already compiled successfully once; recompilation cannot fail.
		panic(err)
	}
	return d
}
