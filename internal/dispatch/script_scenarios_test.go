package dispatch

import "testing"

// These mirror the worked examples: S1 arithmetic precedence, S2 a single-rune
// string index, S3 an inclusive-range slice, and S4 a hash literal with
// subscript-assignment and two-variable for-in iteration preserving insertion order
// across an overwritten key. All four compile and run through the real front end
// (frontend.Compile) and the ordinary Spawn/Run scheduler path, exactly as a script
// file would.

func TestScenarioArithmeticPrecedence(t *testing.T) {
	h := newHarness()
	out := h.run(t, `print (1 + 2) * 3;`)
	if out != "9\n" {
		t.Fatalf("got %q, want %q", out, "9\n")
	}
}

func TestScenarioStringIndex(t *testing.T) {
	h := newHarness()
	out := h.run(t, `print "tëst"[1];`)
	if out != "ë\n" {
		t.Fatalf("got %q, want %q", out, "ë\n")
	}
}

func TestScenarioStringSlice(t *testing.T) {
	h := newHarness()
	out := h.run(t, `print "tëst"[1..2];`)
	if out != "ës\n" {
		t.Fatalf("got %q, want %q", out, "ës\n")
	}
}

func TestScenarioArraySlice(t *testing.T) {
	h := newHarness()
	out := h.run(t, `print [10, 20, 30, 40][1..2];`)
	if out != "[20, 30]\n" {
		t.Fatalf("got %q, want %q", out, "[20, 30]\n")
	}
}

func TestScenarioHashLiteralAndForIn(t *testing.T) {
	h := newHarness()
	out := h.run(t, `
let h = {};
h["a"] = 1;
h["b"] = 2;
h["a"] = 3;
let keys = [];
let vals = [];
for k, v in h {
	keys.push(k);
	vals.push(v);
}
print keys;
print vals;
`)
	want := "[a, b]\n[3, 2]\n"
	if out != want {
		t.Fatalf("got %q, want %q (insertion order must survive the \"a\" overwrite)", out, want)
	}
}

func TestScenarioWhileAndShortCircuit(t *testing.T) {
	h := newHarness()
	out := h.run(t, `
let i = 0;
let seen = false;
while i < 3 {
	i = i + 1;
	seen = seen || (i == 2);
}
print i;
print seen;
`)
	if out != "3\ntrue\n" {
		t.Fatalf("got %q, want %q", out, "3\ntrue\n")
	}
}
