package builtin

import (
	"testing"

	"ember/internal/class"
	"ember/internal/cursor"
	"ember/internal/gc"
	"ember/internal/module"
	"ember/internal/object"
	"ember/internal/value"
)

// nativeCursor builds a bare cursor.Cursor to stand in for object.NativeContext: it
// only needs Runtime/Push/Pop, which Cursor already implements for real call frames.
func nativeCursor(t *testing.T) *cursor.Cursor {
	t.Helper()
	rt := gc.NewRuntime()
	symbols := module.NewSymbolTable()
	pkg := class.NewPackageData("", nil)
	m := module.NewModule("<test>", symbols, pkg)
	h := m.DeclareHandle("", 0, false, false)
	h.End = m.End()
	return cursor.NewCursor(rt, h)
}

func callMember(t *testing.T, cls *class.Class, name string, recv value.WeakReference, args ...value.WeakReference) value.WeakReference {
	t.Helper()
	c := nativeCursor(t)
	mi, ok := cls.Member(name)
	if !ok {
		t.Fatalf("class has no member %q", name)
	}
	fn, ok := mi.Default.Data().(*object.FunctionData)
	if !ok {
		t.Fatalf("member %q is not a function", name)
	}
	ov, ok := fn.Resolve(len(args))
	if !ok {
		t.Fatalf("member %q has no overload for %d args", name, len(args))
	}
	c.Push(recv)
	for _, a := range args {
		c.Push(a)
	}
	if err := ov.Native(c, len(args)+1); err != nil {
		t.Fatalf("calling %q: %v", name, err)
	}
	v, ok := c.Pop()
	if !ok {
		t.Fatalf("%q left nothing on the stack", name)
	}
	return v
}

func wref(rt *gc.Runtime, d gc.Data) value.WeakReference {
	return value.NewWeakReference(rt, value.Default, d)
}

func TestArrayPushPopLen(t *testing.T) {
	rt := gc.NewRuntime()
	singletons := object.NewSingletons(rt)
	RegisterBuiltinClasses(rt, singletons)

	a := object.NewArray(rt)
	arr := object.ClassOf(a)
	if arr == nil {
		t.Fatalf("Array class not registered")
	}
	recv := wref(rt, a)

	got := callMember(t, arr, "push", recv, wref(rt, object.NewNumber(rt, 1)))
	n, ok := got.Data().(*object.NumberData)
	if !ok || n.Value != 1 {
		t.Fatalf("push returned %#v, want length 1", got)
	}

	got = callMember(t, arr, "len", recv)
	n, ok = got.Data().(*object.NumberData)
	if !ok || n.Value != 1 {
		t.Fatalf("len returned %#v, want 1", got)
	}

	got = callMember(t, arr, "pop", recv)
	popped, ok := got.Data().(*object.NumberData)
	if !ok || popped.Value != 1 {
		t.Fatalf("pop returned %#v, want the pushed value 1", got)
	}

	got = callMember(t, arr, "len", recv)
	n, ok = got.Data().(*object.NumberData)
	if !ok || n.Value != 0 {
		t.Fatalf("len after pop = %#v, want 0", got)
	}
}

func TestArrayPopEmptyYieldsNone(t *testing.T) {
	rt := gc.NewRuntime()
	singletons := object.NewSingletons(rt)
	RegisterBuiltinClasses(rt, singletons)

	a := object.NewArray(rt)
	arr := object.ClassOf(a)
	got := callMember(t, arr, "pop", wref(rt, a))
	if got.Data() != singletons.NoneValue {
		t.Fatalf("pop on empty array = %#v, want the singleton None value", got)
	}
}

func TestStringCaseConversion(t *testing.T) {
	rt := gc.NewRuntime()
	singletons := object.NewSingletons(rt)
	RegisterBuiltinClasses(rt, singletons)

	s := object.NewString(rt, "Ember")
	str := object.ClassOf(s)
	if str == nil {
		t.Fatalf("String class not registered")
	}
	recv := wref(rt, s)

	got := callMember(t, str, "upper", recv)
	if got.Data().(*object.StringData).String() != "EMBER" {
		t.Fatalf("upper returned %#v", got)
	}

	got = callMember(t, str, "lower", recv)
	if got.Data().(*object.StringData).String() != "ember" {
		t.Fatalf("lower returned %#v", got)
	}

	got = callMember(t, str, "len", recv)
	if got.Data().(*object.NumberData).Value != 5 {
		t.Fatalf("len returned %#v, want 5", got)
	}
}

func TestHashKeysValues(t *testing.T) {
	rt := gc.NewRuntime()
	singletons := object.NewSingletons(rt)
	RegisterBuiltinClasses(rt, singletons)

	h := object.NewHash(rt)
	hashCls := object.ClassOf(h)
	if hashCls == nil {
		t.Fatalf("Hash class not registered")
	}
	h.Set(wref(rt, object.NewString(rt, "a")), wref(rt, object.NewNumber(rt, 1)))
	recv := wref(rt, h)

	got := callMember(t, hashCls, "len", recv)
	if got.Data().(*object.NumberData).Value != 1 {
		t.Fatalf("len returned %#v, want 1", got)
	}

	keys := callMember(t, hashCls, "keys", recv)
	keysArr, ok := keys.Data().(*object.ArrayData)
	if !ok || keysArr.Len() != 1 {
		t.Fatalf("keys returned %#v, want a 1-element array", keys)
	}

	values := callMember(t, hashCls, "values", recv)
	valuesArr, ok := values.Data().(*object.ArrayData)
	if !ok || valuesArr.Len() != 1 {
		t.Fatalf("values returned %#v, want a 1-element array", values)
	}
}

func TestWrongReceiverKindErrors(t *testing.T) {
	rt := gc.NewRuntime()
	singletons := object.NewSingletons(rt)
	RegisterBuiltinClasses(rt, singletons)
	arr := object.ClassOf(object.NewArray(rt))

	c := nativeCursor(t)
	mi, _ := arr.Member("len")
	fn := mi.Default.Data().(*object.FunctionData)
	ov, _ := fn.Resolve(0)

	c.Push(wref(rt, object.NewString(rt, "not an array")))
	if err := ov.Native(c, 1); err == nil {
		t.Fatalf("expected an error calling Array.len on a String receiver")
	}
}
