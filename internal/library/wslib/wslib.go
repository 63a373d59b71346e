// Package wslib is the "wslib" built-in library: a gorilla/websocket binding exposed
// as four package-level functions (connect, send, recv, close), mirroring dblib's
// shape. recv releases the processor lock around the blocking conn.ReadMessage call,
// the same suspension-point pattern dblib's query/exec use around their driver calls.
package wslib

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"ember/internal/class"
	"ember/internal/errors"
	"ember/internal/gc"
	"ember/internal/object"
	"ember/internal/scheduler"
	"ember/internal/value"
)

// conn pairs an open socket with the uuid minted for it at connect time, matching the
// teacher's per-connection id intent via the dedicated id library already in the
// dependency set rather than a hand-rolled timestamp string.
type conn struct {
	id string
	ws *websocket.Conn
}

type binding struct {
	rt         *gc.Runtime
	sch        *scheduler.Scheduler
	singletons *object.Singletons
}

// Register builds the wslib package and returns its PackageData.
func Register(rt *gc.Runtime, sch *scheduler.Scheduler, singletons *object.Singletons, parent *class.PackageData) *class.PackageData {
	pkg := class.NewPackageData("wslib", parent)
	b := &binding{rt: rt, sch: sch, singletons: singletons}

	declare(rt, pkg, "connect", 1, b.connect)
	declare(rt, pkg, "send", 2, b.send)
	declare(rt, pkg, "recv", 1, b.recv)
	declare(rt, pkg, "close", 1, b.close)
	return pkg
}

func declare(rt *gc.Runtime, pkg *class.PackageData, name string, arity int, fn object.NativeFunc) {
	f := object.NewFunction(rt, name)
	f = f.WithOverload(rt, &object.Overload{Native: fn, Arity: arity})
	pkg.SetGlobal(name, value.NewStrongReference(rt, value.Default, f))
}

func popArgs(ctx object.NativeContext, argc int) ([]value.WeakReference, error) {
	args := make([]value.WeakReference, argc)
	for i := argc - 1; i >= 0; i-- {
		v, ok := ctx.Pop()
		if !ok {
			return nil, errors.New(errors.Unhandled, "wslib: missing argument")
		}
		args[i] = v
	}
	return args, nil
}

func stringArg(ref value.WeakReference) (string, bool) {
	s, ok := ref.Data().(*object.StringData)
	if !ok {
		return "", false
	}
	return s.String(), true
}

func connOf(ref value.WeakReference) (*conn, bool) {
	lo, ok := ref.Data().(*object.LibObjectData)
	if !ok {
		return nil, false
	}
	c, ok := lo.Payload.(*conn)
	return c, ok
}

// connect(url) dials and returns a LibObject wrapping the opened connection.
func (b *binding) connect(ctx object.NativeContext, argc int) error {
	args, err := popArgs(ctx, argc)
	if err != nil {
		return err
	}
	url, ok := stringArg(args[0])
	if !ok {
		return errors.New(errors.InvalidCast, "wslib.connect: url is not a string")
	}

	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	b.sch.UnlockProcessor()
	ws, _, err := dialer.Dial(url, nil)
	b.sch.LockProcessor()
	if err != nil {
		return errors.Newf(errors.Unhandled, "wslib.connect: %s", err)
	}

	c := &conn{id: uuid.NewString(), ws: ws}
	obj := object.NewLibObject(b.rt, c, func() { ws.Close() })
	ctx.Push(value.NewWeakReference(b.rt, value.Default, obj))
	return nil
}

// send(conn, text) writes a text frame.
func (b *binding) send(ctx object.NativeContext, argc int) error {
	args, err := popArgs(ctx, argc)
	if err != nil {
		return err
	}
	c, ok := connOf(args[0])
	if !ok {
		return errors.New(errors.InvalidCast, "wslib.send: not a connection handle")
	}
	text, ok := stringArg(args[1])
	if !ok {
		return errors.New(errors.InvalidCast, "wslib.send: message is not a string")
	}

	b.sch.UnlockProcessor()
	err = c.ws.WriteMessage(websocket.TextMessage, []byte(text))
	b.sch.LockProcessor()
	if err != nil {
		return errors.Newf(errors.Unhandled, "wslib.send: %s", err)
	}
	ctx.Push(value.NewWeakReference(b.rt, value.Default, b.singletons.NoneValue))
	return nil
}

// recv(conn) blocks for the next text/binary frame, releasing the processor lock for
// the duration of the read — the concrete exercise of the suspension point the
// scheduler documents around blocking plugin calls.
func (b *binding) recv(ctx object.NativeContext, argc int) error {
	args, err := popArgs(ctx, argc)
	if err != nil {
		return err
	}
	c, ok := connOf(args[0])
	if !ok {
		return errors.New(errors.InvalidCast, "wslib.recv: not a connection handle")
	}

	b.sch.UnlockProcessor()
	_, data, err := c.ws.ReadMessage()
	b.sch.LockProcessor()
	if err != nil {
		return errors.Newf(errors.Unhandled, "wslib.recv: %s", err)
	}
	ctx.Push(value.NewWeakReference(b.rt, value.Default, object.NewString(b.rt, string(data))))
	return nil
}

// close(conn) closes the underlying socket immediately.
func (b *binding) close(ctx object.NativeContext, argc int) error {
	args, err := popArgs(ctx, argc)
	if err != nil {
		return err
	}
	c, ok := connOf(args[0])
	if !ok {
		return errors.New(errors.InvalidCast, "wslib.close: not a connection handle")
	}
	if err := c.ws.Close(); err != nil {
		return errors.Newf(errors.Unhandled, "wslib.close: %s", err)
	}
	ctx.Push(value.NewWeakReference(b.rt, value.Default, b.singletons.NoneValue))
	return nil
}
