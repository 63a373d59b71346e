// Package dblib is the "dblib" built-in library: a thin database/sql binding exposed
// to Ember scripts as four package-level functions (open, query, exec, close) rather
// than through the out-of-process plugin ABI, since the driver set is part of the
// core distribution rather than something a user drops in as a .so. It registers the
// teacher's exact driver set (lib/pq, go-sql-driver/mysql, mattn/go-sqlite3,
// denisenkom/go-mssqldb), blank-imported purely for database/sql driver registration
// the same way internal/database/database.go does.
package dblib

import (
	"database/sql"
	"fmt"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"ember/internal/class"
	"ember/internal/errors"
	"ember/internal/gc"
	"ember/internal/object"
	"ember/internal/scheduler"
	"ember/internal/value"
)

// binding bundles the scheduler a query/exec call suspends against with the runtime
// used to allocate results; its methods are the NativeFunc bodies installed on the
// dblib package's globals.
type binding struct {
	rt         *gc.Runtime
	sch        *scheduler.Scheduler
	singletons *object.Singletons
}

// Register builds the dblib package, wiring open/query/exec/close as Native
// overloads of single-arity FunctionData globals, and returns the PackageData a
// LOAD_MODULE of "dblib" resolves to.
func Register(rt *gc.Runtime, sch *scheduler.Scheduler, singletons *object.Singletons, parent *class.PackageData) *class.PackageData {
	pkg := class.NewPackageData("dblib", parent)
	b := &binding{rt: rt, sch: sch, singletons: singletons}

	declare(rt, pkg, "open", 2, b.open)
	declare(rt, pkg, "query", 2, b.query)
	declare(rt, pkg, "exec", 2, b.exec)
	declare(rt, pkg, "close", 1, b.close)
	return pkg
}

func declare(rt *gc.Runtime, pkg *class.PackageData, name string, arity int, fn object.NativeFunc) {
	f := object.NewFunction(rt, name)
	f = f.WithOverload(rt, &object.Overload{Native: fn, Arity: arity})
	pkg.SetGlobal(name, value.NewStrongReference(rt, value.Default, f))
}

// popArgs pops argc values off ctx's stack and returns them in original left-to-right
// order (the stack holds the last argument on top).
func popArgs(ctx object.NativeContext, argc int) ([]value.WeakReference, error) {
	args := make([]value.WeakReference, argc)
	for i := argc - 1; i >= 0; i-- {
		v, ok := ctx.Pop()
		if !ok {
			return nil, errors.New(errors.Unhandled, "dblib: missing argument")
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

// open(driver, dsn) connects and pings under the processor lock released, returning a
// LibObject wrapping the opened *sql.DB. Matches the suspension point §5 calls out:
// any blocking driver call releases the scheduler's lock first.
func (b *binding) open(ctx object.NativeContext, argc int) error {
	args, err := popArgs(ctx, argc)
	if err != nil {
		return err
	}
	driver, ok := stringArg(args[0])
	if !ok {
		return errors.New(errors.InvalidCast, "dblib.open: driver is not a string")
	}
	dsn, ok := stringArg(args[1])
	if !ok {
		return errors.New(errors.InvalidCast, "dblib.open: dsn is not a string")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return errors.Newf(errors.Unhandled, "dblib.open: %s", err)
	}

	b.sch.UnlockProcessor()
	err = db.Ping()
	b.sch.LockProcessor()
	if err != nil {
		db.Close()
		return errors.Newf(errors.Unhandled, "dblib.open: %s", err)
	}

	obj := object.NewLibObject(b.rt, db, func() { db.Close() })
	ctx.Push(value.NewWeakReference(b.rt, value.Default, obj))
	return nil
}

func dbOf(ref value.WeakReference) (*sql.DB, bool) {
	lo, ok := ref.Data().(*object.LibObjectData)
	if !ok {
		return nil, false
	}
	db, ok := lo.Payload.(*sql.DB)
	return db, ok
}

// query(conn, sql) runs a SELECT and returns an Array of Hash rows, each keyed by
// column name.
func (b *binding) query(ctx object.NativeContext, argc int) error {
	args, err := popArgs(ctx, argc)
	if err != nil {
		return err
	}
	db, ok := dbOf(args[0])
	if !ok {
		return errors.New(errors.InvalidCast, "dblib.query: not a database handle")
	}
	stmt, ok := stringArg(args[1])
	if !ok {
		return errors.New(errors.InvalidCast, "dblib.query: statement is not a string")
	}

	b.sch.UnlockProcessor()
	rows, err := db.Query(stmt)
	b.sch.LockProcessor()
	if err != nil {
		return errors.Newf(errors.Unhandled, "dblib.query: %s", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return errors.Newf(errors.Unhandled, "dblib.query: %s", err)
	}

	result := object.NewArray(b.rt)
	scan := make([]interface{}, len(cols))
	scanPtrs := make([]interface{}, len(cols))
	for i := range scan {
		scanPtrs[i] = &scan[i]
	}

	b.sch.UnlockProcessor()
	for rows.Next() {
		if err := rows.Scan(scanPtrs...); err != nil {
			b.sch.LockProcessor()
			return errors.Newf(errors.Unhandled, "dblib.query: %s", err)
		}
		row := object.NewHash(b.rt)
		for i, col := range cols {
			key := value.NewWeakReference(b.rt, value.Default, object.NewString(b.rt, col))
			row.Set(key, b.goValue(scan[i]))
		}
		result.Push(value.NewWeakReference(b.rt, value.Default, row))
	}
	err = rows.Err()
	b.sch.LockProcessor()
	if err != nil {
		return errors.Newf(errors.Unhandled, "dblib.query: %s", err)
	}

	ctx.Push(value.NewWeakReference(b.rt, value.Default, result))
	return nil
}

// exec(conn, sql) runs a non-SELECT statement and returns the affected row count.
func (b *binding) exec(ctx object.NativeContext, argc int) error {
	args, err := popArgs(ctx, argc)
	if err != nil {
		return err
	}
	db, ok := dbOf(args[0])
	if !ok {
		return errors.New(errors.InvalidCast, "dblib.exec: not a database handle")
	}
	stmt, ok := stringArg(args[1])
	if !ok {
		return errors.New(errors.InvalidCast, "dblib.exec: statement is not a string")
	}

	b.sch.UnlockProcessor()
	res, err := db.Exec(stmt)
	b.sch.LockProcessor()
	if err != nil {
		return errors.Newf(errors.Unhandled, "dblib.exec: %s", err)
	}
	n, _ := res.RowsAffected()
	ctx.Push(value.NewWeakReference(b.rt, value.Default, object.NewNumber(b.rt, float64(n))))
	return nil
}

// close(conn) closes the underlying *sql.DB immediately, rather than waiting for
// finalization.
func (b *binding) close(ctx object.NativeContext, argc int) error {
	args, err := popArgs(ctx, argc)
	if err != nil {
		return err
	}
	db, ok := dbOf(args[0])
	if !ok {
		return errors.New(errors.InvalidCast, "dblib.close: not a database handle")
	}
	if err := db.Close(); err != nil {
		return errors.Newf(errors.Unhandled, "dblib.close: %s", err)
	}
	ctx.Push(value.NewWeakReference(b.rt, value.Default, b.singletons.NoneValue))
	return nil
}

// goValue converts one database/sql scan result to an Ember value: numeric types to
// Number, byte slices and strings to String, bools to Boolean, and a SQL NULL to the
// shared None singleton.
func (b *binding) goValue(v interface{}) value.WeakReference {
	switch t := v.(type) {
	case nil:
		return value.NewWeakReference(b.rt, value.Default, b.singletons.NoneValue)
	case []byte:
		return value.NewWeakReference(b.rt, value.Default, object.NewString(b.rt, string(t)))
	case string:
		return value.NewWeakReference(b.rt, value.Default, object.NewString(b.rt, t))
	case int64:
		return value.NewWeakReference(b.rt, value.Default, object.NewNumber(b.rt, float64(t)))
	case float64:
		return value.NewWeakReference(b.rt, value.Default, object.NewNumber(b.rt, t))
	case bool:
		return value.NewWeakReference(b.rt, value.Default, object.NewBoolean(b.rt, t))
	default:
		return value.NewWeakReference(b.rt, value.Default, object.NewString(b.rt, fmt.Sprintf("%v", t)))
	}
}
