// cmd/ember/main.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"

	"ember/internal/builtin"
	"ember/internal/class"
	"ember/internal/cursor"
	"ember/internal/dispatch"
	"ember/internal/errors"
	"ember/internal/frontend"
	"ember/internal/gc"
	"ember/internal/library/dblib"
	"ember/internal/library/wslib"
	"ember/internal/module"
	"ember/internal/object"
	"ember/internal/repl"
	"ember/internal/scheduler"
	"ember/internal/value"
)

const VERSION = "0.1.0"

// Build variables, set during build with ldflags.
var (
	BuildDate = time.Now().Format("2006-01-02")
	GitCommit = "unknown"
)

// commandAliases mirrors the short forms scripts and muscle memory reach for first.
var commandAliases = map[string]string{
	"r": "run",
	"i": "repl",
}

func main() {
	args := os.Args[1:]

	if len(args) == 0 {
		if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			os.Exit(runREPL())
		}
		showUsage()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		showUsage()
	case "--version", "-v", "version":
		showVersion()
	case "repl":
		os.Exit(runREPL())
	case "run":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: ember run <script> [args...]")
			os.Exit(2)
		}
		os.Exit(runScript(args[1], args[2:]))
	default:
		// A bare path is the common case: `ember script.ember arg1 arg2`.
		os.Exit(runScript(args[0], args[1:]))
	}
}

func showUsage() {
	fmt.Println("ember - an embeddable scripting runtime")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  ember <script> [args...]   Run a script                (alias: r)")
	fmt.Println("  ember repl                 Start the interactive REPL  (alias: i)")
	fmt.Println("  ember --version            Show version info")
	fmt.Println("  ember --help               Show this help")
}

func showVersion() {
	fmt.Printf("ember %s (%s, %s)\n", VERSION, BuildDate, GitCommit)
}

// runtime bundles the pieces every entry point (run, repl) bootstraps the same way:
// one Runtime, one symbol table, one module cache, the root package with built-in
// classes and libraries wired in, and the Dispatcher/Scheduler pair that execute
// against them.
type runtime struct {
	rt         *gc.Runtime
	singletons *object.Singletons
	symbols    *module.SymbolTable
	cache      *module.Cache
	rootPkg    *class.PackageData
	dispatcher *dispatch.Dispatcher
	sched      *scheduler.Scheduler
}

func newRuntime() *runtime {
	rt := gc.NewRuntime()
	singletons := object.NewSingletons(rt)
	symbols := module.NewSymbolTable()
	rootPkg := class.NewPackageData("", nil)

	builtin.RegisterBuiltinClasses(rt, singletons)

	cache := module.NewCache()
	loader := frontend.Loader(rt, symbols, singletons, rootPkg)

	d := dispatch.New(rt, singletons, cache, loader)

	sched := scheduler.New(d.RunStep, nil)
	sched.SetExceptionCursorBuilder(d.BuildExceptionCursor)

	// dblib/wslib unlock the processor around blocking driver calls, so they need
	// the scheduler itself at registration time.
	d.BuiltinPackages["dblib"] = dblib.Register(rt, sched, singletons, rootPkg)
	d.BuiltinPackages["wslib"] = wslib.Register(rt, sched, singletons, rootPkg)

	return &runtime{rt: rt, singletons: singletons, symbols: symbols, cache: cache,
		rootPkg: rootPkg, dispatcher: d, sched: sched}
}

func runScript(path string, scriptArgs []string) int {
	rt := newRuntime()

	abs, err := filepath.Abs(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ember: %v\n", err)
		return 1
	}
	rt.cache.AddSearchPath(filepath.Dir(abs))

	m, err := rt.cache.Load(abs, frontend.Loader(rt.rt, rt.symbols, rt.singletons, rt.rootPkg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ember: %v\n", err)
		if cause := errors.Cause(err); cause != err {
			fmt.Fprintf(os.Stderr, "ember: root cause: %v\n", cause)
		}
		return 1
	}

	top := m.Handles[0]
	c := newTopCursor(rt.rt, top, scriptArgs)
	rt.sched.Spawn(scheduler.RoleMain, c)
	return rt.sched.Run()
}

func runREPL() int {
	rt := newRuntime()
	return repl.Run(rt.rt, rt.singletons, rt.symbols, rt.rootPkg, rt.cache, rt.dispatcher, rt.sched)
}

// newTopCursor builds the root cursor for a script run, seeding the command-line
// arguments past the script path as a single Array bound to the top-level "args"
// symbol — the top-level Handle declares no fixed parameters, so Seed's Fast-slot
// path never applies here.
func newTopCursor(rt *gc.Runtime, h *module.Handle, scriptArgs []string) *cursor.Cursor {
	c := cursor.NewCursor(rt, h)
	argv := object.NewArray(rt)
	for _, a := range scriptArgs {
		argv.Push(value.NewWeakReference(rt, value.Default, object.NewString(rt, a)))
	}
	c.Current().Symbols[h.Module.Symbols.Intern("args")] = value.NewWeakReference(rt, value.Default, argv)
	return c
}
