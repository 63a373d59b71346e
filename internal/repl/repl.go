// internal/repl/repl.go
package repl

import (
	"bufio"
	"fmt"
	"os"

	"ember/internal/bytecode"
	"ember/internal/class"
	"ember/internal/cursor"
	"ember/internal/dispatch"
	"ember/internal/frontend"
	"ember/internal/gc"
	"ember/internal/module"
	"ember/internal/object"
	"ember/internal/scheduler"
	"ember/internal/value"
)

// Run drives an interactive read-compile-run loop. Each line compiles as its own
// module against the shared runtime, symbol table, and root package, so `load`
// statements and built-in classes resolve exactly as they would in a script. The
// dynamic symbol map is a single map reused across lines: DECLARE_SYMBOL writes into
// it in place, so a `let` on one line stays visible to the next without needing to
// read anything back out of a finished cursor's popped root frame.
func Run(rt *gc.Runtime, singletons *object.Singletons, symbols *module.SymbolTable, rootPkg *class.PackageData, cache *module.Cache, d *dispatch.Dispatcher, sched *scheduler.Scheduler) int {
	fmt.Println("ember REPL | type 'exit' to quit")
	scanner := bufio.NewScanner(os.Stdin)
	bindings := make(map[*bytecode.Symbol]value.WeakReference)

	for {
		fmt.Print(">>> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := scanner.Text()
		if line == "exit" {
			break
		}
		if line == "" {
			continue
		}

		m, err := frontend.Compile(rt, "<repl>", line, symbols, singletons, rootPkg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		c := cursor.NewCursor(rt, m.Handles[0])
		c.Current().Symbols = bindings
		sched.Spawn(scheduler.RoleMain, c)
		sched.Run()
	}
	return 0
}
