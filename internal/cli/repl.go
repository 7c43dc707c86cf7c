package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isConnected() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
	Sync(ctx context.Context) error
	Retry(ctx context.Context) error
	Add(ctx context.Context, args []string) error
	List(ctx context.Context) error
	Owners(ctx context.Context) error
	AddOwner(ctx context.Context, args []string) error
	RemoveOwner(ctx context.Context, args []string) error
	Export(ctx context.Context, args []string) error
	Import(ctx context.Context, args []string) error
}

// runREPL starts a simple read–eval–print loop for the ledger CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// The prompt shows the current sync state (from statusFn) and accepts:
//
//	Not connected:
//	  - help                  — show available commands
//	  - login                 — cache a remote session
//	  - add / list            — record and list transactions (offline works)
//	  - export / import       — move backups through files
//	  - exit | quit           — leave the program
//
//	Connected:
//	  - everything above, plus
//	  - sync                  — run a cycle now
//	  - status                — show sync state and queue counters
//	  - retry                 — revive permanently failed operations
//	  - owners                — list the parent roster
//	  - addowner <email>      — add a parent (owners only)
//	  - rmowner <email>       — remove a parent (owners only, never the creator)
//	  - logout                — drop the cached session
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("ledger %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isConnected() {
				printlnFn("Available commands: add, (l)ist, sync, status, retry, owners, addowner, rmowner, export, import, logout, exit")
			} else {
				printlnFn("Available commands: login, add, (l)ist, export, import, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "status":
			_ = a.Status(ctx)

		case "sync":
			_ = a.Sync(ctx)

		case "retry":
			_ = a.Retry(ctx)

		case "add":
			_ = a.Add(ctx, args)

		case "l", "list":
			_ = a.List(ctx)

		case "owners":
			_ = a.Owners(ctx)

		case "addowner":
			_ = a.AddOwner(ctx, args)

		case "rmowner":
			_ = a.RemoveOwner(ctx, args)

		case "export":
			_ = a.Export(ctx, args)

		case "import":
			_ = a.Import(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
