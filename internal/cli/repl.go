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
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) error
	Servers(ctx context.Context) error
	AddServer(ctx context.Context) error
	ChangeServer(ctx context.Context, name string) error
	Channels(ctx context.Context) error
	Select(ctx context.Context, arg string) error
	Thread(ctx context.Context) error
	Users(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the worryless shell.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Not logged in:
//	  - help              — show available commands
//	  - servers           — list configured servers
//	  - addserver         — register a new server (interactive prompts)
//	  - server <name>     — switch the selected server
//	  - login             — authenticate against the selected server
//	  - exit | quit       — leave the program
//
//	Logged in:
//	  - help              — show available commands
//	  - refresh           — rebuild the session snapshot
//	  - servers           — list configured servers
//	  - addserver         — register a new server
//	  - server <name>     — switch server (logs the session out)
//	  - channels          — list joined channels
//	  - select <n|name>   — activate a channel and fetch its unread thread
//	  - thread            — show the active channel's thread
//	  - users             — list the user directory
//	  - logout            — log out
//	  - exit | quit       — leave the program
//
// Any errors returned by command handlers are ignored here; handlers print
// their own failures. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("wl %s> ", statusFn()))
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
			if a.isLoggedIn() {
				printlnFn("Available commands: refresh, servers, addserver, server <name>, channels, select <n|name>, thread, users, logout, exit")
			} else {
				printlnFn("Available commands: servers, addserver, server <name>, login, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "refresh":
			_ = a.Refresh(ctx)

		case "servers":
			_ = a.Servers(ctx)

		case "addserver":
			_ = a.AddServer(ctx)

		case "server":
			if len(args) == 0 {
				printlnFn("Usage: server <name>")
				continue
			}
			_ = a.ChangeServer(ctx, args[0])

		case "channels":
			_ = a.Channels(ctx)

		case "select":
			if len(args) == 0 {
				printlnFn("Usage: select <number|name>")
				continue
			}
			_ = a.Select(ctx, args[0])

		case "thread":
			_ = a.Thread(ctx)

		case "users":
			_ = a.Users(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
