package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// command is a REPL handler. args are the whitespace-separated words after
// the command name.
type command func(ctx context.Context, args []string) error

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	// consumeForcedLogout reports, once, that the session was revoked by the
	// backend since the last prompt.
	consumeForcedLogout() bool
	resetView()

	Register(ctx context.Context, args []string) error
	Login(ctx context.Context, args []string) error
	Logout(ctx context.Context, args []string) error

	List(ctx context.Context, args []string) error
	Reload(ctx context.Context, args []string) error
	Search(ctx context.Context, args []string) error
	SetView(ctx context.Context, args []string) error
	New(ctx context.Context, args []string) error
	Edit(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Retry(ctx context.Context, args []string) error

	Attach(ctx context.Context, args []string) error
	RemoveAttachment(ctx context.Context, args []string) error
	Preview(ctx context.Context, args []string) error
	Download(ctx context.Context, args []string) error

	Stats(ctx context.Context, args []string) error
}

const (
	helpGuest = "Available commands: register, login, help, exit"
	helpUser  = "Available commands: (l)ist, search [term], view grid|list, new, edit <id>, show <id>, delete <id>,\n" +
		"  attach <id> <paths...>, rmattach <id> <attachment id>, preview <id>, download <id> <attachment id> [dir],\n" +
		"  retry, reload, stats, logout, help, exit"
)

func guestCommands(a execIface) map[string]command {
	return map[string]command{
		"register": a.Register,
		"login":    a.Login,
	}
}

func userCommands(a execIface) map[string]command {
	return map[string]command{
		"l":        a.List,
		"list":     a.List,
		"reload":   a.Reload,
		"search":   a.Search,
		"view":     a.SetView,
		"new":      a.New,
		"edit":     a.Edit,
		"delete":   a.Delete,
		"show":     a.Show,
		"retry":    a.Retry,
		"attach":   a.Attach,
		"rmattach": a.RemoveAttachment,
		"preview":  a.Preview,
		"download": a.Download,
		"stats":    a.Stats,
		"logout":   a.Logout,
	}
}

// runREPL starts a simple read-eval-print loop for the NoteKeeper CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Note commands require a session; while
// signed out only register and login are accepted. The loop exits on EOF or
// when the user types "exit" or "quit".
//
// Before every prompt the loop checks whether the session was revoked by the
// backend. If so, the view is reset and the user is sent back to login.
//
// Errors returned by command handlers are ignored here; handlers print their
// own messages.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	guest := guestCommands(a)
	user := userCommands(a)

	for {
		if ctx.Err() != nil {
			return
		}
		if a.consumeForcedLogout() {
			a.resetView()
			printlnFn("Your session has expired. Please log in again.")
		}

		printlnFn(fmt.Sprintf("nk %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpUser)
			} else {
				printlnFn(helpGuest)
			}
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		if h, ok := guest[cmd]; ok {
			_ = h(ctx, args)
			continue
		}
		if h, ok := user[cmd]; ok {
			if !a.isLoggedIn() {
				printlnFn("Please log in first.")
				continue
			}
			_ = h(ctx, args)
			continue
		}
		printlnFn("Unknown command:", cmd)
	}
}
