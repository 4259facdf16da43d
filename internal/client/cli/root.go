package cli

import (
	"context"
	"fmt"
)

func (a *App) isLoggedIn() bool {
	return a.auth.Authenticated()
}

func (a *App) getStatus() string {
	s := a.auth.Session()
	if !s.Authenticated() {
		return ""
	}
	name := s.Username()
	if name == "" {
		name = "signed in"
	}
	return fmt.Sprintf("(%s)", name)
}

// Run restores the previous session, then blocks in the REPL.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	a.println("Welcome to NoteKeeper CLI (type 'help' for commands)")
	if s := a.auth.Restore(ctx); s.Authenticated() {
		a.printf("Signed in as %s\n", s.Username())
		_ = a.Reload(ctx, nil)
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}

