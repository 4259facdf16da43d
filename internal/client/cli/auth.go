package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/notekeeper/internal/common"
)

// getSimpleText, getPassword and getMultiline are indirections used to
// facilitate testing.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getMultiline  = GetMultiline
)

// Register prompts for username, email and password and creates an account.
// It does not sign in.
func (a *App) Register(ctx context.Context, _ []string) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	if err := a.auth.Register(ctx, username, email, password); err != nil {
		a.report(err)
		return err
	}

	a.println("Registered. You can log in now.")
	return nil
}

// Login prompts for credentials, signs in and loads the notes.
func (a *App) Login(ctx context.Context, _ []string) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	s, err := a.auth.Login(ctx, username, password)
	if err != nil {
		a.report(err)
		return err
	}
	a.needsLogin.Store(false)
	a.resetView()

	a.printf("Signed in as %s\n", s.Username())
	return a.Reload(ctx, nil)
}

// Logout clears the session and everything displayed for it.
func (a *App) Logout(ctx context.Context, _ []string) error {
	err := a.auth.Logout(ctx)
	a.resetView()
	if err != nil {
		a.report(err)
		return err
	}
	a.println("Signed out.")
	return nil
}

// report prints err in a form suited to its category.
func (a *App) report(err error) {
	switch {
	case errors.Is(err, common.ErrSessionExpired):
		a.println("Session expired, please log in again.")
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrAuth):
		a.println(err.Error())
	case errors.Is(err, common.ErrUpload):
		a.println(err.Error())
		a.println("The note text is saved. Type 'retry' to upload the attachments again.")
	case errors.Is(err, common.ErrNotFound):
		a.println(err.Error(), "(the list was reloaded)")
	default:
		a.println("Error:", err.Error())
	}
}
