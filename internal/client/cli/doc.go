// Package cli provides the interactive notes command-line client.
//
// It wires configuration, the local database, the session gatekeeper, the
// note services and the preview manager behind a small REPL. Typical flow:
// restore the previous session (or prompt for credentials), then list,
// search, edit and delete notes and their attachments.
//
// When the backend rejects the session, the gatekeeper clears it and the
// REPL drops back to the login prompt before reading the next command.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
