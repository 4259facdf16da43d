// Package client contains the client-side building blocks that talk to the
// notes backend.
//
// # Overview
//
// The package provides:
//  1. A raw transport contract (Transport) and its HTTP implementation
//     (HTTPTransport). The transport is the single network seam: it applies
//     the client-side rate limit, stamps every request with X-Request-ID and
//     returns non-2xx responses as values, never as errors.
//  2. A typed REST API (Client, implemented by APIClient) layered over any
//     Transport. APIClient encodes bodies, decodes payloads and maps status
//     codes onto the error taxonomy in internal/common.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// The session gatekeeper is itself a Transport, so an APIClient built over it
// gets bearer-token injection and the forced-logout path for free.
//
// # Error Handling
//
// Failures are returned as the typed errors of internal/common and can be
// matched with errors.Is against common.ErrNotFound, common.ErrAuth,
// common.ErrValidation and common.ErrTransport.
package client
