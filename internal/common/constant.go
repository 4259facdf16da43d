// Package common contains shared constants and the error taxonomy used across
// NoteKeeper client components.
package common

const (
	// AuthorizationHeaderName carries the bearer token on outbound requests.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the token value in the Authorization header.
	BearerPrefix = "Bearer "

	// RequestIDHeaderName correlates a client request with backend logs.
	RequestIDHeaderName = "X-Request-ID"

	// MaxAttachmentSize is the ceiling for a single uploaded file (10 MiB).
	MaxAttachmentSize int64 = 10 * 1024 * 1024

	// UploadFieldName is the multipart form field repeated once per file.
	UploadFieldName = "files"
)
