package client

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

// Client is the typed REST contract of the notes backend.
type Client interface {
	Login(ctx context.Context, username, password string) (models.Session, error)
	Register(ctx context.Context, username, email, password string) error

	ListNotes(ctx context.Context) ([]models.Note, error)
	CreateNote(ctx context.Context, in models.NoteInput) (models.Note, error)
	UpdateNote(ctx context.Context, id string, in models.NoteInput) (models.Note, error)
	DeleteNote(ctx context.Context, id string) error

	// UploadAttachments returns the created attachments, or nil when the
	// backend answered with a bare status instead of enumerating them.
	UploadAttachments(ctx context.Context, noteID string, files []models.PendingFile) ([]models.Attachment, error)
	GetAttachment(ctx context.Context, id string) (models.Blob, error)
	DeleteAttachment(ctx context.Context, id string) error
}
