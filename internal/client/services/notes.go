package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/metrics"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/store"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/filex"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

// OutcomeKind classifies a save that did not fail outright.
type OutcomeKind int

const (
	// NoteSaved: text and every pending file were persisted.
	NoteSaved OutcomeKind = iota + 1
	// NoteSavedUploadFailed: text persisted, attachments were not. Err holds
	// an *common.UploadError and the pending files should be kept for retry.
	NoteSavedUploadFailed
	// ValidationFailed: nothing was sent. Err holds a *common.ValidationError.
	ValidationFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case NoteSaved:
		return "saved"
	case NoteSavedUploadFailed:
		return "saved, upload failed"
	case ValidationFailed:
		return "validation failed"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// SaveOutcome is the result of Save and RetryUpload.
type SaveOutcome struct {
	Kind OutcomeKind
	Note models.Note
	Err  error
}

// PendingReleaser frees previews of pending files once they are uploaded.
// *preview.Scope implements it.
type PendingReleaser interface {
	ReleasePending()
}

// AttachmentReleaser frees previews of deleted attachments.
// *preview.Manager implements it.
type AttachmentReleaser interface {
	ReleaseAttachments(ids ...string)
}

// SaveRequest is one press of "save". A Note without ID is created.
type SaveRequest struct {
	Note     models.Note
	Pending  []models.PendingFile
	Previews PendingReleaser
}

// NoteService defines note operations for the CLI.
//
// Contract:
//   - Load: fetch the collection and replace the store.
//   - Save: two-phase save. The error return is reserved for failures that
//     left the note text unsaved; partial success is a SaveOutcome.
//   - RetryUpload: re-run only the attachment phase of an already saved note.
//   - Delete, DeleteAttachment: a 404 surfaces NotFoundError and reloads.
//   - Download: write an attachment into a local directory.
type NoteService interface {
	Load(ctx context.Context) ([]models.Note, error)
	Save(ctx context.Context, req SaveRequest) (SaveOutcome, error)
	RetryUpload(ctx context.Context, noteID string, pending []models.PendingFile, previews PendingReleaser) (SaveOutcome, error)
	Delete(ctx context.Context, id string) error
	DeleteAttachment(ctx context.Context, noteID, attachmentID string) error
	Download(ctx context.Context, a models.Attachment, dir string) (string, error)
}

type noteService struct {
	client   client.Client
	store    *store.NoteStore
	previews AttachmentReleaser
	log      logging.Logger
	metrics  *metrics.Metrics
}

// Option configures the note service.
type Option func(*noteService)

func WithLogger(l logging.Logger) Option { return func(s *noteService) { s.log = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *noteService) { s.metrics = m } }

// WithPreviews releases preview handles of deleted notes and attachments.
func WithPreviews(r AttachmentReleaser) Option { return func(s *noteService) { s.previews = r } }

// NewNoteService binds the service to an API client and the note store.
func NewNoteService(c client.Client, st *store.NoteStore, opts ...Option) NoteService {
	s := &noteService{client: c, store: st, log: logging.Discard()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *noteService) Load(ctx context.Context) ([]models.Note, error) {
	notes, err := s.client.ListNotes(ctx)
	if err != nil {
		return nil, err
	}
	s.store.ReplaceAll(notes)
	s.log.Debug(ctx, "notes loaded", "count", len(notes))
	return s.store.All(), nil
}

// reload refreshes the store after a stale identifier was detected. Its own
// failure is logged; the caller reports the original error.
func (s *noteService) reload(ctx context.Context) {
	if _, err := s.Load(ctx); err != nil {
		s.log.Warn(ctx, "reload after stale id failed", "error", err)
	}
}

func validateDraft(req SaveRequest) error {
	if err := common.Validate(req.Note.Input()); err != nil {
		return err
	}
	for _, f := range req.Pending {
		if f.Size > common.MaxAttachmentSize || int64(len(f.Data)) > common.MaxAttachmentSize {
			return &common.ValidationError{Field: "files", Reason: fmt.Sprintf("%s exceeds the 10 MiB limit", f.Name)}
		}
	}
	return nil
}

func (s *noteService) Save(ctx context.Context, req SaveRequest) (SaveOutcome, error) {
	if err := validateDraft(req); err != nil {
		return SaveOutcome{Kind: ValidationFailed, Err: err}, nil
	}

	in := req.Note.Input()
	var (
		saved models.Note
		err   error
	)
	if req.Note.IsDraft() {
		saved, err = s.client.CreateNote(ctx, in)
	} else {
		saved, err = s.client.UpdateNote(ctx, req.Note.ID, in)
	}
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.reload(ctx)
		}
		s.log.Info(ctx, "note save failed", "id", req.Note.ID, "error", err)
		return SaveOutcome{}, err
	}

	s.store.Upsert(saved)
	s.log.Info(ctx, "note saved", "id", saved.ID, "pending_files", len(req.Pending))

	if len(req.Pending) == 0 {
		return SaveOutcome{Kind: NoteSaved, Note: saved}, nil
	}
	return s.upload(ctx, saved, req.Pending, req.Previews), nil
}

func (s *noteService) RetryUpload(ctx context.Context, noteID string, pending []models.PendingFile, previews PendingReleaser) (SaveOutcome, error) {
	note, ok := s.store.Get(noteID)
	if !ok {
		return SaveOutcome{}, &common.NotFoundError{Resource: "note", ID: noteID}
	}
	if len(pending) == 0 {
		return SaveOutcome{Kind: NoteSaved, Note: note}, nil
	}
	return s.upload(ctx, note, pending, previews), nil
}

// upload is the second phase. It runs only after the note has an id.
func (s *noteService) upload(ctx context.Context, note models.Note, pending []models.PendingFile, previews PendingReleaser) SaveOutcome {
	atts, err := s.client.UploadAttachments(ctx, note.ID, pending)
	if err != nil {
		s.metrics.RecordUploadFailure()
		s.log.Warn(ctx, "attachment upload failed", "id", note.ID, "files", len(pending), "error", err)
		return SaveOutcome{
			Kind: NoteSavedUploadFailed,
			Note: note,
			Err:  &common.UploadError{NoteID: note.ID, Err: err},
		}
	}

	if atts != nil {
		note.Attachments = mergeAttachments(note.Attachments, atts)
		s.store.Upsert(note)
	} else {
		// the backend did not enumerate the new attachments
		s.reload(ctx)
		if fresh, ok := s.store.Get(note.ID); ok {
			note = fresh
		}
	}

	if previews != nil {
		previews.ReleasePending()
	}
	s.log.Info(ctx, "attachments uploaded", "id", note.ID, "files", len(pending))
	return SaveOutcome{Kind: NoteSaved, Note: note}
}

func mergeAttachments(have, added []models.Attachment) []models.Attachment {
	out := append([]models.Attachment(nil), have...)
	idx := make(map[string]int, len(out))
	for i, a := range out {
		idx[a.ID] = i
	}
	for _, a := range added {
		if i, ok := idx[a.ID]; ok {
			out[i] = a
			continue
		}
		idx[a.ID] = len(out)
		out = append(out, a)
	}
	return out
}

func (s *noteService) Delete(ctx context.Context, id string) error {
	note, known := s.store.Get(id)

	if err := s.client.DeleteNote(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.store.Remove(id)
			s.releaseAttachments(note.Attachments)
			s.reload(ctx)
		}
		return err
	}

	s.store.Remove(id)
	if known {
		s.releaseAttachments(note.Attachments)
	}
	s.log.Info(ctx, "note deleted", "id", id)
	return nil
}

func (s *noteService) releaseAttachments(atts []models.Attachment) {
	if s.previews == nil || len(atts) == 0 {
		return
	}
	ids := make([]string, len(atts))
	for i, a := range atts {
		ids[i] = a.ID
	}
	s.previews.ReleaseAttachments(ids...)
}

func (s *noteService) DeleteAttachment(ctx context.Context, noteID, attachmentID string) error {
	if err := s.client.DeleteAttachment(ctx, attachmentID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.reload(ctx)
		}
		return err
	}

	if note, ok := s.store.Get(noteID); ok {
		s.store.Upsert(note.WithoutAttachment(attachmentID))
	}
	if s.previews != nil {
		s.previews.ReleaseAttachments(attachmentID)
	}
	s.log.Info(ctx, "attachment deleted", "note", noteID, "attachment", attachmentID)
	return nil
}

func (s *noteService) Download(ctx context.Context, a models.Attachment, dir string) (string, error) {
	blob, err := s.client.GetAttachment(ctx, a.ID)
	if err != nil {
		return "", err
	}

	target, err := filex.EnsureDir(dir, ".")
	if err != nil {
		return "", err
	}
	path := filepath.Join(target, filex.SafeName(a.FileName))
	if err := os.WriteFile(path, blob.Data, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	s.log.Info(ctx, "attachment downloaded", "attachment", a.ID, "path", path)
	return path, nil
}
