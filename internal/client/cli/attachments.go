package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/services"
	"github.com/dmitrijs2005/notekeeper/internal/common"
)

// Attach uploads files to an existing note without changing its text.
func (a *App) Attach(ctx context.Context, args []string) error {
	if len(args) < 2 {
		a.println("Usage: attach <note id> <path> [path...]")
		return errUsage
	}
	n, err := a.noteArg(args[:1], "")
	if err != nil {
		return err
	}

	var pending services.PendingSet
	files, warnings := services.SelectFiles(args[1:])
	warnings = append(warnings, pending.Add(files...)...)
	a.printWarnings(warnings)
	files = pending.Files()
	if len(files) == 0 {
		a.println("No files to upload.")
		return nil
	}

	editScope := a.previews.NewScope()
	out, err := a.notes.RetryUpload(ctx, n.ID, files, editScope)
	if err != nil {
		editScope.Close()
		a.report(err)
		return err
	}
	if out.Kind == services.NoteSavedUploadFailed {
		a.setRetry(&failedUpload{noteID: n.ID, files: files, scope: editScope})
		a.report(out.Err)
		return out.Err
	}

	editScope.Close()
	a.printf("Uploaded %d attachments to note %s.\n", len(files), n.ID)
	return nil
}

// RemoveAttachment deletes one attachment of a note.
func (a *App) RemoveAttachment(ctx context.Context, args []string) error {
	n, att, err := a.attachmentArg(args, "rmattach <note id> <attachment id>")
	if err != nil {
		return err
	}

	if err := a.notes.DeleteAttachment(ctx, n.ID, att.ID); err != nil {
		a.report(err)
		return err
	}
	a.printf("Removed %s from note %s.\n", att.FileName, n.ID)
	return nil
}

// Preview materializes the image attachments of a note as local files and
// prints their locations. Handles stay alive while the note is visible.
func (a *App) Preview(ctx context.Context, args []string) error {
	n, err := a.noteArg(args, "preview <note id>")
	if err != nil {
		return err
	}

	shown := 0
	for _, att := range n.Attachments {
		if !att.IsImage() {
			continue
		}
		h, err := a.scope.Acquire(ctx, att)
		if err != nil {
			if errors.Is(err, common.ErrSessionExpired) {
				a.report(err)
				return err
			}
			a.printf("%s: preview unavailable (%v)\n", att.FileName, err)
			continue
		}
		u, err := h.URL()
		if err != nil {
			continue
		}
		a.printf("%s: %s\n", att.FileName, u)
		shown++
	}

	if shown == 0 {
		a.println("No image attachments to preview.")
	}
	return nil
}

// Download saves an attachment into dir, or the data directory by default.
func (a *App) Download(ctx context.Context, args []string) error {
	n, att, err := a.attachmentArg(args, "download <note id> <attachment id> [dir]")
	if err != nil {
		return err
	}
	dir := a.downloadDir
	if len(args) > 2 {
		dir = args[2]
	}

	path, err := a.notes.Download(ctx, att, dir)
	if err != nil {
		a.report(err)
		return err
	}
	a.printf("Saved %s from note %s to %s\n", att.FileName, n.ID, path)
	return nil
}

func (a *App) attachmentArg(args []string, usage string) (models.Note, models.Attachment, error) {
	if len(args) < 2 {
		a.println("Usage:", usage)
		return models.Note{}, models.Attachment{}, errUsage
	}
	n, err := a.noteArg(args[:1], usage)
	if err != nil {
		return models.Note{}, models.Attachment{}, err
	}
	for _, att := range n.Attachments {
		if att.ID == args[1] {
			return n, att, nil
		}
	}
	err = &common.NotFoundError{Resource: "attachment", ID: args[1]}
	a.println(fmt.Sprintf("%v (note %s)", err, n.ID))
	return models.Note{}, models.Attachment{}, err
}

func (a *App) printWarnings(warnings []services.FileWarning) {
	for _, w := range warnings {
		if w.Replaced {
			a.println("Replaced:", w.String())
			continue
		}
		a.println("Skipped:", w.String())
	}
}
