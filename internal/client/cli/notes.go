package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/services"
	"github.com/dmitrijs2005/notekeeper/internal/client/view"
	"github.com/dmitrijs2005/notekeeper/internal/common"
)

// gridCellWidth caps the title and excerpt shown in one grid column.
const gridCellWidth = 28

// Reload fetches the collection from the backend and prints it.
func (a *App) Reload(ctx context.Context, _ []string) error {
	if _, err := a.notes.Load(ctx); err != nil {
		a.report(err)
		return err
	}
	return a.List(ctx, nil)
}

// List prints the notes matching the current search term in the current
// layout. Previews and pages of notes that are no longer visible are released.
func (a *App) List(_ context.Context, _ []string) error {
	notes := a.store.All()
	rm := view.Compose(notes, a.term, a.mode)

	var ids, noteIDs []string
	for _, c := range rm.Cards {
		noteIDs = append(noteIDs, c.NoteID)
		ids = append(ids, c.AttachmentIDs...)
	}
	a.scope.Prune(ids)
	a.scope.PrunePages(noteIDs)

	if a.term != "" {
		a.printf("Search: %q (%d of %d notes)\n", a.term, len(rm.Cards), len(notes))
	}
	if rm.Empty {
		if a.term != "" {
			a.println("No notes match your search.")
		} else {
			a.println("No notes yet. Type 'new' to create one.")
		}
		return nil
	}

	if rm.Mode == view.ModeList {
		a.printList(rm)
	} else {
		a.printGrid(rm)
	}
	return nil
}

func (a *App) printList(rm view.RenderModel) {
	for _, c := range rm.Cards {
		a.printf("[%s] %s%s\n", c.NoteID, c.Title, attachmentBadge(c))
		if c.Excerpt != "" {
			a.printf("    %s\n", strings.ReplaceAll(c.Excerpt, "\n", "\n    "))
		}
	}
}

func (a *App) printGrid(rm view.RenderModel) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, row := range rm.Rows() {
		titles := make([]string, len(row))
		excerpts := make([]string, len(row))
		for i, c := range row {
			titles[i] = clip(fmt.Sprintf("[%s] %s%s", c.NoteID, c.Title, attachmentBadge(c)), gridCellWidth)
			excerpts[i] = clip(strings.Join(strings.Fields(c.Excerpt), " "), gridCellWidth)
		}
		fmt.Fprintln(tw, strings.Join(titles, "\t"))
		fmt.Fprintln(tw, strings.Join(excerpts, "\t"))
		fmt.Fprintln(tw)
	}
	_ = tw.Flush()
}

func attachmentBadge(c view.Card) string {
	if c.Attachments == 0 {
		return ""
	}
	return fmt.Sprintf(" (%d files)", c.Attachments)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}

// Search sets the filter term; without arguments it clears it.
func (a *App) Search(ctx context.Context, args []string) error {
	a.term = strings.TrimSpace(strings.Join(args, " "))
	return a.List(ctx, nil)
}

// SetView switches between grid and list layouts.
func (a *App) SetView(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.printf("View: %s\n", a.mode)
		return nil
	}
	mode, err := view.ParseMode(args[0])
	if err != nil {
		a.println(err.Error())
		return err
	}
	a.mode = mode
	return a.List(ctx, nil)
}

// New prompts for a note and its attachments and saves it.
func (a *App) New(ctx context.Context, _ []string) error {
	return a.editNote(ctx, models.Note{})
}

// Edit updates the title, content or attachments of an existing note.
func (a *App) Edit(ctx context.Context, args []string) error {
	n, err := a.noteArg(args, "edit <id>")
	if err != nil {
		return err
	}
	return a.editNote(ctx, n)
}

func (a *App) editNote(ctx context.Context, n models.Note) error {
	titlePrompt := "Title"
	if n.Title != "" {
		titlePrompt = fmt.Sprintf("Title [%s]", n.Title)
	}
	title, err := getSimpleText(a.reader, titlePrompt, a.out)
	if err != nil {
		return err
	}
	if title != "" {
		n.Title = title
	}

	n.Content, err = getMultiline(a.reader, "Content (Markdown)", n.Content, a.out)
	if err != nil {
		return err
	}

	var pending services.PendingSet
	paths, err := getSimpleText(a.reader, "Attach files (paths separated by spaces, empty for none)", a.out)
	if err != nil {
		return err
	}
	files, warnings := services.SelectFiles(strings.Fields(paths))
	warnings = append(warnings, pending.Add(files...)...)
	a.printWarnings(warnings)

	editScope := a.previews.NewScope()
	for _, f := range pending.Files() {
		if !f.IsImage() {
			continue
		}
		h, err := editScope.AcquirePending(f)
		if err != nil {
			a.log.Warn(ctx, "pending preview failed", "file", f.Name, "error", err)
			continue
		}
		if u, err := h.URL(); err == nil {
			a.printf("Preview of %s: %s\n", f.Name, u)
		}
	}

	out, err := a.notes.Save(ctx, services.SaveRequest{Note: n, Pending: pending.Files(), Previews: editScope})
	if err != nil {
		editScope.Close()
		a.report(err)
		return err
	}

	switch out.Kind {
	case services.ValidationFailed:
		editScope.Close()
		a.report(out.Err)
		return out.Err
	case services.NoteSavedUploadFailed:
		a.setRetry(&failedUpload{noteID: out.Note.ID, files: pending.Files(), scope: editScope})
		a.printf("Saved note %s.\n", out.Note.ID)
		a.report(out.Err)
		return out.Err
	default:
		editScope.Close()
		a.printf("Saved note %s", out.Note.ID)
		if k := len(out.Note.Attachments); k > 0 {
			a.printf(" with %d attachments", k)
		}
		a.println(".")
		return nil
	}
}

func (a *App) setRetry(r *failedUpload) {
	if a.retry != nil {
		a.retry.scope.Close()
	}
	a.retry = r
}

// Retry re-runs the attachment upload of the last note whose upload failed.
func (a *App) Retry(ctx context.Context, _ []string) error {
	if a.retry == nil {
		a.println("Nothing to retry.")
		return nil
	}
	r := a.retry

	out, err := a.notes.RetryUpload(ctx, r.noteID, r.files, r.scope)
	if err != nil {
		a.report(err)
		if errors.Is(err, common.ErrNotFound) {
			a.setRetry(nil)
		}
		return err
	}
	if out.Kind == services.NoteSavedUploadFailed {
		a.report(out.Err)
		return out.Err
	}

	a.setRetry(nil)
	a.printf("Uploaded %d attachments to note %s.\n", len(r.files), r.noteID)
	return nil
}

// Delete removes a note after confirmation.
func (a *App) Delete(ctx context.Context, args []string) error {
	n, err := a.noteArg(args, "delete <id>")
	if err != nil {
		return err
	}

	answer, err := getSimpleText(a.reader, fmt.Sprintf("Delete %q? (y/N)", n.Title), a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
		a.println("Cancelled.")
		return nil
	}

	if err := a.notes.Delete(ctx, n.ID); err != nil {
		a.report(err)
		return err
	}
	a.printf("Deleted note %s.\n", n.ID)
	return nil
}

// Show prints one note with its attachments, then renders it to an HTML page
// under the previews directory with its images inlined.
func (a *App) Show(ctx context.Context, args []string) error {
	n, err := a.noteArg(args, "show <id>")
	if err != nil {
		return err
	}

	a.printf("[%s] %s\n\n%s\n", n.ID, n.Title, n.Content)
	if len(n.Attachments) > 0 {
		a.println()
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSIZE")
		for _, att := range n.Attachments {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", att.ID, att.FileName, att.FileType, humanSize(att.FileSize))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	var images []view.PageImage
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
		if u, err := h.URL(); err == nil {
			images = append(images, view.PageImage{Name: att.FileName, URL: u})
		}
	}

	page, err := view.Page(n, images)
	if err != nil {
		a.log.Warn(ctx, "render note page failed", "note", n.ID, "error", err)
		return nil
	}
	h, err := a.scope.AcquirePage(n.ID, page)
	if err != nil {
		a.log.Warn(ctx, "write note page failed", "note", n.ID, "error", err)
		return nil
	}
	if u, err := h.URL(); err == nil {
		a.printf("\nPage: %s\n", u)
	}
	return nil
}

// noteArg resolves the first argument to a note in the store.
func (a *App) noteArg(args []string, usage string) (models.Note, error) {
	if len(args) == 0 {
		a.println("Usage:", usage)
		return models.Note{}, errUsage
	}
	n, ok := a.store.Get(args[0])
	if !ok {
		err := &common.NotFoundError{Resource: "note", ID: args[0]}
		a.println(err.Error())
		return models.Note{}, err
	}
	return n, nil
}

var errUsage = errors.New("usage")

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
