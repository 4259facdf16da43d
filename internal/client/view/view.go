// Package view derives what the notes screen shows from the note collection:
// search filtering followed by a grid or list layout. It never mutates its
// input.
package view

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

// Mode selects the layout.
type Mode string

const (
	ModeGrid Mode = "grid"
	ModeList Mode = "list"
)

// ExcerptLength is the number of content characters shown on a card.
const ExcerptLength = 150

// ParseMode accepts "grid" or "list", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeGrid:
		return ModeGrid, nil
	case ModeList:
		return ModeList, nil
	default:
		return "", fmt.Errorf("unknown view mode %q (want grid or list)", s)
	}
}

// Columns is the number of cards per row.
func (m Mode) Columns() int {
	if m == ModeList {
		return 1
	}
	return 4
}

// Card is one note as displayed.
type Card struct {
	NoteID      string
	Title       string
	Excerpt     string
	Attachments int
	Images      int
	// AttachmentIDs lists every attachment of the note, in order.
	AttachmentIDs []string
}

// RenderModel is the layout of the whole screen.
type RenderModel struct {
	Mode    Mode
	Columns int
	Cards   []Card
	Empty   bool
}

// Rows groups cards by Columns.
func (r RenderModel) Rows() [][]Card {
	if r.Columns <= 0 {
		return nil
	}
	var rows [][]Card
	for i := 0; i < len(r.Cards); i += r.Columns {
		end := min(i+r.Columns, len(r.Cards))
		rows = append(rows, r.Cards[i:end])
	}
	return rows
}

// Filter keeps notes whose title or content contains term, ignoring case.
// An empty term returns notes itself.
func Filter(notes []models.Note, term string) []models.Note {
	if term == "" {
		return notes
	}
	needle := strings.ToLower(term)

	out := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if strings.Contains(strings.ToLower(n.Title), needle) || strings.Contains(strings.ToLower(n.Content), needle) {
			out = append(out, n)
		}
	}
	return out
}

// Project lays notes out in mode without reordering them.
func Project(notes []models.Note, mode Mode) RenderModel {
	if mode != ModeList {
		mode = ModeGrid
	}

	cards := make([]Card, 0, len(notes))
	for _, n := range notes {
		cards = append(cards, card(n))
	}

	return RenderModel{
		Mode:    mode,
		Columns: mode.Columns(),
		Cards:   cards,
		Empty:   len(cards) == 0,
	}
}

// Compose filters by term, then projects. The order is fixed.
func Compose(notes []models.Note, term string, mode Mode) RenderModel {
	return Project(Filter(notes, term), mode)
}

func card(n models.Note) Card {
	c := Card{
		NoteID:      n.ID,
		Title:       n.Title,
		Excerpt:     Excerpt(n.Content),
		Attachments: len(n.Attachments),
	}
	for _, a := range n.Attachments {
		c.AttachmentIDs = append(c.AttachmentIDs, a.ID)
		if a.IsImage() {
			c.Images++
		}
	}
	return c
}

// Excerpt truncates content to ExcerptLength characters followed by "...".
func Excerpt(content string) string {
	r := []rune(content)
	if len(r) <= ExcerptLength {
		return content
	}
	return string(r[:ExcerptLength]) + "..."
}
