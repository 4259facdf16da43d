// Package models defines the client-side data model: notes, their attachments,
// files selected for upload and the authenticated session.
package models

import (
	"encoding/json"
	"strings"
)

// Note is a text note owned by the signed-in user. A Note without an ID is a
// draft that has never been persisted.
type Note struct {
	ID          string       `json:"id,omitempty"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments"`
}

// IsDraft reports whether the note still lacks a server-assigned identifier.
func (n Note) IsDraft() bool {
	return n.ID == ""
}

// UnmarshalJSON accepts attachments under either "attachments" or
// "fileAttachments"; the backend and older clients disagree on the name.
func (n *Note) UnmarshalJSON(b []byte) error {
	type plain Note
	var aux struct {
		plain
		FileAttachments []Attachment `json:"fileAttachments"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*n = Note(aux.plain)
	if len(n.Attachments) == 0 && len(aux.FileAttachments) > 0 {
		n.Attachments = aux.FileAttachments
	}
	return nil
}

// Clone returns a copy that shares no slices with n.
func (n Note) Clone() Note {
	c := n
	if n.Attachments != nil {
		c.Attachments = append([]Attachment(nil), n.Attachments...)
	}
	return c
}

// WithoutAttachment returns a copy of n with the given attachment dropped.
func (n Note) WithoutAttachment(id string) Note {
	c := n.Clone()
	kept := c.Attachments[:0]
	for _, a := range c.Attachments {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	c.Attachments = kept
	return c
}

// NoteInput is the request body for create and update.
type NoteInput struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// Input trims title and content into a request body.
func (n Note) Input() NoteInput {
	return NoteInput{Title: strings.TrimSpace(n.Title), Content: strings.TrimSpace(n.Content)}
}
