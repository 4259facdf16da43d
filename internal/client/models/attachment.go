package models

import "strings"

// Attachment is the server-side metadata of a file attached to a note.
type Attachment struct {
	ID       string `json:"id"`
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize"`
}

// IsImage reports whether the declared type is an image/* media type.
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(a.FileType), "image/")
}

// PendingFile is a locally selected file that has not been uploaded yet. It
// exists only until the upload of the note it belongs to succeeds.
type PendingFile struct {
	Name string
	Size int64
	Type string
	Data []byte
}

// IsImage reports whether the detected type is an image/* media type.
func (p PendingFile) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(p.Type), "image/")
}

// Blob is a binary payload fetched from the backend.
type Blob struct {
	Data        []byte
	ContentType string
}
