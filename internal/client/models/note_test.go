package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNote_UnmarshalAcceptsBothAttachmentFields(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Attachment
	}{
		{
			name: "attachments",
			raw:  `{"id":"1","title":"t","content":"c","attachments":[{"id":"a1","fileName":"x.png","fileType":"image/png","fileSize":3}]}`,
			want: []Attachment{{ID: "a1", FileName: "x.png", FileType: "image/png", FileSize: 3}},
		},
		{
			name: "fileAttachments",
			raw:  `{"id":"1","title":"t","content":"c","fileAttachments":[{"id":"a2","fileName":"y.pdf","fileType":"application/pdf","fileSize":9}]}`,
			want: []Attachment{{ID: "a2", FileName: "y.pdf", FileType: "application/pdf", FileSize: 9}},
		},
		{
			name: "none",
			raw:  `{"id":"1","title":"t","content":"c"}`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Note
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &n))
			assert.Equal(t, "1", n.ID)
			assert.Equal(t, tt.want, n.Attachments)
		})
	}
}

func TestNote_IsDraft(t *testing.T) {
	assert.True(t, Note{Title: "t"}.IsDraft())
	assert.False(t, Note{ID: "42"}.IsDraft())
}

func TestNote_InputTrims(t *testing.T) {
	in := Note{Title: "  Groceries ", Content: "\nmilk, eggs\t"}.Input()
	assert.Equal(t, NoteInput{Title: "Groceries", Content: "milk, eggs"}, in)
}

func TestNote_WithoutAttachmentDoesNotTouchOriginal(t *testing.T) {
	n := Note{ID: "1", Attachments: []Attachment{{ID: "a"}, {ID: "b"}, {ID: "c"}}}

	got := n.WithoutAttachment("b")

	assert.Equal(t, []Attachment{{ID: "a"}, {ID: "c"}}, got.Attachments)
	assert.Equal(t, []Attachment{{ID: "a"}, {ID: "b"}, {ID: "c"}}, n.Attachments)
}

func TestAttachment_IsImage(t *testing.T) {
	assert.True(t, Attachment{FileType: "image/png"}.IsImage())
	assert.True(t, Attachment{FileType: "IMAGE/JPEG"}.IsImage())
	assert.False(t, Attachment{FileType: "application/pdf"}.IsImage())
	assert.False(t, Attachment{}.IsImage())
	assert.True(t, PendingFile{Type: "image/gif"}.IsImage())
}

func TestSession_Authenticated(t *testing.T) {
	assert.False(t, Session{}.Authenticated())
	assert.True(t, Session{Token: "t"}.Authenticated())
	assert.Equal(t, "", Session{Token: "t"}.Username())
	assert.Equal(t, "bob", Session{Token: "t", User: &UserInfo{Username: "bob"}}.Username())
}
