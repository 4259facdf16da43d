package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

func writeSized(t *testing.T, dir, name string, size int64) string {
	t.Helper()
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	require.NoError(t, err)
	_, err = f.Write(pngHeader)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
	return p
}

func TestSelectFiles_RejectsOversizedPerFile(t *testing.T) {
	dir := t.TempDir()
	big := writeSized(t, dir, "big.png", 12<<20)
	small := writeSized(t, dir, "small.png", 1<<20)

	files, warnings := SelectFiles([]string{big, small})

	require.Len(t, files, 1)
	assert.Equal(t, "small.png", files[0].Name)
	assert.Equal(t, int64(1<<20), files[0].Size)
	assert.Equal(t, "image/png", files[0].Type)

	require.Len(t, warnings, 1)
	assert.Equal(t, "big.png", warnings[0].Name)
	assert.Equal(t, int64(12<<20), warnings[0].Size)
	assert.Contains(t, warnings[0].String(), "10 MiB")
}

func TestSelectFiles_ExactlyAtLimitAccepted(t *testing.T) {
	p := writeSized(t, t.TempDir(), "edge.png", common.MaxAttachmentSize)

	files, warnings := SelectFiles([]string{p})
	assert.Len(t, files, 1)
	assert.Empty(t, warnings)
}

func TestSelectFiles_MissingAndDirectory(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0o600))

	files, warnings := SelectFiles([]string{filepath.Join(dir, "nope.png"), dir, txt})
	require.Len(t, files, 1)
	assert.Contains(t, files[0].Type, "text/plain")
	assert.Len(t, warnings, 2)
}

func TestPendingSet(t *testing.T) {
	var p PendingSet

	w := p.Add(
		models.PendingFile{Name: "a.png", Size: 10},
		models.PendingFile{Name: "huge.bin", Size: common.MaxAttachmentSize + 1},
		models.PendingFile{Name: "b.txt", Size: 5},
	)
	require.Len(t, w, 1)
	assert.Equal(t, "huge.bin", w[0].Name)
	assert.Equal(t, 2, p.Len())

	w = p.Add(models.PendingFile{Name: "a.png", Size: 20})
	require.Len(t, w, 1)
	assert.True(t, w[0].Replaced)
	assert.Equal(t, "a.png: replaces an earlier file with the same name", w[0].String())
	files := p.Files()
	require.Len(t, files, 2)
	assert.Equal(t, int64(20), files[0].Size, "same name replaces in place")

	assert.True(t, p.Remove("a.png"))
	assert.False(t, p.Remove("a.png"))
	assert.Equal(t, "b.txt", p.Files()[0].Name)

	p.Clear()
	assert.Zero(t, p.Len())
}

func TestPendingSet_SameNameInOneBatch(t *testing.T) {
	tests := []struct {
		name      string
		files     []models.PendingFile
		wantSizes []int64
		replaced  []string
	}{
		{
			name:      "distinct names",
			files:     []models.PendingFile{{Name: "a.png", Size: 1}, {Name: "b.png", Size: 2}},
			wantSizes: []int64{1, 2},
		},
		{
			name:      "later file wins and is reported",
			files:     []models.PendingFile{{Name: "a.png", Size: 1}, {Name: "b.png", Size: 2}, {Name: "a.png", Size: 3}},
			wantSizes: []int64{3, 2},
			replaced:  []string{"a.png"},
		},
		{
			name:      "oversized duplicate does not replace",
			files:     []models.PendingFile{{Name: "a.png", Size: 1}, {Name: "a.png", Size: common.MaxAttachmentSize + 1}},
			wantSizes: []int64{1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p PendingSet
			w := p.Add(tt.files...)

			var sizes []int64
			for _, f := range p.Files() {
				sizes = append(sizes, f.Size)
			}
			assert.Equal(t, tt.wantSizes, sizes)

			var replaced []string
			for _, x := range w {
				if x.Replaced {
					replaced = append(replaced, x.Name)
				}
			}
			assert.Equal(t, tt.replaced, replaced)
		})
	}
}
