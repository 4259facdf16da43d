package services

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/gabriel-vasile/mimetype"
)

// FileWarning reports a file rejected at selection time. Other files of the
// same batch are unaffected. A warning with Replaced set is informational:
// the file was accepted in place of an earlier one with the same name.
type FileWarning struct {
	Name     string
	Size     int64
	Reason   string
	Replaced bool
}

func (w FileWarning) String() string {
	return fmt.Sprintf("%s: %s", w.Name, w.Reason)
}

func oversized(name string, size int64) *FileWarning {
	if size <= common.MaxAttachmentSize {
		return nil
	}
	return &FileWarning{
		Name:   name,
		Size:   size,
		Reason: fmt.Sprintf("%.1f MiB exceeds the 10 MiB limit", float64(size)/(1<<20)),
	}
}

// ReadPendingFile loads a local file for upload and detects its media type.
// An oversized file is reported as a warning without being read.
func ReadPendingFile(path string) (models.PendingFile, *FileWarning) {
	name := filepath.Base(path)

	fi, err := os.Stat(path)
	if err != nil {
		return models.PendingFile{}, &FileWarning{Name: name, Reason: err.Error()}
	}
	if fi.IsDir() {
		return models.PendingFile{}, &FileWarning{Name: name, Reason: "is a directory"}
	}
	if w := oversized(name, fi.Size()); w != nil {
		return models.PendingFile{}, w
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.PendingFile{}, &FileWarning{Name: name, Reason: err.Error()}
	}

	return models.PendingFile{
		Name: name,
		Size: int64(len(data)),
		Type: mimetype.Detect(data).String(),
		Data: data,
	}, nil
}

// SelectFiles reads every path, returning the accepted files and one warning
// per rejected file.
func SelectFiles(paths []string) ([]models.PendingFile, []FileWarning) {
	var (
		files    []models.PendingFile
		warnings []FileWarning
	)
	for _, p := range paths {
		f, w := ReadPendingFile(p)
		if w != nil {
			warnings = append(warnings, *w)
			continue
		}
		files = append(files, f)
	}
	return files, warnings
}

// PendingSet is the list of files selected for the note being edited.
type PendingSet struct {
	mu    sync.Mutex
	files []models.PendingFile
}

// Add accepts files within the size ceiling. A file with the name of one
// already selected replaces it and is reported with a Replaced warning, since
// attachments of one note are told apart by name.
func (p *PendingSet) Add(files ...models.PendingFile) []FileWarning {
	var warnings []FileWarning

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, f := range files {
		size := f.Size
		if n := int64(len(f.Data)); n > size {
			size = n
		}
		if w := oversized(f.Name, size); w != nil {
			warnings = append(warnings, *w)
			continue
		}

		replaced := false
		for i := range p.files {
			if p.files[i].Name == f.Name {
				p.files[i] = f
				replaced = true
				warnings = append(warnings, FileWarning{
					Name:     f.Name,
					Size:     size,
					Reason:   "replaces an earlier file with the same name",
					Replaced: true,
				})
				break
			}
		}
		if !replaced {
			p.files = append(p.files, f)
		}
	}
	return warnings
}

// Remove drops the file with name and reports whether it was present.
func (p *PendingSet) Remove(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.files {
		if p.files[i].Name == name {
			p.files = append(p.files[:i:i], p.files[i+1:]...)
			return true
		}
	}
	return false
}

// Files returns the selection in insertion order.
func (p *PendingSet) Files() []models.PendingFile {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.PendingFile(nil), p.files...)
}

func (p *PendingSet) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.files)
}

func (p *PendingSet) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.files = nil
}
