package preview

import (
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/dmitrijs2005/notekeeper/internal/common"
)

// Handle is a displayable, locally materialized copy of an image or of a
// rendered note page. It stays
// valid until released; afterwards every accessor fails with
// common.ErrHandleReleased and the backing file is gone.
type Handle struct {
	id           string
	attachmentID string
	name         string
	contentType  string
	path         string
	released     atomic.Bool
}

// ID is unique per handle.
func (h *Handle) ID() string { return h.id }

// AttachmentID is empty for handles created from pending files.
func (h *Handle) AttachmentID() string { return h.attachmentID }

// Name is the file name of the attachment or pending file.
func (h *Handle) Name() string { return h.name }

func (h *Handle) ContentType() string { return h.contentType }

// Released reports whether the handle has been released.
func (h *Handle) Released() bool { return h.released.Load() }

// URL returns a file:// URL to the materialized file.
func (h *Handle) URL() (string, error) {
	if h.Released() {
		return "", common.ErrHandleReleased
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(h.path)}
	return u.String(), nil
}

// Path returns the materialized file path.
func (h *Handle) Path() (string, error) {
	if h.Released() {
		return "", common.ErrHandleReleased
	}
	return h.path, nil
}

// Bytes reads the materialized image.
func (h *Handle) Bytes() ([]byte, error) {
	if h.Released() {
		return nil, common.ErrHandleReleased
	}
	b, err := os.ReadFile(h.path)
	if err != nil {
		if h.Released() {
			return nil, common.ErrHandleReleased
		}
		return nil, err
	}
	return b, nil
}
