package preview

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/common"
)

// Scope owns the handles acquired for one view. At most one live handle
// exists per attachment id, per pending file name and per note page within
// a scope.
type Scope struct {
	m *Manager

	mu       sync.Mutex
	closed   bool
	attached map[string]*Handle
	pending  map[string]*Handle
	pages    map[string]*Handle
}

// Acquire returns the scope's handle for an image attachment, fetching it
// when needed. Non-images fail with common.ErrNotImage. If the scope is
// closed while the fetch is in flight, the result is discarded and
// common.ErrScopeClosed is returned.
func (s *Scope) Acquire(ctx context.Context, a models.Attachment) (*Handle, error) {
	if !a.IsImage() {
		return nil, common.ErrNotImage
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, common.ErrScopeClosed
	}
	if h, ok := s.attached[a.ID]; ok && !h.Released() {
		s.mu.Unlock()
		return h, nil
	}
	s.mu.Unlock()

	blob, err := s.m.fetch(ctx, a.ID)
	if err != nil {
		return nil, err
	}

	ct := blob.ContentType
	if ct == "" {
		ct = a.FileType
	}
	h, err := s.m.materialize(a.ID, a.FileName, ct, blob.Data)
	if err != nil {
		return nil, err
	}

	return s.adopt(s.attached, a.ID, h)
}

// AcquirePending previews a selected file from its local bytes.
func (s *Scope) AcquirePending(f models.PendingFile) (*Handle, error) {
	if !f.IsImage() {
		return nil, common.ErrNotImage
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, common.ErrScopeClosed
	}
	if h, ok := s.pending[f.Name]; ok && !h.Released() {
		s.mu.Unlock()
		return h, nil
	}
	s.mu.Unlock()

	h, err := s.m.materialize("", f.Name, f.Type, f.Data)
	if err != nil {
		return nil, err
	}
	return s.adopt(s.pending, f.Name, h)
}

// adopt records h under key unless the scope closed meanwhile or a
// concurrent acquire won; the loser is released.
func (s *Scope) adopt(into map[string]*Handle, key string, h *Handle) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.m.Release(h)
		return nil, common.ErrScopeClosed
	}
	if cur, ok := into[key]; ok && !cur.Released() {
		s.m.Release(h)
		return cur, nil
	}
	into[key] = h
	return h, nil
}

// Release frees one handle of this scope. Safe on nil and repeated calls.
func (s *Scope) Release(h *Handle) {
	if h == nil {
		return
	}
	s.mu.Lock()
	if cur, ok := s.attached[h.attachmentID]; ok && cur == h {
		delete(s.attached, h.attachmentID)
	}
	if cur, ok := s.pending[h.name]; ok && cur == h {
		delete(s.pending, h.name)
	}
	for id, cur := range s.pages {
		if cur == h {
			delete(s.pages, id)
		}
	}
	s.mu.Unlock()

	s.m.Release(h)
}

// Prune releases attachment handles whose id is not in visible, e.g. after
// the filter hid their notes.
func (s *Scope) Prune(visible []string) {
	keep := make(map[string]struct{}, len(visible))
	for _, id := range visible {
		keep[id] = struct{}{}
	}

	var doomed []*Handle
	s.mu.Lock()
	for id, h := range s.attached {
		if _, ok := keep[id]; !ok {
			doomed = append(doomed, h)
			delete(s.attached, id)
		}
	}
	s.mu.Unlock()

	for _, h := range doomed {
		s.m.Release(h)
	}
}

// AcquirePage materializes a rendered note page. A page acquired earlier for
// the same note is released and replaced, since the note may have changed.
func (s *Scope) AcquirePage(noteID string, html []byte) (*Handle, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, common.ErrScopeClosed
	}
	s.mu.Unlock()

	h, err := s.m.materialize("", "note-"+noteID+".html", "text/html", html)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.m.Release(h)
		return nil, common.ErrScopeClosed
	}
	old := s.pages[noteID]
	s.pages[noteID] = h
	s.mu.Unlock()

	s.m.Release(old)
	return h, nil
}

// PrunePages releases the pages of notes whose id is not in visible.
func (s *Scope) PrunePages(visible []string) {
	keep := make(map[string]struct{}, len(visible))
	for _, id := range visible {
		keep[id] = struct{}{}
	}

	var doomed []*Handle
	s.mu.Lock()
	for id, h := range s.pages {
		if _, ok := keep[id]; !ok {
			doomed = append(doomed, h)
			delete(s.pages, id)
		}
	}
	s.mu.Unlock()

	for _, h := range doomed {
		s.m.Release(h)
	}
}

// ReleasePending frees every pending-file preview. Called once the files it
// previews have been uploaded.
func (s *Scope) ReleasePending() {
	s.mu.Lock()
	doomed := make([]*Handle, 0, len(s.pending))
	for name, h := range s.pending {
		doomed = append(doomed, h)
		delete(s.pending, name)
	}
	s.mu.Unlock()

	for _, h := range doomed {
		s.m.Release(h)
	}
}

// Close releases everything and rejects further acquires. Idempotent.
func (s *Scope) Close() {
	s.mu.Lock()
	s.closed = true
	doomed := make([]*Handle, 0, len(s.attached)+len(s.pending)+len(s.pages))
	for _, h := range s.attached {
		doomed = append(doomed, h)
	}
	for _, h := range s.pending {
		doomed = append(doomed, h)
	}
	for _, h := range s.pages {
		doomed = append(doomed, h)
	}
	s.attached = map[string]*Handle{}
	s.pending = map[string]*Handle{}
	s.pages = map[string]*Handle{}
	s.mu.Unlock()

	for _, h := range doomed {
		s.m.Release(h)
	}
}

// Handles returns the live handles of the scope.
func (s *Scope) Handles() []*Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Handle, 0, len(s.attached)+len(s.pending)+len(s.pages))
	for _, set := range []map[string]*Handle{s.attached, s.pending, s.pages} {
		for _, h := range set {
			if !h.Released() {
				out = append(out, h)
			}
		}
	}
	return out
}
