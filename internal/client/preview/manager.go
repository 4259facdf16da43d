// Package preview materializes image attachments as local preview handles
// and guarantees every handle is released exactly once.
//
// A Manager is shared by the whole process. Each view that displays previews
// opens its own Scope; closing the Scope releases everything it acquired,
// including handles whose fetch was still in flight at close time.
package preview

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/metrics"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/filex"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Fetcher downloads attachment binaries.
type Fetcher interface {
	GetAttachment(ctx context.Context, id string) (models.Blob, error)
}

const defaultFetchTimeout = 30 * time.Second

// Manager tracks every live handle and de-duplicates concurrent fetches of
// the same attachment.
type Manager struct {
	fetcher Fetcher
	dir     string
	timeout time.Duration
	group   singleflight.Group

	mu   sync.Mutex
	live map[string]*Handle

	log     logging.Logger
	metrics *metrics.Metrics
}

// Option configures a Manager.
type Option func(*Manager)

// WithFetchTimeout bounds one attachment download.
func WithFetchTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

func WithLogger(l logging.Logger) Option { return func(m *Manager) { m.log = l } }

func WithMetrics(mt *metrics.Metrics) Option { return func(m *Manager) { m.metrics = mt } }

// NewManager stores handles under <dataDir>/previews. Files left there by a
// previous run are removed.
func NewManager(f Fetcher, dataDir string, opts ...Option) (*Manager, error) {
	dir, err := filex.EnsureDir(dataDir, "previews")
	if err != nil {
		return nil, err
	}

	m := &Manager{
		fetcher: f,
		dir:     dir,
		timeout: defaultFetchTimeout,
		live:    make(map[string]*Handle),
		log:     logging.Discard(),
	}
	for _, o := range opts {
		o(m)
	}

	m.sweep()
	return m, nil
}

// Dir is the directory holding materialized previews.
func (m *Manager) Dir() string { return m.dir }

func (m *Manager) sweep() {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "preview-") {
			_ = filex.RemoveIfExists(filepath.Join(m.dir, e.Name()))
		}
	}
}

// NewScope opens a scope bound to one view.
func (m *Manager) NewScope() *Scope {
	return &Scope{
		m:        m,
		attached: make(map[string]*Handle),
		pending:  make(map[string]*Handle),
		pages:    make(map[string]*Handle),
	}
}

// Live returns the number of handles not yet released.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Release frees h. It is safe to call with nil and more than once; only the
// first call has an effect.
func (m *Manager) Release(h *Handle) {
	if h == nil || !h.released.CompareAndSwap(false, true) {
		return
	}

	m.mu.Lock()
	delete(m.live, h.id)
	m.mu.Unlock()

	if err := filex.RemoveIfExists(h.path); err != nil {
		m.log.Warn(context.Background(), "remove preview file failed", "path", h.path, "error", err)
	}
	m.metrics.RecordPreviewReleased()
	m.log.Debug(context.Background(), "preview released", "handle", h.id, "attachment", h.attachmentID)
}

// ReleaseAttachments releases every live handle of the given attachments,
// whichever scope holds them. Used when a note or attachment is deleted.
func (m *Manager) ReleaseAttachments(ids ...string) {
	if len(ids) == 0 {
		return
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	var doomed []*Handle
	m.mu.Lock()
	for _, h := range m.live {
		if _, ok := want[h.attachmentID]; ok && h.attachmentID != "" {
			doomed = append(doomed, h)
		}
	}
	m.mu.Unlock()

	for _, h := range doomed {
		m.Release(h)
	}
}

// fetch downloads an attachment once for all concurrent callers. The shared
// download is detached from any single caller's cancellation and bounded by
// the fetch timeout instead.
func (m *Manager) fetch(ctx context.Context, id string) (models.Blob, error) {
	ch := m.group.DoChan(id, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()
		return m.fetcher.GetAttachment(fctx, id)
	})

	select {
	case <-ctx.Done():
		return models.Blob{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return models.Blob{}, res.Err
		}
		return res.Val.(models.Blob), nil
	}
}

// materialize writes data to a new preview file and registers the handle.
func (m *Manager) materialize(attachmentID, name, contentType string, data []byte) (*Handle, error) {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}

	f, err := os.CreateTemp(m.dir, "preview-*"+extension(name, contentType))
	if err != nil {
		return nil, fmt.Errorf("create preview file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("write preview file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("close preview file: %w", err)
	}

	h := &Handle{
		id:           uuid.NewString(),
		attachmentID: attachmentID,
		name:         name,
		contentType:  contentType,
		path:         f.Name(),
	}

	m.mu.Lock()
	m.live[h.id] = h
	m.mu.Unlock()

	m.metrics.RecordPreviewAcquired()
	m.log.Debug(context.Background(), "preview acquired", "handle", h.id, "attachment", attachmentID, "name", name)
	return h, nil
}

func extension(name, contentType string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 && i < len(name)-1 && !strings.ContainsAny(name[i:], `/\`) {
		return name[i:]
	}
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		return exts[0]
	}
	return ""
}
