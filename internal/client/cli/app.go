package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/config"
	"github.com/dmitrijs2005/notekeeper/internal/client/metrics"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/preview"
	"github.com/dmitrijs2005/notekeeper/internal/client/services"
	"github.com/dmitrijs2005/notekeeper/internal/client/session"
	"github.com/dmitrijs2005/notekeeper/internal/client/store"
	"github.com/dmitrijs2005/notekeeper/internal/client/view"
	"github.com/dmitrijs2005/notekeeper/internal/filex"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

// Authenticator is the part of the session gatekeeper the CLI uses.
type Authenticator interface {
	Restore(ctx context.Context) models.Session
	Login(ctx context.Context, username, password string) (models.Session, error)
	Register(ctx context.Context, username, email, password string) error
	Logout(ctx context.Context) error
	Session() models.Session
	Authenticated() bool
}

// failedUpload remembers the attachment phase that can be retried.
type failedUpload struct {
	noteID string
	files  []models.PendingFile
	scope  *preview.Scope
}

type App struct {
	auth     Authenticator
	notes    services.NoteService
	store    *store.NoteStore
	previews *preview.Manager
	scope    *preview.Scope
	metrics  *metrics.Metrics

	mode        view.Mode
	term        string
	downloadDir string
	retry       *failedUpload

	// set by the gatekeeper's navigator after a forced logout
	needsLogin atomic.Bool

	reader *bufio.Reader
	out    io.Writer
	log    logging.Logger
	closer io.Closer
}

// NewApp wires every component from cfg: the local database under
// cfg.DataDir, the HTTP transport, the gatekeeper, services and previews.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger, reg prometheus.Registerer) (*App, error) {
	mode, err := view.ParseMode(cfg.ViewMode)
	if err != nil {
		return nil, err
	}

	dataDir, err := filex.EnsureDir(cfg.DataDir, ".")
	if err != nil {
		return nil, err
	}

	db, err := client.InitDatabase(ctx, filepath.Join(dataDir, "client.db"))
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	m := metrics.New(reg)
	transport := client.NewHTTPTransport(cfg.ServerURL,
		client.WithTimeout(cfg.RequestTimeout),
		client.WithRateLimit(cfg.RequestsPerSecond),
		client.WithMetrics(m),
		client.WithLogger(log),
	)

	a := &App{
		mode:        mode,
		downloadDir: filepath.Join(dataDir, "downloads"),
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		log:         log,
		closer:      db,
		metrics:     m,
	}

	gate := session.New(transport,
		session.WithStore(session.NewSQLStore(db)),
		session.WithNavigator(a.onForcedLogout),
		session.WithLogger(log),
		session.WithMetrics(m),
	)
	api := client.NewAPIClient(gate)

	previews, err := preview.NewManager(api, dataDir,
		preview.WithFetchTimeout(cfg.PreviewFetchTimeout),
		preview.WithLogger(log),
		preview.WithMetrics(m),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	st := store.New()
	a.auth = gate
	a.store = st
	a.previews = previews
	a.scope = previews.NewScope()
	a.notes = services.NewNoteService(api, st,
		services.WithPreviews(previews),
		services.WithLogger(log),
		services.WithMetrics(m),
	)
	return a, nil
}

// onForcedLogout is the gatekeeper's navigator. It runs on the goroutine of
// the failed request, which is the REPL's own.
func (a *App) onForcedLogout(context.Context) {
	a.needsLogin.Store(true)
}

func (a *App) consumeForcedLogout() bool {
	return a.needsLogin.CompareAndSwap(true, false)
}

// resetView drops everything tied to the previous session.
func (a *App) resetView() {
	a.scope.Close()
	a.scope = a.previews.NewScope()
	if a.retry != nil {
		a.retry.scope.Close()
		a.retry = nil
	}
	a.store.ReplaceAll(nil)
	a.term = ""
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

// Close releases previews and the database.
func (a *App) Close() {
	a.scope.Close()
	if a.retry != nil {
		a.retry.scope.Close()
	}
	if a.closer != nil {
		_ = a.closer.Close()
	}
}
