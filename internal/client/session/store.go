package session

import (
	"context"
	"database/sql"
	"sync"

	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
)

const (
	tokenKey = "token"
	userKey  = "user"
)

// Store persists the two halves of a session: the bearer token and the JSON
// encoded user payload. Missing halves load as zero values.
type Store interface {
	Load(ctx context.Context) (token string, user []byte, err error)
	Save(ctx context.Context, token string, user []byte) error
	Clear(ctx context.Context) error
}

// SQLStore keeps the session in the local SQLite database.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore returns a Store over a migrated database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Load(ctx context.Context) (string, []byte, error) {
	repo := metadata.NewSQLiteRepository(s.db)

	token, err := repo.Get(ctx, tokenKey)
	if err != nil {
		return "", nil, err
	}
	user, err := repo.Get(ctx, userKey)
	if err != nil {
		return "", nil, err
	}
	return string(token), user, nil
}

// Save writes both halves in one transaction.
func (s *SQLStore) Save(ctx context.Context, token string, user []byte) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, tokenKey, []byte(token)); err != nil {
			return err
		}
		return repo.Set(ctx, userKey, user)
	})
}

func (s *SQLStore) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).Delete(ctx, tokenKey, userKey)
	})
}

// memoryStore is the default Store when none is configured.
type memoryStore struct {
	mu    sync.Mutex
	token string
	user  []byte
}

func (m *memoryStore) Load(context.Context) (string, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.user, nil
}

func (m *memoryStore) Save(_ context.Context, token string, user []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.user = token, append([]byte(nil), user...)
	return nil
}

func (m *memoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.user = "", nil
	return nil
}
