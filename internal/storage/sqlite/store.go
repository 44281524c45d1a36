// Package sqlite implements storage.Store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/papertrade/internal/storage"
	"github.com/vadiminshakov/papertrade/pkg/retrier"
	"go.uber.org/zap"
)

const defaultBusyTimeout = 5 * time.Second

// Store is a SQLite-backed storage.Store.
// Write transactions start with BEGIN IMMEDIATE so concurrent units serialize
// on the database write lock instead of failing at commit.
type Store struct {
	db      *sql.DB
	retrier *retrier.Retrier
	logger  *zap.Logger
}

var _ storage.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies Schema.
func Open(path string, busyTimeout time.Duration, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}

	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=%d&_foreign_keys=on",
		path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// a single connection keeps ":memory:" databases shared and avoids
	// writer starvation inside the process
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "apply sqlite schema")
	}

	return &Store{
		db: db,
		retrier: retrier.New(
			retrier.WithRetryIf(isTransient),
			retrier.WithMaxRetries(4),
		),
		logger: logger,
	}, nil
}

// WithTx implements storage.Store.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	attempt := 0
	return s.retrier.Do(ctx, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			s.logger.Debug("retrying sqlite transaction", zap.Int("attempt", attempt))
		}
		return s.runTx(ctx, fn)
	})
}

func (s *Store) runTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Warn("rollback failed", zap.Error(rbErr))
		}
	}()

	if err := fn(ctx, &tx{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	committed = true
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func isTransient(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}
