package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database holding one match's replay.
type DB struct {
	X   *sqlx.DB
	log *zap.Logger
}

// OpenDB opens or creates the database at path and applies pending
// migrations.
func OpenDB(ctx context.Context, path string, log *zap.Logger) (*DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	x, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite serializes writers anyway; one connection keeps the pragmas
	// and the open transaction on the same handle.
	x.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := x.PingContext(pingCtx); err != nil {
		x.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := RunMigrations(ctx, x); err != nil {
		x.Close()
		return nil, err
	}
	return &DB{X: x, log: log}, nil
}

func (db *DB) Close() error {
	return db.X.Close()
}
