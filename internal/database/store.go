package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"restaurant-floor/internal/store"
)

// Ping checks that the pool can reach PostgreSQL
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Close releases the pool
func (db *DB) Close(ctx context.Context) error {
	db.Pool.Close()
	return nil
}

// View runs fn in a read-only transaction
func (db *DB) View(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx, readOnly: true}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Update runs fn in a transaction holding the floor advisory lock, so
// read-check-write sequences never interleave, even across replicas.
func (db *DB) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, LockFloorSQL, floorLockKey); err != nil {
		return fmt.Errorf("failed to acquire floor lock: %w", err)
	}

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type pgTx struct {
	tx       pgx.Tx
	readOnly bool
}

func (t *pgTx) Load(ctx context.Context, collection string, dst interface{}) error {
	var raw []byte
	err := t.tx.QueryRow(ctx, SelectCollectionSQL, collection).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", collection, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", collection, err)
	}
	return nil
}

func (t *pgTx) Save(ctx context.Context, collection string, records interface{}) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", collection, err)
	}
	if _, err := t.tx.Exec(ctx, UpsertCollectionSQL, collection, raw); err != nil {
		return fmt.Errorf("failed to write %s: %w", collection, err)
	}
	return nil
}

func (t *pgTx) NextID(ctx context.Context, collection string) (int64, error) {
	if t.readOnly {
		return 0, store.ErrReadOnly
	}
	var id int64
	if err := t.tx.QueryRow(ctx, NextIDSQL, collection).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to allocate id: %w", err)
	}
	return id, nil
}

var _ store.Store = (*DB)(nil)
