// Package storetest provides store wrappers for service tests.
package storetest

import (
	"context"
	"errors"
	"sync/atomic"

	"restaurant-floor/internal/store"
)

// ErrInjected is returned by a Failing store once tripped
var ErrInjected = errors.New("injected store failure")

// Failing wraps a store and fails every collection access after Trip is called
type Failing struct {
	store.Store
	tripped atomic.Bool
}

// NewFailing wraps inner
func NewFailing(inner store.Store) *Failing {
	return &Failing{Store: inner}
}

// Trip makes every subsequent Load, Save and NextID fail
func (f *Failing) Trip() { f.tripped.Store(true) }

func (f *Failing) View(ctx context.Context, fn func(tx store.Tx) error) error {
	return f.Store.View(ctx, func(tx store.Tx) error { return fn(&failingTx{Tx: tx, f: f}) })
}

func (f *Failing) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	return f.Store.Update(ctx, func(tx store.Tx) error { return fn(&failingTx{Tx: tx, f: f}) })
}

type failingTx struct {
	store.Tx
	f *Failing
}

func (t *failingTx) Load(ctx context.Context, collection string, dst interface{}) error {
	if t.f.tripped.Load() {
		return ErrInjected
	}
	return t.Tx.Load(ctx, collection, dst)
}

func (t *failingTx) Save(ctx context.Context, collection string, records interface{}) error {
	if t.f.tripped.Load() {
		return ErrInjected
	}
	return t.Tx.Save(ctx, collection, records)
}

func (t *failingTx) NextID(ctx context.Context, collection string) (int64, error) {
	if t.f.tripped.Load() {
		return 0, ErrInjected
	}
	return t.Tx.NextID(ctx, collection)
}
