package table

import (
	"context"
	"errors"
	"testing"
	"time"

	"restaurant-floor/internal/logger"
	"restaurant-floor/internal/messaging/messagingtest"
	"restaurant-floor/internal/models"
	"restaurant-floor/internal/store"
	"restaurant-floor/internal/store/memory"
	"restaurant-floor/internal/store/storetest"
)

func newTestService(t *testing.T) (*Service, *memory.Store, *messagingtest.Recorder) {
	t.Helper()
	st := memory.New()
	rec := &messagingtest.Recorder{}
	return NewService(st, rec, logger.Discard()), st, rec
}

func intPtr(v int) *int { return &v }

func TestAddTable(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	if _, err := svc.Add(ctx, models.CreateTableRequest{Number: 1, Capacity: 4}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	tests := []struct {
		name     string
		req      models.CreateTableRequest
		wantKind models.ErrorKind
	}{
		{name: "valid", req: models.CreateTableRequest{Number: 2, Capacity: 2}},
		{name: "duplicate number", req: models.CreateTableRequest{Number: 1, Capacity: 2}, wantKind: models.KindConflict},
		{name: "zero number", req: models.CreateTableRequest{Number: 0, Capacity: 2}, wantKind: models.KindInvalidArgument},
		{name: "negative capacity", req: models.CreateTableRequest{Number: 3, Capacity: -1}, wantKind: models.KindInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := svc.Add(ctx, tt.req)
			if tt.wantKind != "" {
				if models.KindOf(err) != tt.wantKind {
					t.Fatalf("Add() error = %v, want kind %s", err, tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("Add() error = %v", err)
			}
			if table.Status != models.TableAvailable || table.CurrentOrder != nil {
				t.Errorf("new table = %+v, want available with no order", table)
			}
		})
	}
}

func TestAddTableAssignsMonotonicIDs(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	first, err := svc.Add(ctx, models.CreateTableRequest{Number: 1, Capacity: 4})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	second, err := svc.Add(ctx, models.CreateTableRequest{Number: 2, Capacity: 4})
	if err != nil {
		t.Fatal(err)
	}
	if second.ID <= first.ID {
		t.Errorf("second id = %d, want greater than %d", second.ID, first.ID)
	}
}

func TestUpdateTable(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	one, _ := svc.Add(ctx, models.CreateTableRequest{Number: 1, Capacity: 4})
	if _, err := svc.Add(ctx, models.CreateTableRequest{Number: 2, Capacity: 4}); err != nil {
		t.Fatal(err)
	}

	updated, err := svc.Update(ctx, one.ID, models.UpdateTableRequest{Capacity: intPtr(6)})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Capacity != 6 || updated.Number != 1 || updated.UpdatedAt == nil {
		t.Errorf("Update() = %+v", updated)
	}

	if _, err := svc.Update(ctx, one.ID, models.UpdateTableRequest{Number: intPtr(2)}); !errors.Is(err, models.ErrConflict) {
		t.Errorf("Update() to taken number error = %v, want conflict", err)
	}
	if _, err := svc.Update(ctx, one.ID, models.UpdateTableRequest{Number: intPtr(1)}); err != nil {
		t.Errorf("Update() to own number error = %v", err)
	}
	if _, err := svc.Update(ctx, 99, models.UpdateTableRequest{Capacity: intPtr(2)}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Update() unknown error = %v, want not found", err)
	}
	if _, err := svc.Update(ctx, one.ID, models.UpdateTableRequest{Capacity: intPtr(0)}); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("Update() zero capacity error = %v, want invalid argument", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	svc, _, rec := newTestService(t)
	table, _ := svc.Add(ctx, models.CreateTableRequest{Number: 1, Capacity: 4})

	tests := []struct {
		name       string
		id         int64
		status     string
		wantKind   models.ErrorKind
		wantStatus models.TableStatus
	}{
		{name: "occupy", id: table.ID, status: "occupied", wantStatus: models.TableOccupied},
		{name: "release", id: table.ID, status: "available", wantStatus: models.TableAvailable},
		{name: "unknown status", id: table.ID, status: "reserved", wantKind: models.KindInvalidArgument},
		{name: "unknown table", id: 42, status: "available", wantKind: models.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.UpdateStatus(ctx, tt.id, tt.status, "admin")
			if tt.wantKind != "" {
				if models.KindOf(err) != tt.wantKind {
					t.Fatalf("UpdateStatus() error = %v, want kind %s", err, tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateStatus() error = %v", err)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", got.Status, tt.wantStatus)
			}
		})
	}

	if got := len(rec.Events()); got != 2 {
		t.Errorf("published %d events, want 2", got)
	}
}

func TestUpdateStatusKeepsCurrentOrder(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t)
	table, _ := svc.Add(ctx, models.CreateTableRequest{Number: 1, Capacity: 4})

	err := st.Update(ctx, func(tx store.Tx) error {
		return Occupy(ctx, tx, table.ID, 7, time.Now())
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.UpdateStatus(ctx, table.ID, "available", "admin")
	if err != nil {
		t.Fatal(err)
	}
	if got.CurrentOrder == nil || *got.CurrentOrder != 7 {
		t.Errorf("currentOrder = %v, want 7", got.CurrentOrder)
	}
}

func TestDeleteTable(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t)
	free, _ := svc.Add(ctx, models.CreateTableRequest{Number: 1, Capacity: 4})
	busy, _ := svc.Add(ctx, models.CreateTableRequest{Number: 2, Capacity: 4})

	err := st.Update(ctx, func(tx store.Tx) error {
		return Occupy(ctx, tx, busy.ID, 1, time.Now())
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, busy.ID); !errors.Is(err, models.ErrConflict) {
		t.Errorf("Delete(occupied) error = %v, want conflict", err)
	}
	if _, err := svc.Get(ctx, busy.ID); err != nil {
		t.Errorf("occupied table was removed: %v", err)
	}
	if err := svc.Delete(ctx, free.ID); err != nil {
		t.Errorf("Delete(available) error = %v", err)
	}
	if _, err := svc.Get(ctx, free.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Get(deleted) error = %v, want not found", err)
	}
	if err := svc.Delete(ctx, free.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Delete(deleted) error = %v, want not found", err)
	}
}

func TestOccupyAndFree(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t)
	table, _ := svc.Add(ctx, models.CreateTableRequest{Number: 1, Capacity: 4})
	now := time.Now()

	run := func(fn func(tx store.Tx) error) error { return st.Update(ctx, fn) }

	if err := run(func(tx store.Tx) error { return Occupy(ctx, tx, table.ID, 1, now) }); err != nil {
		t.Fatalf("Occupy() error = %v", err)
	}
	if err := run(func(tx store.Tx) error { return Occupy(ctx, tx, table.ID, 2, now) }); !errors.Is(err, models.ErrConflict) {
		t.Errorf("second Occupy() error = %v, want conflict", err)
	}
	if err := run(func(tx store.Tx) error { return Free(ctx, tx, table.ID, 2, now) }); !errors.Is(err, models.ErrConflict) {
		t.Errorf("Free() by other order error = %v, want conflict", err)
	}
	if err := run(func(tx store.Tx) error { return Free(ctx, tx, table.ID, 1, now) }); err != nil {
		t.Fatalf("Free() error = %v", err)
	}

	got, _ := svc.Get(ctx, table.ID)
	if got.Status != models.TableAvailable || got.CurrentOrder != nil {
		t.Errorf("after Free table = %+v", got)
	}
	if err := run(func(tx store.Tx) error { return Occupy(ctx, tx, 99, 1, now) }); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Occupy(unknown) error = %v, want not found", err)
	}
}

func TestStoreFailurePropagates(t *testing.T) {
	ctx := context.Background()
	failing := storetest.NewFailing(memory.New())
	svc := NewService(failing, nil, logger.Discard())
	failing.Trip()

	if _, err := svc.List(ctx); !errors.Is(err, models.ErrStoreFailure) {
		t.Errorf("List() error = %v, want store failure", err)
	}
	if _, err := svc.Add(ctx, models.CreateTableRequest{Number: 1, Capacity: 2}); !errors.Is(err, models.ErrStoreFailure) {
		t.Errorf("Add() error = %v, want store failure", err)
	}
}
