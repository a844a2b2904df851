package order

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"restaurant-floor/internal/logger"
	"restaurant-floor/internal/messaging/messagingtest"
	"restaurant-floor/internal/models"
	"restaurant-floor/internal/services/table"
	"restaurant-floor/internal/store"
	"restaurant-floor/internal/store/memory"
	"restaurant-floor/internal/store/storetest"
)

type fixture struct {
	orders *Service
	tables *table.Service
	store  store.Store
	events *messagingtest.Recorder
	table  *models.Table
	pizza  models.MenuItem
	soup   models.MenuItem
	salad  models.MenuItem
}

func newFixture(t *testing.T, st store.Store) *fixture {
	t.Helper()
	ctx := context.Background()
	rec := &messagingtest.Recorder{}
	f := &fixture{
		orders: NewService(st, rec, logger.Discard()),
		tables: table.NewService(st, rec, logger.Discard()),
		store:  st,
		events: rec,
		pizza:  models.MenuItem{ID: 1, Name: "Pizza", Price: decimal.RequireFromString("10.00"), Available: true},
		soup:   models.MenuItem{ID: 2, Name: "Soup", Price: decimal.RequireFromString("4.50"), Available: true},
		salad:  models.MenuItem{ID: 3, Name: "Salad", Price: decimal.RequireFromString("7.25"), Available: false},
	}

	tbl, err := f.tables.Add(ctx, models.CreateTableRequest{Number: 1, Capacity: 4})
	if err != nil {
		t.Fatalf("seed table: %v", err)
	}
	f.table = tbl

	err = st.Update(ctx, func(tx store.Tx) error {
		return store.SaveMenu(ctx, tx, []models.MenuItem{f.pizza, f.soup, f.salad})
	})
	if err != nil {
		t.Fatalf("seed menu: %v", err)
	}
	return f
}

func (f *fixture) mustCreate(t *testing.T) *models.Order {
	t.Helper()
	o, err := f.orders.Create(context.Background(), f.table.ID, "waiter")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return o
}

func (f *fixture) tableState(t *testing.T) *models.Table {
	t.Helper()
	tbl, err := f.tables.Get(context.Background(), f.table.ID)
	if err != nil {
		t.Fatalf("Get table: %v", err)
	}
	return tbl
}

func assertTotal(t *testing.T, o *models.Order) {
	t.Helper()
	if !o.Total.Equal(o.CalculateTotalAmount()) {
		t.Errorf("total %s does not match line sum %s", o.Total, o.CalculateTotalAmount())
	}
}

func TestOrderLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New())

	o := f.mustCreate(t)
	if o.Status != models.OrderActive || len(o.Items) != 0 || !o.Total.IsZero() || o.CreatedBy != "waiter" {
		t.Fatalf("new order = %+v", o)
	}
	tbl := f.tableState(t)
	if tbl.Status != models.TableOccupied || tbl.CurrentOrder == nil || *tbl.CurrentOrder != o.ID {
		t.Fatalf("table after Create = %+v", tbl)
	}

	if _, err := f.orders.AddItem(ctx, o.ID, f.pizza.ID, 2); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	o, err := f.orders.AddItem(ctx, o.ID, f.pizza.ID, 1)
	if err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	if len(o.Items) != 1 || o.Items[0].Quantity != 3 {
		t.Fatalf("items = %+v, want one line with quantity 3", o.Items)
	}
	if want := decimal.RequireFromString("30.00"); !o.Total.Equal(want) {
		t.Errorf("total = %s, want %s", o.Total, want)
	}
	if o.UpdatedAt == nil {
		t.Error("updatedAt not stamped")
	}
	assertTotal(t, o)

	closed, err := f.orders.Close(ctx, o.ID, "manager")
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if closed.Status != models.OrderClosed || closed.ClosedBy == nil || *closed.ClosedBy != "manager" || closed.ClosedAt == nil {
		t.Errorf("closed order = %+v", closed)
	}
	tbl = f.tableState(t)
	if tbl.Status != models.TableAvailable || tbl.CurrentOrder != nil {
		t.Errorf("table after Close = %+v", tbl)
	}

	want := []models.EventType{models.EventOrderOpened, models.EventOrderClosed}
	got := f.events.Types()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestCreateErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New())
	f.mustCreate(t)

	manual, err := f.tables.Add(ctx, models.CreateTableRequest{Number: 2, Capacity: 2})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.tables.UpdateStatus(ctx, manual.ID, "occupied", "admin"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		tableID int64
		want    error
	}{
		{name: "second order on table", tableID: f.table.ID, want: models.ErrConflict},
		{name: "table marked occupied", tableID: manual.ID, want: models.ErrConflict},
		{name: "unknown table", tableID: 99, want: models.ErrNotFound},
		{name: "invalid table id", tableID: 0, want: models.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.orders.Create(ctx, tt.tableID, "waiter"); !errors.Is(err, tt.want) {
				t.Errorf("Create() error = %v, want %v", err, tt.want)
			}
		})
	}

	orders, err := f.orders.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 1 {
		t.Errorf("orders = %d, want 1", len(orders))
	}
}

func TestConcurrentCreateOnSameTable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New())

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orders.Create(ctx, f.table.ID, "waiter")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, models.ErrConflict):
				conflicts++
			default:
				t.Errorf("Create() unexpected error = %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || conflicts != workers-1 {
		t.Errorf("successes = %d conflicts = %d, want 1 and %d", successes, conflicts, workers-1)
	}
	active, err := f.orders.List(ctx, models.OrderActive)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 {
		t.Errorf("active orders = %d, want 1", len(active))
	}
}

func TestAddItemErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New())
	o := f.mustCreate(t)
	if _, err := f.orders.AddItem(ctx, o.ID, f.soup.ID, 1); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		orderID    int64
		menuItemID int64
		quantity   int
		want       error
	}{
		{name: "zero quantity", orderID: o.ID, menuItemID: f.pizza.ID, quantity: 0, want: models.ErrInvalidArgument},
		{name: "quantity above line cap", orderID: o.ID, menuItemID: f.pizza.ID, quantity: maxLineQuantity + 1, want: models.ErrInvalidArgument},
		{name: "max int quantity", orderID: o.ID, menuItemID: f.pizza.ID, quantity: math.MaxInt, want: models.ErrInvalidArgument},
		{name: "unknown order", orderID: 99, menuItemID: f.pizza.ID, quantity: 1, want: models.ErrNotFound},
		{name: "unknown menu item", orderID: o.ID, menuItemID: 99, quantity: 1, want: models.ErrNotFound},
		{name: "unavailable menu item", orderID: o.ID, menuItemID: f.salad.ID, quantity: 1, want: models.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.orders.AddItem(ctx, tt.orderID, tt.menuItemID, tt.quantity); !errors.Is(err, tt.want) {
				t.Errorf("AddItem() error = %v, want %v", err, tt.want)
			}
		})
	}

	got, err := f.orders.Get(ctx, o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Items) != 1 || got.Items[0].MenuItemID != f.soup.ID || got.Items[0].Quantity != 1 {
		t.Errorf("order changed by failed adds: %+v", got.Items)
	}
	assertTotal(t, got)
}

func TestAddItemMergeStaysWithinCap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New())
	o := f.mustCreate(t)

	if _, err := f.orders.AddItem(ctx, o.ID, f.pizza.ID, maxLineQuantity); err != nil {
		t.Fatalf("AddItem() at cap error = %v", err)
	}
	if _, err := f.orders.AddItem(ctx, o.ID, f.pizza.ID, 1); !errors.Is(err, models.ErrInvalidArgument) {
		t.Fatalf("AddItem() past cap error = %v, want invalid argument", err)
	}

	got, err := f.orders.Get(ctx, o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Items) != 1 || got.Items[0].Quantity != maxLineQuantity {
		t.Fatalf("items = %+v, want one line with quantity %d", got.Items, maxLineQuantity)
	}
	want := f.pizza.Price.Mul(decimal.NewFromInt(maxLineQuantity))
	if !got.Total.Equal(want) || got.Total.IsNegative() {
		t.Errorf("total = %s, want %s", got.Total, want)
	}
	assertTotal(t, got)
}

func TestAddItemKeepsSnapshotPrice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New())
	o := f.mustCreate(t)

	if _, err := f.orders.AddItem(ctx, o.ID, f.pizza.ID, 1); err != nil {
		t.Fatal(err)
	}
	err := f.store.Update(ctx, func(tx store.Tx) error {
		menu, err := store.LoadMenu(ctx, tx)
		if err != nil {
			return err
		}
		menu[0].Price = decimal.RequireFromString("12.00")
		return store.SaveMenu(ctx, tx, menu)
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := f.orders.AddItem(ctx, o.ID, f.pizza.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if want := decimal.RequireFromString("20.00"); !got.Total.Equal(want) {
		t.Errorf("total = %s, want %s", got.Total, want)
	}
}

func TestRemoveItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New())
	o := f.mustCreate(t)
	if _, err := f.orders.AddItem(ctx, o.ID, f.pizza.ID, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := f.orders.AddItem(ctx, o.ID, f.soup.ID, 1); err != nil {
		t.Fatal(err)
	}

	got, err := f.orders.RemoveItem(ctx, o.ID, f.pizza.ID)
	if err != nil {
		t.Fatalf("RemoveItem() error = %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].MenuItemID != f.soup.ID {
		t.Errorf("items = %+v, want only soup", got.Items)
	}
	if want := decimal.RequireFromString("4.50"); !got.Total.Equal(want) {
		t.Errorf("total = %s, want %s", got.Total, want)
	}
	assertTotal(t, got)

	if _, err := f.orders.RemoveItem(ctx, o.ID, f.pizza.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("RemoveItem(absent line) error = %v, want not found", err)
	}
	if _, err := f.orders.RemoveItem(ctx, 99, f.soup.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("RemoveItem(unknown order) error = %v, want not found", err)
	}

	if _, err := f.orders.Close(ctx, o.ID, "waiter"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.orders.RemoveItem(ctx, o.ID, f.soup.ID); !errors.Is(err, models.ErrConflict) {
		t.Errorf("RemoveItem(closed order) error = %v, want conflict", err)
	}
	if _, err := f.orders.AddItem(ctx, o.ID, f.soup.ID, 1); !errors.Is(err, models.ErrConflict) {
		t.Errorf("AddItem(closed order) error = %v, want conflict", err)
	}
}

func TestCloseTwice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New())
	o := f.mustCreate(t)

	first, err := f.orders.Close(ctx, o.ID, "waiter")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.orders.Close(ctx, o.ID, "someone-else"); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("second Close() error = %v, want conflict", err)
	}

	got, err := f.orders.Get(ctx, o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if *got.ClosedBy != "waiter" || !got.ClosedAt.Equal(*first.ClosedAt) {
		t.Errorf("second Close changed the order: %+v", got)
	}
	if _, err := f.orders.Close(ctx, 99, "waiter"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Close(unknown) error = %v, want not found", err)
	}
}

func TestCloseWithMissingTable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New())
	o := f.mustCreate(t)

	err := f.store.Update(ctx, func(tx store.Tx) error {
		return store.SaveTables(ctx, tx, []models.Table{})
	})
	if err != nil {
		t.Fatal(err)
	}

	closed, err := f.orders.Close(ctx, o.ID, "waiter")
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if closed.Status != models.OrderClosed {
		t.Errorf("status = %s, want closed", closed.Status)
	}
}

func TestGetActiveByTable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New())

	if _, err := f.orders.GetActiveByTable(ctx, f.table.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetActiveByTable() before create error = %v, want not found", err)
	}
	o := f.mustCreate(t)
	got, err := f.orders.GetActiveByTable(ctx, f.table.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != o.ID {
		t.Errorf("active order = %d, want %d", got.ID, o.ID)
	}

	if _, err := f.orders.Close(ctx, o.ID, "waiter"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.orders.GetActiveByTable(ctx, f.table.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetActiveByTable() after close error = %v, want not found", err)
	}

	next := f.mustCreate(t)
	if next.ID <= o.ID {
		t.Errorf("reopened order id = %d, want greater than %d", next.ID, o.ID)
	}
}

func TestListByStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New())
	first := f.mustCreate(t)
	if _, err := f.orders.Close(ctx, first.ID, "waiter"); err != nil {
		t.Fatal(err)
	}
	f.mustCreate(t)

	tests := []struct {
		status models.OrderStatus
		want   int
	}{
		{status: "", want: 2},
		{status: models.OrderActive, want: 1},
		{status: models.OrderClosed, want: 1},
	}
	for _, tt := range tests {
		orders, err := f.orders.List(ctx, tt.status)
		if err != nil {
			t.Fatal(err)
		}
		if len(orders) != tt.want {
			t.Errorf("List(%q) = %d orders, want %d", tt.status, len(orders), tt.want)
		}
	}
}

func TestStoreFailurePropagates(t *testing.T) {
	ctx := context.Background()
	failing := storetest.NewFailing(memory.New())
	f := newFixture(t, failing)
	o := f.mustCreate(t)
	failing.Trip()

	if _, err := f.orders.Get(ctx, o.ID); !errors.Is(err, models.ErrStoreFailure) {
		t.Errorf("Get() error = %v, want store failure", err)
	}
	if _, err := f.orders.AddItem(ctx, o.ID, f.pizza.ID, 1); !errors.Is(err, models.ErrStoreFailure) {
		t.Errorf("AddItem() error = %v, want store failure", err)
	}
	if _, err := f.orders.Close(ctx, o.ID, "waiter"); !errors.Is(err, models.ErrStoreFailure) {
		t.Errorf("Close() error = %v, want store failure", err)
	}
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t, memory.New())
	f.events.Err = errors.New("broker down")
	f.mustCreate(t)
}
