package mongo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"restaurant-floor/internal/models"
)

func TestCollectionRoundTrip(t *testing.T) {
	closedBy := "alice"
	now := time.Date(2026, 3, 1, 19, 30, 0, 0, time.UTC)
	orders := []models.Order{
		{
			ID:      3,
			TableID: 1,
			Items: []models.LineItem{
				{MenuItemID: 9, Name: "Pizza", Price: decimal.RequireFromString("10.50"), Quantity: 3, Subtotal: decimal.RequireFromString("31.50")},
			},
			Total:     decimal.RequireFromString("31.50"),
			Status:    models.OrderClosed,
			CreatedBy: "bob",
			CreatedAt: now,
			ClosedBy:  &closedBy,
			ClosedAt:  &now,
		},
	}

	doc, err := encodeCollection("orders", orders)
	if err != nil {
		t.Fatalf("encodeCollection returned error: %v", err)
	}
	doc = append(doc, bson.E{Key: "updated_at", Value: now})

	b, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("bson.Marshal returned error: %v", err)
	}
	raw := bson.Raw(b)
	if id := raw.Lookup("_id").StringValue(); id != "orders" {
		t.Errorf("_id = %q, want orders", id)
	}

	var got []models.Order
	if err := decodeCollection(raw, &got); err != nil {
		t.Fatalf("decodeCollection returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("decoded %d orders, want 1", len(got))
	}
	o := got[0]
	if o.ID != 3 || o.TableID != 1 || o.Status != models.OrderClosed {
		t.Errorf("decoded order = %+v", o)
	}
	if !o.Total.Equal(decimal.RequireFromString("31.50")) {
		t.Errorf("total = %s, want 31.50", o.Total)
	}
	if len(o.Items) != 1 || o.Items[0].Quantity != 3 || !o.Items[0].Price.Equal(decimal.RequireFromString("10.5")) {
		t.Errorf("items = %+v", o.Items)
	}
	if o.ClosedBy == nil || *o.ClosedBy != "alice" || o.ClosedAt == nil || !o.ClosedAt.Equal(now) {
		t.Errorf("close stamp = %v %v", o.ClosedBy, o.ClosedAt)
	}
}

func TestDecodeCollection_MissingRecords(t *testing.T) {
	b, err := bson.Marshal(bson.D{{Key: "_id", Value: "tables"}})
	if err != nil {
		t.Fatal(err)
	}
	raw := bson.Raw(b)
	var got []models.Table
	if err := decodeCollection(raw, &got); err != nil {
		t.Fatalf("decodeCollection returned error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no tables, got %+v", got)
	}
}
