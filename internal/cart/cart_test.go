package cart

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func newItem(menuID, childID uuid.UUID, date string, price int64) Item {
	return Item{
		MenuItemID:   menuID,
		MenuItemName: "Nasi Goreng",
		ChildID:      childID,
		ChildName:    "Budi",
		ChildClass:   "3A",
		DeliveryDate: date,
		UnitPrice:    decimal.NewFromInt(price),
	}
}

func TestAdd_SameKeyIncrementsQuantity(t *testing.T) {
	var c Cart
	menuID, childID := uuid.New(), uuid.New()

	for i := 0; i < 4; i++ {
		c.Add(newItem(menuID, childID, "2026-10-20", 10000))
	}

	if len(c.Items) != 1 {
		t.Fatalf("items: got %d, want 1", len(c.Items))
	}
	if c.Items[0].Quantity != 4 {
		t.Errorf("quantity: got %d, want 4", c.Items[0].Quantity)
	}
	wantKey := menuID.String() + "-2026-10-20-" + childID.String()
	if c.Items[0].Key != wantKey {
		t.Errorf("key: got %q, want %q", c.Items[0].Key, wantKey)
	}
}

func TestAdd_DifferentChildIsSeparateEntry(t *testing.T) {
	var c Cart
	menuID := uuid.New()

	c.Add(newItem(menuID, uuid.New(), "2026-10-20", 10000))
	c.Add(newItem(menuID, uuid.New(), "2026-10-20", 10000))

	if len(c.Items) != 2 {
		t.Fatalf("items: got %d, want 2", len(c.Items))
	}
	if c.TotalItems() != 2 {
		t.Errorf("total items: got %d, want 2", c.TotalItems())
	}
}

func TestAdd_DifferentDateIsSeparateEntry(t *testing.T) {
	var c Cart
	menuID, childID := uuid.New(), uuid.New()

	c.Add(newItem(menuID, childID, "2026-10-20", 10000))
	c.Add(newItem(menuID, childID, "2026-10-21", 10000))

	if len(c.Items) != 2 {
		t.Fatalf("items: got %d, want 2", len(c.Items))
	}
}

func TestTotals_TwoEntryScenario(t *testing.T) {
	var c Cart
	a, b := uuid.New(), uuid.New()
	x, y := uuid.New(), uuid.New()

	c.Add(newItem(a, x, "2026-10-20", 10000))
	c.Add(newItem(a, x, "2026-10-20", 10000))
	c.Add(newItem(b, y, "2026-10-21", 15000))

	if got := c.TotalItems(); got != 3 {
		t.Errorf("total items: got %d, want 3", got)
	}
	if got := c.TotalAmount(); !got.Equal(decimal.NewFromInt(35000)) {
		t.Errorf("total amount: got %s, want 35000", got)
	}
}

func TestTotalAmount_OrderIndependent(t *testing.T) {
	a, b, cID := uuid.New(), uuid.New(), uuid.New()
	child := uuid.New()
	items := []Item{
		newItem(a, child, "2026-10-20", 12000),
		newItem(b, child, "2026-10-20", 15500),
		newItem(cID, child, "2026-10-22", 8000),
		newItem(a, child, "2026-10-20", 12000),
	}

	var forward, backward Cart
	for _, it := range items {
		forward.Add(it)
	}
	for i := len(items) - 1; i >= 0; i-- {
		backward.Add(items[i])
	}

	if !forward.TotalAmount().Equal(backward.TotalAmount()) {
		t.Errorf("totals differ: %s vs %s", forward.TotalAmount(), backward.TotalAmount())
	}
	if forward.TotalItems() != backward.TotalItems() {
		t.Errorf("item counts differ: %d vs %d", forward.TotalItems(), backward.TotalItems())
	}
}

func TestUpdateQuantity_ZeroEqualsRemove(t *testing.T) {
	menuID, childID := uuid.New(), uuid.New()

	var updated, removed Cart
	k1 := updated.Add(newItem(menuID, childID, "2026-10-20", 10000)).Key
	updated.Add(newItem(uuid.New(), childID, "2026-10-20", 5000))
	k2 := removed.Add(newItem(menuID, childID, "2026-10-20", 10000)).Key
	removed.Add(updated.Items[1])

	if err := updated.UpdateQuantity(k1, 0); err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	if !removed.Remove(k2) {
		t.Fatal("remove: entry not found")
	}

	if len(updated.Items) != len(removed.Items) {
		t.Fatalf("items: %d vs %d", len(updated.Items), len(removed.Items))
	}
	if !updated.TotalAmount().Equal(removed.TotalAmount()) {
		t.Errorf("totals: %s vs %s", updated.TotalAmount(), removed.TotalAmount())
	}
}

func TestUpdateQuantity_SetsValue(t *testing.T) {
	var c Cart
	key := c.Add(newItem(uuid.New(), uuid.New(), "2026-10-20", 10000)).Key

	if err := c.UpdateQuantity(key, 7); err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	if c.Items[0].Quantity != 7 {
		t.Errorf("quantity: got %d, want 7", c.Items[0].Quantity)
	}
	if !c.TotalAmount().Equal(decimal.NewFromInt(70000)) {
		t.Errorf("total: got %s", c.TotalAmount())
	}
}

func TestUpdateQuantity_Errors(t *testing.T) {
	var c Cart
	key := c.Add(newItem(uuid.New(), uuid.New(), "2026-10-20", 10000)).Key

	if err := c.UpdateQuantity(key, -1); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("negative quantity: got %v, want ErrInvalidQuantity", err)
	}
	if err := c.UpdateQuantity("missing", 2); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("missing key: got %v, want ErrItemNotFound", err)
	}
	if c.Items[0].Quantity != 1 {
		t.Errorf("quantity changed after failed updates: %d", c.Items[0].Quantity)
	}
}

func TestRemove_Missing(t *testing.T) {
	var c Cart
	if c.Remove("nope") {
		t.Error("remove of missing key reported true")
	}
}

func TestClear(t *testing.T) {
	var c Cart
	c.Add(newItem(uuid.New(), uuid.New(), "2026-10-20", 10000))
	c.Clear()
	if !c.IsEmpty() {
		t.Error("cart not empty after Clear")
	}
	if !c.TotalAmount().IsZero() || c.TotalItems() != 0 {
		t.Error("totals not zero after Clear")
	}
}
