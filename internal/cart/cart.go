// Package cart holds a parent's pending line items before checkout.
package cart

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrItemNotFound    = errors.New("cart item not found")
	ErrInvalidQuantity = errors.New("quantity must be >= 0")
)

// Item is one cart entry. Key identifies it by menu item, delivery date and child.
type Item struct {
	Key          string          `json:"key"`
	MenuItemID   uuid.UUID       `json:"menu_item_id"`
	MenuItemName string          `json:"menu_item_name"`
	ImageURL     string          `json:"image_url,omitempty"`
	ChildID      uuid.UUID       `json:"child_id"`
	ChildName    string          `json:"child_name"`
	ChildClass   string          `json:"child_class,omitempty"`
	DeliveryDate string          `json:"delivery_date"` // YYYY-MM-DD
	Quantity     int32           `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Notes        string          `json:"notes,omitempty"`
}

// Subtotal is unit price × quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt32(i.Quantity))
}

// Key builds the composite identity "<menu item>-<delivery date>-<child>".
func Key(menuItemID uuid.UUID, deliveryDate string, childID uuid.UUID) string {
	return fmt.Sprintf("%s-%s-%s", menuItemID, deliveryDate, childID)
}

// Cart is an ordered list of items. The zero value is an empty cart.
type Cart struct {
	Items []Item `json:"items"`
}

// Add merges item into the cart. An existing entry with the same key gains one
// unit; otherwise the item is appended with its own quantity (at least 1).
func (c *Cart) Add(item Item) Item {
	key := Key(item.MenuItemID, item.DeliveryDate, item.ChildID)
	if idx := c.indexOf(key); idx >= 0 {
		c.Items[idx].Quantity++
		return c.Items[idx]
	}
	item.Key = key
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	c.Items = append(c.Items, item)
	return item
}

// UpdateQuantity sets the quantity for key; zero removes the entry.
func (c *Cart) UpdateQuantity(key string, quantity int32) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	idx := c.indexOf(key)
	if idx < 0 {
		return ErrItemNotFound
	}
	if quantity == 0 {
		c.removeAt(idx)
		return nil
	}
	c.Items[idx].Quantity = quantity
	return nil
}

// Remove deletes the entry for key, reporting whether it existed.
func (c *Cart) Remove(key string) bool {
	idx := c.indexOf(key)
	if idx < 0 {
		return false
	}
	c.removeAt(idx)
	return true
}

func (c *Cart) Clear() {
	c.Items = nil
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// TotalAmount is Σ unit price × quantity.
func (c *Cart) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// TotalItems is Σ quantity.
func (c *Cart) TotalItems() int32 {
	var n int32
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) indexOf(key string) int {
	for i, it := range c.Items {
		if it.Key == key {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(idx int) {
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
}
