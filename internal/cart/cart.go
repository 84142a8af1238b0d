// Package cart holds the in-memory shopping cart of a single visitor.
package cart

import (
	"sync"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// Snapshot is a consistent view of a cart. TotalItems and Subtotal always
// equal a fresh fold over Lines.
type Snapshot struct {
	Lines      []domain.CartLine `json:"lines"`
	TotalItems int               `json:"total_items"`
	Subtotal   decimal.Decimal   `json:"subtotal"`
}

func (s Snapshot) Empty() bool {
	return len(s.Lines) == 0
}

// Cart keeps at most one line per product id, in insertion order.
type Cart struct {
	mu         sync.RWMutex
	lines      []domain.CartLine
	totalItems int
	subtotal   decimal.Decimal
}

// New builds a cart from previously stored lines. Lines for the same product
// are merged and lines without a positive quantity are dropped.
func New(lines ...domain.CartLine) *Cart {
	c := &Cart{}
	for _, l := range lines {
		if l.Quantity < 1 {
			continue
		}
		if i := c.indexOf(l.Product.ProductID); i >= 0 {
			c.lines[i].Quantity += l.Quantity
			continue
		}
		c.lines = append(c.lines, domain.CartLine{Product: l.Product.Clone(), Quantity: l.Quantity})
	}
	c.recompute()
	return c
}

// Add puts one unit of p into the cart.
func (c *Cart) Add(p domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(p.ProductID); i >= 0 {
		c.lines[i].Quantity++
	} else {
		c.lines = append(c.lines, domain.CartLine{Product: p.Clone(), Quantity: 1})
	}
	c.recompute()
}

// Remove deletes the line for productID. Unknown ids are ignored.
func (c *Cart) Remove(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(productID)
	if i < 0 {
		return
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	c.recompute()
}

// UpdateQuantity adds delta to the line quantity. A line whose quantity
// would drop to zero or below is removed.
func (c *Cart) UpdateQuantity(productID string, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(productID)
	if i < 0 {
		return
	}
	next := c.lines[i].Quantity + delta
	if next <= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	} else {
		c.lines[i].Quantity = next
	}
	c.recompute()
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = nil
	c.recompute()
}

func (c *Cart) Lines() []domain.CartLine {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.copyLines()
}

func (c *Cart) TotalItems() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totalItems
}

func (c *Cart) Subtotal() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subtotal
}

func (c *Cart) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Lines:      c.copyLines(),
		TotalItems: c.totalItems,
		Subtotal:   c.subtotal,
	}
}

func (c *Cart) indexOf(productID string) int {
	for i := range c.lines {
		if c.lines[i].Product.ProductID == productID {
			return i
		}
	}
	return -1
}

// recompute folds the lines from scratch; caller holds the write lock.
func (c *Cart) recompute() {
	total := 0
	sub := decimal.Zero
	for _, l := range c.lines {
		total += l.Quantity
		sub = sub.Add(l.LineTotal())
	}
	c.totalItems = total
	c.subtotal = sub
}

func (c *Cart) copyLines() []domain.CartLine {
	out := make([]domain.CartLine, len(c.lines))
	for i, l := range c.lines {
		out[i] = domain.CartLine{Product: l.Product.Clone(), Quantity: l.Quantity}
	}
	return out
}
