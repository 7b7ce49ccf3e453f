// Package cart implements the in-memory cart aggregator. A Cart is pure
// computation over a list of lines the caller persists; it holds no server
// state and performs no I/O.
package cart

import (
	"github.com/shopspring/decimal"
)

// Line is one product+variant+quantity entry in a cart.
type Line struct {
	ProductID    string
	VariantLabel string
	Name         string
	UnitPrice    decimal.Decimal
	// UnitMRP is the list price used for the "you saved" display.
	// Invalid means the product has no separate list price.
	UnitMRP  decimal.NullDecimal
	Quantity int
	Image    string
}

// Key identifies a line within a cart. Lines for the same product but
// different variants are distinct.
func (l Line) Key() string {
	return l.ProductID + "|" + l.VariantLabel
}

// mrpOrPrice returns the list price when set, the unit price otherwise.
func (l Line) mrpOrPrice() decimal.Decimal {
	if l.UnitMRP.Valid {
		return l.UnitMRP.Decimal
	}
	return l.UnitPrice
}

// Pricing holds the delivery fee rules applied by Totals.
type Pricing struct {
	// FreeDeliveryThreshold is the item total at or above which delivery
	// is free.
	FreeDeliveryThreshold decimal.Decimal
	// DeliveryFee is the flat fee charged below the threshold.
	DeliveryFee decimal.Decimal
}

// Totals is the billing breakdown for a cart.
type Totals struct {
	ItemTotal   decimal.Decimal
	MRPTotal    decimal.Decimal
	Savings     decimal.Decimal
	DeliveryFee decimal.Decimal
	Discount    decimal.Decimal
	GrandTotal  decimal.Decimal
}

// Cart is an ordered collection of lines. The zero value is usable.
type Cart struct {
	lines []Line
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// FromLines builds a cart that merges duplicate product+variant lines.
func FromLines(lines []Line) *Cart {
	c := New()
	for _, l := range lines {
		c.AddLine(l)
	}
	return c
}

// AddLine appends a line, or increments quantity when a line with the same
// product+variant already exists. A non-positive quantity on the input is
// treated as 1.
func (c *Cart) AddLine(line Line) {
	if line.Quantity < 1 {
		line.Quantity = 1
	}
	key := line.Key()
	for i := range c.lines {
		if c.lines[i].Key() == key {
			c.lines[i].Quantity += line.Quantity
			return
		}
	}
	c.lines = append(c.lines, line)
}

// SetQuantity sets the quantity of the line with the given key. A quantity
// below 1 removes the line; it is not an error. Unknown keys are ignored.
func (c *Cart) SetQuantity(key string, qty int) {
	if qty < 1 {
		c.RemoveLine(key)
		return
	}
	for i := range c.lines {
		if c.lines[i].Key() == key {
			c.lines[i].Quantity = qty
			return
		}
	}
}

// RemoveLine deletes the line with the given key, preserving the order of
// the remaining lines.
func (c *Cart) RemoveLine(key string) {
	for i := range c.lines {
		if c.lines[i].Key() == key {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Clear removes every line.
func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a copy of the cart's lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Totals computes the billing breakdown. The discount is supplied externally
// (coupon evaluation happens elsewhere); the grand total is clamped at zero
// so an oversized discount can never produce a negative bill.
func (c *Cart) Totals(p Pricing, discount decimal.Decimal) Totals {
	itemTotal := decimal.Zero
	mrpTotal := decimal.Zero
	for _, l := range c.lines {
		qty := decimal.NewFromInt(int64(l.Quantity))
		itemTotal = itemTotal.Add(l.UnitPrice.Mul(qty))
		mrpTotal = mrpTotal.Add(l.mrpOrPrice().Mul(qty))
	}

	fee := p.DeliveryFee
	if len(c.lines) == 0 || itemTotal.GreaterThanOrEqual(p.FreeDeliveryThreshold) {
		fee = decimal.Zero
	}

	if discount.IsNegative() {
		discount = decimal.Zero
	}

	grand := itemTotal.Add(fee).Sub(discount)
	if grand.IsNegative() {
		grand = decimal.Zero
	}

	return Totals{
		ItemTotal:   itemTotal.Round(2),
		MRPTotal:    mrpTotal.Round(2),
		Savings:     mrpTotal.Sub(itemTotal).Round(2),
		DeliveryFee: fee.Round(2),
		Discount:    discount.Round(2),
		GrandTotal:  grand.Round(2),
	}
}
