// Package order owns order creation and the status state machine. An order
// is created once at checkout with a frozen snapshot of its line items and is
// mutated only through status updates until it reaches a terminal state.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates accepted payment methods.
type PaymentMethod string

// PaymentCashOnDelivery is the only payment method the shop accepts.
const PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"

// TimeSlot is the requested delivery window.
type TimeSlot string

const (
	SlotMorning   TimeSlot = "morning"
	SlotAfternoon TimeSlot = "afternoon"
	SlotEvening   TimeSlot = "evening"
)

// Valid reports whether t is a known time slot.
func (t TimeSlot) Valid() bool {
	switch t {
	case SlotMorning, SlotAfternoon, SlotEvening:
		return true
	}
	return false
}

// Item is a frozen copy of product data embedded in an order at creation
// time, immune to later catalog edits.
type Item struct {
	ProductID    string          `json:"product_id"`
	Name         string          `json:"name"`
	VariantLabel string          `json:"variant,omitempty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	Image        string          `json:"image,omitempty"`
}

// Address holds the free-text delivery address fields plus the time slot.
type Address struct {
	Landmark string
	Street   string
	Pincode  string
	TimeSlot TimeSlot
}

// Billing is the monetary breakdown stored with the order.
type Billing struct {
	ItemTotal   decimal.Decimal
	DeliveryFee decimal.Decimal
	Discount    decimal.Decimal
	GrandTotal  decimal.Decimal
}

// Order represents a customer order through its whole lifecycle.
type Order struct {
	ID            string
	UserID        string
	CustomerEmail string
	Items         []Item
	Address       Address
	Billing       Billing
	CouponCode    string
	PaymentMethod PaymentMethod
	Status        Status
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = fmt.Errorf("order not found")

// Repository defines persistence operations for orders. Creation is
// append-only; status is the only field updated in place, and only
// conditionally so concurrent admin writes cannot clobber each other.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]Order, error)
	// List returns all orders, newest first. Admin views only.
	List(ctx context.Context, limit int) ([]Order, error)
	// UpdateStatus sets status and updated_at only when the stored status
	// still equals from, reporting whether the update was applied.
	UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) (bool, error)
}
