// Package catalog defines the product and category records that every other
// domain component reads. Products either carry explicit variants (the source
// of truth for price and stock) or a single implicit variant synthesized from
// the top-level fields; callers always see a non-empty Variants slice.
package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// ImplicitVariant is the label of the variant synthesized for products that
// have no explicit variant rows. Stock and price for it live on the product
// row itself.
const ImplicitVariant = ""

// Product represents a catalog item available for purchase.
// Price and Stock mirror the first variant for display purposes.
type Product struct {
	ID          string
	Name        string
	NameHi      string
	Category    string
	Description string
	Unit        string
	Price       decimal.Decimal
	MRP         decimal.NullDecimal
	Stock       int
	Active      bool
	Image       string
	Variants    []Variant
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Variant is one purchasable size of a product with its own price and stock.
type Variant struct {
	Label string
	Price decimal.Decimal
	MRP   decimal.NullDecimal
	Stock int
}

// Variant returns the variant with the given label, or false when the
// product has no such variant.
func (p *Product) Variant(label string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.Label == label {
			return v, true
		}
	}
	return Variant{}, false
}

// Category groups products for browsing.
type Category struct {
	Slug  string
	Name  string
	Image string
}

// Filter narrows a catalog listing.
type Filter struct {
	// Category restricts results to a single category slug.
	Category string
	// Search matches case-insensitively against name, translated name,
	// and description.
	Search string
	// Limit caps the number of returned products. Zero means the
	// repository default.
	Limit int
	// IncludeInactive also returns products hidden from the storefront.
	IncludeInactive bool
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
}
