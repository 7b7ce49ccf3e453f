// Package stock enforces that reserved quantity never exceeds available
// stock. Reservations are optimistic compare-and-swap updates against the
// catalog store with a bounded retry count, so two concurrent checkouts for
// the last unit of a product cannot both succeed.
package stock

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/greenkart/order-service/internal/domain/catalog"
)

// OutOfStockError indicates the requested quantity exceeded the stock
// available at commit time.
type OutOfStockError struct {
	ProductID    string
	VariantLabel string
	Requested    int
	Remaining    int
}

func (e *OutOfStockError) Error() string {
	if e.VariantLabel != catalog.ImplicitVariant {
		return fmt.Sprintf("product %s (%s): requested %d, only %d in stock",
			e.ProductID, e.VariantLabel, e.Requested, e.Remaining)
	}
	return fmt.Sprintf("product %s: requested %d, only %d in stock",
		e.ProductID, e.Requested, e.Remaining)
}

// ProductRemovedError indicates the product, or the requested variant of it,
// disappeared between cart add and checkout commit.
type ProductRemovedError struct {
	ProductID    string
	VariantLabel string
}

func (e *ProductRemovedError) Error() string {
	if e.VariantLabel != "" {
		return fmt.Sprintf("product %s has no variant %q anymore", e.ProductID, e.VariantLabel)
	}
	return fmt.Sprintf("product %s no longer exists", e.ProductID)
}

// ErrContention is returned by Release when the compare-and-swap budget is
// exhausted. Reserve never returns it: exhaustion there surfaces as
// OutOfStockError, since from the caller's view the unit was lost to a
// concurrent checkout.
var ErrContention = errors.New("stock update contention")

// Store is the catalog-side stock access the service needs: a snapshot read
// and an atomic conditional write. Implementations must guarantee that
// CompareAndSwapStock observes and applies atomically with respect to
// concurrent calls for the same product and variant.
type Store interface {
	// Stock returns the current stock of the given product variant.
	// It returns catalog.ErrNotFound when the product (or variant row)
	// does not exist.
	Stock(ctx context.Context, productID, variantLabel string) (int, error)

	// CompareAndSwapStock sets the stock to next only if it still equals
	// prev, reporting whether the swap was applied.
	CompareAndSwapStock(ctx context.Context, productID, variantLabel string, prev, next int) (bool, error)
}

// defaultMaxRetries bounds the CAS loop. Conflicts are rare outside flash
// traffic on a single product, so a small budget is enough.
const defaultMaxRetries = 5

// Service reserves and releases stock against a Store.
type Service struct {
	store      Store
	maxRetries int
}

// NewService creates a reservation service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store, maxRetries: defaultMaxRetries}
}

// Reserve atomically decrements the variant's stock by qty. It fails with
// *OutOfStockError when stock is insufficient at commit time (or the retry
// budget is exhausted by contention) and *ProductRemovedError when the
// product is gone. On success it returns the remaining stock.
func (s *Service) Reserve(ctx context.Context, productID, variantLabel string, qty int) (int, error) {
	if qty <= 0 {
		return 0, errors.Errorf("reserve quantity must be positive, got %d", qty)
	}

	remaining := 0
	for range s.maxRetries {
		cur, err := s.store.Stock(ctx, productID, variantLabel)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return 0, &ProductRemovedError{ProductID: productID, VariantLabel: variantLabel}
			}
			return 0, errors.Wrap(err, "read stock")
		}
		remaining = cur

		if cur < qty {
			return 0, &OutOfStockError{
				ProductID:    productID,
				VariantLabel: variantLabel,
				Requested:    qty,
				Remaining:    cur,
			}
		}

		swapped, err := s.store.CompareAndSwapStock(ctx, productID, variantLabel, cur, cur-qty)
		if err != nil {
			return 0, errors.Wrap(err, "swap stock")
		}
		if swapped {
			return cur - qty, nil
		}
		// Lost the race; re-read and try again.
	}

	return 0, &OutOfStockError{
		ProductID:    productID,
		VariantLabel: variantLabel,
		Requested:    qty,
		Remaining:    remaining,
	}
}

// Release returns qty units to the variant's stock. It is the compensating
// action for a failed step after a successful reservation (order write
// failure, cancellation). Best-effort: callers log failures and move on,
// they never block the user-facing outcome on it.
func (s *Service) Release(ctx context.Context, productID, variantLabel string, qty int) error {
	if qty <= 0 {
		return errors.Errorf("release quantity must be positive, got %d", qty)
	}

	for range s.maxRetries {
		cur, err := s.store.Stock(ctx, productID, variantLabel)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return &ProductRemovedError{ProductID: productID, VariantLabel: variantLabel}
			}
			return errors.Wrap(err, "read stock")
		}

		swapped, err := s.store.CompareAndSwapStock(ctx, productID, variantLabel, cur, cur+qty)
		if err != nil {
			return errors.Wrap(err, "swap stock")
		}
		if swapped {
			return nil
		}
	}

	return ErrContention
}
