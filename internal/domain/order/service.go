package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/greenkart/order-service/internal/domain/cart"
	"github.com/greenkart/order-service/internal/domain/catalog"
	"github.com/greenkart/order-service/internal/domain/coupon"
	"github.com/greenkart/order-service/internal/domain/stock"
)

// ErrEmptyItems is returned when a checkout carries no line items.
var ErrEmptyItems = errors.New("items required")

// ValidationError indicates a missing or malformed request field. It never
// reaches persistence; the user fixes the input and retries.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Reserver is the slice of the stock service the order service needs.
type Reserver interface {
	Reserve(ctx context.Context, productID, variantLabel string, qty int) (int, error)
	Release(ctx context.Context, productID, variantLabel string, qty int) error
}

// LineInput is one requested line at checkout: which product, which variant,
// how many.
type LineInput struct {
	ProductID    string
	VariantLabel string
	Quantity     int
}

// CreateRequest holds the input for creating an order.
type CreateRequest struct {
	UserID        string
	CustomerEmail string
	Lines         []LineInput
	CouponCode    string
	Address       Address
	PaymentMethod PaymentMethod
	Notes         string
}

// Service owns order creation and state-machine transitions.
type Service struct {
	products catalog.Repository
	reserver Reserver
	coupons  coupon.Evaluator
	orders   Repository
	pricing  cart.Pricing
	now      func() time.Time
}

// NewService creates an order Service with the required dependencies.
func NewService(
	products catalog.Repository,
	reserver Reserver,
	coupons coupon.Evaluator,
	orders Repository,
	pricing cart.Pricing,
) *Service {
	return &Service{
		products: products,
		reserver: reserver,
		coupons:  coupons,
		orders:   orders,
		pricing:  pricing,
		now:      time.Now,
	}
}

// reservation records a succeeded line reservation so it can be compensated
// if a later step fails.
type reservation struct {
	productID    string
	variantLabel string
	qty          int
}

// Create validates the request, reserves stock for every line (rolling back
// all of them if any line fails), freezes the line-item snapshot, computes
// the billing breakdown, and persists the order with status pending.
//
// Either the whole order exists with all its stock decremented, or nothing
// changed: partial orders are never created.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	// Fetch and index every referenced product in one batch.
	ids := make([]string, len(req.Lines))
	for i, l := range req.Lines {
		ids[i] = l.ProductID
	}
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]*catalog.Product, len(fetched))
	for i := range fetched {
		byID[fetched[i].ID] = &fetched[i]
	}

	// Freeze line items before touching stock so a rollback has nothing
	// to undo on the order side.
	items := make([]Item, 0, len(req.Lines))
	for _, l := range req.Lines {
		p, ok := byID[l.ProductID]
		if !ok {
			return nil, &stock.ProductRemovedError{ProductID: l.ProductID}
		}
		v, ok := p.Variant(l.VariantLabel)
		if !ok {
			return nil, &stock.ProductRemovedError{ProductID: l.ProductID, VariantLabel: l.VariantLabel}
		}
		items = append(items, Item{
			ProductID:    p.ID,
			Name:         p.Name,
			VariantLabel: l.VariantLabel,
			UnitPrice:    v.Price,
			Quantity:     l.Quantity,
			Image:        p.Image,
		})
	}

	// Reserve stock line by line. Any failure releases everything already
	// reserved for this attempt and surfaces the offending line's error.
	reserved := make([]reservation, 0, len(req.Lines))
	for _, l := range req.Lines {
		if _, err := s.reserver.Reserve(ctx, l.ProductID, l.VariantLabel, l.Quantity); err != nil {
			s.releaseAll(ctx, reserved)
			return nil, err
		}
		reserved = append(reserved, reservation{l.ProductID, l.VariantLabel, l.Quantity})
	}

	// Billing breakdown via the cart aggregator plus coupon evaluation.
	c := cart.New()
	for i, it := range items {
		p := byID[req.Lines[i].ProductID]
		v, _ := p.Variant(it.VariantLabel)
		c.AddLine(cart.Line{
			ProductID:    it.ProductID,
			VariantLabel: it.VariantLabel,
			Name:         it.Name,
			UnitPrice:    it.UnitPrice,
			UnitMRP:      v.MRP,
			Quantity:     it.Quantity,
			Image:        it.Image,
		})
	}

	discount := decimal.Zero
	couponCode := ""
	if req.CouponCode != "" {
		subtotal := c.Totals(s.pricing, decimal.Zero).ItemTotal
		res, err := s.coupons.Evaluate(ctx, req.CouponCode, subtotal)
		if err != nil {
			s.releaseAll(ctx, reserved)
			return nil, errors.Wrap(err, "evaluate coupon")
		}
		// A rejected coupon never blocks checkout; the discount simply
		// does not apply.
		if res.Accepted {
			discount = res.Discount
			couponCode = req.CouponCode
		}
	}
	totals := c.Totals(s.pricing, discount)

	now := s.now()
	o := &Order{
		ID:            uuid.New().String(),
		UserID:        req.UserID,
		CustomerEmail: req.CustomerEmail,
		Items:         items,
		Address:       req.Address,
		Billing: Billing{
			ItemTotal:   totals.ItemTotal,
			DeliveryFee: totals.DeliveryFee,
			Discount:    totals.Discount,
			GrandTotal:  totals.GrandTotal,
		},
		CouponCode:    couponCode,
		PaymentMethod: req.PaymentMethod,
		Status:        StatusPending,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.orders.Create(ctx, o); err != nil {
		s.releaseAll(ctx, reserved)
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

// UpdateStatus transitions the order to next, failing with
// *InvalidTransitionError when the state machine does not allow it. The
// write is conditional on the status observed here, so a concurrent update
// cannot be silently overwritten. Transitioning to cancelled additionally
// restocks the order's line items.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next Status) (*Order, error) {
	if !next.Valid() {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", next)}
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !o.Status.CanTransitionTo(next) {
		return nil, &InvalidTransitionError{OrderID: orderID, From: o.Status, To: next}
	}

	now := s.now()
	applied, err := s.orders.UpdateStatus(ctx, orderID, o.Status, next, now)
	if err != nil {
		return nil, errors.Wrap(err, "update status")
	}
	if !applied {
		// Someone moved the order between our read and write.
		return nil, &InvalidTransitionError{OrderID: orderID, From: o.Status, To: next}
	}

	if next == StatusCancelled {
		s.restock(ctx, o)
	}

	o.Status = next
	o.UpdatedAt = now
	return o, nil
}

// Cancel transitions the order to cancelled, restocking its line items.
func (s *Service) Cancel(ctx context.Context, orderID string) (*Order, error) {
	return s.UpdateStatus(ctx, orderID, StatusCancelled)
}

// releaseAll compensates every reservation from a failed checkout attempt.
// Failures are logged, not propagated: the user is already getting the
// original failure, and a stuck release must not mask it.
func (s *Service) releaseAll(ctx context.Context, reserved []reservation) {
	lg := zctx.From(ctx)
	for _, r := range reserved {
		if err := s.reserver.Release(ctx, r.productID, r.variantLabel, r.qty); err != nil {
			lg.Warn("Failed to release reservation",
				zap.String("product_id", r.productID),
				zap.String("variant", r.variantLabel),
				zap.Int("qty", r.qty),
				zap.Error(err),
			)
		}
	}
}

// restock returns a cancelled order's quantities to the catalog.
// Best-effort: the cancellation itself has already committed.
func (s *Service) restock(ctx context.Context, o *Order) {
	lg := zctx.From(ctx)
	for _, it := range o.Items {
		if err := s.reserver.Release(ctx, it.ProductID, it.VariantLabel, it.Quantity); err != nil {
			lg.Warn("Failed to restock cancelled order line",
				zap.String("order_id", o.ID),
				zap.String("product_id", it.ProductID),
				zap.String("variant", it.VariantLabel),
				zap.Int("qty", it.Quantity),
				zap.Error(err),
			)
		}
	}
}

func (s *Service) validate(req CreateRequest) error {
	if len(req.Lines) == 0 {
		return ErrEmptyItems
	}
	for _, l := range req.Lines {
		if l.Quantity <= 0 {
			return &ValidationError{
				Field:  "items",
				Reason: fmt.Sprintf("quantity must be greater than 0 for product %s", l.ProductID),
			}
		}
	}
	if req.UserID == "" {
		return &ValidationError{Field: "user_id", Reason: "required"}
	}
	if req.Address.Street == "" {
		return &ValidationError{Field: "address.street", Reason: "required"}
	}
	if req.Address.Pincode == "" {
		return &ValidationError{Field: "address.pincode", Reason: "required"}
	}
	if !req.Address.TimeSlot.Valid() {
		return &ValidationError{Field: "address.time_slot", Reason: "must be morning, afternoon or evening"}
	}
	if req.PaymentMethod != PaymentCashOnDelivery {
		return &ValidationError{Field: "payment_method", Reason: "only cash_on_delivery is accepted"}
	}
	return nil
}
