package api

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/greenkart/order-service/internal/domain/cart"
)

// quoteRequest is a cart payload the client wants priced before checkout.
type quoteRequest struct {
	Items      []quoteItem `json:"items"`
	CouponCode string      `json:"coupon_code,omitempty"`
}

type quoteItem struct {
	ProductID string `json:"product_id"`
	Variant   string `json:"variant,omitempty"`
	Quantity  int    `json:"quantity"`
}

type quoteResponse struct {
	ItemTotal   float64     `json:"item_total"`
	MRPTotal    float64     `json:"mrp_total"`
	Savings     float64     `json:"savings"`
	DeliveryFee float64     `json:"delivery_fee"`
	Discount    float64     `json:"discount"`
	GrandTotal  float64     `json:"grand_total"`
	Coupon      *couponView `json:"coupon,omitempty"`
}

type couponView struct {
	Code      string   `json:"code"`
	Accepted  bool     `json:"accepted"`
	Discount  float64  `json:"discount"`
	Reason    string   `json:"reason,omitempty"`
	Shortfall *float64 `json:"shortfall,omitempty"`
}

// QuoteCart prices a cart server-side: item and MRP totals, delivery fee,
// and the effect of an optional coupon. A rejected coupon is reported in the
// response, never as an error, so the client can keep the cart usable.
func (h *Handler) QuoteCart(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items required")
		return
	}

	ids := make([]string, len(req.Items))
	for i, it := range req.Items {
		if it.Quantity <= 0 {
			writeError(w, http.StatusBadRequest, "quantity must be greater than 0 for product "+it.ProductID)
			return
		}
		ids[i] = it.ProductID
	}

	products, err := h.products.GetByIDs(r.Context(), ids)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	byID := make(map[string]int, len(products))
	for i := range products {
		byID[products[i].ID] = i
	}

	c := cart.New()
	for _, it := range req.Items {
		i, ok := byID[it.ProductID]
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "product "+it.ProductID+" no longer exists")
			return
		}
		p := &products[i]
		v, ok := p.Variant(it.Variant)
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "product "+it.ProductID+" has no variant "+it.Variant)
			return
		}
		c.AddLine(cart.Line{
			ProductID:    p.ID,
			VariantLabel: it.Variant,
			Name:         p.Name,
			UnitPrice:    v.Price,
			UnitMRP:      v.MRP,
			Quantity:     it.Quantity,
		})
	}

	discount := decimal.Zero
	var cv *couponView
	if req.CouponCode != "" {
		subtotal := c.Totals(h.cfg.Pricing, decimal.Zero).ItemTotal
		res, err := h.coupons.Evaluate(r.Context(), req.CouponCode, subtotal)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		cv = &couponView{
			Code:     req.CouponCode,
			Accepted: res.Accepted,
			Discount: res.Discount.InexactFloat64(),
			Reason:   res.Reason,
		}
		if res.Shortfall.IsPositive() {
			shortfall := res.Shortfall.InexactFloat64()
			cv.Shortfall = &shortfall
		}
		if res.Accepted {
			discount = res.Discount
		}
	}

	t := c.Totals(h.cfg.Pricing, discount)
	writeJSON(w, http.StatusOK, quoteResponse{
		ItemTotal:   t.ItemTotal.InexactFloat64(),
		MRPTotal:    t.MRPTotal.InexactFloat64(),
		Savings:     t.Savings.InexactFloat64(),
		DeliveryFee: t.DeliveryFee.InexactFloat64(),
		Discount:    t.Discount.InexactFloat64(),
		GrandTotal:  t.GrandTotal.InexactFloat64(),
		Coupon:      cv,
	})
}
