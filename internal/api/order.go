package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/greenkart/order-service/internal/domain/order"
)

// placeOrderRequest is the checkout payload.
type placeOrderRequest struct {
	Items         []quoteItem `json:"items"`
	CouponCode    string      `json:"coupon_code,omitempty"`
	Address       addressView `json:"address"`
	PaymentMethod string      `json:"payment_method"`
	Notes         string      `json:"notes,omitempty"`
}

type addressView struct {
	Landmark string `json:"landmark,omitempty"`
	Street   string `json:"street"`
	Pincode  string `json:"pincode"`
	TimeSlot string `json:"time_slot"`
}

type orderItemView struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Variant   string  `json:"variant,omitempty"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image,omitempty"`
}

type orderView struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	Items         []orderItemView `json:"items"`
	Address       addressView     `json:"address"`
	ItemTotal     float64         `json:"item_total"`
	DeliveryFee   float64         `json:"delivery_fee"`
	Discount      float64         `json:"discount"`
	GrandTotal    float64         `json:"grand_total"`
	CouponCode    string          `json:"coupon_code,omitempty"`
	PaymentMethod string          `json:"payment_method"`
	Status        string          `json:"status"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     int64           `json:"created_at"`
	UpdatedAt     int64           `json:"updated_at"`
	// WhatsAppLink is a ready-to-open deep link notifying the shop.
	// Present only on creation; purely informational.
	WhatsAppLink string `json:"whatsapp_link,omitempty"`
}

// PlaceOrder creates an order from the checkout payload. On success the
// response carries the persisted order plus a best-effort WhatsApp
// notification link; building the link can never fail the order.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lines := make([]order.LineInput, len(req.Items))
	for i, it := range req.Items {
		lines[i] = order.LineInput{
			ProductID:    it.ProductID,
			VariantLabel: it.Variant,
			Quantity:     it.Quantity,
		}
	}

	o, err := h.orders.Create(r.Context(), order.CreateRequest{
		UserID:        id.UserID,
		CustomerEmail: id.Email,
		Lines:         lines,
		CouponCode:    req.CouponCode,
		Address: order.Address{
			Landmark: req.Address.Landmark,
			Street:   req.Address.Street,
			Pincode:  req.Address.Pincode,
			TimeSlot: order.TimeSlot(req.Address.TimeSlot),
		},
		PaymentMethod: order.PaymentMethod(req.PaymentMethod),
		Notes:         req.Notes,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	view := h.toOrderView(o)
	view.WhatsAppLink = h.notifier.Link(o)
	writeJSON(w, http.StatusCreated, view)
}

// ListOrders returns the caller's order history, newest first. Admins see
// every order.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())

	var (
		orders []order.Order
		err    error
	)
	if id.Admin() {
		orders, err = h.orderRepo.List(r.Context(), h.cfg.ListLimit)
	} else {
		orders, err = h.orderRepo.ListByUser(r.Context(), id.UserID, h.cfg.ListLimit)
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]orderView, len(orders))
	for i := range orders {
		out[i] = h.toOrderView(&orders[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// GetOrder returns a single order to its owner or an admin.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())
	orderID := mux.Vars(r)["id"]

	o, err := h.orderRepo.GetByID(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if o.UserID != id.UserID && !id.Admin() {
		// Not the owner: indistinguishable from a missing order.
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, h.toOrderView(o))
}

// CancelOrder cancels a pre-terminal order on behalf of its owner or an
// admin, restocking its line items.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())
	orderID := mux.Vars(r)["id"]

	o, err := h.orderRepo.GetByID(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if o.UserID != id.UserID && !id.Admin() {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	cancelled, err := h.orders.Cancel(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toOrderView(cancelled))
}

// updateStatusRequest is the admin payload for a status transition.
type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus applies an admin-driven status transition.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), orderID, order.Status(req.Status))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toOrderView(o))
}

func (h *Handler) toOrderView(o *order.Order) orderView {
	items := make([]orderItemView, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemView{
			ProductID: it.ProductID,
			Name:      it.Name,
			Variant:   it.VariantLabel,
			UnitPrice: it.UnitPrice.InexactFloat64(),
			Quantity:  it.Quantity,
			Image:     h.imageURL(it.Image),
		}
	}
	return orderView{
		ID:            o.ID,
		UserID:        o.UserID,
		CustomerEmail: o.CustomerEmail,
		Items:         items,
		Address: addressView{
			Landmark: o.Address.Landmark,
			Street:   o.Address.Street,
			Pincode:  o.Address.Pincode,
			TimeSlot: string(o.Address.TimeSlot),
		},
		ItemTotal:     o.Billing.ItemTotal.InexactFloat64(),
		DeliveryFee:   o.Billing.DeliveryFee.InexactFloat64(),
		Discount:      o.Billing.Discount.InexactFloat64(),
		GrandTotal:    o.Billing.GrandTotal.InexactFloat64(),
		CouponCode:    o.CouponCode,
		PaymentMethod: string(o.PaymentMethod),
		Status:        string(o.Status),
		Notes:         o.Notes,
		CreatedAt:     o.CreatedAt.UnixMilli(),
		UpdatedAt:     o.UpdatedAt.UnixMilli(),
	}
}
