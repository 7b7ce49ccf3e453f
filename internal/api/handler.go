// Package api exposes the order service over HTTP. Handlers convert JSON
// requests to domain calls and map domain errors to status codes; business
// logic stays in the domain packages.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/greenkart/order-service/internal/domain/cart"
	"github.com/greenkart/order-service/internal/domain/catalog"
	"github.com/greenkart/order-service/internal/domain/coupon"
	"github.com/greenkart/order-service/internal/domain/order"
	"github.com/greenkart/order-service/internal/notify"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in responses.
	// When empty, image paths are returned as stored.
	ImageBaseURL string
	// Pricing holds the delivery fee rules used for quotes and checkout.
	Pricing cart.Pricing
	// ListLimit caps order history listings.
	ListLimit int
}

// Handler implements the HTTP surface, delegating to the injected domain
// services and repositories.
type Handler struct {
	cfg       Config
	products  catalog.Repository
	coupons   coupon.Evaluator
	orders    *order.Service
	orderRepo order.Repository
	notifier  notify.WhatsApp
	security  *Security
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg Config,
	products catalog.Repository,
	coupons coupon.Evaluator,
	orders *order.Service,
	orderRepo order.Repository,
	notifier notify.WhatsApp,
	security *Security,
) *Handler {
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 50
	}
	return &Handler{
		cfg:       cfg,
		products:  products,
		coupons:   coupons,
		orders:    orders,
		orderRepo: orderRepo,
		notifier:  notifier,
		security:  security,
	}
}

// Router builds the API route table. Public catalog and quote routes need no
// key; order routes require one; status management is admin only.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/products", h.ListProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", h.GetProduct).Methods(http.MethodGet)
	api.HandleFunc("/categories", h.ListCategories).Methods(http.MethodGet)
	api.HandleFunc("/cart/quote", h.QuoteCart).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(h.security.Authenticate)
	authed.HandleFunc("/orders", h.PlaceOrder).Methods(http.MethodPost)
	authed.HandleFunc("/orders", h.ListOrders).Methods(http.MethodGet)
	authed.HandleFunc("/orders/{id}", h.GetOrder).Methods(http.MethodGet)
	authed.HandleFunc("/orders/{id}/cancel", h.CancelOrder).Methods(http.MethodPost)

	admin := api.NewRoute().Subrouter()
	admin.Use(h.security.Authenticate, h.security.RequireAdmin)
	admin.HandleFunc("/orders/{id}/status", h.UpdateOrderStatus).Methods(http.MethodPatch)

	return r
}
