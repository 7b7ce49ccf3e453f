//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"strings"
	"testing"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func deliveryAddress() addressRequest {
	return addressRequest{
		Street:   "12 MG Road",
		Landmark: "opposite city park",
		Pincode:  "560001",
		TimeSlot: "morning",
	}
}

// --- Cart quotes (public, no reservation side effects) ---

func TestQuoteCart(t *testing.T) {
	req := quoteRequest{
		Items: []itemRequest{
			{ProductID: "potato", Quantity: 3},              // 3 x 30 = 90
			{ProductID: "milk", Variant: "1L", Quantity: 1}, // 52
		},
	}
	resp := doPost(t, "/api/cart/quote", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	quote := decodeJSON[quoteResponse](t, resp)
	if quote.ItemTotal != 142 {
		t.Errorf("item_total: got %v, want 142", quote.ItemTotal)
	}
	if quote.DeliveryFee != 40 {
		t.Errorf("delivery_fee: got %v, want 40", quote.DeliveryFee)
	}
	if quote.GrandTotal != 182 {
		t.Errorf("grand_total: got %v, want 182", quote.GrandTotal)
	}
}

func TestQuoteCart_FreeDeliveryThreshold(t *testing.T) {
	req := quoteRequest{
		Items: []itemRequest{{ProductID: "potato", Quantity: 7}}, // 210
	}
	resp := doPost(t, "/api/cart/quote", req)
	defer resp.Body.Close()

	quote := decodeJSON[quoteResponse](t, resp)
	if quote.DeliveryFee != 0 {
		t.Errorf("delivery_fee: got %v, want 0 above threshold", quote.DeliveryFee)
	}
	if quote.GrandTotal != 210 {
		t.Errorf("grand_total: got %v, want 210", quote.GrandTotal)
	}
}

func TestQuoteCart_FlatCoupon(t *testing.T) {
	req := quoteRequest{
		Items:      []itemRequest{{ProductID: "potato", Quantity: 10}}, // 300
		CouponCode: "WELCOME50",
	}
	resp := doPost(t, "/api/cart/quote", req)
	defer resp.Body.Close()

	quote := decodeJSON[quoteResponse](t, resp)
	if quote.Coupon == nil || !quote.Coupon.Accepted {
		t.Fatalf("coupon not accepted: %+v", quote.Coupon)
	}
	if quote.Discount != 50 {
		t.Errorf("discount: got %v, want 50", quote.Discount)
	}
	// 300, free delivery, minus 50.
	if quote.GrandTotal != 250 {
		t.Errorf("grand_total: got %v, want 250", quote.GrandTotal)
	}
}

func TestQuoteCart_FlatCoupon_BelowMinimum(t *testing.T) {
	req := quoteRequest{
		Items:      []itemRequest{{ProductID: "potato", Quantity: 3}}, // 90, minimum is 200
		CouponCode: "WELCOME50",
	}
	resp := doPost(t, "/api/cart/quote", req)
	defer resp.Body.Close()

	// A rejected coupon is reported in the body, never as an error.
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	quote := decodeJSON[quoteResponse](t, resp)
	if quote.Coupon == nil || quote.Coupon.Accepted {
		t.Fatalf("coupon should be rejected: %+v", quote.Coupon)
	}
	if quote.Coupon.Shortfall == nil || *quote.Coupon.Shortfall != 110 {
		t.Errorf("shortfall: got %v, want 110", quote.Coupon.Shortfall)
	}
	if quote.Discount != 0 {
		t.Errorf("discount: got %v, want 0", quote.Discount)
	}
}

func TestQuoteCart_PercentageCouponCap(t *testing.T) {
	req := quoteRequest{
		Items:      []itemRequest{{ProductID: "atta", Variant: "10kg", Quantity: 2}}, // 960
		CouponCode: "DIWALI20",
	}
	resp := doPost(t, "/api/cart/quote", req)
	defer resp.Body.Close()

	quote := decodeJSON[quoteResponse](t, resp)
	if quote.Coupon == nil || !quote.Coupon.Accepted {
		t.Fatalf("coupon not accepted: %+v", quote.Coupon)
	}
	// 20% of 960 is 192, capped at 100.
	if quote.Discount != 100 {
		t.Errorf("discount: got %v, want 100", quote.Discount)
	}
}

func TestQuoteCart_UnknownCoupon(t *testing.T) {
	req := quoteRequest{
		Items:      []itemRequest{{ProductID: "potato", Quantity: 10}},
		CouponCode: "NONEXISTENT",
	}
	resp := doPost(t, "/api/cart/quote", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	quote := decodeJSON[quoteResponse](t, resp)
	if quote.Coupon == nil || quote.Coupon.Accepted {
		t.Fatalf("unknown coupon should be rejected: %+v", quote.Coupon)
	}
	if quote.Coupon.Reason != "invalid code" {
		t.Errorf("reason: got %q, want %q", quote.Coupon.Reason, "invalid code")
	}
}

// --- Auth ---

func TestPlaceOrder_NoAuth(t *testing.T) {
	req := orderRequest{
		Items:         []itemRequest{{ProductID: "potato", Quantity: 1}},
		Address:       deliveryAddress(),
		PaymentMethod: "cash_on_delivery",
	}
	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_InvalidKey(t *testing.T) {
	req := orderRequest{
		Items:         []itemRequest{{ProductID: "potato", Quantity: 1}},
		Address:       deliveryAddress(),
		PaymentMethod: "cash_on_delivery",
	}
	resp := doPostWithAuth(t, "/api/orders", req, "wrong-key")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestUpdateStatus_UserForbidden(t *testing.T) {
	resp := doPatchWithAuth(t, "/api/orders/some-id/status", map[string]string{"status": "processing"}, userAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

// --- Checkout ---

func TestPlaceOrder_BadRequests(t *testing.T) {
	cases := []struct {
		name string
		req  orderRequest
		want int
	}{
		{
			name: "empty items",
			req: orderRequest{
				Address:       deliveryAddress(),
				PaymentMethod: "cash_on_delivery",
			},
			want: http.StatusBadRequest,
		},
		{
			name: "unknown product",
			req: orderRequest{
				Items:         []itemRequest{{ProductID: "ghost", Quantity: 1}},
				Address:       deliveryAddress(),
				PaymentMethod: "cash_on_delivery",
			},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "unknown variant",
			req: orderRequest{
				Items:         []itemRequest{{ProductID: "milk", Variant: "2L", Quantity: 1}},
				Address:       deliveryAddress(),
				PaymentMethod: "cash_on_delivery",
			},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "unsupported payment method",
			req: orderRequest{
				Items:         []itemRequest{{ProductID: "potato", Quantity: 1}},
				Address:       deliveryAddress(),
				PaymentMethod: "card",
			},
			want: http.StatusBadRequest,
		},
		{
			name: "bad time slot",
			req: orderRequest{
				Items: []itemRequest{{ProductID: "potato", Quantity: 1}},
				Address: addressRequest{
					Street:   "12 MG Road",
					Pincode:  "560001",
					TimeSlot: "midnight",
				},
				PaymentMethod: "cash_on_delivery",
			},
			want: http.StatusBadRequest,
		},
		{
			name: "insufficient stock",
			req: orderRequest{
				Items:         []itemRequest{{ProductID: "atta", Variant: "10kg", Quantity: 13}}, // only 12 seeded
				Address:       deliveryAddress(),
				PaymentMethod: "cash_on_delivery",
			},
			want: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			resp := doPostWithAuth(t, "/api/orders", tt.req, userAPIKey)
			defer resp.Body.Close()

			if resp.StatusCode != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestPlaceOrder_HappyPath(t *testing.T) {
	req := orderRequest{
		Items: []itemRequest{
			{ProductID: "potato", Quantity: 3},              // 90
			{ProductID: "milk", Variant: "1L", Quantity: 1}, // 52
		},
		Address:       deliveryAddress(),
		PaymentMethod: "cash_on_delivery",
		Notes:         "ring the bell twice",
	}
	resp := doPostWithAuth(t, "/api/orders", req, userAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if !uuidPattern.MatchString(order.ID) {
		t.Errorf("order ID %q is not a valid UUID", order.ID)
	}
	if order.Status != "pending" {
		t.Errorf("status: got %q, want pending", order.Status)
	}
	if order.ItemTotal != 142 {
		t.Errorf("item_total: got %v, want 142", order.ItemTotal)
	}
	if order.GrandTotal != 182 {
		t.Errorf("grand_total: got %v, want 182", order.GrandTotal)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(order.Items))
	}
	if order.Items[1].Variant != "1L" {
		t.Errorf("item variant: got %q, want 1L", order.Items[1].Variant)
	}
	if !strings.HasPrefix(order.WhatsAppLink, "https://wa.me/") {
		t.Errorf("whatsapp_link: got %q", order.WhatsAppLink)
	}
}

func TestPlaceOrder_ReservesAndCancelRestocks(t *testing.T) {
	stockOf := func(t *testing.T) int {
		t.Helper()
		resp := doGet(t, "/api/products/banana")
		defer resp.Body.Close()
		return decodeJSON[productResponse](t, resp).Stock
	}

	before := stockOf(t)

	req := orderRequest{
		Items:         []itemRequest{{ProductID: "banana", Quantity: 2}},
		Address:       deliveryAddress(),
		PaymentMethod: "cash_on_delivery",
	}
	resp := doPostWithAuth(t, "/api/orders", req, userAPIKey)
	order := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	if got := stockOf(t); got != before-2 {
		t.Errorf("stock after order: got %d, want %d", got, before-2)
	}

	resp = doPostWithAuth(t, "/api/orders/"+order.ID+"/cancel", nil, userAPIKey)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", resp.StatusCode)
	}

	cancelled := decodeJSON[orderResponse](t, resp)
	if cancelled.Status != "cancelled" {
		t.Errorf("status: got %q, want cancelled", cancelled.Status)
	}
	if got := stockOf(t); got != before {
		t.Errorf("stock after cancel: got %d, want %d", got, before)
	}
}

func TestOrderLifecycle(t *testing.T) {
	req := orderRequest{
		Items:         []itemRequest{{ProductID: "onion", Quantity: 2}},
		Address:       deliveryAddress(),
		PaymentMethod: "cash_on_delivery",
	}
	resp := doPostWithAuth(t, "/api/orders", req, userAPIKey)
	created := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	// Owner can fetch.
	resp = doGetWithAuth(t, "/api/orders/"+created.ID, userAPIKey)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get order: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Admin walks the order through its states.
	for _, next := range []string{"processing", "shipped", "delivered"} {
		resp = doPatchWithAuth(t, "/api/orders/"+created.ID+"/status", map[string]string{"status": next}, adminAPIKey)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("transition to %s: expected 200, got %d", next, resp.StatusCode)
		}
		updated := decodeJSON[orderResponse](t, resp)
		resp.Body.Close()
		if updated.Status != next {
			t.Fatalf("status: got %q, want %q", updated.Status, next)
		}
	}

	// Delivered is terminal.
	resp = doPatchWithAuth(t, "/api/orders/"+created.ID+"/status", map[string]string{"status": "shipped"}, adminAPIKey)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("illegal transition: expected 422, got %d", resp.StatusCode)
	}
}

func TestListOrders(t *testing.T) {
	resp := doGetWithAuth(t, "/api/orders", userAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	orders := decodeJSON[[]orderResponse](t, resp)
	for _, o := range orders {
		if o.UserID != "user-1" {
			t.Errorf("order %s belongs to %q, expected user-1 only", o.ID, o.UserID)
		}
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	resp := doGetWithAuth(t, "/api/orders/00000000-0000-0000-0000-000000000000", userAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
