// Package notify builds the after-checkout notification for an order. The
// message is delivered as a WhatsApp deep link the customer actively opens;
// it is strictly best-effort and never part of the order transaction.
package notify

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/greenkart/order-service/internal/domain/order"
)

// WhatsApp builds wa.me deep links that summarize an order for the shop's
// WhatsApp contact.
type WhatsApp struct {
	// Phone is the destination number in international format without
	// the leading plus, e.g. "918112294119". Empty disables links.
	Phone string
}

// Link returns a wa.me deep link carrying the order summary, or the empty
// string when no destination phone is configured. It performs no I/O and
// cannot fail; a missing link never affects the order itself.
func (w WhatsApp) Link(o *order.Order) string {
	if w.Phone == "" {
		return ""
	}
	return fmt.Sprintf("https://wa.me/%s?text=%s", w.Phone, url.QueryEscape(w.message(o)))
}

func (w WhatsApp) message(o *order.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New Order %s\n\n", o.ID)

	b.WriteString("Items:\n")
	for _, it := range o.Items {
		name := it.Name
		if it.VariantLabel != "" {
			name += " (" + it.VariantLabel + ")"
		}
		lineTotal := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		fmt.Fprintf(&b, "- %s x %d = %s\n", name, it.Quantity, lineTotal.StringFixed(2))
	}

	fmt.Fprintf(&b, "\nItem total: %s\n", o.Billing.ItemTotal.StringFixed(2))
	if o.Billing.Discount.IsPositive() {
		fmt.Fprintf(&b, "Discount: -%s\n", o.Billing.Discount.StringFixed(2))
	}
	fmt.Fprintf(&b, "Delivery: %s\n", o.Billing.DeliveryFee.StringFixed(2))
	fmt.Fprintf(&b, "Total: %s\n", o.Billing.GrandTotal.StringFixed(2))
	fmt.Fprintf(&b, "Payment: %s\n\n", o.PaymentMethod)

	b.WriteString("Address:\n")
	if o.Address.Landmark != "" {
		fmt.Fprintf(&b, "Landmark: %s\n", o.Address.Landmark)
	}
	fmt.Fprintf(&b, "Street: %s\n", o.Address.Street)
	fmt.Fprintf(&b, "Pincode: %s\n", o.Address.Pincode)
	fmt.Fprintf(&b, "Time slot: %s\n", o.Address.TimeSlot)
	if o.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", o.Notes)
	}

	return b.String()
}
