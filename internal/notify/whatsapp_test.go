package notify

import (
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenkart/order-service/internal/domain/order"
)

func sampleOrder() *order.Order {
	return &order.Order{
		ID: "b2f7c9e0",
		Items: []order.Item{
			{ProductID: "potato", Name: "Potato", UnitPrice: decimal.NewFromInt(30), Quantity: 3},
			{ProductID: "milk", Name: "Milk", VariantLabel: "1L", UnitPrice: decimal.NewFromInt(52), Quantity: 1},
		},
		Address: order.Address{
			Landmark: "Near temple",
			Street:   "12 MG Road",
			Pincode:  "560001",
			TimeSlot: order.SlotEvening,
		},
		Billing: order.Billing{
			ItemTotal:   decimal.NewFromInt(142),
			DeliveryFee: decimal.NewFromInt(40),
			Discount:    decimal.NewFromInt(0),
			GrandTotal:  decimal.NewFromInt(182),
		},
		PaymentMethod: order.PaymentCashOnDelivery,
		Notes:         "Call before delivery",
	}
}

func TestLink_EmptyPhoneDisablesLinks(t *testing.T) {
	assert.Empty(t, WhatsApp{}.Link(sampleOrder()))
}

func TestLink_TargetsConfiguredPhone(t *testing.T) {
	link := WhatsApp{Phone: "918112294119"}.Link(sampleOrder())

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "wa.me", u.Host)
	assert.Equal(t, "/918112294119", u.Path)
	assert.NotEmpty(t, u.Query().Get("text"))
}

func TestLink_MessageContents(t *testing.T) {
	link := WhatsApp{Phone: "918112294119"}.Link(sampleOrder())

	u, err := url.Parse(link)
	require.NoError(t, err)
	text := u.Query().Get("text")

	assert.Contains(t, text, "New Order b2f7c9e0")
	assert.Contains(t, text, "Potato x 3 = 90.00")
	assert.Contains(t, text, "Milk (1L) x 1 = 52.00")
	assert.Contains(t, text, "Item total: 142.00")
	assert.Contains(t, text, "Delivery: 40.00")
	assert.Contains(t, text, "Total: 182.00")
	assert.Contains(t, text, "Payment: cash_on_delivery")
	assert.Contains(t, text, "Landmark: Near temple")
	assert.Contains(t, text, "Pincode: 560001")
	assert.Contains(t, text, "Time slot: evening")
	assert.Contains(t, text, "Notes: Call before delivery")
	assert.NotContains(t, text, "Discount", "zero discount line is omitted")
}

func TestLink_DiscountLineWhenPresent(t *testing.T) {
	o := sampleOrder()
	o.Billing.Discount = decimal.NewFromInt(50)

	u, err := url.Parse(WhatsApp{Phone: "1"}.Link(o))
	require.NoError(t, err)
	assert.Contains(t, u.Query().Get("text"), "Discount: -50.00")
}

func TestLink_OptionalFieldsOmitted(t *testing.T) {
	o := sampleOrder()
	o.Address.Landmark = ""
	o.Notes = ""

	u, err := url.Parse(WhatsApp{Phone: "1"}.Link(o))
	require.NoError(t, err)
	text := u.Query().Get("text")

	assert.NotContains(t, text, "Landmark")
	assert.NotContains(t, text, "Notes")
}

func TestLink_IsQueryEscaped(t *testing.T) {
	link := WhatsApp{Phone: "1"}.Link(sampleOrder())

	_, rest, found := strings.Cut(link, "?text=")
	require.True(t, found)
	assert.NotContains(t, rest, "\n", "raw newlines must be escaped")
	assert.NotContains(t, rest, " ")
}
