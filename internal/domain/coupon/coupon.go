// Package coupon implements data-driven discount codes. Rules live in
// storage; Apply is a pure function over a rule and an order subtotal, so the
// same inputs always produce the same result.
package coupon

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind enumerates the supported discount strategies.
type Kind string

const (
	// KindFlat subtracts a fixed amount, capped at the subtotal.
	KindFlat Kind = "flat"
	// KindPercentage subtracts a percentage of the subtotal, capped at
	// the rule's maximum discount.
	KindPercentage Kind = "percentage"
)

// ErrUnknownCode is returned by repositories when no active rule matches
// the given code.
var ErrUnknownCode = errors.New("unknown coupon code")

// Rejection reasons surfaced to the user.
const (
	ReasonInvalidCode = "invalid code"
	ReasonMinOrder    = "minimum order not met"
)

// Rule defines a coupon's discount behaviour and eligibility constraints.
type Rule struct {
	Code          string
	Kind          Kind
	Value         decimal.Decimal
	MinOrderValue decimal.Decimal
	MaxDiscount   decimal.Decimal
	Description   string
}

// Result is the outcome of evaluating a code against a subtotal. A rejected
// result is not an error: checkout proceeds without the discount.
type Result struct {
	Accepted bool
	Discount decimal.Decimal
	Reason   string
	// Shortfall is the amount missing to reach the rule's minimum order
	// value. Only set when Reason is ReasonMinOrder.
	Shortfall decimal.Decimal
}

// Repository provides lookup of active coupon rules by code.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
}

// Evaluator maps a coupon code and order subtotal to a discount decision.
// The returned error is reserved for infrastructure failures; domain
// rejections are reported through the Result.
type Evaluator interface {
	Evaluate(ctx context.Context, code string, subtotal decimal.Decimal) (Result, error)
}
