package coupon

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Apply calculates the discount for the given rule and subtotal. It is pure:
// no I/O, deterministic for identical inputs. Rejections (minimum order not
// met) are reported through the Result, not as errors.
func Apply(rule *Rule, subtotal decimal.Decimal) (Result, error) {
	if rule.MinOrderValue.IsPositive() && subtotal.LessThan(rule.MinOrderValue) {
		return Result{
			Accepted:  false,
			Discount:  decimal.Zero,
			Reason:    ReasonMinOrder,
			Shortfall: rule.MinOrderValue.Sub(subtotal).Round(2),
		}, nil
	}

	var amount decimal.Decimal
	switch rule.Kind {
	case KindFlat:
		amount = decimal.Min(rule.Value, subtotal)
	case KindPercentage:
		amount = subtotal.Mul(rule.Value).Div(hundred)
		if rule.MaxDiscount.IsPositive() {
			amount = decimal.Min(amount, rule.MaxDiscount)
		}
	default:
		return Result{}, errors.Errorf("unsupported coupon kind: %q", rule.Kind)
	}

	if amount.IsNegative() {
		amount = decimal.Zero
	}

	return Result{Accepted: true, Discount: amount.Round(2)}, nil
}

// RepoEvaluator implements Evaluator by looking up rules from a Repository
// and applying them via Apply.
type RepoEvaluator struct {
	repo Repository
}

// NewRepoEvaluator creates a RepoEvaluator backed by the given Repository.
func NewRepoEvaluator(repo Repository) *RepoEvaluator {
	return &RepoEvaluator{repo: repo}
}

// Evaluate looks up the rule for code and applies it to the subtotal. An
// unknown code yields a rejected Result, not an error, so a bogus coupon
// never blocks checkout.
func (e *RepoEvaluator) Evaluate(ctx context.Context, code string, subtotal decimal.Decimal) (Result, error) {
	rule, err := e.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrUnknownCode) {
			return Result{Accepted: false, Discount: decimal.Zero, Reason: ReasonInvalidCode}, nil
		}
		return Result{}, errors.Wrap(err, "lookup coupon")
	}
	return Apply(rule, subtotal)
}
