package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenkart/order-service/internal/domain/coupon"
)

const getCouponByCodeSQL = `SELECT code, kind, value, min_order_value, max_discount, description
	FROM coupons WHERE UPPER(code) = UPPER($1) AND active = TRUE`

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up an active coupon rule by its code (case-insensitive).
// Returns coupon.ErrUnknownCode when no matching active rule exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanCouponRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrUnknownCode
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &rule, nil
}

func scanCouponRule(row pgx.CollectableRow) (coupon.Rule, error) {
	var (
		rule coupon.Rule
		kind string
	)
	err := row.Scan(
		&rule.Code, &kind, &rule.Value, &rule.MinOrderValue,
		&rule.MaxDiscount, &rule.Description,
	)
	rule.Kind = coupon.Kind(kind)
	return rule, err
}
