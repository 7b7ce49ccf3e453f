package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/greenkart/order-service/internal/domain/catalog"
	"github.com/greenkart/order-service/internal/domain/stock"
)

const (
	productColumns = `id, name, name_hi, category, description, unit, price, mrp, stock, is_active, image, created_at, updated_at`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	listCategoriesSQL = `SELECT slug, name, image FROM categories ORDER BY name`

	listVariantsSQL = `SELECT product_id, label, price, mrp, stock
		FROM product_variants WHERE product_id = ANY($1) ORDER BY product_id, position`

	defaultListLimit = 50
)

var (
	_ catalog.Repository = (*CatalogRepository)(nil)
	_ stock.Store        = (*CatalogRepository)(nil)
)

// CatalogRepository implements catalog.Repository and stock.Store backed by
// PostgreSQL. The implicit variant reads and writes the product row's own
// stock column; labeled variants use their product_variants rows.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// List returns products matching the filter, ordered by name.
func (r *CatalogRepository) List(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	var (
		conds []string
		args  []any
	)
	if !f.IncludeInactive {
		conds = append(conds, "is_active = TRUE")
	}
	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, "category = $"+strconv.Itoa(len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := strconv.Itoa(len(args))
		conds = append(conds, "(name ILIKE $"+n+" OR name_hi ILIKE $"+n+" OR description ILIKE $"+n+")")
	}

	q := "SELECT " + productColumns + " FROM products"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)
	q += " ORDER BY name LIMIT $" + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	if err := r.attachVariants(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetByID returns a single product by its identifier.
func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	products := []catalog.Product{p}
	if err := r.attachVariants(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *CatalogRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	if err := r.attachVariants(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// ListCategories returns every category ordered by display name.
func (r *CatalogRepository) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Category, error) {
		var c catalog.Category
		err := row.Scan(&c.Slug, &c.Name, &c.Image)
		return c, err
	})
}

// Stock returns the current stock of the given product variant.
func (r *CatalogRepository) Stock(ctx context.Context, productID, variantLabel string) (int, error) {
	var (
		n   int32
		err error
	)
	if variantLabel == catalog.ImplicitVariant {
		err = r.pool.QueryRow(ctx,
			`SELECT stock FROM products WHERE id = $1`, productID).Scan(&n)
	} else {
		err = r.pool.QueryRow(ctx,
			`SELECT stock FROM product_variants WHERE product_id = $1 AND label = $2`,
			productID, variantLabel).Scan(&n)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, catalog.ErrNotFound
		}
		return 0, fmt.Errorf("reading stock for %q: %w", productID, err)
	}
	return int(n), nil
}

// CompareAndSwapStock sets the variant's stock to next only if it still
// equals prev. The conditional UPDATE makes the read-compare-write a single
// atomic statement on the database side.
func (r *CatalogRepository) CompareAndSwapStock(ctx context.Context, productID, variantLabel string, prev, next int) (bool, error) {
	var (
		tag pgconn.CommandTag
		err error
	)
	if variantLabel == catalog.ImplicitVariant {
		tag, err = r.pool.Exec(ctx,
			`UPDATE products SET stock = $3, updated_at = $4 WHERE id = $1 AND stock = $2`,
			productID, prev, next, time.Now())
	} else {
		tag, err = r.pool.Exec(ctx,
			`UPDATE product_variants SET stock = $4 WHERE product_id = $1 AND label = $2 AND stock = $3`,
			productID, variantLabel, prev, next)
	}
	if err != nil {
		return false, fmt.Errorf("swapping stock for %q: %w", productID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// attachVariants loads variant rows for the given products and synthesizes
// the implicit variant for products that have none.
func (r *CatalogRepository) attachVariants(ctx context.Context, products []catalog.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]string, len(products))
	idx := make(map[string]int, len(products))
	for i := range products {
		ids[i] = products[i].ID
		idx[products[i].ID] = i
	}

	rows, err := r.pool.Query(ctx, listVariantsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID string
			v         catalog.Variant
		)
		var s int32
		if err := rows.Scan(&productID, &v.Label, &v.Price, &v.MRP, &s); err != nil {
			return fmt.Errorf("scanning variant: %w", err)
		}
		v.Stock = int(s)
		if i, ok := idx[productID]; ok {
			products[i].Variants = append(products[i].Variants, v)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("listing variants: %w", err)
	}

	for i := range products {
		p := &products[i]
		if len(p.Variants) == 0 {
			// Tagged union: no explicit variants means one implicit
			// variant backed by the product row itself.
			p.Variants = []catalog.Variant{{
				Label: catalog.ImplicitVariant,
				Price: p.Price,
				MRP:   p.MRP,
				Stock: p.Stock,
			}}
			continue
		}
		// The product row mirrors the first variant for display.
		p.Price = p.Variants[0].Price
		p.MRP = p.Variants[0].MRP
		p.Stock = p.Variants[0].Stock
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p     catalog.Product
		price decimal.Decimal
		mrp   decimal.NullDecimal
		st    int32
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.NameHi, &p.Category, &p.Description, &p.Unit,
		&price, &mrp, &st, &p.Active, &p.Image, &p.CreatedAt, &p.UpdatedAt,
	)
	p.Price = price
	p.MRP = mrp
	p.Stock = int(st)
	return p, err
}
