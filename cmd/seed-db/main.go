// Command seed-db loads the catalog seed file into PostgreSQL and registers
// API keys for a regular user and an admin. It runs migrations first, so a
// fresh database only needs this one command.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/greenkart/order-service/internal/repository"
)

type catalogFile struct {
	Categories []categoryJSON `json:"categories"`
	Products   []productJSON  `json:"products"`
	Coupons    []couponJSON   `json:"coupons"`
}

type categoryJSON struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

type productJSON struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	NameHi      string              `json:"name_hi"`
	Category    string              `json:"category"`
	Description string              `json:"description"`
	Unit        string              `json:"unit"`
	Price       decimal.Decimal     `json:"price"`
	MRP         decimal.NullDecimal `json:"mrp"`
	Stock       int                 `json:"stock"`
	Image       string              `json:"image"`
	Variants    []variantJSON       `json:"variants"`
}

type variantJSON struct {
	Label string              `json:"label"`
	Price decimal.Decimal     `json:"price"`
	MRP   decimal.NullDecimal `json:"mrp"`
	Stock int                 `json:"stock"`
}

type couponJSON struct {
	Code          string              `json:"code"`
	Kind          string              `json:"kind"`
	Value         decimal.Decimal     `json:"value"`
	MinOrderValue decimal.NullDecimal `json:"min_order_value"`
	MaxDiscount   decimal.NullDecimal `json:"max_discount"`
	Description   string              `json:"description"`
}

func main() {
	var (
		databaseURL string
		catalogPath string
		userKey     string
		adminKey    string
		pepper      string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogPath, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.StringVar(&userKey, "user-key", "", "API key to seed for the test user (or GROCER_SEED_USER_KEY env)")
	flag.StringVar(&adminKey, "admin-key", "", "API key to seed for the admin (or GROCER_SEED_ADMIN_KEY env)")
	flag.StringVar(&pepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or GROCER_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if userKey == "" {
		userKey = os.Getenv("GROCER_SEED_USER_KEY")
	}
	if adminKey == "" {
		adminKey = os.Getenv("GROCER_SEED_ADMIN_KEY")
	}
	if pepper == "" {
		pepper = os.Getenv("GROCER_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogPath, userKey, adminKey, pepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogPath, userKey, adminKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("reading catalog file", slog.String("path", catalogPath))

	data, err := os.ReadFile(catalogPath)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}
	var catalog catalogFile
	if err := json.Unmarshal(data, &catalog); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	if err := seedCategories(ctx, pool, catalog.Categories); err != nil {
		return errors.Wrap(err, "seed categories")
	}
	if err := seedProducts(ctx, pool, catalog.Products); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCoupons(ctx, pool, catalog.Coupons); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if userKey != "" {
		if err := seedAPIKey(ctx, pool, "seed-user", "user-1", "user@example.com", "Test user", "user", userKey, pepper); err != nil {
			return errors.Wrap(err, "seed user key")
		}
	}
	if adminKey != "" {
		if err := seedAPIKey(ctx, pool, "seed-admin", "admin-1", "admin@example.com", "Store admin", "admin", adminKey, pepper); err != nil {
			return errors.Wrap(err, "seed admin key")
		}
	}

	return nil
}

func seedCategories(ctx context.Context, pool *pgxpool.Pool, categories []categoryJSON) error {
	slog.Info("upserting categories", slog.Int("count", len(categories)))

	for _, c := range categories {
		_, err := pool.Exec(ctx, `
			INSERT INTO categories (slug, name, image)
			VALUES ($1, $2, $3)
			ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name, image = EXCLUDED.image
		`, c.Slug, c.Name, c.Image)
		if err != nil {
			return errors.Wrapf(err, "upsert category %s", c.Slug)
		}
	}
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, products []productJSON) error {
	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		_, err := pool.Exec(ctx, `
			INSERT INTO products (id, name, name_hi, category, description, unit, price, mrp, stock, image)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, name_hi = EXCLUDED.name_hi,
				category = EXCLUDED.category, description = EXCLUDED.description,
				unit = EXCLUDED.unit, price = EXCLUDED.price, mrp = EXCLUDED.mrp,
				stock = EXCLUDED.stock, image = EXCLUDED.image,
				updated_at = now()
		`, p.ID, p.Name, p.NameHi, p.Category, p.Description, p.Unit, p.Price, p.MRP, p.Stock, p.Image)
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		for i, v := range p.Variants {
			_, err := pool.Exec(ctx, `
				INSERT INTO product_variants (product_id, label, price, mrp, stock, position)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (product_id, label) DO UPDATE SET
					price = EXCLUDED.price, mrp = EXCLUDED.mrp,
					stock = EXCLUDED.stock, position = EXCLUDED.position
			`, p.ID, v.Label, v.Price, v.MRP, v.Stock, i)
			if err != nil {
				return errors.Wrapf(err, "upsert variant %s of %s", v.Label, p.ID)
			}
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.Int("variants", len(p.Variants)))
	}
	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool, coupons []couponJSON) error {
	slog.Info("upserting coupons", slog.Int("count", len(coupons)))

	for _, c := range coupons {
		minOrder := decimal.Zero
		if c.MinOrderValue.Valid {
			minOrder = c.MinOrderValue.Decimal
		}
		maxDiscount := decimal.Zero
		if c.MaxDiscount.Valid {
			maxDiscount = c.MaxDiscount.Decimal
		}

		_, err := pool.Exec(ctx, `
			INSERT INTO coupons (code, kind, value, min_order_value, max_discount, description, active)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE)
			ON CONFLICT (code) DO UPDATE SET
				kind = EXCLUDED.kind, value = EXCLUDED.value,
				min_order_value = EXCLUDED.min_order_value,
				max_discount = EXCLUDED.max_discount,
				description = EXCLUDED.description, active = TRUE
		`, c.Code, c.Kind, c.Value, minOrder, maxDiscount, c.Description)
		if err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}

		slog.Info("upserted coupon", slog.String("code", c.Code))
	}
	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, id, userID, email, name, role, key, pepper string) error {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(key))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	_, err := pool.Exec(ctx, `
		INSERT INTO api_keys (id, key_hash, user_id, email, name, role, active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			key_hash = EXCLUDED.key_hash, user_id = EXCLUDED.user_id,
			email = EXCLUDED.email, name = EXCLUDED.name,
			role = EXCLUDED.role, active = TRUE
	`, id, keyHash, userID, email, name, role)
	if err != nil {
		return errors.Wrapf(err, "upsert api key %s", id)
	}

	slog.Info("upserted API key", slog.String("id", id), slog.String("role", role))
	return nil
}
