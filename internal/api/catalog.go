package api

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/gorilla/mux"

	"github.com/greenkart/order-service/internal/domain/catalog"
)

// productView is the JSON shape of a product.
type productView struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	NameHi      string        `json:"name_hi,omitempty"`
	Category    string        `json:"category"`
	Description string        `json:"description,omitempty"`
	Unit        string        `json:"unit,omitempty"`
	Price       float64       `json:"price"`
	MRP         *float64      `json:"mrp,omitempty"`
	Stock       int           `json:"stock"`
	Image       string        `json:"image,omitempty"`
	Variants    []variantView `json:"variants,omitempty"`
}

type variantView struct {
	Label string   `json:"label"`
	Price float64  `json:"price"`
	MRP   *float64 `json:"mrp,omitempty"`
	Stock int      `json:"stock"`
}

type categoryView struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// ListProducts returns catalog products, optionally filtered by category and
// search query.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		f.Limit = n
	}

	products, err := h.products.List(r.Context(), f)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]productView, len(products))
	for i := range products {
		out[i] = h.toProductView(&products[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// GetProduct returns a single product by ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toProductView(p))
}

// ListCategories returns every category.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.products.ListCategories(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]categoryView, len(categories))
	for i, c := range categories {
		out[i] = categoryView{Slug: c.Slug, Name: c.Name, Image: h.imageURL(c.Image)}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) toProductView(p *catalog.Product) productView {
	v := productView{
		ID:          p.ID,
		Name:        p.Name,
		NameHi:      p.NameHi,
		Category:    p.Category,
		Description: p.Description,
		Unit:        p.Unit,
		Price:       p.Price.InexactFloat64(),
		Stock:       p.Stock,
		Image:       h.imageURL(p.Image),
	}
	if p.MRP.Valid {
		mrp := p.MRP.Decimal.InexactFloat64()
		v.MRP = &mrp
	}
	for _, pv := range p.Variants {
		if pv.Label == catalog.ImplicitVariant {
			continue
		}
		vv := variantView{
			Label: pv.Label,
			Price: pv.Price.InexactFloat64(),
			Stock: pv.Stock,
		}
		if pv.MRP.Valid {
			mrp := pv.MRP.Decimal.InexactFloat64()
			vv.MRP = &mrp
		}
		v.Variants = append(v.Variants, vv)
	}
	return v
}

// imageURL prefixes relative image paths with the configured base URL.
func (h *Handler) imageURL(path string) string {
	if path == "" || h.cfg.ImageBaseURL == "" {
		return path
	}
	return h.cfg.ImageBaseURL + "/" + path
}
