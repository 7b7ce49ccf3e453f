//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 5 {
		t.Fatalf("expected 5 products, got %d", len(products))
	}
}

func TestListProducts_Fields(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)

	var potato *productResponse
	for i := range products {
		if products[i].ID == "potato" {
			potato = &products[i]
			break
		}
	}

	if potato == nil {
		t.Fatal("product 'potato' not found")
	}
	if potato.Name != "Potato" {
		t.Errorf("name: got %q, want %q", potato.Name, "Potato")
	}
	if potato.Price != 30 {
		t.Errorf("price: got %v, want 30", potato.Price)
	}
	if potato.MRP == nil || *potato.MRP != 35 {
		t.Errorf("mrp: got %v, want 35", potato.MRP)
	}
	if potato.Category != "vegetables" {
		t.Errorf("category: got %q, want %q", potato.Category, "vegetables")
	}
	if potato.Image == "" {
		t.Error("image is empty")
	}
	if len(potato.Variants) != 0 {
		t.Errorf("single-variant product lists %d variants", len(potato.Variants))
	}
}

func TestListProducts_Variants(t *testing.T) {
	resp := doGet(t, "/api/products/milk")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	milk := decodeJSON[productResponse](t, resp)
	if len(milk.Variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(milk.Variants))
	}
	if milk.Variants[0].Label != "500ml" || milk.Variants[0].Price != 27 {
		t.Errorf("variant 0: got %q at %v, want 500ml at 27", milk.Variants[0].Label, milk.Variants[0].Price)
	}
	if milk.Variants[1].Label != "1L" || milk.Variants[1].Price != 52 {
		t.Errorf("variant 1: got %q at %v, want 1L at 52", milk.Variants[1].Label, milk.Variants[1].Price)
	}
}

func TestListProducts_CategoryFilter(t *testing.T) {
	resp := doGet(t, "/api/products?category=vegetables")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 2 {
		t.Fatalf("expected 2 vegetables, got %d", len(products))
	}
	for _, p := range products {
		if p.Category != "vegetables" {
			t.Errorf("product %s: category %q", p.ID, p.Category)
		}
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/ghost")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Code != 404 {
		t.Errorf("error code: got %d, want 404", errResp.Code)
	}
}

func TestListCategories(t *testing.T) {
	resp := doGet(t, "/api/categories")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	categories := decodeJSON[[]categoryResponse](t, resp)
	if len(categories) != 4 {
		t.Fatalf("expected 4 categories, got %d", len(categories))
	}
}
