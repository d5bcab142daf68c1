package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/rakib/go-commerce-store/internal/database"
)

// These tests exercise request binding and error mapping, the paths that
// return before any database work. Store behavior is covered by the
// integration suite.

func setupServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewServer(nil)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func TestCreateOrderRejectsMalformedPayloads(t *testing.T) {
	s := setupServer(t)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"empty body", map[string]any{}},
		{"missing items", map[string]any{
			"customer_info": map[string]any{
				"full_name": "A", "phone": "1", "full_address": "X", "country": "BD",
			},
			"shipping_option": "outside",
			"payment_details": map[string]any{
				"method": "bkash", "phone": "1", "transaction_id": "T1",
			},
		}},
		{"zero quantity", map[string]any{
			"customer_info": map[string]any{
				"full_name": "A", "phone": "1", "full_address": "X", "country": "BD",
			},
			"shipping_option": "outside",
			"items": []map[string]any{{
				"product_id": 1, "quantity": 0,
				"primary_selection": map[string]any{"type": "size", "value": "M"},
			}},
			"payment_details": map[string]any{
				"method": "bkash", "phone": "1", "transaction_id": "T1",
			},
		}},
		{"unknown shipping option", map[string]any{
			"customer_info": map[string]any{
				"full_name": "A", "phone": "1", "full_address": "X", "country": "BD",
			},
			"shipping_option": "express",
			"items": []map[string]any{{
				"product_id": 1, "quantity": 1,
				"primary_selection": map[string]any{"type": "size", "value": "M"},
			}},
			"payment_details": map[string]any{
				"method": "bkash", "phone": "1", "transaction_id": "T1",
			},
		}},
		{"unknown payment method", map[string]any{
			"customer_info": map[string]any{
				"full_name": "A", "phone": "1", "full_address": "X", "country": "BD",
			},
			"shipping_option": "outside",
			"items": []map[string]any{{
				"product_id": 1, "quantity": 1,
				"primary_selection": map[string]any{"type": "size", "value": "M"},
			}},
			"payment_details": map[string]any{
				"method": "visa", "phone": "1", "transaction_id": "T1",
			},
		}},
		{"bad variant type", map[string]any{
			"customer_info": map[string]any{
				"full_name": "A", "phone": "1", "full_address": "X", "country": "BD",
			},
			"shipping_option": "outside",
			"items": []map[string]any{{
				"product_id": 1, "quantity": 1,
				"primary_selection": map[string]any{"type": "material", "value": "wool"},
			}},
			"payment_details": map[string]any{
				"method": "bkash", "phone": "1", "transaction_id": "T1",
			},
		}},
	}

	for _, tc := range cases {
		w := doJSON(t, s, http.MethodPost, "/api/v1/orders", tc.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d (%s)", tc.name, w.Code, w.Body.String())
		}
	}
}

func TestCreateProductRejectsMalformedPayloads(t *testing.T) {
	s := setupServer(t)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{
			"slug": "x", "category": "c", "primary_variant_type": "size",
			"primary_variants": []map[string]any{{"value": "M", "price": 1, "selling_price": 1}},
		}},
		{"bad variant type", map[string]any{
			"name": "X", "slug": "x", "category": "c", "primary_variant_type": "material",
			"primary_variants": []map[string]any{{"value": "M", "price": 1, "selling_price": 1}},
		}},
		{"empty variants", map[string]any{
			"name": "X", "slug": "x", "category": "c", "primary_variant_type": "size",
			"primary_variants": []map[string]any{},
		}},
		{"zero price", map[string]any{
			"name": "X", "slug": "x", "category": "c", "primary_variant_type": "size",
			"primary_variants": []map[string]any{{"value": "M", "price": 0, "selling_price": 1}},
		}},
	}

	for _, tc := range cases {
		w := doJSON(t, s, http.MethodPost, "/api/v1/products", tc.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d (%s)", tc.name, w.Code, w.Body.String())
		}
	}
}

func TestInvalidPathIDs(t *testing.T) {
	s := setupServer(t)

	for _, path := range []string{
		"/api/v1/orders/abc",
		"/api/v1/orders/-1",
		"/api/v1/products/abc",
		"/api/v1/blogs/abc",
	} {
		w := doJSON(t, s, http.MethodGet, path, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, w.Code)
		}
	}
}

func TestRespondErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err  error
		want int
	}{
		{database.ErrInsufficientStock, http.StatusBadRequest},
		{database.ErrInvalidStatus, http.StatusBadRequest},
		{database.ErrProductNotFound, http.StatusNotFound},
		{database.ErrVariantNotFound, http.StatusNotFound},
		{database.ErrOrderNotFound, http.StatusNotFound},
		{database.ErrBlogNotFound, http.StatusNotFound},
		{database.ErrOrderAlreadyCancelled, http.StatusConflict},
		{database.ErrOrderNumberConflict, http.StatusConflict},
		{database.ErrSlugConflict, http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, tc.err)
		if w.Code != tc.want {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.want, w.Code)
		}
	}
}
