package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fashionhub/backend/internal/cache"
	"fashionhub/backend/internal/domain"
	"fashionhub/backend/internal/service"
	"fashionhub/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, cache.NoopCatalogCache{}, service.Options{})
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, auth, "*")
}

func loginToken(t *testing.T, handler http.Handler, username string, password string) string {
	t.Helper()

	payload, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode login body: %v", err)
	}
	return body.AccessToken
}

func csrfToken(t *testing.T, handler http.Handler) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/csrf-token", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("csrf token fetch failed: %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode csrf body: %v", err)
	}
	return body["csrf_token"]
}

func doJSON(t *testing.T, handler http.Handler, method string, path string, token string, csrf string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_Success(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	token := loginToken(t, handler, "admin", "admin123")
	if token == "" {
		t.Fatalf("expected non-empty access token")
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "wrongpassword",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleProducts_RequiresAuth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleProducts_WithValidToken(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginToken(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/products", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body struct {
		Products []domain.Product `json:"products"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Products) == 0 {
		t.Fatalf("expected seeded products")
	}
}

func TestProductLookupByReference(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginToken(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/products?ref=FH-TSHIRT-01", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reference lookup failed: %d (body: %s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Product domain.Product `json:"product"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Product.ReferenceNumber != "FH-TSHIRT-01" {
		t.Fatalf("expected FH-TSHIRT-01, got %s", body.Product.ReferenceNumber)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/products?ref=FH-NOPE-99", token, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown reference, got %d", rec.Code)
	}
}

func TestCashierCannotCreateProduct(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginToken(t, handler, "cashier", "cashier123")
	csrf := csrfToken(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/products", token, csrf, domain.ProductCreateRequest{
		Name:            "Linen Shirt",
		ReferenceNumber: "FH-LINEN-01",
		PriceCents:      129900,
		Category:        "tops",
		Variants:        []domain.VariantInput{{Size: "M", Stock: 4}},
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier product create, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestSaleLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	admin := loginToken(t, handler, "admin", "admin123")
	cashier := loginToken(t, handler, "cashier", "cashier123")
	csrf := csrfToken(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/products", admin, csrf, domain.ProductCreateRequest{
		Name:            "Linen Shirt",
		ReferenceNumber: "FH-LINEN-01",
		PriceCents:      1000,
		Category:        "tops",
		Variants:        []domain.VariantInput{{Size: "M", Stock: 5}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("product create failed: %d (body: %s)", rec.Code, rec.Body.String())
	}
	var createBody struct {
		Product domain.Product `json:"product"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&createBody); err != nil {
		t.Fatalf("decode product: %v", err)
	}
	productID := createBody.Product.ID

	zero := 0.0
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales", cashier, csrf, domain.SaleCreateRequest{
		Items: []domain.CartItem{
			{ProductID: productID, Size: "M", Quantity: 2, UnitPriceCents: 1000},
		},
		Customer: domain.CustomerInfo{Name: "Asha", Phone: "9990001111"},
		Payment:  domain.PaymentInfo{Method: "cash"},
		TaxRate:  &zero,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("sale create failed: %d (body: %s)", rec.Code, rec.Body.String())
	}
	var saleBody struct {
		Sale domain.Sale `json:"sale"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&saleBody); err != nil {
		t.Fatalf("decode sale: %v", err)
	}
	sale := saleBody.Sale
	if sale.TotalCents != 2000 {
		t.Fatalf("expected total 2000, got %d", sale.TotalCents)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/sales/invoice/"+sale.InvoiceNumber, cashier, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("invoice lookup failed: %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPut, "/api/v1/sales/"+sale.ID, cashier, csrf, domain.SaleUpdateRequest{
		Header: domain.SaleHeaderUpdate{
			CustomerName:  "Asha",
			CustomerPhone: "9990001111",
			TaxRate:       &zero,
		},
		Items: []domain.SaleItemInput{
			{ID: sale.Items[0].ID, ProductID: productID, Size: "M", Quantity: 5},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("sale edit failed: %d (body: %s)", rec.Code, rec.Body.String())
	}
	if err := json.NewDecoder(rec.Body).Decode(&saleBody); err != nil {
		t.Fatalf("decode edited sale: %v", err)
	}
	if saleBody.Sale.TotalCents != 5000 {
		t.Fatalf("expected recomputed total 5000, got %d", saleBody.Sale.TotalCents)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/products/"+productID, cashier, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("product fetch failed: %d", rec.Code)
	}
	var productBody struct {
		Product domain.Product `json:"product"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&productBody); err != nil {
		t.Fatalf("decode product: %v", err)
	}
	if productBody.Product.TotalStock != 0 {
		t.Fatalf("expected stock drained to 0 after edit, got %d", productBody.Product.TotalStock)
	}
}

func TestSaleInsufficientStockReturnsConflict(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	admin := loginToken(t, handler, "admin", "admin123")
	csrf := csrfToken(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/products", admin, csrf, domain.ProductCreateRequest{
		Name:            "Linen Shirt",
		ReferenceNumber: "FH-LINEN-01",
		PriceCents:      1000,
		Category:        "tops",
		Variants:        []domain.VariantInput{{Size: "M", Stock: 1}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("product create failed: %d", rec.Code)
	}
	var createBody struct {
		Product domain.Product `json:"product"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&createBody); err != nil {
		t.Fatalf("decode product: %v", err)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales", admin, csrf, domain.SaleCreateRequest{
		Items: []domain.CartItem{
			{ProductID: createBody.Product.ID, Size: "M", Quantity: 2, UnitPriceCents: 1000},
		},
		Customer: domain.CustomerInfo{Name: "Asha", Phone: "9990001111"},
		Payment:  domain.PaymentInfo{Method: "cash"},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for oversell, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	admin := loginToken(t, handler, "admin", "admin123")
	csrf := csrfToken(t, handler)

	rate := 0.05
	rec := doJSON(t, handler, http.MethodPut, "/api/v1/settings", admin, csrf, domain.ShopSettingsUpdateRequest{
		TaxRate: &rate,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("settings update failed: %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/settings", admin, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("settings fetch failed: %d", rec.Code)
	}
	var body struct {
		Settings domain.ShopSettings `json:"settings"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if body.Settings.TaxRate != 0.05 {
		t.Fatalf("expected tax rate 0.05, got %v", body.Settings.TaxRate)
	}
}

func TestReportsRequireAdmin(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	cashier := loginToken(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/reports/low-stock", cashier, "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier report access, got %d", rec.Code)
	}
}

func TestSalesSummaryDateValidation(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	admin := loginToken(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/reports/summary?from=notadate&to=2026-01-31", admin, "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", rec.Code)
	}

	today := time.Now().UTC().Format("2006-01-02")
	rec = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/v1/reports/summary?from=%s&to=%s", today, today), admin, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for same-day range, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestCreateAndListCashiers(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	admin := loginToken(t, handler, "admin", "admin123")
	csrf := csrfToken(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/users/cashiers", admin, csrf, domain.CashierCreateRequest{
		Username: "kavita",
		Password: "secret99",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("cashier create failed: %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/users/cashiers", admin, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cashier list failed: %d", rec.Code)
	}
	var body struct {
		Cashiers []domain.CashierUser `json:"cashiers"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode cashiers: %v", err)
	}
	found := false
	for _, c := range body.Cashiers {
		if c.Username == "kavita" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected new cashier in listing")
	}
}
