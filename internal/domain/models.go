package domain

import "time"

// Product is a catalog entry. Stock is never stored on the product itself;
// it lives on the per-size variants.
type Product struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	ReferenceNumber string           `json:"reference_number"`
	PriceCents      int64            `json:"price_cents"`
	Category        string           `json:"category"`
	Variants        []ProductVariant `json:"variants"`
	TotalStock      int              `json:"total_stock"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ProductVariant is the unit of all stock arithmetic. Size is unique per
// product; Stock never goes below zero.
type ProductVariant struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Stock     int    `json:"stock"`
}

type VariantInput struct {
	Size  string `json:"size"`
	Stock int    `json:"stock"`
}

type ProductCreateRequest struct {
	Name            string         `json:"name"`
	ReferenceNumber string         `json:"reference_number"`
	PriceCents      int64          `json:"price_cents"`
	Category        string         `json:"category"`
	Variants        []VariantInput `json:"variants"`
}

type ProductUpdateRequest struct {
	Name            *string        `json:"name,omitempty"`
	ReferenceNumber *string        `json:"reference_number,omitempty"`
	PriceCents      *int64         `json:"price_cents,omitempty"`
	Category        *string        `json:"category,omitempty"`
	Variants        []VariantInput `json:"variants,omitempty"`
}

// StockAdjustmentRequest is a direct ledger adjustment from catalog
// management, outside of any sale.
type StockAdjustmentRequest struct {
	Size  string `json:"size"`
	Delta int    `json:"delta"`
}

type StockAdjustmentResponse struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Stock     int    `json:"stock"`
}

// StockDelta is one signed adjustment against a variant counter.
// Positive restocks, negative consumes.
type StockDelta struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Delta     int    `json:"delta"`
}

// Customer identity is keyed by phone: upserts with the same phone always
// land on the same row, even when the name differs.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CustomerUpsertRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type CustomerDetail struct {
	Customer Customer `json:"customer"`
	Sales    []Sale   `json:"sales"`
}

// CartItem is one immutable line of a draft cart. UnitPriceCents is the
// price shown to the customer at sale time and is frozen into the sale.
type CartItem struct {
	ProductID      string `json:"product_id"`
	Size           string `json:"size"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type CustomerInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// PaymentInfo is an opaque confirmation: the engine records the method and
// an optional external reference but never talks to a gateway.
type PaymentInfo struct {
	Method    string `json:"method"`
	PaymentID string `json:"payment_id,omitempty"`
}

type SaleCreateRequest struct {
	Items    []CartItem   `json:"items"`
	Customer CustomerInfo `json:"customer"`
	Payment  PaymentInfo  `json:"payment"`
	TaxRate  *float64     `json:"tax_rate,omitempty"`
	SaleDate *time.Time   `json:"sale_date,omitempty"`
}

// SaleItem is a committed line. UnitPriceCents and TotalPriceCents are
// frozen at commit and never follow later product price changes.
type SaleItem struct {
	ID              string `json:"id"`
	SaleID          string `json:"sale_id"`
	ProductID       string `json:"product_id"`
	ProductName     string `json:"product_name,omitempty"`
	ReferenceNumber string `json:"reference_number,omitempty"`
	Size            string `json:"size"`
	Quantity        int    `json:"quantity"`
	UnitPriceCents  int64  `json:"unit_price_cents"`
	TotalPriceCents int64  `json:"total_price_cents"`
}

// Sale keeps denormalized customer fields for invoice fidelity: the invoice
// shows what was true at sale time even if the customer record changes.
type Sale struct {
	ID            string     `json:"id"`
	InvoiceNumber string     `json:"invoice_number"`
	CustomerID    string     `json:"customer_id"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	CustomerEmail string     `json:"customer_email,omitempty"`
	TotalCents    int64      `json:"total_cents"`
	TaxCents      int64      `json:"tax_cents"`
	PaymentMethod string     `json:"payment_method"`
	PaymentID     string     `json:"payment_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	Items         []SaleItem `json:"items"`
}

// SaleItemInput identifies a desired line on edit: by persisted line id
// when it already exists, else by (product_id, size).
type SaleItemInput struct {
	ID             string `json:"id,omitempty"`
	ProductID      string `json:"product_id"`
	Size           string `json:"size"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents,omitempty"`
}

type SaleHeaderUpdate struct {
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	CustomerEmail string     `json:"customer_email"`
	PaymentMethod string     `json:"payment_method"`
	PaymentID     string     `json:"payment_id,omitempty"`
	SaleDate      *time.Time `json:"sale_date,omitempty"`
	TaxRate       *float64   `json:"tax_rate,omitempty"`
}

type SaleUpdateRequest struct {
	Header SaleHeaderUpdate `json:"header"`
	Items  []SaleItemInput  `json:"items"`
}

// ShopSettings feeds the totals arithmetic and invoice rendering done by
// collaborators. TaxRate is a fraction (0.18 = 18%).
type ShopSettings struct {
	ShopName       string    `json:"shop_name"`
	Address        string    `json:"address"`
	Phone          string    `json:"phone"`
	Email          string    `json:"email"`
	GSTNo          string    `json:"gst_no"`
	CurrencyCode   string    `json:"currency_code"`
	CurrencySymbol string    `json:"currency_symbol"`
	TaxRate        float64   `json:"tax_rate"`
	ReturnPolicy   string    `json:"return_policy"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ShopSettingsUpdateRequest struct {
	ShopName       *string  `json:"shop_name,omitempty"`
	Address        *string  `json:"address,omitempty"`
	Phone          *string  `json:"phone,omitempty"`
	Email          *string  `json:"email,omitempty"`
	GSTNo          *string  `json:"gst_no,omitempty"`
	CurrencyCode   *string  `json:"currency_code,omitempty"`
	CurrencySymbol *string  `json:"currency_symbol,omitempty"`
	TaxRate        *float64 `json:"tax_rate,omitempty"`
	ReturnPolicy   *string  `json:"return_policy,omitempty"`
}

type LowStockVariant struct {
	ProductID       string `json:"product_id"`
	ProductName     string `json:"product_name"`
	ReferenceNumber string `json:"reference_number"`
	Size            string `json:"size"`
	Stock           int    `json:"stock"`
}

type SalesSummary struct {
	From         string `json:"from"`
	To           string `json:"to"`
	Sales        int64  `json:"sales"`
	RevenueCents int64  `json:"revenue_cents"`
	TaxCents     int64  `json:"tax_cents"`
	UnitsSold    int64  `json:"units_sold"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)
