package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fashionhub/backend/internal/domain"
	"fashionhub/backend/internal/reconcile"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrProductNotFound   = errors.New("product not found")
	ErrVariantNotFound   = errors.New("variant not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateInvoice  = errors.New("duplicate invoice number")
	ErrProductInUse      = errors.New("product is referenced by sale items")
	ErrCustomerHasSales  = errors.New("customer has recorded sales")
)

// InsufficientStockError carries enough context for the presentation layer
// to render a useful message. It matches ErrInsufficientStock under errors.Is.
type InsufficientStockError struct {
	ProductID string
	Size      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s size %s: have %d, need %d", e.ProductID, e.Size, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Repository is the durable store behind the engine. CommitSale and
// ReconcileSale are each a single all-or-nothing unit of work spanning the
// customer, the sale header, its line items and every touched variant row;
// a partial application on failure is a bug, not a degraded mode.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProductByReference(ctx context.Context, referenceNumber string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product, replaceVariants bool) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	// AdjustStock applies one signed delta to a variant counter as an atomic
	// conditional update; it never drives stock negative.
	AdjustStock(ctx context.Context, productID string, size string, delta int) (int, error)
	// AdjustStockBatch applies all deltas or none of them.
	AdjustStockBatch(ctx context.Context, deltas []domain.StockDelta) error

	// UpsertCustomer inserts or updates by phone in a single atomic step so
	// concurrent commits never create duplicate rows for one phone.
	UpsertCustomer(ctx context.Context, name string, phone string, email string) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
	ListSalesByCustomer(ctx context.Context, customerID string) ([]domain.Sale, error)

	// CommitSale upserts the customer, inserts the sale header and items, and
	// decrements stock per line, all in one transaction. Returns
	// ErrDuplicateInvoice when the invoice number is already taken; the
	// caller retries with a fresh number.
	CommitSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	// ReconcileSale applies a computed edit plan together with the header
	// update in one transaction.
	ReconcileSale(ctx context.Context, saleID string, header domain.Sale, plan reconcile.Plan) (*domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	GetSaleByInvoiceNumber(ctx context.Context, invoiceNumber string) (*domain.Sale, error)
	ListSales(ctx context.Context, limit int) ([]domain.Sale, error)

	GetSettings(ctx context.Context) (*domain.ShopSettings, error)
	UpdateSettings(ctx context.Context, settings domain.ShopSettings) (*domain.ShopSettings, error)

	ListLowStockVariants(ctx context.Context, threshold int) ([]domain.LowStockVariant, error)
	GetSalesSummary(ctx context.Context, from time.Time, to time.Time) (domain.SalesSummary, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
