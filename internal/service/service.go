package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"fashionhub/backend/internal/cache"
	"fashionhub/backend/internal/domain"
	"fashionhub/backend/internal/reconcile"
	"fashionhub/backend/internal/store"
	"fashionhub/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

const catalogCacheKey = "catalog:products"

// invoiceRetryLimit bounds how many fresh invoice numbers a single commit
// will try after duplicate collisions before giving up.
const invoiceRetryLimit = 5

type Options struct {
	DefaultTaxRate    float64
	CurrencyCode      string
	CurrencySymbol    string
	CatalogCacheTTL   time.Duration
	LowStockThreshold int
}

type Service struct {
	repo              store.Repository
	catalog           cache.CatalogCache
	defaultTaxRate    float64
	currencyCode      string
	currencySymbol    string
	catalogCacheTTL   time.Duration
	lowStockThreshold int
}

func New(repo store.Repository, catalog cache.CatalogCache, opts Options) *Service {
	if catalog == nil {
		catalog = cache.NoopCatalogCache{}
	}
	if opts.DefaultTaxRate < 0 || opts.DefaultTaxRate > 1 {
		opts.DefaultTaxRate = 0.18
	}
	if opts.CurrencyCode == "" {
		opts.CurrencyCode = "INR"
	}
	if opts.CurrencySymbol == "" {
		opts.CurrencySymbol = "₹"
	}
	if opts.CatalogCacheTTL < 1 {
		opts.CatalogCacheTTL = 30 * time.Second
	}
	if opts.LowStockThreshold < 0 {
		opts.LowStockThreshold = 5
	}

	return &Service{
		repo:              repo,
		catalog:           catalog,
		defaultTaxRate:    opts.DefaultTaxRate,
		currencyCode:      opts.CurrencyCode,
		currencySymbol:    opts.CurrencySymbol,
		catalogCacheTTL:   opts.CatalogCacheTTL,
		lowStockThreshold: opts.LowStockThreshold,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	cached, hit, err := s.catalog.Get(ctx, catalogCacheKey)
	if err != nil {
		log.Printf("[service] WARN: catalog cache read failed: %v", err)
	}
	if hit {
		return cached, nil
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.Set(ctx, catalogCacheKey, products, s.catalogCacheTTL); err != nil {
		log.Printf("[service] WARN: catalog cache write failed: %v", err)
	}
	return products, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) GetProductByReference(ctx context.Context, referenceNumber string) (domain.Product, error) {
	referenceNumber = strings.ToUpper(strings.TrimSpace(referenceNumber))
	if referenceNumber == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	product, err := s.repo.GetProductByReference(ctx, referenceNumber)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.ReferenceNumber = strings.ToUpper(strings.TrimSpace(req.ReferenceNumber))
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" || req.ReferenceNumber == "" || req.PriceCents < 1 {
		return domain.Product{}, store.ErrInvalidInput
	}
	if len(req.Variants) == 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	product := domain.Product{
		Name:            req.Name,
		ReferenceNumber: req.ReferenceNumber,
		PriceCents:      req.PriceCents,
		Category:        req.Category,
	}
	seen := make(map[string]bool, len(req.Variants))
	for _, v := range req.Variants {
		size := strings.TrimSpace(v.Size)
		if size == "" || v.Stock < 0 || seen[size] {
			return domain.Product{}, store.ErrInvalidInput
		}
		seen[size] = true
		product.Variants = append(product.Variants, domain.ProductVariant{Size: size, Stock: v.Stock})
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateCatalog(ctx)
	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("ref=%s,price=%d,variants=%d", created.ReferenceNumber, created.PriceCents, len(created.Variants)))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, store.ErrInvalidInput
	}

	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.ReferenceNumber != nil {
		ref := strings.ToUpper(strings.TrimSpace(*req.ReferenceNumber))
		if ref == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.ReferenceNumber = ref
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 1 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.PriceCents = *req.PriceCents
	}
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}

	replaceVariants := req.Variants != nil
	if replaceVariants {
		if len(req.Variants) == 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Variants = nil
		seen := make(map[string]bool, len(req.Variants))
		for _, v := range req.Variants {
			size := strings.TrimSpace(v.Size)
			if size == "" || v.Stock < 0 || seen[size] {
				return domain.Product{}, store.ErrInvalidInput
			}
			seen[size] = true
			updated.Variants = append(updated.Variants, domain.ProductVariant{Size: size, Stock: v.Stock})
		}
	}

	saved, err := s.repo.UpdateProduct(ctx, updated, replaceVariants)
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateCatalog(ctx)
	s.logAudit(ctx, "product_update", "product", saved.ID, fmt.Sprintf("ref=%s,price=%d,replace_variants=%t", saved.ReferenceNumber, saved.PriceCents, replaceVariants))
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return fmt.Errorf("admin role required")
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return store.ErrInvalidInput
	}

	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.invalidateCatalog(ctx)
	s.logAudit(ctx, "product_delete", "product", id, "")
	return nil
}

func (s *Service) AdjustStock(ctx context.Context, productID string, req domain.StockAdjustmentRequest) (domain.StockAdjustmentResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.StockAdjustmentResponse{}, fmt.Errorf("admin role required")
	}

	productID = strings.TrimSpace(productID)
	req.Size = strings.TrimSpace(req.Size)
	if productID == "" || req.Size == "" || req.Delta == 0 {
		return domain.StockAdjustmentResponse{}, store.ErrInvalidInput
	}

	stock, err := s.repo.AdjustStock(ctx, productID, req.Size, req.Delta)
	if err != nil {
		return domain.StockAdjustmentResponse{}, err
	}

	s.invalidateCatalog(ctx)
	s.logAudit(ctx, "stock_adjust", "variant", productID+"/"+req.Size, fmt.Sprintf("delta=%d,stock=%d", req.Delta, stock))
	return domain.StockAdjustmentResponse{ProductID: productID, Size: req.Size, Stock: stock}, nil
}

func (s *Service) UpsertCustomer(ctx context.Context, req domain.CustomerUpsertRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Phone == "" {
		return domain.Customer{}, store.ErrInvalidInput
	}

	customer, err := s.repo.UpsertCustomer(ctx, req.Name, req.Phone, req.Email)
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, "customer_upsert", "customer", customer.ID, fmt.Sprintf("phone=%s", customer.Phone))
	return *customer, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) GetCustomerDetail(ctx context.Context, id string) (domain.CustomerDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.CustomerDetail{}, store.ErrInvalidInput
	}

	customer, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return domain.CustomerDetail{}, err
	}
	sales, err := s.repo.ListSalesByCustomer(ctx, id)
	if err != nil {
		return domain.CustomerDetail{}, err
	}
	return domain.CustomerDetail{Customer: *customer, Sales: sales}, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return fmt.Errorf("admin role required")
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return store.ErrInvalidInput
	}

	if err := s.repo.DeleteCustomer(ctx, id); err != nil {
		return err
	}

	s.logAudit(ctx, "customer_delete", "customer", id, "")
	return nil
}

func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	if len(req.Items) == 0 {
		return domain.Sale{}, store.ErrInvalidInput
	}

	req.Customer.Name = strings.TrimSpace(req.Customer.Name)
	req.Customer.Phone = strings.TrimSpace(req.Customer.Phone)
	req.Customer.Email = strings.TrimSpace(req.Customer.Email)
	if req.Customer.Name == "" || req.Customer.Phone == "" {
		return domain.Sale{}, store.ErrInvalidInput
	}

	items := make([]domain.SaleItem, 0, len(req.Items))
	for _, item := range req.Items {
		item.ProductID = strings.TrimSpace(item.ProductID)
		item.Size = strings.TrimSpace(item.Size)
		if item.ProductID == "" || item.Size == "" || item.Quantity < 1 || item.UnitPriceCents < 1 {
			return domain.Sale{}, store.ErrInvalidInput
		}
		items = append(items, domain.SaleItem{
			ProductID:       item.ProductID,
			Size:            item.Size,
			Quantity:        item.Quantity,
			UnitPriceCents:  item.UnitPriceCents,
			TotalPriceCents: item.UnitPriceCents * int64(item.Quantity),
		})
	}

	taxRate, err := s.resolveTaxRate(ctx, req.TaxRate)
	if err != nil {
		return domain.Sale{}, err
	}

	subtotalCents := reconcile.CartSubtotal(req.Items)
	taxCents, totalCents := reconcile.Totals(subtotalCents, taxRate)

	method := strings.TrimSpace(req.Payment.Method)
	if method == "" {
		method = "cash"
	}

	sale := domain.Sale{
		InvoiceNumber: xid.Invoice(),
		CustomerName:  req.Customer.Name,
		CustomerPhone: req.Customer.Phone,
		CustomerEmail: req.Customer.Email,
		TotalCents:    totalCents,
		TaxCents:      taxCents,
		PaymentMethod: method,
		PaymentID:     strings.TrimSpace(req.Payment.PaymentID),
		Items:         items,
	}
	if req.SaleDate != nil {
		sale.CreatedAt = req.SaleDate.UTC()
	}

	var committed *domain.Sale
	for attempt := 0; attempt < invoiceRetryLimit; attempt++ {
		committed, err = s.repo.CommitSale(ctx, sale)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrDuplicateInvoice) {
			return domain.Sale{}, err
		}
		sale.InvoiceNumber = xid.Retry()
	}
	if err != nil {
		return domain.Sale{}, err
	}

	s.invalidateCatalog(ctx)
	s.logAudit(ctx, "sale_commit", "sale", committed.ID, fmt.Sprintf("invoice=%s,total=%d,items=%d", committed.InvoiceNumber, committed.TotalCents, len(committed.Items)))
	return *committed, nil
}

func (s *Service) UpdateSale(ctx context.Context, id string, req domain.SaleUpdateRequest) (domain.Sale, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Sale{}, store.ErrInvalidInput
	}

	req.Header.CustomerName = strings.TrimSpace(req.Header.CustomerName)
	req.Header.CustomerPhone = strings.TrimSpace(req.Header.CustomerPhone)
	req.Header.CustomerEmail = strings.TrimSpace(req.Header.CustomerEmail)
	if req.Header.CustomerName == "" || req.Header.CustomerPhone == "" {
		return domain.Sale{}, store.ErrInvalidInput
	}

	existing, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}

	plan, err := reconcile.Diff(existing.Items, req.Items)
	if err != nil {
		return domain.Sale{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}

	taxRate, err := s.resolveTaxRate(ctx, req.Header.TaxRate)
	if err != nil {
		return domain.Sale{}, err
	}
	taxCents, totalCents := reconcile.Totals(plan.SubtotalCents, taxRate)

	method := strings.TrimSpace(req.Header.PaymentMethod)
	if method == "" {
		method = existing.PaymentMethod
	}

	header := domain.Sale{
		CustomerName:  req.Header.CustomerName,
		CustomerPhone: req.Header.CustomerPhone,
		CustomerEmail: req.Header.CustomerEmail,
		PaymentMethod: method,
		PaymentID:     strings.TrimSpace(req.Header.PaymentID),
		TotalCents:    totalCents,
		TaxCents:      taxCents,
	}
	if req.Header.SaleDate != nil {
		header.CreatedAt = req.Header.SaleDate.UTC()
	}

	updated, err := s.repo.ReconcileSale(ctx, id, header, plan)
	if err != nil {
		return domain.Sale{}, err
	}

	if !plan.IsNoop() {
		s.invalidateCatalog(ctx)
	}
	s.logAudit(ctx, "sale_reconcile", "sale", updated.ID, fmt.Sprintf("removed=%d,modified=%d,added=%d,total=%d", len(plan.Removed), len(plan.Modified), len(plan.Added), updated.TotalCents))
	return *updated, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Sale{}, store.ErrInvalidInput
	}
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) GetSaleByInvoice(ctx context.Context, invoiceNumber string) (domain.Sale, error) {
	invoiceNumber = strings.TrimSpace(invoiceNumber)
	if invoiceNumber == "" {
		return domain.Sale{}, store.ErrInvalidInput
	}
	sale, err := s.repo.GetSaleByInvoiceNumber(ctx, invoiceNumber)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListSales(ctx, limit)
}

func (s *Service) GetSettings(ctx context.Context) (domain.ShopSettings, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.defaultSettings(), nil
		}
		return domain.ShopSettings{}, err
	}
	return *settings, nil
}

func (s *Service) UpdateSettings(ctx context.Context, req domain.ShopSettingsUpdateRequest) (domain.ShopSettings, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.ShopSettings{}, fmt.Errorf("admin role required")
	}

	current, err := s.GetSettings(ctx)
	if err != nil {
		return domain.ShopSettings{}, err
	}

	if req.ShopName != nil {
		current.ShopName = strings.TrimSpace(*req.ShopName)
	}
	if req.Address != nil {
		current.Address = strings.TrimSpace(*req.Address)
	}
	if req.Phone != nil {
		current.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		current.Email = strings.TrimSpace(*req.Email)
	}
	if req.GSTNo != nil {
		current.GSTNo = strings.TrimSpace(*req.GSTNo)
	}
	if req.CurrencyCode != nil {
		current.CurrencyCode = strings.TrimSpace(*req.CurrencyCode)
	}
	if req.CurrencySymbol != nil {
		current.CurrencySymbol = strings.TrimSpace(*req.CurrencySymbol)
	}
	if req.TaxRate != nil {
		if *req.TaxRate < 0 || *req.TaxRate > 1 {
			return domain.ShopSettings{}, store.ErrInvalidInput
		}
		current.TaxRate = *req.TaxRate
	}
	if req.ReturnPolicy != nil {
		current.ReturnPolicy = strings.TrimSpace(*req.ReturnPolicy)
	}

	saved, err := s.repo.UpdateSettings(ctx, current)
	if err != nil {
		return domain.ShopSettings{}, err
	}

	s.logAudit(ctx, "settings_update", "settings", "shop", fmt.Sprintf("tax_rate=%.4f,currency=%s", saved.TaxRate, saved.CurrencyCode))
	return *saved, nil
}

func (s *Service) LowStockReport(ctx context.Context, threshold int) ([]domain.LowStockVariant, error) {
	if threshold < 0 {
		threshold = s.lowStockThreshold
	}
	return s.repo.ListLowStockVariants(ctx, threshold)
}

func (s *Service) SalesSummary(ctx context.Context, from time.Time, to time.Time) (domain.SalesSummary, error) {
	if !from.Before(to) {
		return domain.SalesSummary{}, store.ErrInvalidInput
	}
	return s.repo.GetSalesSummary(ctx, from, to)
}

// resolveTaxRate picks the per-sale override when present, otherwise the
// shop's configured rate.
func (s *Service) resolveTaxRate(ctx context.Context, override *float64) (float64, error) {
	if override != nil {
		if *override < 0 || *override > 1 {
			return 0, store.ErrInvalidInput
		}
		return *override, nil
	}

	settings, err := s.GetSettings(ctx)
	if err != nil {
		return 0, err
	}
	return settings.TaxRate, nil
}

func (s *Service) defaultSettings() domain.ShopSettings {
	return domain.ShopSettings{
		ShopName:       "Fashion Hub",
		CurrencyCode:   s.currencyCode,
		CurrencySymbol: s.currencySymbol,
		TaxRate:        s.defaultTaxRate,
	}
}

func (s *Service) invalidateCatalog(ctx context.Context) {
	if err := s.catalog.Invalidate(ctx, catalogCacheKey); err != nil {
		log.Printf("[service] WARN: catalog cache invalidation failed: %v", err)
	}
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}
	log.Printf("[audit] actor=%s role=%s action=%s entity=%s/%s detail=%s", actor.Username, actor.Role, action, entityType, entityID, detail)
}
