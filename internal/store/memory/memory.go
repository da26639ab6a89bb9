package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"fashionhub/backend/internal/domain"
	"fashionhub/backend/internal/reconcile"
	"fashionhub/backend/internal/store"
	"fashionhub/backend/internal/xid"
)

type productRecord struct {
	product  domain.Product
	variants map[string]*domain.ProductVariant
}

type Store struct {
	mu                sync.RWMutex
	products          map[string]*productRecord
	productIDByRef    map[string]string
	customersByID     map[string]domain.Customer
	customerIDByPhone map[string]string
	salesByID         map[string]*domain.Sale
	saleIDByInvoice   map[string]string
	settings          domain.ShopSettings
	usersByUsername   map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"cashier", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		products:          make(map[string]*productRecord),
		productIDByRef:    make(map[string]string),
		customersByID:     make(map[string]domain.Customer),
		customerIDByPhone: make(map[string]string),
		salesByID:         make(map[string]*domain.Sale),
		saleIDByInvoice:   make(map[string]string),
		settings: domain.ShopSettings{
			ShopName:       "Fashion Hub",
			Address:        "Fashion Street, India",
			Phone:          "123-456-7890",
			Email:          "info@fashionhub.com",
			GSTNo:          "GST123456789",
			CurrencyCode:   "INR",
			CurrencySymbol: "₹",
			TaxRate:        0.18,
			ReturnPolicy:   "For returns and exchanges, please visit our store within 7 days with the original receipt.",
			UpdatedAt:      time.Now().UTC(),
		},
		usersByUsername: seedUsers(),
	}
}

func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	seed := []struct {
		id       string
		name     string
		ref      string
		price    int64
		category string
		variants []domain.VariantInput
	}{
		{"prod-tshirt-01", "Classic Cotton Tee", "FH-TSHIRT-01", 79900, "tops", []domain.VariantInput{{Size: "S", Stock: 24}, {Size: "M", Stock: 30}, {Size: "L", Stock: 18}}},
		{"prod-denim-01", "Slim Fit Denim", "FH-DENIM-01", 249900, "bottoms", []domain.VariantInput{{Size: "30", Stock: 12}, {Size: "32", Stock: 16}, {Size: "34", Stock: 9}}},
		{"prod-kurta-01", "Embroidered Kurta", "FH-KURTA-01", 189900, "ethnic", []domain.VariantInput{{Size: "M", Stock: 14}, {Size: "L", Stock: 11}}},
		{"prod-jacket-01", "Bomber Jacket", "FH-JACKET-01", 399900, "outerwear", []domain.VariantInput{{Size: "M", Stock: 7}, {Size: "L", Stock: 5}, {Size: "XL", Stock: 3}}},
		{"prod-saree-01", "Silk Blend Saree", "FH-SAREE-01", 549900, "ethnic", []domain.VariantInput{{Size: "Free", Stock: 8}}},
		{"prod-shirt-01", "Oxford Shirt", "FH-SHIRT-01", 159900, "tops", []domain.VariantInput{{Size: "S", Stock: 10}, {Size: "M", Stock: 20}, {Size: "L", Stock: 15}, {Size: "XL", Stock: 6}}},
	}

	for _, p := range seed {
		rec := &productRecord{
			product: domain.Product{
				ID:              p.id,
				Name:            p.name,
				ReferenceNumber: p.ref,
				PriceCents:      p.price,
				Category:        p.category,
				CreatedAt:       now,
				UpdatedAt:       now,
			},
			variants: make(map[string]*domain.ProductVariant, len(p.variants)),
		}
		for _, v := range p.variants {
			rec.variants[v.Size] = &domain.ProductVariant{
				ID:        xid.New("var"),
				ProductID: p.id,
				Size:      v.Size,
				Stock:     v.Stock,
			}
		}
		s.products[p.id] = rec
		s.productIDByRef[p.ref] = p.id
	}

	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, rec := range s.products {
		products = append(products, cloneProduct(rec))
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.Name, b.Name)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})

	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.products[id]
	if !exists {
		return nil, store.ErrProductNotFound
	}
	product := cloneProduct(rec)
	return &product, nil
}

func (s *Store) GetProductByReference(_ context.Context, referenceNumber string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.productIDByRef[referenceNumber]
	if !exists {
		return nil, store.ErrProductNotFound
	}
	product := cloneProduct(s.products[id])
	return &product, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.ReferenceNumber == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.productIDByRef[product.ReferenceNumber]; exists {
		return nil, store.ErrInvalidInput
	}

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	rec := &productRecord{
		product:  product,
		variants: make(map[string]*domain.ProductVariant, len(product.Variants)),
	}
	rec.product.Variants = nil
	for _, v := range product.Variants {
		if v.Size == "" || v.Stock < 0 {
			return nil, store.ErrInvalidInput
		}
		if _, dup := rec.variants[v.Size]; dup {
			return nil, store.ErrInvalidInput
		}
		id := v.ID
		if id == "" {
			id = xid.New("var")
		}
		rec.variants[v.Size] = &domain.ProductVariant{
			ID:        id,
			ProductID: product.ID,
			Size:      v.Size,
			Stock:     v.Stock,
		}
	}

	s.products[product.ID] = rec
	s.productIDByRef[product.ReferenceNumber] = product.ID

	created := cloneProduct(rec)
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product, replaceVariants bool) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.ReferenceNumber == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.products[product.ID]
	if !exists {
		return nil, store.ErrProductNotFound
	}
	if ownerID, taken := s.productIDByRef[product.ReferenceNumber]; taken && ownerID != product.ID {
		return nil, store.ErrInvalidInput
	}

	delete(s.productIDByRef, rec.product.ReferenceNumber)
	rec.product.Name = product.Name
	rec.product.ReferenceNumber = product.ReferenceNumber
	rec.product.PriceCents = product.PriceCents
	rec.product.Category = product.Category
	rec.product.UpdatedAt = time.Now().UTC()
	s.productIDByRef[product.ReferenceNumber] = product.ID

	if replaceVariants {
		variants := make(map[string]*domain.ProductVariant, len(product.Variants))
		for _, v := range product.Variants {
			if v.Size == "" || v.Stock < 0 {
				return nil, store.ErrInvalidInput
			}
			if _, dup := variants[v.Size]; dup {
				return nil, store.ErrInvalidInput
			}
			// Keep the persisted variant id when the size survives the edit.
			id := xid.New("var")
			if existing, ok := rec.variants[v.Size]; ok {
				id = existing.ID
			}
			variants[v.Size] = &domain.ProductVariant{
				ID:        id,
				ProductID: product.ID,
				Size:      v.Size,
				Stock:     v.Stock,
			}
		}
		rec.variants = variants
	}

	updated := cloneProduct(rec)
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.products[id]
	if !exists {
		return store.ErrProductNotFound
	}

	for _, sale := range s.salesByID {
		for _, item := range sale.Items {
			if item.ProductID == id {
				return store.ErrProductInUse
			}
		}
	}

	delete(s.productIDByRef, rec.product.ReferenceNumber)
	delete(s.products, id)
	return nil
}

func (s *Store) AdjustStock(_ context.Context, productID string, size string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjustStockLocked(productID, size, delta)
}

func (s *Store) AdjustStockBatch(_ context.Context, deltas []domain.StockDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkDeltasLocked(deltas); err != nil {
		return err
	}
	for _, d := range deltas {
		if _, err := s.adjustStockLocked(d.ProductID, d.Size, d.Delta); err != nil {
			return err
		}
	}
	return nil
}

// adjustStockLocked mutates exactly one variant counter. Callers hold mu.
func (s *Store) adjustStockLocked(productID string, size string, delta int) (int, error) {
	rec, exists := s.products[productID]
	if !exists {
		return 0, store.ErrProductNotFound
	}
	variant, exists := rec.variants[size]
	if !exists {
		return 0, store.ErrVariantNotFound
	}
	if variant.Stock+delta < 0 {
		return 0, &store.InsufficientStockError{
			ProductID: productID,
			Size:      size,
			Available: variant.Stock,
			Requested: -delta,
		}
	}
	variant.Stock += delta
	return variant.Stock, nil
}

// checkDeltasLocked verifies that applying every delta, in order, keeps all
// counters non-negative, without mutating anything. Callers hold mu.
func (s *Store) checkDeltasLocked(deltas []domain.StockDelta) error {
	projected := make(map[string]int, len(deltas))
	for _, d := range deltas {
		rec, exists := s.products[d.ProductID]
		if !exists {
			return store.ErrProductNotFound
		}
		variant, exists := rec.variants[d.Size]
		if !exists {
			return store.ErrVariantNotFound
		}
		key := d.ProductID + "\x00" + d.Size
		stock, seen := projected[key]
		if !seen {
			stock = variant.Stock
		}
		stock += d.Delta
		if stock < 0 {
			return &store.InsufficientStockError{
				ProductID: d.ProductID,
				Size:      d.Size,
				Available: variant.Stock,
				Requested: -d.Delta,
			}
		}
		projected[key] = stock
	}
	return nil
}

func (s *Store) UpsertCustomer(_ context.Context, name string, phone string, email string) (*domain.Customer, error) {
	if name == "" || phone == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	customer := s.upsertCustomerLocked(name, phone, email)
	return &customer, nil
}

// upsertCustomerLocked is the single atomic insert-or-update on phone.
// Callers hold mu.
func (s *Store) upsertCustomerLocked(name string, phone string, email string) domain.Customer {
	now := time.Now().UTC()
	if id, exists := s.customerIDByPhone[phone]; exists {
		customer := s.customersByID[id]
		customer.Name = name
		customer.Email = email
		customer.UpdatedAt = now
		s.customersByID[id] = customer
		return customer
	}

	customer := domain.Customer{
		ID:        xid.New("cust"),
		Name:      name,
		Phone:     phone,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.customersByID[customer.ID] = customer
	s.customerIDByPhone[phone] = customer.ID
	return customer
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customersByID))
	for _, c := range s.customersByID {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return customers, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := customer
	return &copied, nil
}

func (s *Store) DeleteCustomer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, exists := s.customersByID[id]
	if !exists {
		return store.ErrNotFound
	}
	for _, sale := range s.salesByID {
		if sale.CustomerID == id {
			return store.ErrCustomerHasSales
		}
	}

	delete(s.customerIDByPhone, customer.Phone)
	delete(s.customersByID, id)
	return nil
}

func (s *Store) ListSalesByCustomer(_ context.Context, customerID string) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, 8)
	for _, sale := range s.salesByID {
		if sale.CustomerID == customerID {
			sales = append(sales, cloneSale(sale))
		}
	}
	sortSalesDesc(sales)
	return sales, nil
}

func (s *Store) CommitSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 || sale.CustomerName == "" || sale.CustomerPhone == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.saleIDByInvoice[sale.InvoiceNumber]; taken {
		return nil, store.ErrDuplicateInvoice
	}

	deltas := make([]domain.StockDelta, 0, len(sale.Items))
	for _, item := range sale.Items {
		if item.Quantity < 1 {
			return nil, store.ErrInvalidInput
		}
		deltas = append(deltas, domain.StockDelta{
			ProductID: item.ProductID,
			Size:      item.Size,
			Delta:     -item.Quantity,
		})
	}
	if err := s.checkDeltasLocked(deltas); err != nil {
		return nil, err
	}

	customer := s.upsertCustomerLocked(sale.CustomerName, sale.CustomerPhone, sale.CustomerEmail)
	sale.CustomerID = customer.ID

	for _, d := range deltas {
		if _, err := s.adjustStockLocked(d.ProductID, d.Size, d.Delta); err != nil {
			return nil, err
		}
	}

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	for i := range sale.Items {
		if sale.Items[i].ID == "" {
			sale.Items[i].ID = xid.New("item")
		}
		sale.Items[i].SaleID = sale.ID
		if rec, ok := s.products[sale.Items[i].ProductID]; ok {
			sale.Items[i].ProductName = rec.product.Name
			sale.Items[i].ReferenceNumber = rec.product.ReferenceNumber
		}
	}

	stored := cloneSale(&sale)
	s.salesByID[sale.ID] = &stored
	s.saleIDByInvoice[sale.InvoiceNumber] = sale.ID

	committed := cloneSale(&stored)
	return &committed, nil
}

func (s *Store) ReconcileSale(_ context.Context, saleID string, header domain.Sale, plan reconcile.Plan) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, exists := s.salesByID[saleID]
	if !exists {
		return nil, store.ErrNotFound
	}

	if err := s.checkDeltasLocked(plan.Deltas); err != nil {
		return nil, err
	}
	for _, d := range plan.Deltas {
		if _, err := s.adjustStockLocked(d.ProductID, d.Size, d.Delta); err != nil {
			return nil, err
		}
	}

	removed := make(map[string]bool, len(plan.Removed))
	for _, item := range plan.Removed {
		removed[item.ID] = true
	}
	changed := make(map[string]reconcile.ItemChange, len(plan.Modified))
	for _, change := range plan.Modified {
		changed[change.Item.ID] = change
	}

	items := make([]domain.SaleItem, 0, len(sale.Items)+len(plan.Added))
	for _, item := range sale.Items {
		if removed[item.ID] {
			continue
		}
		if change, ok := changed[item.ID]; ok {
			item.Quantity = change.NewQuantity
			item.TotalPriceCents = change.NewTotalCents
		}
		items = append(items, item)
	}
	for _, add := range plan.Added {
		item := domain.SaleItem{
			ID:              xid.New("item"),
			SaleID:          saleID,
			ProductID:       add.ProductID,
			Size:            add.Size,
			Quantity:        add.Quantity,
			UnitPriceCents:  add.UnitPriceCents,
			TotalPriceCents: add.UnitPriceCents * int64(add.Quantity),
		}
		if rec, ok := s.products[add.ProductID]; ok {
			item.ProductName = rec.product.Name
			item.ReferenceNumber = rec.product.ReferenceNumber
		}
		items = append(items, item)
	}

	sale.Items = items
	sale.CustomerName = header.CustomerName
	sale.CustomerPhone = header.CustomerPhone
	sale.CustomerEmail = header.CustomerEmail
	sale.PaymentMethod = header.PaymentMethod
	sale.PaymentID = header.PaymentID
	sale.TotalCents = header.TotalCents
	sale.TaxCents = header.TaxCents
	if !header.CreatedAt.IsZero() {
		sale.CreatedAt = header.CreatedAt
	}

	updated := cloneSale(sale)
	return &updated, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.salesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := cloneSale(sale)
	return &copied, nil
}

func (s *Store) GetSaleByInvoiceNumber(_ context.Context, invoiceNumber string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.saleIDByInvoice[invoiceNumber]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := cloneSale(s.salesByID[id])
	return &copied, nil
}

func (s *Store) ListSales(_ context.Context, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.salesByID))
	for _, sale := range s.salesByID {
		sales = append(sales, cloneSale(sale))
	}
	sortSalesDesc(sales)
	if limit > 0 && len(sales) > limit {
		sales = sales[:limit]
	}
	return sales, nil
}

func (s *Store) GetSettings(_ context.Context) (*domain.ShopSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings := s.settings
	return &settings, nil
}

func (s *Store) UpdateSettings(_ context.Context, settings domain.ShopSettings) (*domain.ShopSettings, error) {
	if settings.TaxRate < 0 || settings.TaxRate > 1 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings.UpdatedAt = time.Now().UTC()
	s.settings = settings
	saved := settings
	return &saved, nil
}

func (s *Store) ListLowStockVariants(_ context.Context, threshold int) ([]domain.LowStockVariant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.LowStockVariant, 0, 16)
	for _, rec := range s.products {
		for _, v := range rec.variants {
			if v.Stock > threshold {
				continue
			}
			result = append(result, domain.LowStockVariant{
				ProductID:       rec.product.ID,
				ProductName:     rec.product.Name,
				ReferenceNumber: rec.product.ReferenceNumber,
				Size:            v.Size,
				Stock:           v.Stock,
			})
		}
	}
	slices.SortFunc(result, func(a, b domain.LowStockVariant) int {
		if a.Stock != b.Stock {
			return a.Stock - b.Stock
		}
		if a.ProductName != b.ProductName {
			return cmpString(a.ProductName, b.ProductName)
		}
		return cmpString(a.Size, b.Size)
	})
	return result, nil
}

func (s *Store) GetSalesSummary(_ context.Context, from time.Time, to time.Time) (domain.SalesSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.SalesSummary{
		From: from.UTC().Format(time.RFC3339),
		To:   to.UTC().Format(time.RFC3339),
	}
	for _, sale := range s.salesByID {
		if sale.CreatedAt.Before(from) || !sale.CreatedAt.Before(to) {
			continue
		}
		summary.Sales++
		summary.RevenueCents += sale.TotalCents
		summary.TaxCents += sale.TaxCents
		for _, item := range sale.Items {
			summary.UnitsSold += int64(item.Quantity)
		}
	}
	return summary, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrInvalidInput
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cloneProduct(rec *productRecord) domain.Product {
	product := rec.product
	product.Variants = make([]domain.ProductVariant, 0, len(rec.variants))
	product.TotalStock = 0
	for _, v := range rec.variants {
		product.Variants = append(product.Variants, *v)
		product.TotalStock += v.Stock
	}
	slices.SortFunc(product.Variants, func(a, b domain.ProductVariant) int {
		return cmpString(a.Size, b.Size)
	})
	return product
}

func cloneSale(sale *domain.Sale) domain.Sale {
	copied := *sale
	copied.Items = make([]domain.SaleItem, len(sale.Items))
	copy(copied.Items, sale.Items)
	return copied
}

func sortSalesDesc(sales []domain.Sale) {
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
}

func cmpString(a, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}
