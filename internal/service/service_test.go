package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"fashionhub/backend/internal/cache"
	"fashionhub/backend/internal/domain"
	"fashionhub/backend/internal/store"
	"fashionhub/backend/internal/store/memory"
)

func newTestService() *Service {
	return New(memory.NewSeeded(), cache.NoopCatalogCache{}, Options{})
}

func adminContext() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func createTestProduct(t *testing.T, svc *Service, name string, ref string, price int64, variants ...domain.VariantInput) domain.Product {
	t.Helper()
	product, err := svc.CreateProduct(adminContext(), domain.ProductCreateRequest{
		Name:            name,
		ReferenceNumber: ref,
		PriceCents:      price,
		Category:        "tops",
		Variants:        variants,
	})
	if err != nil {
		t.Fatalf("create product %s failed: %v", ref, err)
	}
	return product
}

func variantStock(t *testing.T, svc *Service, productID string, size string) int {
	t.Helper()
	product, err := svc.GetProduct(context.Background(), productID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	for _, v := range product.Variants {
		if v.Size == size {
			return v.Stock
		}
	}
	t.Fatalf("variant %s not found on product %s", size, productID)
	return 0
}

func TestCreateSaleCommitsStockCustomerAndTotalsTogether(t *testing.T) {
	svc := newTestService()
	shirt := createTestProduct(t, svc, "Shirt A", "TST-SHIRT-A", 1000, domain.VariantInput{Size: "M", Stock: 5})
	pant := createTestProduct(t, svc, "Pant B", "TST-PANT-B", 2500, domain.VariantInput{Size: "L", Stock: 3})

	zero := 0.0
	sale, err := svc.CreateSale(context.Background(), domain.SaleCreateRequest{
		Items: []domain.CartItem{
			{ProductID: shirt.ID, Size: "M", Quantity: 2, UnitPriceCents: 1000},
			{ProductID: pant.ID, Size: "L", Quantity: 1, UnitPriceCents: 2500},
		},
		Customer: domain.CustomerInfo{Name: "Asha", Phone: "9990001111"},
		Payment:  domain.PaymentInfo{Method: "cash"},
		TaxRate:  &zero,
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	if !strings.HasPrefix(sale.InvoiceNumber, "INV-") {
		t.Fatalf("expected INV- invoice prefix, got %s", sale.InvoiceNumber)
	}
	if sale.TotalCents != 4500 {
		t.Fatalf("expected total 4500 at zero tax, got %d", sale.TotalCents)
	}
	if len(sale.Items) != 2 {
		t.Fatalf("expected 2 sale items, got %d", len(sale.Items))
	}
	if sale.CustomerID == "" {
		t.Fatalf("expected customer to be linked to the sale")
	}
	if got := variantStock(t, svc, shirt.ID, "M"); got != 3 {
		t.Fatalf("expected shirt stock 3 after commit, got %d", got)
	}
	if got := variantStock(t, svc, pant.ID, "L"); got != 2 {
		t.Fatalf("expected pant stock 2 after commit, got %d", got)
	}

	customers, err := svc.ListCustomers(context.Background())
	if err != nil {
		t.Fatalf("list customers failed: %v", err)
	}
	found := false
	for _, c := range customers {
		if c.Phone == "9990001111" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected committed sale to create the customer")
	}
}

func TestCreateSaleAppliesConfiguredTaxAsDeduction(t *testing.T) {
	svc := newTestService()
	shirt := createTestProduct(t, svc, "Shirt A", "TST-SHIRT-A", 10000, domain.VariantInput{Size: "M", Stock: 5})

	// Default settings carry an 18% rate which subtracts from the subtotal.
	sale, err := svc.CreateSale(context.Background(), domain.SaleCreateRequest{
		Items: []domain.CartItem{
			{ProductID: shirt.ID, Size: "M", Quantity: 1, UnitPriceCents: 10000},
		},
		Customer: domain.CustomerInfo{Name: "Asha", Phone: "9990001111"},
		Payment:  domain.PaymentInfo{Method: "cash"},
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if sale.TaxCents != 1800 {
		t.Fatalf("expected tax 1800, got %d", sale.TaxCents)
	}
	if sale.TotalCents != 8200 {
		t.Fatalf("expected total 8200, got %d", sale.TotalCents)
	}
}

func TestCreateSaleInsufficientStockRollsBackEverything(t *testing.T) {
	svc := newTestService()
	shirt := createTestProduct(t, svc, "Shirt A", "TST-SHIRT-A", 1000, domain.VariantInput{Size: "M", Stock: 5})
	pant := createTestProduct(t, svc, "Pant B", "TST-PANT-B", 2500, domain.VariantInput{Size: "L", Stock: 3})

	_, err := svc.CreateSale(context.Background(), domain.SaleCreateRequest{
		Items: []domain.CartItem{
			{ProductID: shirt.ID, Size: "M", Quantity: 2, UnitPriceCents: 1000},
			{ProductID: pant.ID, Size: "L", Quantity: 4, UnitPriceCents: 2500},
		},
		Customer: domain.CustomerInfo{Name: "Asha", Phone: "9990001111"},
		Payment:  domain.PaymentInfo{Method: "cash"},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}

	if got := variantStock(t, svc, shirt.ID, "M"); got != 5 {
		t.Fatalf("expected shirt stock untouched at 5, got %d", got)
	}
	if got := variantStock(t, svc, pant.ID, "L"); got != 3 {
		t.Fatalf("expected pant stock untouched at 3, got %d", got)
	}

	sales, err := svc.ListSales(context.Background(), 10)
	if err != nil {
		t.Fatalf("list sales failed: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("expected no sales recorded, got %d", len(sales))
	}

	customers, err := svc.ListCustomers(context.Background())
	if err != nil {
		t.Fatalf("list customers failed: %v", err)
	}
	if len(customers) != 0 {
		t.Fatalf("expected no customer rows from failed commit, got %d", len(customers))
	}
}

func TestCreateSaleUpsertsCustomerByPhone(t *testing.T) {
	svc := newTestService()
	shirt := createTestProduct(t, svc, "Shirt A", "TST-SHIRT-A", 1000, domain.VariantInput{Size: "M", Stock: 10})

	commit := func(name string) domain.Sale {
		sale, err := svc.CreateSale(context.Background(), domain.SaleCreateRequest{
			Items: []domain.CartItem{
				{ProductID: shirt.ID, Size: "M", Quantity: 1, UnitPriceCents: 1000},
			},
			Customer: domain.CustomerInfo{Name: name, Phone: "9990001111"},
			Payment:  domain.PaymentInfo{Method: "cash"},
		})
		if err != nil {
			t.Fatalf("create sale failed: %v", err)
		}
		return sale
	}

	first := commit("Asha")
	second := commit("Asha Kumari")

	if first.CustomerID != second.CustomerID {
		t.Fatalf("expected both sales to share one customer row")
	}

	customers, err := svc.ListCustomers(context.Background())
	if err != nil {
		t.Fatalf("list customers failed: %v", err)
	}
	if len(customers) != 1 {
		t.Fatalf("expected a single customer, got %d", len(customers))
	}
	if customers[0].Name != "Asha Kumari" {
		t.Fatalf("expected latest name to win, got %s", customers[0].Name)
	}
}

func TestCreateSaleRetriesOnDuplicateInvoice(t *testing.T) {
	repo := &dupOnceRepo{Repository: memory.NewSeeded()}
	svc := New(repo, cache.NoopCatalogCache{}, Options{})
	product := createTestProduct(t, svc, "Shirt A", "TST-SHIRT-A", 1000, domain.VariantInput{Size: "M", Stock: 5})

	sale, err := svc.CreateSale(context.Background(), domain.SaleCreateRequest{
		Items: []domain.CartItem{
			{ProductID: product.ID, Size: "M", Quantity: 1, UnitPriceCents: 1000},
		},
		Customer: domain.CustomerInfo{Name: "Asha", Phone: "9990001111"},
		Payment:  domain.PaymentInfo{Method: "cash"},
	})
	if err != nil {
		t.Fatalf("expected commit to succeed after retry, got %v", err)
	}
	if repo.commits != 2 {
		t.Fatalf("expected two commit attempts, got %d", repo.commits)
	}
	if sale.InvoiceNumber == repo.firstInvoice {
		t.Fatalf("expected a fresh invoice number on retry")
	}
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	svc := newTestService()
	product := createTestProduct(t, svc, "Limited Jacket", "TST-JACKET-X", 5000, domain.VariantInput{Size: "M", Stock: 1})

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateSale(context.Background(), domain.SaleCreateRequest{
				Items: []domain.CartItem{
					{ProductID: product.ID, Size: "M", Quantity: 1, UnitPriceCents: 5000},
				},
				Customer: domain.CustomerInfo{Name: "Asha", Phone: "9990001111"},
				Payment:  domain.PaymentInfo{Method: "cash"},
			})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		if !errors.Is(err, store.ErrInsufficientStock) {
			t.Fatalf("unexpected error from concurrent commit: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one successful commit, got %d", successes)
	}
	if got := variantStock(t, svc, product.ID, "M"); got != 0 {
		t.Fatalf("expected final stock 0, got %d", got)
	}
}

func TestUpdateSaleNoopLeavesStockAlone(t *testing.T) {
	svc := newTestService()
	shirt := createTestProduct(t, svc, "Shirt A", "TST-SHIRT-A", 1000, domain.VariantInput{Size: "M", Stock: 5})

	sale := commitSimpleSale(t, svc, shirt.ID, "M", 2, 1000)

	updated, err := svc.UpdateSale(context.Background(), sale.ID, domain.SaleUpdateRequest{
		Header: domain.SaleHeaderUpdate{
			CustomerName:  sale.CustomerName,
			CustomerPhone: sale.CustomerPhone,
			PaymentMethod: sale.PaymentMethod,
		},
		Items: []domain.SaleItemInput{
			{ID: sale.Items[0].ID, ProductID: shirt.ID, Size: "M", Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("noop update failed: %v", err)
	}
	if len(updated.Items) != 1 || updated.Items[0].Quantity != 2 {
		t.Fatalf("expected unchanged items, got %+v", updated.Items)
	}
	if got := variantStock(t, svc, shirt.ID, "M"); got != 3 {
		t.Fatalf("expected stock to stay at 3, got %d", got)
	}
}

func TestUpdateSaleQuantityIncreaseUsesReservedHeadroom(t *testing.T) {
	svc := newTestService()
	shirt := createTestProduct(t, svc, "Shirt A", "TST-SHIRT-A", 1000, domain.VariantInput{Size: "M", Stock: 5})

	sale := commitSimpleSale(t, svc, shirt.ID, "M", 2, 1000)
	// 3 units remain on the shelf. Growing the line from 2 to 5 needs exactly
	// 3 more, so it must succeed.
	updated, err := svc.UpdateSale(context.Background(), sale.ID, domain.SaleUpdateRequest{
		Header: domain.SaleHeaderUpdate{
			CustomerName:  sale.CustomerName,
			CustomerPhone: sale.CustomerPhone,
		},
		Items: []domain.SaleItemInput{
			{ID: sale.Items[0].ID, ProductID: shirt.ID, Size: "M", Quantity: 5},
		},
	})
	if err != nil {
		t.Fatalf("expected edit within headroom to succeed: %v", err)
	}
	if updated.Items[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", updated.Items[0].Quantity)
	}
	if got := variantStock(t, svc, shirt.ID, "M"); got != 0 {
		t.Fatalf("expected stock drained to 0, got %d", got)
	}

	// Any further increase needs stock that no longer exists.
	_, err = svc.UpdateSale(context.Background(), sale.ID, domain.SaleUpdateRequest{
		Header: domain.SaleHeaderUpdate{
			CustomerName:  sale.CustomerName,
			CustomerPhone: sale.CustomerPhone,
		},
		Items: []domain.SaleItemInput{
			{ID: sale.Items[0].ID, ProductID: shirt.ID, Size: "M", Quantity: 6},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if got := variantStock(t, svc, shirt.ID, "M"); got != 0 {
		t.Fatalf("expected stock unchanged after failed edit, got %d", got)
	}
}

func TestUpdateSaleRemovedLineRestocks(t *testing.T) {
	svc := newTestService()
	shirt := createTestProduct(t, svc, "Shirt A", "TST-SHIRT-A", 1000, domain.VariantInput{Size: "M", Stock: 5})
	pant := createTestProduct(t, svc, "Pant B", "TST-PANT-B", 2500, domain.VariantInput{Size: "L", Stock: 3})

	zero := 0.0
	sale, err := svc.CreateSale(context.Background(), domain.SaleCreateRequest{
		Items: []domain.CartItem{
			{ProductID: shirt.ID, Size: "M", Quantity: 2, UnitPriceCents: 1000},
			{ProductID: pant.ID, Size: "L", Quantity: 1, UnitPriceCents: 2500},
		},
		Customer: domain.CustomerInfo{Name: "Asha", Phone: "9990001111"},
		Payment:  domain.PaymentInfo{Method: "cash"},
		TaxRate:  &zero,
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	updated, err := svc.UpdateSale(context.Background(), sale.ID, domain.SaleUpdateRequest{
		Header: domain.SaleHeaderUpdate{
			CustomerName:  sale.CustomerName,
			CustomerPhone: sale.CustomerPhone,
			TaxRate:       &zero,
		},
		Items: []domain.SaleItemInput{
			{ProductID: shirt.ID, Size: "M", Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if len(updated.Items) != 1 {
		t.Fatalf("expected one remaining item, got %d", len(updated.Items))
	}
	if updated.TotalCents != 2000 {
		t.Fatalf("expected recomputed total 2000, got %d", updated.TotalCents)
	}
	if got := variantStock(t, svc, pant.ID, "L"); got != 3 {
		t.Fatalf("expected pant stock restored to 3, got %d", got)
	}
}

func TestUpdateSaleRejectsEmptyItems(t *testing.T) {
	svc := newTestService()
	shirt := createTestProduct(t, svc, "Shirt A", "TST-SHIRT-A", 1000, domain.VariantInput{Size: "M", Stock: 5})
	sale := commitSimpleSale(t, svc, shirt.ID, "M", 1, 1000)

	_, err := svc.UpdateSale(context.Background(), sale.ID, domain.SaleUpdateRequest{
		Header: domain.SaleHeaderUpdate{
			CustomerName:  sale.CustomerName,
			CustomerPhone: sale.CustomerPhone,
		},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty item set, got %v", err)
	}
}

func TestCreateSaleRequiresCustomerPhone(t *testing.T) {
	svc := newTestService()
	shirt := createTestProduct(t, svc, "Shirt A", "TST-SHIRT-A", 1000, domain.VariantInput{Size: "M", Stock: 5})

	_, err := svc.CreateSale(context.Background(), domain.SaleCreateRequest{
		Items: []domain.CartItem{
			{ProductID: shirt.ID, Size: "M", Quantity: 1, UnitPriceCents: 1000},
		},
		Customer: domain.CustomerInfo{Name: "Asha"},
		Payment:  domain.PaymentInfo{Method: "cash"},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestCreateSaleUnknownVariant(t *testing.T) {
	svc := newTestService()
	shirt := createTestProduct(t, svc, "Shirt A", "TST-SHIRT-A", 1000, domain.VariantInput{Size: "M", Stock: 5})

	_, err := svc.CreateSale(context.Background(), domain.SaleCreateRequest{
		Items: []domain.CartItem{
			{ProductID: shirt.ID, Size: "XXL", Quantity: 1, UnitPriceCents: 1000},
		},
		Customer: domain.CustomerInfo{Name: "Asha", Phone: "9990001111"},
		Payment:  domain.PaymentInfo{Method: "cash"},
	})
	if !errors.Is(err, store.ErrVariantNotFound) {
		t.Fatalf("expected variant not found, got %v", err)
	}
}

func TestAdjustStockRequiresAdmin(t *testing.T) {
	svc := newTestService()
	shirt := createTestProduct(t, svc, "Shirt A", "TST-SHIRT-A", 1000, domain.VariantInput{Size: "M", Stock: 5})

	cashierCtx := WithActor(context.Background(), domain.Actor{Username: "cashier", Role: "cashier"})
	_, err := svc.AdjustStock(cashierCtx, shirt.ID, domain.StockAdjustmentRequest{Size: "M", Delta: 5})
	if err == nil {
		t.Fatalf("expected cashier stock adjustment to be rejected")
	}
}

func TestAdjustStockNeverGoesNegative(t *testing.T) {
	svc := newTestService()
	shirt := createTestProduct(t, svc, "Shirt A", "TST-SHIRT-A", 1000, domain.VariantInput{Size: "M", Stock: 3})

	_, err := svc.AdjustStock(adminContext(), shirt.ID, domain.StockAdjustmentRequest{Size: "M", Delta: -4})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if got := variantStock(t, svc, shirt.ID, "M"); got != 3 {
		t.Fatalf("expected stock untouched at 3, got %d", got)
	}

	resp, err := svc.AdjustStock(adminContext(), shirt.ID, domain.StockAdjustmentRequest{Size: "M", Delta: -3})
	if err != nil {
		t.Fatalf("adjustment to exactly zero should succeed: %v", err)
	}
	if resp.Stock != 0 {
		t.Fatalf("expected stock 0, got %d", resp.Stock)
	}
}

func TestDeleteProductReferencedBySaleIsRejected(t *testing.T) {
	svc := newTestService()
	shirt := createTestProduct(t, svc, "Shirt A", "TST-SHIRT-A", 1000, domain.VariantInput{Size: "M", Stock: 5})
	commitSimpleSale(t, svc, shirt.ID, "M", 1, 1000)

	err := svc.DeleteProduct(adminContext(), shirt.ID)
	if !errors.Is(err, store.ErrProductInUse) {
		t.Fatalf("expected product-in-use rejection, got %v", err)
	}
}

func TestDeleteCustomerWithSalesIsRejected(t *testing.T) {
	svc := newTestService()
	shirt := createTestProduct(t, svc, "Shirt A", "TST-SHIRT-A", 1000, domain.VariantInput{Size: "M", Stock: 5})
	sale := commitSimpleSale(t, svc, shirt.ID, "M", 1, 1000)

	err := svc.DeleteCustomer(adminContext(), sale.CustomerID)
	if !errors.Is(err, store.ErrCustomerHasSales) {
		t.Fatalf("expected customer-has-sales rejection, got %v", err)
	}
}

func TestGetCustomerDetailIncludesSaleHistory(t *testing.T) {
	svc := newTestService()
	shirt := createTestProduct(t, svc, "Shirt A", "TST-SHIRT-A", 1000, domain.VariantInput{Size: "M", Stock: 5})
	sale := commitSimpleSale(t, svc, shirt.ID, "M", 1, 1000)

	detail, err := svc.GetCustomerDetail(context.Background(), sale.CustomerID)
	if err != nil {
		t.Fatalf("customer detail failed: %v", err)
	}
	if len(detail.Sales) != 1 || detail.Sales[0].ID != sale.ID {
		t.Fatalf("expected one sale in history, got %+v", detail.Sales)
	}
}

func TestUpdateSettingsRequiresAdminAndValidatesTaxRate(t *testing.T) {
	svc := newTestService()

	bad := 1.5
	_, err := svc.UpdateSettings(adminContext(), domain.ShopSettingsUpdateRequest{TaxRate: &bad})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid tax rate rejection, got %v", err)
	}

	rate := 0.05
	saved, err := svc.UpdateSettings(adminContext(), domain.ShopSettingsUpdateRequest{TaxRate: &rate})
	if err != nil {
		t.Fatalf("settings update failed: %v", err)
	}
	if saved.TaxRate != 0.05 {
		t.Fatalf("expected tax rate 0.05, got %v", saved.TaxRate)
	}

	_, err = svc.UpdateSettings(context.Background(), domain.ShopSettingsUpdateRequest{TaxRate: &rate})
	if err == nil {
		t.Fatalf("expected non-admin settings update to be rejected")
	}
}

func TestLowStockReport(t *testing.T) {
	svc := newTestService()
	createTestProduct(t, svc, "Scarce Scarf", "TST-SCARF-A", 1000, domain.VariantInput{Size: "Free", Stock: 1})

	report, err := svc.LowStockReport(context.Background(), 2)
	if err != nil {
		t.Fatalf("low stock report failed: %v", err)
	}
	found := false
	for _, v := range report {
		if v.ReferenceNumber == "TST-SCARF-A" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected scarce variant in low stock report")
	}
}

func commitSimpleSale(t *testing.T, svc *Service, productID string, size string, quantity int, unitPriceCents int64) domain.Sale {
	t.Helper()
	zero := 0.0
	sale, err := svc.CreateSale(context.Background(), domain.SaleCreateRequest{
		Items: []domain.CartItem{
			{ProductID: productID, Size: size, Quantity: quantity, UnitPriceCents: unitPriceCents},
		},
		Customer: domain.CustomerInfo{Name: "Asha", Phone: "9990001111"},
		Payment:  domain.PaymentInfo{Method: "cash"},
		TaxRate:  &zero,
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	return sale
}

// dupOnceRepo fails the first commit with a duplicate-invoice error to
// exercise the retry path.
type dupOnceRepo struct {
	store.Repository
	commits      int
	firstInvoice string
}

func (r *dupOnceRepo) CommitSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	r.commits++
	if r.commits == 1 {
		r.firstInvoice = sale.InvoiceNumber
		return nil, store.ErrDuplicateInvoice
	}
	return r.Repository.CommitSale(ctx, sale)
}
