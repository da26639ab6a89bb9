package memory

import (
	"context"
	"errors"
	"testing"

	"fashionhub/backend/internal/domain"
	"fashionhub/backend/internal/store"
)

func seedProduct(t *testing.T, s *Store, ref string, variants ...domain.ProductVariant) *domain.Product {
	t.Helper()
	product, err := s.CreateProduct(context.Background(), domain.Product{
		Name:            "Test " + ref,
		ReferenceNumber: ref,
		PriceCents:      1000,
		Category:        "tops",
		Variants:        variants,
	})
	if err != nil {
		t.Fatalf("seed product %s: %v", ref, err)
	}
	return product
}

func TestAdjustStockBatchAllOrNothing(t *testing.T) {
	s := New()
	product := seedProduct(t, s, "TST-BATCH-A",
		domain.ProductVariant{Size: "M", Stock: 5},
		domain.ProductVariant{Size: "L", Stock: 2},
	)

	// The second delta overdraws, so the first must not be applied either.
	err := s.AdjustStockBatch(context.Background(), []domain.StockDelta{
		{ProductID: product.ID, Size: "M", Delta: -3},
		{ProductID: product.ID, Size: "L", Delta: -4},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	fetched, err := s.GetProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	for _, v := range fetched.Variants {
		switch v.Size {
		case "M":
			if v.Stock != 5 {
				t.Fatalf("expected M untouched at 5, got %d", v.Stock)
			}
		case "L":
			if v.Stock != 2 {
				t.Fatalf("expected L untouched at 2, got %d", v.Stock)
			}
		}
	}

	err = s.AdjustStockBatch(context.Background(), []domain.StockDelta{
		{ProductID: product.ID, Size: "M", Delta: -3},
		{ProductID: product.ID, Size: "L", Delta: 4},
	})
	if err != nil {
		t.Fatalf("expected valid batch to apply, got %v", err)
	}
	fetched, err = s.GetProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if fetched.TotalStock != 8 {
		t.Fatalf("expected total stock 8 after batch, got %d", fetched.TotalStock)
	}
}

func TestAdjustStockBatchRepeatedDeltasOnOneVariant(t *testing.T) {
	s := New()
	product := seedProduct(t, s, "TST-BATCH-B", domain.ProductVariant{Size: "M", Stock: 3})

	// Two deltas against the same counter must be checked cumulatively.
	err := s.AdjustStockBatch(context.Background(), []domain.StockDelta{
		{ProductID: product.ID, Size: "M", Delta: -2},
		{ProductID: product.ID, Size: "M", Delta: -2},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected cumulative overdraw rejection, got %v", err)
	}

	stock, err := s.AdjustStock(context.Background(), product.ID, "M", -3)
	if err != nil {
		t.Fatalf("adjust to zero: %v", err)
	}
	if stock != 0 {
		t.Fatalf("expected stock 0, got %d", stock)
	}
}

func TestGetProductByReference(t *testing.T) {
	s := New()
	product := seedProduct(t, s, "TST-REF-A", domain.ProductVariant{Size: "M", Stock: 1})

	found, err := s.GetProductByReference(context.Background(), "TST-REF-A")
	if err != nil {
		t.Fatalf("lookup by reference: %v", err)
	}
	if found.ID != product.ID {
		t.Fatalf("expected product %s, got %s", product.ID, found.ID)
	}

	if _, err := s.GetProductByReference(context.Background(), "TST-REF-MISSING"); !errors.Is(err, store.ErrProductNotFound) {
		t.Fatalf("expected product not found, got %v", err)
	}
}
