package reconcile

import (
	"fmt"
	"math"

	"fashionhub/backend/internal/domain"
)

// ItemChange is an existing line whose quantity changed. Unit price is
// frozen; only quantity and the derived total move.
type ItemChange struct {
	Item          domain.SaleItem
	NewQuantity   int
	NewTotalCents int64
}

// Plan is the minimal set of mutations that moves a committed sale from its
// original line items to a desired set. The store applies a Plan atomically
// together with the header update.
type Plan struct {
	Removed  []domain.SaleItem
	Modified []ItemChange
	Added    []domain.SaleItemInput
	// Deltas are the signed stock adjustments implied by the plan, one per
	// affected (product, size). Removal restores, addition consumes, and a
	// quantity change contributes original-minus-new, so headroom from the
	// quantity already reserved by the original line is accounted for.
	Deltas []domain.StockDelta
	// SubtotalCents is the line-item sum of the desired state, with unit
	// prices taken from the original lines wherever a line survives.
	SubtotalCents int64
}

// IsNoop reports whether applying the plan would change nothing.
func (p Plan) IsNoop() bool {
	return len(p.Removed) == 0 && len(p.Modified) == 0 && len(p.Added) == 0
}

// Diff compares desired items against a sale's original items. A desired
// item matches an original by persisted line id when it has one, otherwise
// by (product_id, size). Matched lines with an unchanged quantity are left
// untouched.
func Diff(original []domain.SaleItem, desired []domain.SaleItemInput) (Plan, error) {
	if len(desired) == 0 {
		return Plan{}, fmt.Errorf("desired item set must not be empty")
	}

	for _, item := range desired {
		if item.ProductID == "" || item.Size == "" {
			return Plan{}, fmt.Errorf("desired item missing product or size")
		}
		if item.Quantity < 1 {
			return Plan{}, fmt.Errorf("desired quantity must be at least 1 for product %s size %s", item.ProductID, item.Size)
		}
	}

	matched := make(map[string]bool, len(original))
	var plan Plan

	for _, want := range desired {
		orig, found := findOriginal(original, want)
		if found {
			matched[orig.ID] = true
			plan.SubtotalCents += orig.UnitPriceCents * int64(want.Quantity)
			if want.Quantity == orig.Quantity {
				continue
			}
			plan.Modified = append(plan.Modified, ItemChange{
				Item:          orig,
				NewQuantity:   want.Quantity,
				NewTotalCents: orig.UnitPriceCents * int64(want.Quantity),
			})
			plan.Deltas = append(plan.Deltas, domain.StockDelta{
				ProductID: orig.ProductID,
				Size:      orig.Size,
				Delta:     orig.Quantity - want.Quantity,
			})
			continue
		}

		if want.UnitPriceCents < 1 {
			return Plan{}, fmt.Errorf("new item for product %s size %s missing unit price", want.ProductID, want.Size)
		}
		plan.Added = append(plan.Added, want)
		plan.SubtotalCents += want.UnitPriceCents * int64(want.Quantity)
		plan.Deltas = append(plan.Deltas, domain.StockDelta{
			ProductID: want.ProductID,
			Size:      want.Size,
			Delta:     -want.Quantity,
		})
	}

	for _, orig := range original {
		if matched[orig.ID] {
			continue
		}
		plan.Removed = append(plan.Removed, orig)
		plan.Deltas = append(plan.Deltas, domain.StockDelta{
			ProductID: orig.ProductID,
			Size:      orig.Size,
			Delta:     orig.Quantity,
		})
	}

	return plan, nil
}

func findOriginal(original []domain.SaleItem, want domain.SaleItemInput) (domain.SaleItem, bool) {
	for _, orig := range original {
		if want.ID != "" && want.ID == orig.ID {
			return orig, true
		}
		if want.ProductID == orig.ProductID && want.Size == orig.Size {
			return orig, true
		}
	}
	return domain.SaleItem{}, false
}

// Totals derives tax and total from a subtotal. The domain's "tax" field
// subtracts from the total (it behaves as a discount); this preserves the
// literal arithmetic of the billing flow rather than correcting the sign.
func Totals(subtotalCents int64, taxRate float64) (taxCents int64, totalCents int64) {
	if taxRate < 0 {
		taxRate = 0
	}
	taxCents = int64(math.Round(float64(subtotalCents) * taxRate))
	totalCents = subtotalCents - taxCents
	if totalCents < 0 {
		totalCents = 0
	}
	return taxCents, totalCents
}

// CartSubtotal sums a draft cart at its frozen unit prices.
func CartSubtotal(items []domain.CartItem) int64 {
	var subtotal int64
	for _, item := range items {
		subtotal += item.UnitPriceCents * int64(item.Quantity)
	}
	return subtotal
}
