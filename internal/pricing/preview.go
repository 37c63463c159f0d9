package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// DiscountPreview is one discount that would apply at the probed quantity.
type DiscountPreview struct {
	Type               string  `json:"type"`
	DiscountPercentage float64 `json:"discountPercentage"`
	PotentialSavings   float64 `json:"potentialSavings"`
	Description        string  `json:"description"`
}

// ProductDiscounts groups the previewable discounts for one product.
type ProductDiscounts struct {
	ProductID    string            `json:"productId"`
	ProductName  string            `json:"productName"`
	CurrentPrice float64           `json:"currentPrice"`
	Discounts    []DiscountPreview `json:"discounts"`
}

// AvailableDiscounts reports, for a hypothetical quantity, the bulk and expiry
// discounts each product would attract. It reuses the exact matchers behind
// CalculateCartDiscounts so the preview can never drift from the real price.
func (e *Engine) AvailableDiscounts(ctx context.Context, productIDs []string, quantity int) ([]ProductDiscounts, error) {
	if e == nil || e.Q == nil {
		return nil, errors.New("pricing engine not configured")
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	now := e.now()
	promotions, err := e.loadPromotions(ctx, now)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(productIDs))
	for _, raw := range productIDs {
		if id, err := uuid.Parse(raw); err == nil {
			ids = append(ids, id)
		}
	}
	products, err := e.Q.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	out := make([]ProductDiscounts, 0, len(products))
	for _, product := range products {
		if !product.Active {
			continue
		}
		entry := ProductDiscounts{
			ProductID:    product.ID.String(),
			ProductName:  product.Name,
			CurrentPrice: product.UnitPrice,
		}
		original := product.UnitPrice * float64(quantity)
		if bulk := e.bulkDiscount(product, quantity, "", promotions); bulk != nil {
			entry.Discounts = append(entry.Discounts, DiscountPreview{
				Type:               string(KindBulk),
				DiscountPercentage: bulk.Percentage,
				PotentialSavings:   round2(original * bulk.Percentage / 100),
				Description:        bulk.Description,
			})
		}
		if expiry := e.expiryDiscount(product, quantity, "", promotions, now); expiry != nil {
			entry.Discounts = append(entry.Discounts, DiscountPreview{
				Type:               string(KindExpiry),
				DiscountPercentage: expiry.Percentage,
				PotentialSavings:   round2(original * expiry.Percentage / 100),
				Description:        expiry.Description,
			})
		}
		out = append(out, entry)
	}
	return out, nil
}
