package pricing

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/frostmart/backend-pricing/internal/common"
	"github.com/frostmart/backend-pricing/internal/inventory"
	"github.com/frostmart/backend-pricing/internal/promo"
)

var calcNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

type stubQuerier struct {
	products    []inventory.Product
	promotions  []promo.Promotion
	usageCalls  [][]uuid.UUID
	productHits int
}

func (s *stubQuerier) GetProductsByIDs(_ context.Context, ids []uuid.UUID) ([]inventory.Product, error) {
	s.productHits++
	want := map[uuid.UUID]struct{}{}
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []inventory.Product
	for _, p := range s.products {
		if _, ok := want[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubQuerier) ListUsablePromotions(_ context.Context, _ time.Time) ([]promo.Promotion, error) {
	return s.promotions, nil
}

func (s *stubQuerier) IncrementPromotionUsage(_ context.Context, ids []uuid.UUID) error {
	s.usageCalls = append(s.usageCalls, ids)
	return nil
}

func newEngine(q *stubQuerier) *Engine {
	return &Engine{Q: q, Logger: zerolog.Nop(), Now: func() time.Time { return calcNow }}
}

func bulkPromotion() promo.Promotion {
	return promo.Promotion{
		ID:       uuid.New(),
		Name:     "Automatic Bulk Discount",
		Type:     promo.TypeBulk,
		Applies:  promo.ResolveApplicability(nil, nil),
		StartsAt: calcNow.AddDate(0, -1, 0),
		EndsAt:   calcNow.AddDate(0, 1, 0),
		Active:   true,
	}
}

func expiryPromotion() promo.Promotion {
	p := bulkPromotion()
	p.Name = "Automatic Expiry Discount"
	p.Type = promo.TypeExpiry
	return p
}

func frozenProduct(price float64, batchExpiresInDays int) inventory.Product {
	id := uuid.New()
	p := inventory.Product{
		ID:        id,
		Name:      "Frozen Chicken 1kg",
		Category:  "frozen-meat",
		UnitPrice: price,
		UnitLabel: "packs",
		Stock:     500,
		Active:    true,
	}
	if batchExpiresInDays != 0 {
		p.Batches = []inventory.Batch{{
			ID:                uuid.New(),
			ProductID:         id,
			BatchNumber:       "FRZ-001",
			Quantity:          500,
			RemainingQuantity: 500,
			ExpiryDate:        calcNow.AddDate(0, 0, batchExpiresInDays),
			Status:            inventory.BatchActive,
		}}
	}
	return p
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCalculateBulkDiscount(t *testing.T) {
	product := frozenProduct(10, 0)
	q := &stubQuerier{products: []inventory.Product{product}, promotions: []promo.Promotion{bulkPromotion()}}
	e := newEngine(q)

	res, err := e.CalculateCartDiscounts(context.Background(), []CartItem{{ProductID: product.ID.String(), Quantity: 10}}, Options{})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if !almostEqual(res.OriginalTotal, 100) || !almostEqual(res.DiscountedTotal, 95) || !almostEqual(res.TotalSavings, 5) {
		t.Fatalf("expected 100/95/5, got %.2f/%.2f/%.2f", res.OriginalTotal, res.DiscountedTotal, res.TotalSavings)
	}
	if len(res.Breakdown.BulkDiscounts) != 1 || len(res.Breakdown.ExpiryDiscounts) != 0 {
		t.Fatalf("expected one bulk discount, got %+v", res.Breakdown)
	}
	if len(q.usageCalls) != 1 {
		t.Fatalf("expected one usage increment call, got %d", len(q.usageCalls))
	}
}

func TestCalculateExpiryDiscountFromNearestBatch(t *testing.T) {
	product := frozenProduct(20, 10)
	q := &stubQuerier{products: []inventory.Product{product}, promotions: []promo.Promotion{expiryPromotion()}}
	e := newEngine(q)

	res, err := e.CalculateCartDiscounts(context.Background(), []CartItem{{ProductID: product.ID.String(), Quantity: 5}}, Options{})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	// 10 days to expiry lands in the 0-14 tier: 50% off.
	if !almostEqual(res.DiscountedTotal, 50) {
		t.Fatalf("expected 50.00, got %.2f", res.DiscountedTotal)
	}
	if len(res.Breakdown.ExpiryDiscounts) != 1 {
		t.Fatalf("expected one expiry discount, got %+v", res.Breakdown)
	}
}

func TestBulkWinsOverExpiry(t *testing.T) {
	// Qty 60 qualifies for 15% bulk; the 5-day batch would give 50% expiry.
	// The two never stack and bulk is evaluated first.
	product := frozenProduct(10, 5)
	q := &stubQuerier{
		products:   []inventory.Product{product},
		promotions: []promo.Promotion{bulkPromotion(), expiryPromotion()},
	}
	e := newEngine(q)

	res, err := e.CalculateCartDiscounts(context.Background(), []CartItem{{ProductID: product.ID.String(), Quantity: 60}}, Options{})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if !almostEqual(res.OriginalTotal, 600) || !almostEqual(res.DiscountedTotal, 510) {
		t.Fatalf("expected 600 -> 510, got %.2f -> %.2f", res.OriginalTotal, res.DiscountedTotal)
	}
	line := res.UpdatedItems[0]
	if len(line.Discounts) != 1 || line.Discounts[0].Kind != KindBulk {
		t.Fatalf("expected a single bulk discount, got %+v", line.Discounts)
	}
	if err := ValidateResult(res, 0); err != nil {
		t.Fatalf("result must pass the consistency oracle: %v", err)
	}
}

func TestInvalidInputFailsBeforeLookups(t *testing.T) {
	q := &stubQuerier{}
	e := newEngine(q)

	_, err := e.CalculateCartDiscounts(context.Background(), []CartItem{{ProductID: "not-a-uuid", Quantity: 3}}, Options{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	appErr, ok := common.AsAppError(err)
	if !ok || appErr.Code != common.CodeInvalidInput {
		t.Fatalf("expected INVALID_INPUT AppError, got %v", err)
	}
	if q.productHits != 0 {
		t.Fatal("validation must run before any product lookup")
	}

	_, err = e.CalculateCartDiscounts(context.Background(), nil, Options{})
	if appErr, ok := common.AsAppError(err); !ok || appErr.Code != common.CodeInvalidInput {
		t.Fatalf("empty cart must be INVALID_INPUT, got %v", err)
	}
}

func TestMissingProductSkipsLine(t *testing.T) {
	product := frozenProduct(10, 0)
	q := &stubQuerier{products: []inventory.Product{product}, promotions: []promo.Promotion{bulkPromotion()}}
	e := newEngine(q)

	res, err := e.CalculateCartDiscounts(context.Background(), []CartItem{
		{ProductID: product.ID.String(), Quantity: 10},
		{ProductID: uuid.NewString(), Quantity: 5},
	}, Options{})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if len(res.UpdatedItems) != 1 {
		t.Fatalf("unknown product must be skipped, got %d lines", len(res.UpdatedItems))
	}
}

func TestCustomerTypeFilter(t *testing.T) {
	product := frozenProduct(10, 0)
	p := bulkPromotion()
	p.CustomerTypes = []string{"restaurant"}
	q := &stubQuerier{products: []inventory.Product{product}, promotions: []promo.Promotion{p}}
	e := newEngine(q)

	res, err := e.CalculateCartDiscounts(context.Background(), []CartItem{{ProductID: product.ID.String(), Quantity: 10}}, Options{CustomerType: "retailer"})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if res.TotalSavings != 0 {
		t.Fatalf("filtered customer type must see no discount, got %.2f", res.TotalSavings)
	}

	res, err = e.CalculateCartDiscounts(context.Background(), []CartItem{{ProductID: product.ID.String(), Quantity: 10}}, Options{CustomerType: "Restaurant"})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if !almostEqual(res.TotalSavings, 5) {
		t.Fatalf("matching customer type must get 5.00 savings, got %.2f", res.TotalSavings)
	}
}

func TestFixedAmountConvertsToPercentage(t *testing.T) {
	product := frozenProduct(10, 0)
	p := bulkPromotion()
	p.Type = "seasonal"
	p.DiscountType = promo.DiscountFixed
	p.DiscountValue = 2 // 2 of 10 -> 20%
	q := &stubQuerier{products: []inventory.Product{product}, promotions: []promo.Promotion{p}}
	e := newEngine(q)

	res, err := e.CalculateCartDiscounts(context.Background(), []CartItem{{ProductID: product.ID.String(), Quantity: 5}}, Options{})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if !almostEqual(res.DiscountedTotal, 40) {
		t.Fatalf("expected 50 -> 40 with 20%% conversion, got %.2f", res.DiscountedTotal)
	}
	if len(res.Breakdown.OtherDiscounts) != 1 {
		t.Fatalf("expected one other-kind discount, got %+v", res.Breakdown)
	}
}

func TestMalformedPromotionIsSkipped(t *testing.T) {
	product := frozenProduct(10, 0)
	bad := bulkPromotion()
	bad.BulkRules = []promo.BulkTier{
		{MinQuantity: 10, DiscountPercentage: 5},
		{MinQuantity: 20, DiscountPercentage: 10},
	}
	q := &stubQuerier{products: []inventory.Product{product}, promotions: []promo.Promotion{bad}}
	e := newEngine(q)

	res, err := e.CalculateCartDiscounts(context.Background(), []CartItem{{ProductID: product.ID.String(), Quantity: 10}}, Options{})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if res.TotalSavings != 0 {
		t.Fatalf("malformed promotion must not price the cart, got %.2f savings", res.TotalSavings)
	}
}

func TestAvailableDiscountsPreview(t *testing.T) {
	product := frozenProduct(10, 10)
	q := &stubQuerier{
		products:   []inventory.Product{product},
		promotions: []promo.Promotion{bulkPromotion(), expiryPromotion()},
	}
	e := newEngine(q)

	previews, err := e.AvailableDiscounts(context.Background(), []string{product.ID.String()}, 20)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(previews) != 1 {
		t.Fatalf("expected one product, got %d", len(previews))
	}
	kinds := map[string]float64{}
	for _, d := range previews[0].Discounts {
		kinds[d.Type] = d.DiscountPercentage
	}
	if kinds[string(KindBulk)] != 10 {
		t.Fatalf("expected 10%% bulk preview at qty 20, got %+v", kinds)
	}
	if kinds[string(KindExpiry)] != 50 {
		t.Fatalf("expected 50%% expiry preview for 10-day batch, got %+v", kinds)
	}
	if len(q.usageCalls) != 0 {
		t.Fatal("preview must not count usage")
	}

	if _, err := e.AvailableDiscounts(context.Background(), []string{product.ID.String()}, 0); err == nil {
		t.Fatal("non-positive quantity must be rejected")
	}
}
