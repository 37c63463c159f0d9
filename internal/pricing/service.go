package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/frostmart/backend-pricing/internal/inventory"
	"github.com/frostmart/backend-pricing/internal/obs"
	"github.com/frostmart/backend-pricing/internal/promo"
)

// Querier captures the store methods required by the discount engine.
type Querier interface {
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]inventory.Product, error)
	ListUsablePromotions(ctx context.Context, now time.Time) ([]promo.Promotion, error)
	IncrementPromotionUsage(ctx context.Context, ids []uuid.UUID) error
}

// CartItem is a single calculation input line.
type CartItem struct {
	ProductID string `json:"productId" validate:"required,uuid4_rfc4122|uuid_rfc4122"`
	Quantity  int    `json:"quantity" validate:"required,gte=1,lte=10000"`
}

// Options carries the caller context for a calculation.
type Options struct {
	CustomerType string
	UserID       string
}

// LineResult is the priced outcome of one cart line.
type LineResult struct {
	ProductID       string            `json:"productId"`
	ProductName     string            `json:"productName"`
	Quantity        int               `json:"quantity"`
	UnitPrice       float64           `json:"unitPrice"`
	OriginalPrice   float64           `json:"originalPrice"`
	DiscountedPrice float64           `json:"discountedPrice"`
	Savings         float64           `json:"savings"`
	Discounts       []AppliedDiscount `json:"discounts"`
}

// Breakdown buckets every applied discount by kind for reporting.
type Breakdown struct {
	BulkDiscounts   []AppliedDiscount `json:"bulkDiscounts"`
	ExpiryDiscounts []AppliedDiscount `json:"expiryDiscounts"`
	OtherDiscounts  []AppliedDiscount `json:"otherDiscounts"`
}

// DiscountResult aggregates per-line and cart-level discount output. It is
// computed, never persisted.
type DiscountResult struct {
	OriginalTotal    float64           `json:"originalTotal"`
	DiscountedTotal  float64           `json:"discountedTotal"`
	TotalSavings     float64           `json:"totalSavings"`
	AppliedDiscounts []AppliedDiscount `json:"appliedDiscounts"`
	UpdatedItems     []LineResult      `json:"updatedItems"`
	Breakdown        Breakdown         `json:"breakdown"`
}

// Engine orchestrates per-line discount computation. The calculation path is
// read-only and safe for concurrent callers; the only write is the
// best-effort usage counting at the end.
type Engine struct {
	Q      Querier
	Tiers  promo.TierTables
	Logger zerolog.Logger
	Now    func() time.Time
}

// CalculateCartDiscounts prices the cart. Missing or inactive products are
// skipped rather than failing the whole cart; malformed promotions are logged
// and ignored. Repository read failures propagate to the caller.
func (e *Engine) CalculateCartDiscounts(ctx context.Context, items []CartItem, opts Options) (DiscountResult, error) {
	if e == nil || e.Q == nil {
		return DiscountResult{}, errors.New("pricing engine not configured")
	}
	if err := ValidateCartItems(items); err != nil {
		return DiscountResult{}, err
	}
	now := e.now()

	promotions, err := e.loadPromotions(ctx, now)
	if err != nil {
		return DiscountResult{}, err
	}
	products, err := e.resolveProducts(ctx, items)
	if err != nil {
		return DiscountResult{}, err
	}

	var res DiscountResult
	used := map[uuid.UUID]struct{}{}
	for _, item := range items {
		pid, err := uuid.Parse(item.ProductID)
		if err != nil {
			continue
		}
		product, ok := products[pid]
		if !ok || !product.Active {
			e.Logger.Debug().Str("product_id", item.ProductID).Msg("cart line skipped: product missing or inactive")
			continue
		}

		line := e.priceLine(product, item.Quantity, opts, promotions, now)
		res.UpdatedItems = append(res.UpdatedItems, line)
		res.OriginalTotal += line.OriginalPrice
		res.DiscountedTotal += line.DiscountedPrice
		res.TotalSavings += line.Savings
		for _, d := range line.Discounts {
			res.AppliedDiscounts = append(res.AppliedDiscounts, d)
			switch d.Kind {
			case KindBulk:
				res.Breakdown.BulkDiscounts = append(res.Breakdown.BulkDiscounts, d)
			case KindExpiry:
				res.Breakdown.ExpiryDiscounts = append(res.Breakdown.ExpiryDiscounts, d)
			default:
				res.Breakdown.OtherDiscounts = append(res.Breakdown.OtherDiscounts, d)
			}
			if id, err := uuid.Parse(d.PromotionID); err == nil {
				used[id] = struct{}{}
			}
		}
	}

	if res.TotalSavings > 0 && len(used) > 0 {
		ids := make([]uuid.UUID, 0, len(used))
		for id := range used {
			ids = append(ids, id)
		}
		// A counting failure must not fail a calculation that already succeeded.
		if err := e.Q.IncrementPromotionUsage(ctx, ids); err != nil {
			e.Logger.Warn().Err(err).Int("promotions", len(ids)).Msg("increment promotion usage")
		}
	}
	obs.ObserveCartCalculation(len(res.AppliedDiscounts) > 0)
	return res, nil
}

// priceLine computes one line independently of the rest of the cart.
func (e *Engine) priceLine(product inventory.Product, qty int, opts Options, promotions []promo.Promotion, now time.Time) LineResult {
	original := product.UnitPrice * float64(qty)
	line := LineResult{
		ProductID:     product.ID.String(),
		ProductName:   product.Name,
		Quantity:      qty,
		UnitPrice:     product.UnitPrice,
		OriginalPrice: original,
	}

	bulk := e.bulkDiscount(product, qty, opts.CustomerType, promotions)
	var expiry *AppliedDiscount
	if bulk == nil {
		expiry = e.expiryDiscount(product, qty, opts.CustomerType, promotions, now)
	}
	if selected := SelectPricingDiscount(bulk, expiry); selected != nil {
		selected.Amount = round2(original * selected.Percentage / 100)
		line.Discounts = append(line.Discounts, *selected)
	}
	for _, d := range e.otherDiscounts(product, qty, opts.CustomerType, promotions) {
		d.Amount = round2(original * d.Percentage / 100)
		line.Discounts = append(line.Discounts, d)
	}

	var savings float64
	for _, d := range line.Discounts {
		savings += original * d.Percentage / 100
	}
	if savings > original {
		savings = original
	}
	line.Savings = round2(savings)
	line.DiscountedPrice = round2(original - savings)
	for _, d := range line.Discounts {
		obs.ObserveDiscountApplied(string(d.Kind))
	}
	return line
}

// bulkDiscount returns the first eligible bulk promotion with a matching
// quantity tier, or nil.
func (e *Engine) bulkDiscount(product inventory.Product, qty int, customerType string, promotions []promo.Promotion) *AppliedDiscount {
	for _, p := range promotions {
		if p.Type != promo.TypeBulk {
			continue
		}
		if !promo.ProductEligible(product.ID, product.Category, p) || !promo.CustomerEligible(customerType, p) {
			continue
		}
		rules := p.BulkRules
		if len(rules) == 0 {
			rules = e.tiers().Bulk
		}
		tier := promo.MatchBulkTier(qty, rules)
		if tier == nil {
			continue
		}
		return &AppliedDiscount{
			PromotionID:   p.ID.String(),
			PromotionName: p.Name,
			Kind:          KindBulk,
			Percentage:    tier.DiscountPercentage,
			Description:   fmt.Sprintf("Bulk discount: %.0f%% off for %d+ %s", tier.DiscountPercentage, tier.MinQuantity, unitLabel(product)),
		}
	}
	return nil
}

// expiryDiscount prices the line against the FIFO-allocatable batch, if any.
func (e *Engine) expiryDiscount(product inventory.Product, qty int, customerType string, promotions []promo.Promotion, now time.Time) *AppliedDiscount {
	batch := inventory.AllocatableBatch(product.Batches, qty, now)
	if batch == nil {
		return nil
	}
	days := inventory.DaysToExpiry(batch.ExpiryDate, now)
	for _, p := range promotions {
		if p.Type != promo.TypeExpiry {
			continue
		}
		if !promo.ProductEligible(product.ID, product.Category, p) || !promo.CustomerEligible(customerType, p) {
			continue
		}
		rules := p.ExpiryRules
		if len(rules) == 0 {
			rules = e.tiers().Expiry
		}
		tier := promo.MatchExpiryTier(days, rules)
		if tier == nil {
			continue
		}
		return &AppliedDiscount{
			PromotionID:   p.ID.String(),
			PromotionName: p.Name,
			Kind:          KindExpiry,
			Percentage:    tier.DiscountPercentage,
			Description:   fmt.Sprintf("Expiry discount: %.0f%% off, batch %s expires in %d days", tier.DiscountPercentage, batch.BatchNumber, days),
		}
	}
	return nil
}

// otherDiscounts evaluates non-tiered promotion types; each one stacks
// additively on top of whichever tiered discount was selected.
func (e *Engine) otherDiscounts(product inventory.Product, qty int, customerType string, promotions []promo.Promotion) []AppliedDiscount {
	var out []AppliedDiscount
	for _, p := range promotions {
		if p.Type == promo.TypeBulk || p.Type == promo.TypeExpiry {
			continue
		}
		if !promo.ProductEligible(product.ID, product.Category, p) || !promo.CustomerEligible(customerType, p) {
			continue
		}
		if p.MinQuantity > 0 && qty < p.MinQuantity {
			continue
		}
		pct := effectivePercentage(p, product.UnitPrice)
		if pct <= 0 {
			continue
		}
		out = append(out, AppliedDiscount{
			PromotionID:   p.ID.String(),
			PromotionName: p.Name,
			Kind:          KindOther,
			Percentage:    pct,
			Description:   fmt.Sprintf("%s: %.1f%% off", p.Name, pct),
		})
	}
	return out
}

// loadPromotions fetches active in-window promotions and drops malformed
// definitions so a single bad tier table cannot crash a calculation.
func (e *Engine) loadPromotions(ctx context.Context, now time.Time) ([]promo.Promotion, error) {
	promotions, err := e.Q.ListUsablePromotions(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("load promotions: %w", err)
	}
	out := promotions[:0]
	for _, p := range promotions {
		if !p.Usable(now) {
			continue
		}
		if err := promo.ValidatePromotion(p); err != nil {
			e.Logger.Warn().Err(err).Str("promotion_id", p.ID.String()).Msg("skipping malformed promotion")
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (e *Engine) resolveProducts(ctx context.Context, items []CartItem) (map[uuid.UUID]inventory.Product, error) {
	ids := make([]uuid.UUID, 0, len(items))
	seen := map[uuid.UUID]struct{}{}
	for _, item := range items {
		id, err := uuid.Parse(item.ProductID)
		if err != nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	products, err := e.Q.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	byID := make(map[uuid.UUID]inventory.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID, nil
}

// effectivePercentage converts the promotion's discount spec into a percentage
// of the unit price. Fixed amounts convert via value/unitPrice; the formula is
// kept as-is even though it behaves oddly for very small unit prices.
func effectivePercentage(p promo.Promotion, unitPrice float64) float64 {
	switch p.DiscountType {
	case promo.DiscountFixed:
		if unitPrice <= 0 {
			return 0
		}
		return p.DiscountValue / unitPrice * 100
	default:
		return p.DiscountValue
	}
}

func unitLabel(p inventory.Product) string {
	if p.UnitLabel != "" {
		return p.UnitLabel
	}
	return "units"
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func (e *Engine) tiers() promo.TierTables {
	t := e.Tiers
	if len(t.Bulk) == 0 && len(t.Expiry) == 0 {
		return promo.DefaultTierTables()
	}
	return t
}

func (e *Engine) now() time.Time {
	if e != nil && e.Now != nil {
		return e.Now()
	}
	return time.Now()
}
