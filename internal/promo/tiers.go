package promo

import "sort"

// BulkTier maps an order quantity range to a discount percentage.
// A nil MaxQuantity means the tier is unbounded above.
type BulkTier struct {
	MinQuantity        int     `json:"minQuantity"`
	MaxQuantity        *int    `json:"maxQuantity"`
	DiscountPercentage float64 `json:"discountPercentage"`
}

// ExpiryTier maps a days-to-expiry range (both bounds inclusive) to a
// discount percentage.
type ExpiryTier struct {
	MinDays            int     `json:"minDays"`
	MaxDays            int     `json:"maxDays"`
	DiscountPercentage float64 `json:"discountPercentage"`
}

// TierTables groups the fallback rule tables used when a promotion does not
// carry its own. The values are injected from configuration so deployments can
// override them without a code change.
type TierTables struct {
	Bulk   []BulkTier
	Expiry []ExpiryTier
}

// DefaultTierTables returns the stock rule tables.
func DefaultTierTables() TierTables {
	return TierTables{
		Bulk: []BulkTier{
			{MinQuantity: 10, MaxQuantity: intPtr(19), DiscountPercentage: 5},
			{MinQuantity: 20, MaxQuantity: intPtr(49), DiscountPercentage: 10},
			{MinQuantity: 50, MaxQuantity: nil, DiscountPercentage: 15},
		},
		Expiry: []ExpiryTier{
			{MinDays: 30, MaxDays: 60, DiscountPercentage: 10},
			{MinDays: 15, MaxDays: 29, DiscountPercentage: 25},
			{MinDays: 0, MaxDays: 14, DiscountPercentage: 50},
		},
	}
}

// MatchBulkTier returns the tier whose range contains quantity, or nil.
// Tiers are evaluated by MinQuantity descending so the highest qualifying
// minimum wins even when ranges are mis-specified as overlapping.
func MatchBulkTier(quantity int, tiers []BulkTier) *BulkTier {
	if quantity <= 0 || len(tiers) == 0 {
		return nil
	}
	ordered := make([]BulkTier, len(tiers))
	copy(ordered, tiers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].MinQuantity > ordered[j].MinQuantity
	})
	for i := range ordered {
		t := ordered[i]
		if quantity < t.MinQuantity {
			continue
		}
		if t.MaxQuantity != nil && quantity > *t.MaxQuantity {
			continue
		}
		return &t
	}
	return nil
}

// MatchExpiryTier returns the first tier whose inclusive range contains days,
// or nil. Expiry tables are expected to be disjoint; overlaps are an input
// defect surfaced by ValidatePromotion, not resolved here.
func MatchExpiryTier(days int, tiers []ExpiryTier) *ExpiryTier {
	if days < 0 {
		return nil
	}
	for i := range tiers {
		t := tiers[i]
		if days >= t.MinDays && days <= t.MaxDays {
			return &t
		}
	}
	return nil
}

func intPtr(v int) *int { return &v }
