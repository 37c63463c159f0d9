package promo

import "testing"

func TestMatchBulkTierDefaults(t *testing.T) {
	tiers := DefaultTierTables().Bulk
	cases := []struct {
		quantity int
		want     float64
	}{
		{1, 0},
		{9, 0},
		{10, 5},
		{19, 5},
		{20, 10},
		{49, 10},
		{50, 15},
		{5000, 15},
	}
	for _, tc := range cases {
		tier := MatchBulkTier(tc.quantity, tiers)
		if tc.want == 0 {
			if tier != nil {
				t.Fatalf("quantity %d: expected no tier, got %+v", tc.quantity, tier)
			}
			continue
		}
		if tier == nil {
			t.Fatalf("quantity %d: expected tier with %.0f%%, got nil", tc.quantity, tc.want)
		}
		if tier.DiscountPercentage != tc.want {
			t.Fatalf("quantity %d: expected %.0f%%, got %.0f%%", tc.quantity, tc.want, tier.DiscountPercentage)
		}
	}
}

func TestMatchBulkTierHighestMinWinsOnOverlap(t *testing.T) {
	tiers := []BulkTier{
		{MinQuantity: 10, MaxQuantity: nil, DiscountPercentage: 5},
		{MinQuantity: 20, MaxQuantity: nil, DiscountPercentage: 10},
	}
	tier := MatchBulkTier(25, tiers)
	if tier == nil || tier.DiscountPercentage != 10 {
		t.Fatalf("expected overlapping ranges to resolve to the 10%% tier, got %+v", tier)
	}
}

func TestMatchBulkTierZeroAndNegative(t *testing.T) {
	tiers := DefaultTierTables().Bulk
	if tier := MatchBulkTier(0, tiers); tier != nil {
		t.Fatalf("expected nil for zero quantity, got %+v", tier)
	}
	if tier := MatchBulkTier(-3, tiers); tier != nil {
		t.Fatalf("expected nil for negative quantity, got %+v", tier)
	}
}

func TestMatchExpiryTierDefaults(t *testing.T) {
	tiers := DefaultTierTables().Expiry
	cases := []struct {
		days int
		want float64
	}{
		{0, 50},
		{14, 50},
		{15, 25},
		{29, 25},
		{30, 10},
		{60, 10},
		{61, 0},
	}
	for _, tc := range cases {
		tier := MatchExpiryTier(tc.days, tiers)
		if tc.want == 0 {
			if tier != nil {
				t.Fatalf("days %d: expected no tier, got %+v", tc.days, tier)
			}
			continue
		}
		if tier == nil || tier.DiscountPercentage != tc.want {
			t.Fatalf("days %d: expected %.0f%%, got %+v", tc.days, tc.want, tier)
		}
	}
}

func TestMatchExpiryTierNegativeDays(t *testing.T) {
	if tier := MatchExpiryTier(-1, DefaultTierTables().Expiry); tier != nil {
		t.Fatalf("expired stock must not match a tier, got %+v", tier)
	}
}
