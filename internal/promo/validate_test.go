package promo

import (
	"errors"
	"testing"
	"time"
)

func validPromotion() Promotion {
	return Promotion{
		Name:         "Weekend Bulk",
		Type:         TypeBulk,
		DiscountType: DiscountPercentage,
		BulkRules:    DefaultTierTables().Bulk,
		StartsAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndsAt:       time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Active:       true,
	}
}

func TestValidatePromotionAcceptsDefaults(t *testing.T) {
	if err := ValidatePromotion(validPromotion()); err != nil {
		t.Fatalf("expected valid promotion, got %v", err)
	}
}

func TestValidatePromotionInvertedWindow(t *testing.T) {
	p := validPromotion()
	p.StartsAt, p.EndsAt = p.EndsAt, p.StartsAt
	err := ValidatePromotion(p)
	if !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestValidatePromotionPercentOutOfRange(t *testing.T) {
	p := validPromotion()
	p.DiscountValue = 130
	err := ValidatePromotion(p)
	if !errors.Is(err, ErrPercentOutOfRange) {
		t.Fatalf("expected ErrPercentOutOfRange, got %v", err)
	}
}

func TestValidatePromotionOverlappingBulkTiers(t *testing.T) {
	p := validPromotion()
	p.BulkRules = []BulkTier{
		{MinQuantity: 10, MaxQuantity: intPtr(25), DiscountPercentage: 5},
		{MinQuantity: 20, MaxQuantity: intPtr(49), DiscountPercentage: 10},
	}
	err := ValidatePromotion(p)
	if !errors.Is(err, ErrOverlappingBulkTiers) {
		t.Fatalf("expected ErrOverlappingBulkTiers, got %v", err)
	}
}

func TestValidatePromotionUnboundedTierBeforeAnother(t *testing.T) {
	p := validPromotion()
	p.BulkRules = []BulkTier{
		{MinQuantity: 10, MaxQuantity: nil, DiscountPercentage: 5},
		{MinQuantity: 50, MaxQuantity: nil, DiscountPercentage: 15},
	}
	err := ValidatePromotion(p)
	if !errors.Is(err, ErrOverlappingBulkTiers) {
		t.Fatalf("unbounded lower tier must conflict with a higher tier, got %v", err)
	}
}

func TestValidatePromotionBadExpiryTier(t *testing.T) {
	p := validPromotion()
	p.Type = TypeExpiry
	p.BulkRules = nil
	p.ExpiryRules = []ExpiryTier{{MinDays: 20, MaxDays: 10, DiscountPercentage: 25}}
	err := ValidatePromotion(p)
	if !errors.Is(err, ErrInvalidExpiryTier) {
		t.Fatalf("expected ErrInvalidExpiryTier, got %v", err)
	}
}

func TestValidatePromotionCollectsAllDefects(t *testing.T) {
	p := validPromotion()
	p.Name = ""
	p.DiscountValue = -5
	p.EndsAt = p.StartsAt
	err := ValidatePromotion(p)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrInvalidWindow) || !errors.Is(err, ErrPercentOutOfRange) {
		t.Fatalf("expected joined defects, got %v", err)
	}
}
