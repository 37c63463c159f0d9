package promo

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidWindow is returned when the validity window is missing or inverted.
	ErrInvalidWindow = errors.New("promotion validity window invalid")
	// ErrPercentOutOfRange is returned when a discount percentage escapes [0,100].
	ErrPercentOutOfRange = errors.New("discount percentage out of range")
	// ErrOverlappingBulkTiers is returned when bulk tier ranges overlap.
	ErrOverlappingBulkTiers = errors.New("bulk tiers overlap")
	// ErrInvalidExpiryTier is returned when an expiry tier range is inconsistent.
	ErrInvalidExpiryTier = errors.New("expiry tier range invalid")
)

// ValidatePromotion runs the stateless consistency checks over a promotion
// definition. All defects found are joined into the returned error; a nil
// return means the promotion is safe to evaluate.
func ValidatePromotion(p Promotion) error {
	var errs []error
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, errors.New("promotion name is required"))
	}
	if strings.TrimSpace(p.Type) == "" {
		errs = append(errs, errors.New("promotion type is required"))
	}
	if p.StartsAt.IsZero() || p.EndsAt.IsZero() || !p.StartsAt.Before(p.EndsAt) {
		errs = append(errs, ErrInvalidWindow)
	}
	if p.DiscountType == DiscountPercentage && (p.DiscountValue < 0 || p.DiscountValue > 100) {
		errs = append(errs, fmt.Errorf("%w: %.2f", ErrPercentOutOfRange, p.DiscountValue))
	}
	if err := validateBulkTiers(p.BulkRules); err != nil {
		errs = append(errs, err)
	}
	if err := validateExpiryTiers(p.ExpiryRules); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func validateBulkTiers(tiers []BulkTier) error {
	var errs []error
	for _, t := range tiers {
		if t.DiscountPercentage < 0 || t.DiscountPercentage > 100 {
			errs = append(errs, fmt.Errorf("%w: bulk tier min=%d pct=%.2f", ErrPercentOutOfRange, t.MinQuantity, t.DiscountPercentage))
		}
		if t.MinQuantity < 0 {
			errs = append(errs, fmt.Errorf("bulk tier min quantity negative: %d", t.MinQuantity))
		}
		if t.MaxQuantity != nil && *t.MaxQuantity < t.MinQuantity {
			errs = append(errs, fmt.Errorf("bulk tier max %d below min %d", *t.MaxQuantity, t.MinQuantity))
		}
	}
	ordered := make([]BulkTier, len(tiers))
	copy(ordered, tiers)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].MinQuantity < ordered[j].MinQuantity })
	for i := 1; i < len(ordered); i++ {
		prev := ordered[i-1]
		// An unbounded or too-high previous tier swallows the next tier's minimum.
		if prev.MaxQuantity == nil || *prev.MaxQuantity >= ordered[i].MinQuantity {
			errs = append(errs, fmt.Errorf("%w: tiers starting at %d and %d", ErrOverlappingBulkTiers, prev.MinQuantity, ordered[i].MinQuantity))
		}
	}
	return errors.Join(errs...)
}

func validateExpiryTiers(tiers []ExpiryTier) error {
	var errs []error
	for _, t := range tiers {
		if t.MinDays < 0 || t.MaxDays < 0 || t.MaxDays < t.MinDays {
			errs = append(errs, fmt.Errorf("%w: [%d,%d]", ErrInvalidExpiryTier, t.MinDays, t.MaxDays))
		}
		if t.DiscountPercentage < 0 || t.DiscountPercentage > 100 {
			errs = append(errs, fmt.Errorf("%w: expiry tier [%d,%d] pct=%.2f", ErrPercentOutOfRange, t.MinDays, t.MaxDays, t.DiscountPercentage))
		}
	}
	return errors.Join(errs...)
}
