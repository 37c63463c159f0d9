package promo

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicatePromotion is returned by stores when an active auto-generated
// expiry promotion already exists for the product. The unique constraint is
// the correctness boundary; query-side dedup only avoids pointless inserts.
var ErrDuplicatePromotion = errors.New("active expiry promotion already exists for product")

// Type classifies how a promotion computes its discount.
const (
	TypeBulk   = "bulk_discount"
	TypeExpiry = "expiry_discount"
)

// DiscountType distinguishes percentage from fixed amount discounts.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed_amount"
)

// Scope describes which products an applicability condition targets.
type Scope int

const (
	// ScopeAll applies to every product.
	ScopeAll Scope = iota
	// ScopeProducts applies to an explicit product id list.
	ScopeProducts
	// ScopeCategories applies to products in any of the listed categories.
	ScopeCategories
)

// Applicability is the resolved product condition of a promotion. It is built
// once when the promotion is loaded instead of being re-derived per call.
type Applicability struct {
	Scope      Scope
	ProductIDs []uuid.UUID
	Categories []string
}

// ResolveApplicability collapses raw condition columns into a tagged variant.
// An explicit product list wins over categories; neither means all products.
func ResolveApplicability(productIDs []uuid.UUID, categories []string) Applicability {
	if len(productIDs) > 0 {
		return Applicability{Scope: ScopeProducts, ProductIDs: productIDs}
	}
	if len(categories) > 0 {
		return Applicability{Scope: ScopeCategories, Categories: categories}
	}
	return Applicability{Scope: ScopeAll}
}

// Promotion is a persisted discount rule.
type Promotion struct {
	ID            uuid.UUID
	Name          string
	Type          string
	DiscountType  DiscountType
	DiscountValue float64
	Applies       Applicability
	CustomerTypes []string
	BulkRules     []BulkTier
	ExpiryRules   []ExpiryTier
	MinQuantity   int
	StartsAt      time.Time
	EndsAt        time.Time
	Active        bool
	AutoGenerated bool
	ProductRef    *uuid.UUID
	UsageLimit    *int
	UsedCount     int
}

// InWindow reports whether the promotion validity window contains now.
func (p Promotion) InWindow(now time.Time) bool {
	return !now.Before(p.StartsAt) && !now.After(p.EndsAt)
}

// UsageExhausted reports whether the usage counter has hit the configured limit.
func (p Promotion) UsageExhausted() bool {
	return p.UsageLimit != nil && *p.UsageLimit >= 0 && p.UsedCount >= *p.UsageLimit
}

// Usable combines the active flag, validity window, and usage quota.
func (p Promotion) Usable(now time.Time) bool {
	return p.Active && p.InWindow(now) && !p.UsageExhausted()
}
