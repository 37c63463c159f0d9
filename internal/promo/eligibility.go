package promo

import (
	"strings"

	"github.com/google/uuid"
)

// ProductEligible reports whether the promotion condition set covers the
// product. Product-id and category conditions are each inclusive: a promotion
// scoped to categories only needs a category match.
func ProductEligible(productID uuid.UUID, category string, p Promotion) bool {
	switch p.Applies.Scope {
	case ScopeProducts:
		for _, id := range p.Applies.ProductIDs {
			if id == productID {
				return true
			}
		}
		return false
	case ScopeCategories:
		for _, c := range p.Applies.Categories {
			if strings.EqualFold(c, category) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// CustomerEligible reports whether the caller's customer type passes the
// promotion's customer filter. An empty list or an "all" entry admits everyone.
func CustomerEligible(customerType string, p Promotion) bool {
	if len(p.CustomerTypes) == 0 {
		return true
	}
	for _, ct := range p.CustomerTypes {
		if strings.EqualFold(ct, "all") || strings.EqualFold(ct, customerType) {
			return true
		}
	}
	return false
}
