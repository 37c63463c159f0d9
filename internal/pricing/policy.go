package pricing

// DiscountKind buckets applied discounts for reporting.
type DiscountKind string

const (
	KindBulk   DiscountKind = "bulk"
	KindExpiry DiscountKind = "expiry"
	KindOther  DiscountKind = "other"
)

// AppliedDiscount records a single discount applied to a cart line.
type AppliedDiscount struct {
	PromotionID   string       `json:"promotionId"`
	PromotionName string       `json:"promotionName"`
	Kind          DiscountKind `json:"kind"`
	Percentage    float64      `json:"percentage"`
	Amount        float64      `json:"amount"`
	Description   string       `json:"description"`
}

// SelectPricingDiscount decides which of the two tiered discounts prices a
// line: bulk wins when both qualify, and at most one is ever applied. The
// mutual exclusion is a deliberate policy carried over from the business
// rules, not an aggregation shortcut.
func SelectPricingDiscount(bulk, expiry *AppliedDiscount) *AppliedDiscount {
	if bulk != nil {
		return bulk
	}
	return expiry
}
