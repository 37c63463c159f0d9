package pricing

import (
	"fmt"
	"math"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/frostmart/backend-pricing/internal/common"
)

// DefaultDiscountCeiling is the maximum effective discount a single line may
// carry before the result is flagged inconsistent.
const DefaultDiscountCeiling = 70.0

// totalsEpsilon bounds the floating point drift tolerated in totals arithmetic.
const totalsEpsilon = 1e-2

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateCartItems guards calculation input. It rejects the request before
// any promotion lookup, naming the offending line and field.
func ValidateCartItems(items []CartItem) error {
	if len(items) == 0 {
		return common.NewAppError(common.CodeInvalidInput, "cart is empty", http.StatusBadRequest, nil)
	}
	for i, item := range items {
		if err := validate.Struct(item); err != nil {
			field := "item"
			if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
				field = verrs[0].Field()
			}
			appErr := common.NewAppError(
				common.CodeInvalidInput,
				fmt.Sprintf("cart line %d: invalid %s", i, field),
				http.StatusBadRequest,
				err,
			)
			appErr.Details = map[string]any{"line": i, "field": field}
			return appErr
		}
	}
	return nil
}

// ValidateResult runs the independent consistency checks over an engine
// output. It is usable both as an API guard and as a test oracle.
func ValidateResult(res DiscountResult, ceilingPercent float64) error {
	if ceilingPercent <= 0 {
		ceilingPercent = DefaultDiscountCeiling
	}
	if res.DiscountedTotal > res.OriginalTotal+totalsEpsilon {
		return fmt.Errorf("discounted total %.2f exceeds original %.2f", res.DiscountedTotal, res.OriginalTotal)
	}
	if res.DiscountedTotal < -totalsEpsilon {
		return fmt.Errorf("discounted total is negative: %.2f", res.DiscountedTotal)
	}
	if diff := math.Abs(res.OriginalTotal - res.DiscountedTotal - res.TotalSavings); diff > totalsEpsilon {
		return fmt.Errorf("totals mismatch: original %.2f - discounted %.2f != savings %.2f", res.OriginalTotal, res.DiscountedTotal, res.TotalSavings)
	}
	for _, line := range res.UpdatedItems {
		var hasBulk, hasExpiry bool
		var effective float64
		for _, d := range line.Discounts {
			switch d.Kind {
			case KindBulk:
				hasBulk = true
			case KindExpiry:
				hasExpiry = true
			}
			effective += d.Percentage
		}
		if hasBulk && hasExpiry {
			return fmt.Errorf("line %s carries both bulk and expiry discounts", line.ProductID)
		}
		if effective > ceilingPercent+totalsEpsilon {
			return fmt.Errorf("line %s effective discount %.2f%% exceeds ceiling %.2f%%", line.ProductID, effective, ceilingPercent)
		}
	}
	return nil
}
