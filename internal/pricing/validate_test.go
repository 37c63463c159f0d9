package pricing

import "testing"

func consistentResult() DiscountResult {
	return DiscountResult{
		OriginalTotal:   200,
		DiscountedTotal: 180,
		TotalSavings:    20,
		UpdatedItems: []LineResult{{
			ProductID:       "p1",
			Quantity:        10,
			UnitPrice:       20,
			OriginalPrice:   200,
			DiscountedPrice: 180,
			Savings:         20,
			Discounts:       []AppliedDiscount{{Kind: KindBulk, Percentage: 10, Amount: 20}},
		}},
	}
}

func TestValidateResultAccepts(t *testing.T) {
	if err := ValidateResult(consistentResult(), 0); err != nil {
		t.Fatalf("expected consistent result, got %v", err)
	}
}

func TestValidateResultTotalsMismatch(t *testing.T) {
	res := consistentResult()
	res.TotalSavings = 35
	if err := ValidateResult(res, 0); err == nil {
		t.Fatal("totals arithmetic violation must be flagged")
	}
}

func TestValidateResultDiscountedAboveOriginal(t *testing.T) {
	res := consistentResult()
	res.DiscountedTotal = 210
	res.TotalSavings = -10
	if err := ValidateResult(res, 0); err == nil {
		t.Fatal("discounted above original must be flagged")
	}
}

func TestValidateResultNegativeTotal(t *testing.T) {
	res := consistentResult()
	res.DiscountedTotal = -5
	res.TotalSavings = 205
	if err := ValidateResult(res, 0); err == nil {
		t.Fatal("negative discounted total must be flagged")
	}
}

func TestValidateResultBulkAndExpiryExclusive(t *testing.T) {
	res := consistentResult()
	res.UpdatedItems[0].Discounts = append(res.UpdatedItems[0].Discounts, AppliedDiscount{Kind: KindExpiry, Percentage: 5})
	if err := ValidateResult(res, 0); err == nil {
		t.Fatal("a line with both bulk and expiry discounts must be flagged")
	}
}

func TestValidateResultCeiling(t *testing.T) {
	res := consistentResult()
	res.UpdatedItems[0].Discounts = []AppliedDiscount{
		{Kind: KindBulk, Percentage: 15},
		{Kind: KindOther, Percentage: 60},
	}
	if err := ValidateResult(res, 0); err == nil {
		t.Fatal("effective discount above the ceiling must be flagged")
	}
	if err := ValidateResult(res, 80); err != nil {
		t.Fatalf("raised ceiling should admit the same result, got %v", err)
	}
}

func TestValidateCartItemsBounds(t *testing.T) {
	good := []CartItem{{ProductID: "0b8d29f1-4a6f-4a62-9d12-0a3a4f9f61e0", Quantity: 1}}
	if err := ValidateCartItems(good); err != nil {
		t.Fatalf("expected valid items, got %v", err)
	}
	bad := []CartItem{{ProductID: "0b8d29f1-4a6f-4a62-9d12-0a3a4f9f61e0", Quantity: 10001}}
	if err := ValidateCartItems(bad); err == nil {
		t.Fatal("quantity above cap must be rejected")
	}
}
