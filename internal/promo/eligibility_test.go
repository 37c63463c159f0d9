package promo

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func uuidMust(value string) uuid.UUID {
	id, err := uuid.Parse(value)
	if err != nil {
		panic(err)
	}
	return id
}

func TestProductEligibleAllScope(t *testing.T) {
	p := Promotion{Applies: ResolveApplicability(nil, nil)}
	if !ProductEligible(uuid.New(), "frozen-meat", p) {
		t.Fatal("unscoped promotion must cover every product")
	}
}

func TestProductEligibleProductScope(t *testing.T) {
	target := uuidMust("11111111-1111-1111-1111-111111111111")
	other := uuidMust("22222222-2222-2222-2222-222222222222")
	p := Promotion{Applies: ResolveApplicability([]uuid.UUID{target}, nil)}
	if !ProductEligible(target, "", p) {
		t.Fatal("listed product must be eligible")
	}
	if ProductEligible(other, "", p) {
		t.Fatal("unlisted product must not be eligible")
	}
}

func TestProductEligibleCategoryScope(t *testing.T) {
	p := Promotion{Applies: ResolveApplicability(nil, []string{"Frozen-Vegetables"})}
	if !ProductEligible(uuid.New(), "frozen-vegetables", p) {
		t.Fatal("category match must be case insensitive")
	}
	if ProductEligible(uuid.New(), "frozen-meat", p) {
		t.Fatal("other categories must not match")
	}
}

func TestProductListWinsOverCategories(t *testing.T) {
	target := uuidMust("11111111-1111-1111-1111-111111111111")
	p := Promotion{Applies: ResolveApplicability([]uuid.UUID{target}, []string{"frozen-meat"})}
	if ProductEligible(uuid.New(), "frozen-meat", p) {
		t.Fatal("category must be ignored when an explicit product list exists")
	}
	if !ProductEligible(target, "other", p) {
		t.Fatal("listed product must stay eligible")
	}
}

func TestCustomerEligible(t *testing.T) {
	if !CustomerEligible("restaurant", Promotion{}) {
		t.Fatal("empty filter admits everyone")
	}
	p := Promotion{CustomerTypes: []string{"restaurant", "hotel"}}
	if !CustomerEligible("Restaurant", p) {
		t.Fatal("type match must be case insensitive")
	}
	if CustomerEligible("retailer", p) {
		t.Fatal("unlisted type must be rejected")
	}
	all := Promotion{CustomerTypes: []string{"all"}}
	if !CustomerEligible("anything", all) {
		t.Fatal("an all entry admits everyone")
	}
}

func TestUsable(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	limit := 2
	p := Promotion{
		Active:     true,
		StartsAt:   now.AddDate(0, 0, -1),
		EndsAt:     now.AddDate(0, 0, 1),
		UsageLimit: &limit,
		UsedCount:  1,
	}
	if !p.Usable(now) {
		t.Fatal("expected usable promotion")
	}
	p.UsedCount = 2
	if p.Usable(now) {
		t.Fatal("exhausted promotion must not be usable")
	}
	p.UsedCount = 0
	p.Active = false
	if p.Usable(now) {
		t.Fatal("inactive promotion must not be usable")
	}
	p.Active = true
	if p.Usable(now.AddDate(0, 0, 5)) {
		t.Fatal("promotion outside window must not be usable")
	}
}
