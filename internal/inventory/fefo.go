package inventory

import (
	"sort"
	"time"
)

// DaysToExpiry returns the number of whole days until expiry, rounding any
// partial day up. Expired batches yield a negative count.
func DaysToExpiry(expiry, now time.Time) int {
	d := expiry.Sub(now)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// AllocatableBatch selects the batch that should back an expiry-discount
// calculation: the one with the nearest future expiry among active batches
// holding at least the required quantity. Selecting the soonest-to-expire
// eligible lot keeps consumption FIFO, so discounts track real shrinkage risk.
// Returns nil when no batch qualifies.
func AllocatableBatch(batches []Batch, required int, now time.Time) *Batch {
	var best *Batch
	for i := range batches {
		b := &batches[i]
		if b.Status != BatchActive {
			continue
		}
		if b.Available() < required {
			continue
		}
		if !b.ExpiryDate.After(now) {
			continue
		}
		if best == nil || b.ExpiryDate.Before(best.ExpiryDate) {
			best = b
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

// AtRiskBatches returns the product's live batches expiring within
// thresholdDays (including already-expired ones), ascending by expiry date.
// Depleted and non-active batches never appear as still at risk.
func AtRiskBatches(batches []Batch, thresholdDays int, now time.Time) []Batch {
	cutoff := now.AddDate(0, 0, thresholdDays)
	out := make([]Batch, 0, len(batches))
	for _, b := range batches {
		if b.Status != BatchActive || b.Available() <= 0 {
			continue
		}
		if b.ExpiryDate.After(cutoff) {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExpiryDate.Before(out[j].ExpiryDate)
	})
	return out
}
