package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartCalculationsTotal counts cart discount calculations by outcome.
	CartCalculationsTotal *prometheus.CounterVec
	// DiscountsAppliedTotal counts applied discounts by kind (bulk/expiry/other).
	DiscountsAppliedTotal *prometheus.CounterVec
	// PromotionsGeneratedTotal counts auto-generated expiry promotions.
	PromotionsGeneratedTotal prometheus.Counter
	// PromotionsDeactivatedTotal counts promotions deactivated by cleanup runs.
	PromotionsDeactivatedTotal prometheus.Counter
	// BatchesRemovedTotal counts expired batches purged by cleanup runs.
	BatchesRemovedTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers pricing-domain collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartCalculationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_calculations_total",
			Help:      "Count of cart discount calculations by outcome.",
		}, []string{"result"})
		DiscountsAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discounts_applied_total",
			Help:      "Count of discounts applied to cart lines by kind.",
		}, []string{"kind"})
		PromotionsGeneratedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotions_generated_total",
			Help:      "Number of expiry promotions created by the lifecycle manager.",
		})
		PromotionsDeactivatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotions_deactivated_total",
			Help:      "Number of promotions deactivated past their end date.",
		})
		BatchesRemovedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_removed_total",
			Help:      "Number of expired batches removed from inventory.",
		})

		mustRegisterCollector(reg, CartCalculationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartCalculationsTotal = v
			}
		})
		mustRegisterCollector(reg, DiscountsAppliedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DiscountsAppliedTotal = v
			}
		})
		mustRegisterCollector(reg, PromotionsGeneratedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PromotionsGeneratedTotal = v
			}
		})
		mustRegisterCollector(reg, PromotionsDeactivatedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PromotionsDeactivatedTotal = v
			}
		})
		mustRegisterCollector(reg, BatchesRemovedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				BatchesRemovedTotal = v
			}
		})
	})
}

// ObserveCartCalculation records a completed calculation. Collectors may be
// unregistered in tests, so every observation is nil-guarded.
func ObserveCartCalculation(discounted bool) {
	if CartCalculationsTotal == nil {
		return
	}
	result := "undiscounted"
	if discounted {
		result = "discounted"
	}
	CartCalculationsTotal.WithLabelValues(result).Inc()
}

// ObserveDiscountApplied records one applied discount by kind.
func ObserveDiscountApplied(kind string) {
	if DiscountsAppliedTotal == nil {
		return
	}
	DiscountsAppliedTotal.WithLabelValues(kind).Inc()
}

// ObservePromotionGenerated records one auto-generated promotion.
func ObservePromotionGenerated() {
	if PromotionsGeneratedTotal != nil {
		PromotionsGeneratedTotal.Inc()
	}
}

// ObservePromotionsDeactivated records a cleanup run's deactivation count.
func ObservePromotionsDeactivated(n int64) {
	if PromotionsDeactivatedTotal != nil && n > 0 {
		PromotionsDeactivatedTotal.Add(float64(n))
	}
}

// ObserveBatchRemoved records one purged batch.
func ObserveBatchRemoved() {
	if BatchesRemovedTotal != nil {
		BatchesRemovedTotal.Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
