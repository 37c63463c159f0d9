package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/frostmart/backend-pricing/internal/inventory"
	"github.com/frostmart/backend-pricing/internal/obs"
	"github.com/frostmart/backend-pricing/internal/promo"
)

// Querier captures the store methods required by the lifecycle manager.
type Querier interface {
	ListProductsWithBatchesExpiringWithin(ctx context.Context, days int) ([]inventory.Product, error)
	HasActiveExpiryPromotion(ctx context.Context, productID uuid.UUID, now time.Time) (bool, error)
	InsertPromotion(ctx context.Context, p promo.Promotion) error
	DeactivateExpiredPromotions(ctx context.Context, now time.Time) (int64, error)
	ListExpiredBatches(ctx context.Context, now time.Time) ([]inventory.Batch, error)
	RemoveBatchAndDecrementStock(ctx context.Context, batchID uuid.UUID) error
}

// Locker serialises generation per product across scheduler ticks and manual
// triggers.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// GeneratedPromotion reports one promotion created by a generation run.
type GeneratedPromotion struct {
	ProductID          string          `json:"productId"`
	ProductName        string          `json:"productName"`
	Promotion          promo.Promotion `json:"promotion"`
	DaysToExpiry       int             `json:"daysToExpiry"`
	DiscountPercentage float64         `json:"discountPercentage"`
}

// Manager owns the scheduled promotion/batch maintenance jobs. It is the only
// writer of promotion and batch state outside the normal catalog paths.
type Manager struct {
	Q             Querier
	Lock          Locker
	Tiers         promo.TierTables
	LookaheadDays int
	LockTTL       time.Duration
	Logger        zerolog.Logger
	Now           func() time.Time
}

// GenerateExpiryPromotions scans products with a batch expiring inside the
// lookahead window and creates an expiry promotion for each that lacks one.
// The run is idempotent: re-entry on unchanged data creates nothing. Failures
// are contained per product so the scan always finishes.
func (m *Manager) GenerateExpiryPromotions(ctx context.Context) ([]GeneratedPromotion, error) {
	if m == nil || m.Q == nil {
		return nil, errors.New("lifecycle manager not configured")
	}
	now := m.now()
	lookahead := m.lookaheadDays()
	products, err := m.Q.ListProductsWithBatchesExpiringWithin(ctx, lookahead)
	if err != nil {
		return nil, fmt.Errorf("list expiring products: %w", err)
	}

	var created []GeneratedPromotion
	for _, product := range products {
		gen, err := m.generateForProduct(ctx, product, lookahead, now)
		if err != nil {
			if errors.Is(err, promo.ErrDuplicatePromotion) {
				continue
			}
			m.Logger.Error().Err(err).Str("product_id", product.ID.String()).Msg("generate expiry promotion")
			continue
		}
		if gen != nil {
			created = append(created, *gen)
			obs.ObservePromotionGenerated()
		}
	}
	return created, nil
}

func (m *Manager) generateForProduct(ctx context.Context, product inventory.Product, lookahead int, now time.Time) (*GeneratedPromotion, error) {
	var out *GeneratedPromotion
	err := m.withProductLock(ctx, product.ID, func(ctx context.Context) error {
		exists, err := m.Q.HasActiveExpiryPromotion(ctx, product.ID, now)
		if err != nil {
			return fmt.Errorf("dedup check: %w", err)
		}
		if exists {
			return promo.ErrDuplicatePromotion
		}

		batch := soonestQualifyingBatch(product.Batches, lookahead, now)
		if batch == nil {
			return nil
		}
		days := inventory.DaysToExpiry(batch.ExpiryDate, now)
		tier := promo.MatchExpiryTier(days, m.tiers().Expiry)
		if tier == nil {
			return nil
		}

		pid := product.ID
		p := promo.Promotion{
			ID:            uuid.New(),
			Name:          fmt.Sprintf("Expiry Discount - %s", product.Name),
			Type:          promo.TypeExpiry,
			DiscountType:  promo.DiscountPercentage,
			DiscountValue: tier.DiscountPercentage,
			Applies:       promo.ResolveApplicability([]uuid.UUID{pid}, nil),
			ExpiryRules:   m.tiers().Expiry,
			StartsAt:      now,
			// The discount must never outlive the stock it targets.
			EndsAt:        batch.ExpiryDate.AddDate(0, 0, -1),
			Active:        true,
			AutoGenerated: true,
			ProductRef:    &pid,
		}
		if err := m.Q.InsertPromotion(ctx, p); err != nil {
			return err
		}
		out = &GeneratedPromotion{
			ProductID:          product.ID.String(),
			ProductName:        product.Name,
			Promotion:          p,
			DaysToExpiry:       days,
			DiscountPercentage: tier.DiscountPercentage,
		}
		return nil
	})
	return out, err
}

// ErrInvalidPromotion wraps the consistency defects found while creating a
// promotion.
var ErrInvalidPromotion = errors.New("invalid promotion")

// CreatePromotion validates and stores an operator-defined promotion.
func (m *Manager) CreatePromotion(ctx context.Context, p promo.Promotion) (promo.Promotion, error) {
	if m == nil || m.Q == nil {
		return promo.Promotion{}, errors.New("lifecycle manager not configured")
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if err := promo.ValidatePromotion(p); err != nil {
		return promo.Promotion{}, fmt.Errorf("%w: %w", ErrInvalidPromotion, err)
	}
	if err := m.Q.InsertPromotion(ctx, p); err != nil {
		return promo.Promotion{}, fmt.Errorf("insert promotion: %w", err)
	}
	return p, nil
}

// CleanupResult reports a cleanup run outcome.
type CleanupResult struct {
	DeactivatedCount int64 `json:"deactivatedCount"`
}

// CleanupExpiredPromotions deactivates promotions whose end date has passed.
// Promotions are never deleted; historical orders may still reference them.
func (m *Manager) CleanupExpiredPromotions(ctx context.Context) (CleanupResult, error) {
	if m == nil || m.Q == nil {
		return CleanupResult{}, errors.New("lifecycle manager not configured")
	}
	n, err := m.Q.DeactivateExpiredPromotions(ctx, m.now())
	if err != nil {
		return CleanupResult{}, fmt.Errorf("deactivate expired promotions: %w", err)
	}
	obs.ObservePromotionsDeactivated(n)
	return CleanupResult{DeactivatedCount: n}, nil
}

// BatchCleanupResult reports how many expired batches were purged.
type BatchCleanupResult struct {
	BatchesRemoved int `json:"batchesRemoved"`
}

// CleanupExpiredBatches removes every past-expiry batch and decrements the
// owning product's stock, floored at zero. This is destructive and intended to
// run well after the dashboard has surfaced the batch for discounting.
func (m *Manager) CleanupExpiredBatches(ctx context.Context) (BatchCleanupResult, error) {
	if m == nil || m.Q == nil {
		return BatchCleanupResult{}, errors.New("lifecycle manager not configured")
	}
	now := m.now()
	batches, err := m.Q.ListExpiredBatches(ctx, now)
	if err != nil {
		return BatchCleanupResult{}, fmt.Errorf("list expired batches: %w", err)
	}
	removed := 0
	for _, b := range batches {
		if err := m.Q.RemoveBatchAndDecrementStock(ctx, b.ID); err != nil {
			m.Logger.Error().Err(err).
				Str("batch_id", b.ID.String()).
				Str("product_id", b.ProductID.String()).
				Msg("remove expired batch")
			continue
		}
		removed++
		obs.ObserveBatchRemoved()
	}
	return BatchCleanupResult{BatchesRemoved: removed}, nil
}

// SetupInput selects which default promotions to create.
type SetupInput struct {
	CreateBulkDiscount   bool   `json:"createBulkDiscount"`
	CreateExpiryDiscount bool   `json:"createExpiryDiscount"`
	UserID               string `json:"userId"`
}

// SetupAutomaticDiscounts creates the storewide default bulk and/or expiry
// promotions from the configured tier tables.
func (m *Manager) SetupAutomaticDiscounts(ctx context.Context, in SetupInput) ([]promo.Promotion, error) {
	if m == nil || m.Q == nil {
		return nil, errors.New("lifecycle manager not configured")
	}
	now := m.now()
	var created []promo.Promotion
	if in.CreateBulkDiscount {
		p := promo.Promotion{
			ID:            uuid.New(),
			Name:          "Automatic Bulk Discount",
			Type:          promo.TypeBulk,
			DiscountType:  promo.DiscountPercentage,
			Applies:       promo.ResolveApplicability(nil, nil),
			BulkRules:     m.tiers().Bulk,
			StartsAt:      now,
			EndsAt:        now.AddDate(1, 0, 0),
			Active:        true,
			AutoGenerated: true,
		}
		if err := m.Q.InsertPromotion(ctx, p); err != nil {
			return created, fmt.Errorf("insert bulk default: %w", err)
		}
		created = append(created, p)
	}
	if in.CreateExpiryDiscount {
		p := promo.Promotion{
			ID:            uuid.New(),
			Name:          "Automatic Expiry Discount",
			Type:          promo.TypeExpiry,
			DiscountType:  promo.DiscountPercentage,
			Applies:       promo.ResolveApplicability(nil, nil),
			ExpiryRules:   m.tiers().Expiry,
			StartsAt:      now,
			EndsAt:        now.AddDate(1, 0, 0),
			Active:        true,
			AutoGenerated: true,
		}
		if err := m.Q.InsertPromotion(ctx, p); err != nil {
			return created, fmt.Errorf("insert expiry default: %w", err)
		}
		created = append(created, p)
	}
	return created, nil
}

// soonestQualifyingBatch picks the nearest-expiry live batch inside the
// lookahead window that has not already expired.
func soonestQualifyingBatch(batches []inventory.Batch, lookahead int, now time.Time) *inventory.Batch {
	atRisk := inventory.AtRiskBatches(batches, lookahead, now)
	for i := range atRisk {
		if atRisk[i].ExpiryDate.After(now) {
			b := atRisk[i]
			return &b
		}
	}
	return nil
}

func (m *Manager) withProductLock(ctx context.Context, productID uuid.UUID, fn func(context.Context) error) error {
	if m.Lock == nil {
		return fn(ctx)
	}
	ttl := m.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return m.Lock.WithLock(ctx, "promo:generate:"+productID.String(), ttl, fn)
}

func (m *Manager) tiers() promo.TierTables {
	t := m.Tiers
	if len(t.Bulk) == 0 && len(t.Expiry) == 0 {
		return promo.DefaultTierTables()
	}
	return t
}

func (m *Manager) lookaheadDays() int {
	if m.LookaheadDays > 0 {
		return m.LookaheadDays
	}
	return 60
}

func (m *Manager) now() time.Time {
	if m != nil && m.Now != nil {
		return m.Now()
	}
	return time.Now()
}
