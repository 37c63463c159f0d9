package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrProductNotFound is returned when a product id does not resolve.
var ErrProductNotFound = errors.New("product not found")

// Querier captures the store methods required by the inventory service.
type Querier interface {
	GetProduct(ctx context.Context, id uuid.UUID) (Product, error)
	ListProductsWithBatchesExpiringWithin(ctx context.Context, days int) ([]Product, error)
	RecordBatch(ctx context.Context, b Batch) error
}

// DashboardEntry describes one product at risk of expiry.
type DashboardEntry struct {
	ProductID     string      `json:"productId"`
	ProductName   string      `json:"productName"`
	Stock         int         `json:"stock"`
	NearestExpiry string      `json:"nearestExpiry"`
	DaysToExpiry  int         `json:"daysToExpiry"`
	FIFOOrder     []BatchView `json:"fifoOrder"`
}

// BatchView is the dashboard projection of a batch.
type BatchView struct {
	BatchNumber       string `json:"batchNumber"`
	RemainingQuantity int    `json:"remainingQuantity"`
	ExpiryDate        string `json:"expiryDate"`
	DaysToExpiry      int    `json:"daysToExpiry"`
}

// Dashboard partitions at-risk stock into expired, critical, and warning buckets.
type Dashboard struct {
	Critical         int              `json:"critical"`
	Warning          int              `json:"warning"`
	Expired          int              `json:"expired"`
	CriticalProducts []DashboardEntry `json:"criticalProducts"`
	WarningProducts  []DashboardEntry `json:"warningProducts"`
	ExpiredProducts  []DashboardEntry `json:"expiredProducts"`
}

// Service serves expiry-dashboard queries and batch intake.
type Service struct {
	Q            Querier
	CriticalDays int
	WarningDays  int
	Now          func() time.Time
}

// ExpiryDashboard classifies every product carrying at-risk stock by its
// soonest-to-expire live batch. A product whose nearest batch has already
// expired lands in the expired bucket even when later batches are still fine.
func (s *Service) ExpiryDashboard(ctx context.Context) (Dashboard, error) {
	if s == nil || s.Q == nil {
		return Dashboard{}, errors.New("inventory service not configured")
	}
	now := s.now()
	warning := s.warningDays()
	products, err := s.Q.ListProductsWithBatchesExpiringWithin(ctx, warning)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list at-risk products: %w", err)
	}

	var dash Dashboard
	for _, p := range products {
		atRisk := AtRiskBatches(p.Batches, warning, now)
		if len(atRisk) == 0 {
			continue
		}
		entry := DashboardEntry{
			ProductID:     p.ID.String(),
			ProductName:   p.Name,
			Stock:         p.Stock,
			NearestExpiry: atRisk[0].ExpiryDate.Format(time.RFC3339),
			DaysToExpiry:  DaysToExpiry(atRisk[0].ExpiryDate, now),
			FIFOOrder:     batchViews(atRisk, now),
		}
		switch {
		case entry.DaysToExpiry <= 0:
			dash.ExpiredProducts = append(dash.ExpiredProducts, entry)
		case entry.DaysToExpiry <= s.criticalDays():
			dash.CriticalProducts = append(dash.CriticalProducts, entry)
		default:
			dash.WarningProducts = append(dash.WarningProducts, entry)
		}
	}
	dash.Expired = len(dash.ExpiredProducts)
	dash.Critical = len(dash.CriticalProducts)
	dash.Warning = len(dash.WarningProducts)
	return dash, nil
}

// BatchInput is the intake payload for a received lot.
type BatchInput struct {
	BatchNumber string    `json:"batchNumber" validate:"required"`
	Quantity    int       `json:"quantity" validate:"required,gt=0"`
	ExpiryDate  time.Time `json:"expiryDate" validate:"required"`
	ReceivedAt  time.Time `json:"receivedAt"`
}

// AddBatch records a received lot against the product and bumps its stock
// atomically, keeping the stock/batches invariant intact.
func (s *Service) AddBatch(ctx context.Context, productID uuid.UUID, in BatchInput) (Batch, error) {
	if s == nil || s.Q == nil {
		return Batch{}, errors.New("inventory service not configured")
	}
	if strings.TrimSpace(in.BatchNumber) == "" {
		return Batch{}, errors.New("batch number is required")
	}
	if in.Quantity <= 0 {
		return Batch{}, fmt.Errorf("batch quantity must be positive, got %d", in.Quantity)
	}
	if _, err := s.Q.GetProduct(ctx, productID); err != nil {
		return Batch{}, err
	}
	received := in.ReceivedAt
	if received.IsZero() {
		received = s.now()
	}
	b := Batch{
		ID:                uuid.New(),
		ProductID:         productID,
		BatchNumber:       strings.TrimSpace(in.BatchNumber),
		Quantity:          in.Quantity,
		RemainingQuantity: in.Quantity,
		ExpiryDate:        in.ExpiryDate,
		ReceivedDate:      received,
		Status:            BatchActive,
	}
	if err := s.Q.RecordBatch(ctx, b); err != nil {
		return Batch{}, fmt.Errorf("record batch: %w", err)
	}
	return b, nil
}

func batchViews(batches []Batch, now time.Time) []BatchView {
	out := make([]BatchView, 0, len(batches))
	for _, b := range batches {
		out = append(out, BatchView{
			BatchNumber:       b.BatchNumber,
			RemainingQuantity: b.Available(),
			ExpiryDate:        b.ExpiryDate.Format(time.RFC3339),
			DaysToExpiry:      DaysToExpiry(b.ExpiryDate, now),
		})
	}
	return out
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) criticalDays() int {
	if s.CriticalDays > 0 {
		return s.CriticalDays
	}
	return 7
}

func (s *Service) warningDays() int {
	if s.WarningDays > 0 {
		return s.WarningDays
	}
	return 30
}
