package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type stubQuerier struct {
	products []Product
	byID     map[uuid.UUID]Product
	recorded []Batch
	listErr  error
	recErr   error
}

func (s *stubQuerier) GetProduct(_ context.Context, id uuid.UUID) (Product, error) {
	if p, ok := s.byID[id]; ok {
		return p, nil
	}
	return Product{}, ErrProductNotFound
}

func (s *stubQuerier) ListProductsWithBatchesExpiringWithin(_ context.Context, _ int) ([]Product, error) {
	return s.products, s.listErr
}

func (s *stubQuerier) RecordBatch(_ context.Context, b Batch) error {
	if s.recErr != nil {
		return s.recErr
	}
	s.recorded = append(s.recorded, b)
	return nil
}

func productWithBatch(name string, expiresIn time.Duration) Product {
	id := uuid.New()
	return Product{
		ID:        id,
		Name:      name,
		UnitPrice: 10,
		Stock:     100,
		Active:    true,
		Batches: []Batch{{
			ID:                uuid.New(),
			ProductID:         id,
			BatchNumber:       "B-" + name,
			Quantity:          100,
			RemainingQuantity: 100,
			ExpiryDate:        testNow.Add(expiresIn),
			Status:            BatchActive,
		}},
	}
}

func TestExpiryDashboardBuckets(t *testing.T) {
	q := &stubQuerier{products: []Product{
		productWithBatch("critical", 3*24*time.Hour),
		productWithBatch("warning", 20*24*time.Hour),
		productWithBatch("expired", -24*time.Hour),
	}}
	svc := &Service{Q: q, CriticalDays: 7, WarningDays: 30, Now: func() time.Time { return testNow }}

	dash, err := svc.ExpiryDashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.Critical != 1 || dash.Warning != 1 || dash.Expired != 1 {
		t.Fatalf("unexpected bucket counts: %+v", dash)
	}
	if dash.CriticalProducts[0].ProductName != "critical" {
		t.Fatalf("wrong critical product: %s", dash.CriticalProducts[0].ProductName)
	}
	if dash.ExpiredProducts[0].DaysToExpiry > 0 {
		t.Fatalf("expired entry must have non-positive days, got %d", dash.ExpiredProducts[0].DaysToExpiry)
	}
	if len(dash.CriticalProducts[0].FIFOOrder) != 1 {
		t.Fatal("expected at-risk batches listed in FIFO order")
	}
}

func TestExpiryDashboardExpiredBucketWinsOverLaterBatches(t *testing.T) {
	p := productWithBatch("mixed", -24*time.Hour)
	p.Batches = append(p.Batches, Batch{
		ID:                uuid.New(),
		ProductID:         p.ID,
		BatchNumber:       "B-LATER",
		Quantity:          50,
		RemainingQuantity: 50,
		ExpiryDate:        testNow.Add(25 * 24 * time.Hour),
		Status:            BatchActive,
	})
	q := &stubQuerier{products: []Product{p}}
	svc := &Service{Q: q, Now: func() time.Time { return testNow }}

	dash, err := svc.ExpiryDashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.Expired != 1 || dash.Warning != 0 {
		t.Fatalf("nearest-batch classification expected, got %+v", dash)
	}
}

func TestAddBatchRecordsAndDefaults(t *testing.T) {
	product := productWithBatch("p", 30*24*time.Hour)
	q := &stubQuerier{byID: map[uuid.UUID]Product{product.ID: product}}
	svc := &Service{Q: q, Now: func() time.Time { return testNow }}

	b, err := svc.AddBatch(context.Background(), product.ID, BatchInput{
		BatchNumber: "  FRZ-2026-001 ",
		Quantity:    40,
		ExpiryDate:  testNow.AddDate(0, 2, 0),
	})
	if err != nil {
		t.Fatalf("add batch: %v", err)
	}
	if b.BatchNumber != "FRZ-2026-001" {
		t.Fatalf("batch number not trimmed: %q", b.BatchNumber)
	}
	if b.RemainingQuantity != 40 || b.Status != BatchActive {
		t.Fatalf("unexpected batch: %+v", b)
	}
	if !b.ReceivedDate.Equal(testNow) {
		t.Fatalf("received date should default to now, got %v", b.ReceivedDate)
	}
	if len(q.recorded) != 1 {
		t.Fatalf("expected one recorded batch, got %d", len(q.recorded))
	}
}

func TestAddBatchRejectsBadInput(t *testing.T) {
	product := productWithBatch("p", 30*24*time.Hour)
	q := &stubQuerier{byID: map[uuid.UUID]Product{product.ID: product}}
	svc := &Service{Q: q, Now: func() time.Time { return testNow }}

	if _, err := svc.AddBatch(context.Background(), product.ID, BatchInput{BatchNumber: " ", Quantity: 10, ExpiryDate: testNow.AddDate(0, 1, 0)}); err == nil {
		t.Fatal("blank batch number must be rejected")
	}
	if _, err := svc.AddBatch(context.Background(), product.ID, BatchInput{BatchNumber: "B", Quantity: 0, ExpiryDate: testNow.AddDate(0, 1, 0)}); err == nil {
		t.Fatal("non-positive quantity must be rejected")
	}
	if _, err := svc.AddBatch(context.Background(), uuid.New(), BatchInput{BatchNumber: "B", Quantity: 5, ExpiryDate: testNow.AddDate(0, 1, 0)}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if len(q.recorded) != 0 {
		t.Fatal("nothing should be recorded on rejection")
	}
}
