package inventory

import (
	"time"

	"github.com/google/uuid"
)

// BatchStatus tracks the lifecycle of a received lot.
type BatchStatus string

const (
	BatchActive   BatchStatus = "active"
	BatchExpired  BatchStatus = "expired"
	BatchDepleted BatchStatus = "depleted"
)

// Batch is a dated, quantity-tracked lot of a product's received stock.
type Batch struct {
	ID                uuid.UUID
	ProductID         uuid.UUID
	BatchNumber       string
	Quantity          int
	RemainingQuantity int
	ExpiryDate        time.Time
	ReceivedDate      time.Time
	Status            BatchStatus
}

// Available returns the quantity still allocatable from the batch. Rows
// imported before remaining tracking carry a -1 sentinel and fall back to the
// original quantity.
func (b Batch) Available() int {
	if b.RemainingQuantity < 0 {
		return b.Quantity
	}
	return b.RemainingQuantity
}

// Depleted reports whether the batch has no allocatable stock left. A batch
// with zero remaining is logically depleted whatever its status column says.
func (b Batch) Depleted() bool {
	return b.Available() <= 0
}

// Product is the catalog entry as the pricing engine sees it.
type Product struct {
	ID        uuid.UUID
	Name      string
	Category  string
	UnitPrice float64
	UnitLabel string
	Stock     int
	MinStock  int
	Active    bool
	Batches   []Batch
}
