package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frostmart/backend-pricing/internal/inventory"
)

// Store provides pgx-backed persistence for products, batches, and promotions.
// It satisfies the querier interfaces of the pricing, inventory, and lifecycle
// packages.
type Store struct {
	Pool *pgxpool.Pool
}

// New constructs a Store around the provided pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

const productColumns = `id, name, category, unit_price, unit_label, stock, min_stock, active`

// GetProduct loads one product with its batches.
func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (inventory.Product, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, toPgUUID(id))
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return inventory.Product{}, inventory.ErrProductNotFound
		}
		return inventory.Product{}, fmt.Errorf("get product: %w", err)
	}
	batches, err := s.batchesByProduct(ctx, []uuid.UUID{id})
	if err != nil {
		return inventory.Product{}, err
	}
	p.Batches = batches[id]
	return p, nil
}

// GetProductsByIDs loads the requested products, batches included. Unknown ids
// are simply absent from the result.
func (s *Store) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]inventory.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, toPgUUIDs(ids))
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	products, err := collectProducts(rows)
	if err != nil {
		return nil, err
	}
	return s.attachBatches(ctx, products)
}

// ListProductsWithBatchesExpiringWithin returns active products holding at
// least one live batch expiring inside the window (already-expired included).
func (s *Store) ListProductsWithBatchesExpiringWithin(ctx context.Context, days int) ([]inventory.Product, error) {
	cutoff := time.Now().AddDate(0, 0, days)
	rows, err := s.Pool.Query(ctx, `
		SELECT DISTINCT p.id, p.name, p.category, p.unit_price, p.unit_label, p.stock, p.min_stock, p.active
		FROM products p
		JOIN batches b ON b.product_id = p.id
		WHERE p.active
		  AND b.status = 'active'
		  AND b.remaining_quantity <> 0
		  AND b.expiry_date <= $1`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query expiring products: %w", err)
	}
	products, err := collectProducts(rows)
	if err != nil {
		return nil, err
	}
	return s.attachBatches(ctx, products)
}

// RecordBatch inserts a received lot and bumps the product stock in the same
// transaction.
func (s *Store) RecordBatch(ctx context.Context, b inventory.Batch) error {
	return pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO batches (id, product_id, batch_number, quantity, remaining_quantity, expiry_date, received_date, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			toPgUUID(b.ID), toPgUUID(b.ProductID), b.BatchNumber, b.Quantity, b.RemainingQuantity,
			b.ExpiryDate, b.ReceivedDate, string(b.Status))
		if err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
		_, err = tx.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1`,
			toPgUUID(b.ProductID), b.Quantity)
		if err != nil {
			return fmt.Errorf("increment stock: %w", err)
		}
		return nil
	})
}

// ListExpiredBatches returns every batch whose expiry date has passed.
func (s *Store) ListExpiredBatches(ctx context.Context, now time.Time) ([]inventory.Batch, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, product_id, batch_number, quantity, remaining_quantity, expiry_date, received_date, status
		FROM batches WHERE expiry_date <= $1`, now)
	if err != nil {
		return nil, fmt.Errorf("query expired batches: %w", err)
	}
	defer rows.Close()
	var out []inventory.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// RemoveBatchAndDecrementStock deletes the batch and reduces the product's
// stock by the batch's still-counted quantity in one transaction.
func (s *Store) RemoveBatchAndDecrementStock(ctx context.Context, batchID uuid.UUID) error {
	return pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		var productID pgtype.UUID
		var quantity, remaining int
		err := tx.QueryRow(ctx,
			`DELETE FROM batches WHERE id = $1 RETURNING product_id, quantity, remaining_quantity`,
			toPgUUID(batchID)).Scan(&productID, &quantity, &remaining)
		if err != nil {
			return fmt.Errorf("delete batch: %w", err)
		}
		counted := remaining
		if counted < 0 {
			counted = quantity
		}
		_, err = tx.Exec(ctx,
			`UPDATE products SET stock = GREATEST(stock - $2, 0), updated_at = now() WHERE id = $1`,
			productID, counted)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		return nil
	})
}

func (s *Store) attachBatches(ctx context.Context, products []inventory.Product) ([]inventory.Product, error) {
	if len(products) == 0 {
		return products, nil
	}
	ids := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	batches, err := s.batchesByProduct(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].Batches = batches[products[i].ID]
	}
	return products, nil
}

func (s *Store) batchesByProduct(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]inventory.Batch, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, product_id, batch_number, quantity, remaining_quantity, expiry_date, received_date, status
		FROM batches WHERE product_id = ANY($1)
		ORDER BY expiry_date ASC`, toPgUUIDs(productIDs))
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()
	out := make(map[uuid.UUID][]inventory.Batch, len(productIDs))
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out[b.ProductID] = append(out[b.ProductID], b)
	}
	return out, rows.Err()
}

func collectProducts(rows pgx.Rows) ([]inventory.Product, error) {
	defer rows.Close()
	var out []inventory.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (inventory.Product, error) {
	var p inventory.Product
	var id pgtype.UUID
	if err := row.Scan(&id, &p.Name, &p.Category, &p.UnitPrice, &p.UnitLabel, &p.Stock, &p.MinStock, &p.Active); err != nil {
		return inventory.Product{}, err
	}
	p.ID = uuid.UUID(id.Bytes)
	return p, nil
}

func scanBatch(row pgx.Row) (inventory.Batch, error) {
	var b inventory.Batch
	var id, productID pgtype.UUID
	var status string
	if err := row.Scan(&id, &productID, &b.BatchNumber, &b.Quantity, &b.RemainingQuantity, &b.ExpiryDate, &b.ReceivedDate, &status); err != nil {
		return inventory.Batch{}, fmt.Errorf("scan batch: %w", err)
	}
	b.ID = uuid.UUID(id.Bytes)
	b.ProductID = uuid.UUID(productID.Bytes)
	b.Status = inventory.BatchStatus(status)
	return b, nil
}

func toPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func toPgUUIDs(ids []uuid.UUID) []pgtype.UUID {
	out := make([]pgtype.UUID, 0, len(ids))
	for _, id := range ids {
		out = append(out, toPgUUID(id))
	}
	return out
}
