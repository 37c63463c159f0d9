package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/frostmart/backend-pricing/internal/promo"
)

const uniqueViolation = "23505"

const promotionColumns = `id, name, promo_type, discount_type, discount_value,
	product_ids, categories, customer_types, bulk_rules, expiry_rules,
	min_quantity, starts_at, ends_at, active, auto_generated, product_ref,
	usage_limit, used_count`

// ListUsablePromotions returns active promotions whose validity window
// contains now and whose usage quota is not exhausted.
func (s *Store) ListUsablePromotions(ctx context.Context, now time.Time) ([]promo.Promotion, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+promotionColumns+`
		FROM promotions
		WHERE active
		  AND starts_at <= $1
		  AND ends_at >= $1
		  AND (usage_limit IS NULL OR used_count < usage_limit)
		ORDER BY created_at ASC`, now)
	if err != nil {
		return nil, fmt.Errorf("query promotions: %w", err)
	}
	defer rows.Close()
	var out []promo.Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// IncrementPromotionUsage bumps used_count for each id in one statement.
func (s *Store) IncrementPromotionUsage(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.Pool.Exec(ctx,
		`UPDATE promotions SET used_count = used_count + 1, updated_at = now() WHERE id = ANY($1)`,
		toPgUUIDs(ids))
	if err != nil {
		return fmt.Errorf("increment promotion usage: %w", err)
	}
	return nil
}

// HasActiveExpiryPromotion reports whether the product is already covered by a
// live expiry promotion, either via the auto-generation reference or an
// explicit product list.
func (s *Store) HasActiveExpiryPromotion(ctx context.Context, productID uuid.UUID, now time.Time) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM promotions
			WHERE promo_type = $2
			  AND active
			  AND ends_at >= $3
			  AND (product_ref = $1 OR $1 = ANY(product_ids))
		)`, toPgUUID(productID), promo.TypeExpiry, now).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check expiry promotion: %w", err)
	}
	return exists, nil
}

// InsertPromotion persists a promotion. A unique-violation on the
// auto-generated product reference maps to promo.ErrDuplicatePromotion so
// concurrent generation runs converge instead of failing.
func (s *Store) InsertPromotion(ctx context.Context, p promo.Promotion) error {
	bulkRules, err := json.Marshal(p.BulkRules)
	if err != nil {
		return fmt.Errorf("marshal bulk rules: %w", err)
	}
	expiryRules, err := json.Marshal(p.ExpiryRules)
	if err != nil {
		return fmt.Errorf("marshal expiry rules: %w", err)
	}
	var productRef *pgtype.UUID
	if p.ProductRef != nil {
		ref := toPgUUID(*p.ProductRef)
		productRef = &ref
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO promotions (
			id, name, promo_type, discount_type, discount_value,
			product_ids, categories, customer_types, bulk_rules, expiry_rules,
			min_quantity, starts_at, ends_at, active, auto_generated, product_ref,
			usage_limit, used_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		toPgUUID(p.ID), p.Name, p.Type, string(p.DiscountType), p.DiscountValue,
		toPgUUIDs(p.Applies.ProductIDs), p.Applies.Categories, p.CustomerTypes, bulkRules, expiryRules,
		p.MinQuantity, p.StartsAt, p.EndsAt, p.Active, p.AutoGenerated, productRef,
		p.UsageLimit, p.UsedCount)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return promo.ErrDuplicatePromotion
		}
		return fmt.Errorf("insert promotion: %w", err)
	}
	return nil
}

// DeactivateExpiredPromotions flips active off for promotions past their end
// date and returns how many rows changed.
func (s *Store) DeactivateExpiredPromotions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE promotions SET active = false, updated_at = now() WHERE active AND ends_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("deactivate promotions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanPromotion(row pgx.Row) (promo.Promotion, error) {
	var p promo.Promotion
	var id pgtype.UUID
	var productRef *pgtype.UUID
	var productIDs []pgtype.UUID
	var bulkRules, expiryRules []byte
	err := row.Scan(
		&id, &p.Name, &p.Type, &p.DiscountType, &p.DiscountValue,
		&productIDs, &p.Applies.Categories, &p.CustomerTypes, &bulkRules, &expiryRules,
		&p.MinQuantity, &p.StartsAt, &p.EndsAt, &p.Active, &p.AutoGenerated, &productRef,
		&p.UsageLimit, &p.UsedCount)
	if err != nil {
		return promo.Promotion{}, fmt.Errorf("scan promotion: %w", err)
	}
	p.ID = uuid.UUID(id.Bytes)
	if productRef != nil && productRef.Valid {
		ref := uuid.UUID(productRef.Bytes)
		p.ProductRef = &ref
	}
	ids := make([]uuid.UUID, 0, len(productIDs))
	for _, raw := range productIDs {
		ids = append(ids, uuid.UUID(raw.Bytes))
	}
	p.Applies = promo.ResolveApplicability(ids, p.Applies.Categories)
	if len(bulkRules) > 0 {
		if err := json.Unmarshal(bulkRules, &p.BulkRules); err != nil {
			return promo.Promotion{}, fmt.Errorf("decode bulk rules: %w", err)
		}
	}
	if len(expiryRules) > 0 {
		if err := json.Unmarshal(expiryRules, &p.ExpiryRules); err != nil {
			return promo.Promotion{}, fmt.Errorf("decode expiry rules: %w", err)
		}
	}
	return p, nil
}
