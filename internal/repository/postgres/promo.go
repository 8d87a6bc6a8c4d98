package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// PromoRepository is a PostgreSQL implementation of repository.PromoRepository.
type PromoRepository struct {
	q Querier
}

// NewPromoRepository creates a new PostgreSQL promo repository.
func NewPromoRepository(db *sql.DB) *PromoRepository {
	return &PromoRepository{q: db}
}

const promoColumns = `
	code, description, discount_percent, max_discount,
	valid_until, usage_limit, used_count, is_active
`

// GetByCode retrieves a promo code, matching case-insensitively.
func (r *PromoRepository) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	query := `SELECT ` + promoColumns + ` FROM promo_codes WHERE code = $1`

	promo, err := scanPromo(r.q.QueryRowContext(ctx, query, strings.ToUpper(code)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return promo, nil
}

// ConsumeUsage atomically re-checks validity and increments the usage count.
// The guard lives in the UPDATE's WHERE clause, so concurrent applications
// of a code with one remaining use resolve to exactly one success at the
// database level.
func (r *PromoRepository) ConsumeUsage(ctx context.Context, code string, now time.Time) (*domain.PromoCode, error) {
	query := `
		UPDATE promo_codes
		SET used_count = used_count + 1
		WHERE code = $1
		  AND is_active
		  AND (valid_until IS NULL OR valid_until > $2)
		  AND (usage_limit IS NULL OR used_count < usage_limit)
		RETURNING ` + promoColumns

	promo, err := scanPromo(r.q.QueryRowContext(ctx, query, strings.ToUpper(code), now))
	if err == nil {
		return promo, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	// No row updated: distinguish an unknown code from an exhausted one.
	if _, lookupErr := r.GetByCode(ctx, code); lookupErr != nil {
		return nil, lookupErr
	}
	return nil, repository.ErrUsageExhausted
}

func scanPromo(row rowScanner) (*domain.PromoCode, error) {
	var promo domain.PromoCode
	var description sql.NullString
	var maxDiscount sql.NullFloat64
	var validUntil sql.NullTime
	var usageLimit sql.NullInt64

	err := row.Scan(
		&promo.Code,
		&description,
		&promo.DiscountPercent,
		&maxDiscount,
		&validUntil,
		&usageLimit,
		&promo.UsedCount,
		&promo.IsActive,
	)
	if err != nil {
		return nil, err
	}

	promo.Description = description.String
	if maxDiscount.Valid {
		promo.MaxDiscount = &maxDiscount.Float64
	}
	if validUntil.Valid {
		promo.ValidUntil = &validUntil.Time
	}
	if usageLimit.Valid {
		limit := int(usageLimit.Int64)
		promo.UsageLimit = &limit
	}

	return &promo, nil
}
