package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// PromoRepository defines the persistence operations for promo codes.
type PromoRepository interface {
	// GetByCode retrieves a promo code. The lookup is case-insensitive;
	// implementations match against the stored upper-cased code.
	GetByCode(ctx context.Context, code string) (*domain.PromoCode, error)

	// ConsumeUsage atomically re-checks the code's validity (active,
	// unexpired as of now, under its usage limit) and increments its usage
	// count in one unit, returning the updated record. Returns ErrNotFound
	// for an unknown code and ErrUsageExhausted when the precondition fails.
	// Two concurrent calls against a code with one remaining use must
	// produce exactly one success.
	ConsumeUsage(ctx context.Context, code string, now time.Time) (*domain.PromoCode, error)
}
