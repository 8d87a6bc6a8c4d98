package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// PromoLedger validates promo codes and applies them to fares. Application
// and the usage-count increment happen in one atomic storage operation so
// that concurrent uses of a nearly-exhausted code cannot both succeed.
type PromoLedger struct {
	promoRepo repository.PromoRepository
	fare      *FareCalculator
	log       *logrus.Logger
}

// NewPromoLedger creates a new PromoLedger.
func NewPromoLedger(promoRepo repository.PromoRepository, fare *FareCalculator, log *logrus.Logger) *PromoLedger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PromoLedger{promoRepo: promoRepo, fare: fare, log: log}
}

// PromoApplication is the result of applying a promo code.
type PromoApplication struct {
	Code         string
	OriginalFare float64
	FinalFare    float64
	Discount     float64
}

// Validate checks a code without consuming a use. Returns ErrPromoInvalid,
// wrapped with the reason, when the code exists but cannot be applied.
func (l *PromoLedger) Validate(ctx context.Context, code string) (*domain.PromoCode, error) {
	promo, err := l.promoRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := usabilityError(promo, time.Now()); err != nil {
		return nil, err
	}
	return promo, nil
}

// Apply validates the code, computes the discounted fare and increments the
// usage count as one unit. The validity re-check rides inside the storage
// increment, so a lost race surfaces as ErrPromoInvalid even if Validate
// would have passed a moment earlier.
func (l *PromoLedger) Apply(ctx context.Context, code string, fare float64) (*PromoApplication, error) {
	if fare <= 0 {
		return nil, ErrInvalidFare
	}

	now := time.Now()
	promo, err := l.promoRepo.ConsumeUsage(ctx, code, now)
	if err != nil {
		if errors.Is(err, repository.ErrUsageExhausted) {
			// Fetch the record only to name the reason in the error.
			if stale, lookupErr := l.promoRepo.GetByCode(ctx, code); lookupErr == nil {
				if reason := usabilityError(stale, now); reason != nil {
					return nil, reason
				}
			}
			return nil, ErrPromoInvalid
		}
		return nil, err
	}

	finalFare, discount := l.fare.ApplyPromo(fare, promo)

	l.log.WithFields(logrus.Fields{
		"promo_code": promo.Code,
		"discount":   discount,
		"final_fare": finalFare,
	}).Info("promo applied")

	return &PromoApplication{
		Code:         promo.Code,
		OriginalFare: fare,
		FinalFare:    finalFare,
		Discount:     discount,
	}, nil
}

// usabilityError maps a non-usable promo to ErrPromoInvalid with a reason.
func usabilityError(promo *domain.PromoCode, now time.Time) error {
	switch {
	case !promo.IsActive:
		return fmt.Errorf("%w: no longer active", ErrPromoInvalid)
	case promo.ValidUntil != nil && promo.ValidUntil.Before(now):
		return fmt.Errorf("%w: expired", ErrPromoInvalid)
	case promo.UsageLimit != nil && promo.UsedCount >= *promo.UsageLimit:
		return fmt.Errorf("%w: usage limit reached", ErrPromoInvalid)
	default:
		return nil
	}
}
