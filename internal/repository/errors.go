package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrUsageExhausted is returned by PromoRepository.ConsumeUsage when the
	// code exists but its precondition (active, unexpired, under the usage
	// limit) no longer holds at increment time.
	ErrUsageExhausted = errors.New("promo usage precondition failed")
)
