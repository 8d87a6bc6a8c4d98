package domain

import "time"

// PromoCode is a discount code applied to a ride fare before acceptance.
// Codes are matched case-insensitively and stored upper-cased.
type PromoCode struct {
	Code            string
	Description     string
	DiscountPercent float64

	// MaxDiscount caps the absolute discount amount when set.
	MaxDiscount *float64
	// ValidUntil is the expiry; nil means no expiry.
	ValidUntil *time.Time
	// UsageLimit bounds UsedCount when set; nil means unlimited.
	UsageLimit *int

	UsedCount int
	IsActive  bool
}

// Usable reports whether the code can still be applied at the given instant.
// The authoritative check-and-increment happens in storage; this is the
// read-side precondition used for validation responses.
func (p *PromoCode) Usable(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	if p.ValidUntil != nil && p.ValidUntil.Before(now) {
		return false
	}
	if p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit {
		return false
	}
	return true
}
