// Package policy holds the pure decision logic of the ordering core: when a
// reservation lapses, whether it may be extended, and how repeated
// cancellations escalate.
package policy

import (
	"time"

	"storefront-bot/internal/models"
)

const (
	DefaultReserveWindow = 60 * time.Minute
	DefaultExtendWindow  = 30 * time.Minute
	DefaultMaxExtends    = 1
)

type ExtensionVerdict int

const (
	ExtensionAllowed ExtensionVerdict = iota
	ExtensionWrongStatus
	ExtensionLimitExhausted
	ExtensionLapsed
)

func (v ExtensionVerdict) String() string {
	switch v {
	case ExtensionAllowed:
		return "allowed"
	case ExtensionWrongStatus:
		return "wrong_status"
	case ExtensionLimitExhausted:
		return "limit_exhausted"
	case ExtensionLapsed:
		return "lapsed"
	}
	return "unknown"
}

// Reservation governs how long an unpaid order holds its price.
type Reservation struct {
	ReserveWindow time.Duration
	ExtendWindow  time.Duration
	MaxExtends    int
}

func DefaultReservation() Reservation {
	return Reservation{
		ReserveWindow: DefaultReserveWindow,
		ExtendWindow:  DefaultExtendWindow,
		MaxExtends:    DefaultMaxExtends,
	}
}

// InitialExpiry is the reservation deadline of an order created at createdAt.
func (p Reservation) InitialExpiry(createdAt time.Time) time.Time {
	return createdAt.Add(p.ReserveWindow)
}

// Lapsed reports whether an order awaiting payment has outlived its
// reservation. The comparison is strict: at now == reservedUntil the
// reservation still holds.
func (p Reservation) Lapsed(status models.OrderStatus, reservedUntil, now time.Time) bool {
	return status == models.StatusAwaitingPayment && now.After(reservedUntil)
}

func (p Reservation) CheckExtension(status models.OrderStatus, extensions int, reservedUntil, now time.Time) ExtensionVerdict {
	switch {
	case status == models.StatusExpired:
		return ExtensionLapsed
	case status != models.StatusAwaitingPayment:
		return ExtensionWrongStatus
	case extensions >= p.MaxExtends:
		return ExtensionLimitExhausted
	case now.After(reservedUntil):
		return ExtensionLapsed
	}
	return ExtensionAllowed
}

func (p Reservation) ExtendedExpiry(reservedUntil time.Time) time.Time {
	return reservedUntil.Add(p.ExtendWindow)
}

// RemainingMinutes is the number of whole minutes left on the reservation,
// never negative, and zero for any order that is not awaiting payment.
func (p Reservation) RemainingMinutes(status models.OrderStatus, reservedUntil, now time.Time) int {
	if status != models.StatusAwaitingPayment {
		return 0
	}
	left := reservedUntil.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left / time.Minute)
}
