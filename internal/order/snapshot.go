package order

import (
	"time"

	"storefront-bot/internal/models"
	"storefront-bot/internal/order/policy"
)

// OrderSnapshot is the read-only view of an order handed to the transport.
type OrderSnapshot struct {
	OrderID          int64              `json:"order_id"`
	ProductID        int64              `json:"product_id"`
	City             string             `json:"city"`
	Total            int64              `json:"total"`
	Status           models.OrderStatus `json:"status"`
	CreatedAt        time.Time          `json:"created_at"`
	ReservedUntil    time.Time          `json:"reserved_until"`
	RemainingMinutes int                `json:"remaining_minutes"`
	ExtensionsUsed   int                `json:"extensions_used"`
	ExtensionsLimit  int                `json:"extensions_limit"`
}

// CanExtend reports whether the snapshot still offers an extension.
func (s OrderSnapshot) CanExtend() bool {
	return s.Status == models.StatusAwaitingPayment && s.ExtensionsUsed < s.ExtensionsLimit
}

// Project is a pure function of the stored order and the current instant.
func Project(o *models.Order, rules policy.Reservation, now time.Time) OrderSnapshot {
	return OrderSnapshot{
		OrderID:          o.ID,
		ProductID:        o.ProductID,
		City:             o.City,
		Total:            o.Total,
		Status:           o.Status,
		CreatedAt:        o.CreatedAt,
		ReservedUntil:    o.ReservedUntil,
		RemainingMinutes: rules.RemainingMinutes(o.Status, o.ReservedUntil, now),
		ExtensionsUsed:   o.Extensions,
		ExtensionsLimit:  rules.MaxExtends,
	}
}

// CancelResult reports the abuse-policy outcome of a successful cancellation.
type CancelResult struct {
	OrderID int64 `json:"order_id"`
	// Count is the number of cancellations in the trailing window, this one included.
	Count   int  `json:"count"`
	Warning bool `json:"warning"`
	Banned  bool `json:"banned"`
}
