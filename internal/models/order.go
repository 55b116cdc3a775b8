package models

import (
	"time"

	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	StatusAwaitingPayment OrderStatus = "AWAITING_PAYMENT"
	StatusPaidReported    OrderStatus = "PAID_REPORTED"
	StatusCancelled       OrderStatus = "CANCELLED"
	StatusExpired         OrderStatus = "EXPIRED"
	StatusCompleted       OrderStatus = "COMPLETED"
)

var validNext = map[OrderStatus]map[OrderStatus]bool{
	StatusAwaitingPayment: {StatusPaidReported: true, StatusCancelled: true, StatusExpired: true},
	StatusPaidReported:    {StatusCancelled: true, StatusCompleted: true},
	StatusCancelled:       {},
	StatusExpired:         {},
	StatusCompleted:       {},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// Terminal statuses accept no further transition.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusCancelled, StatusExpired, StatusCompleted:
		return true
	}
	return false
}

// Order is a placed order. City and Total are copied from the product when
// the order is created so later catalog edits never alter it.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID            int64       `bun:"id,pk,autoincrement" json:"id"`
	UserID        int64       `bun:"user_id,notnull" json:"user_id"`
	ProductID     int64       `bun:"product_id,notnull" json:"product_id"`
	City          string      `bun:"city,notnull" json:"city"`
	Total         int64       `bun:"total,notnull" json:"total"`
	Status        OrderStatus `bun:"status,notnull" json:"status"`
	CreatedAt     time.Time   `bun:"created_at,notnull" json:"created_at"`
	ReservedUntil time.Time   `bun:"reserved_until,notnull" json:"reserved_until"`
	Extensions    int         `bun:"extensions,notnull" json:"extensions"`
}
