// Package analytics builds the operator's sales report.
package analytics

import (
	"context"
	"fmt"
	"time"

	"storefront-bot/internal/clock"
	"storefront-bot/internal/models"
)

const topProductsLimit = 5

type DBLayer interface {
	StatusCounts(ctx context.Context, since, now time.Time) ([]StatusCount, error)
	TopProducts(ctx context.Context, since time.Time, limit int) ([]ProductSales, error)
	CancellationsSince(ctx context.Context, since time.Time) (int, error)
	BannedUsers(ctx context.Context) (int, error)
}

// Report summarizes shop activity over a trailing window.
type Report struct {
	Since         time.Time      `json:"since"`
	ByStatus      []StatusCount  `json:"by_status"`
	TotalOrders   int            `json:"total_orders"`
	Revenue       int64          `json:"revenue"`
	TopProducts   []ProductSales `json:"top_products"`
	Cancellations int            `json:"cancellations"`
	BannedUsers   int            `json:"banned_users"`
}

type Service struct {
	db    DBLayer
	clock clock.Clock
}

func NewService(db DBLayer, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{db: db, clock: clk}
}

// Report covers orders created within window of now. Lapsed reservations
// are reported as expired without being written back. Revenue counts
// completed orders only.
func (s *Service) Report(ctx context.Context, window time.Duration) (Report, error) {
	now := s.clock.Now()
	since := now.Add(-window)
	report := Report{Since: since}

	byStatus, err := s.db.StatusCounts(ctx, since, now)
	if err != nil {
		return Report{}, fmt.Errorf("status counts: %w", err)
	}
	report.ByStatus = byStatus
	for _, row := range byStatus {
		report.TotalOrders += row.Orders
		if row.Status == models.StatusCompleted {
			report.Revenue += row.Revenue
		}
	}

	if report.TopProducts, err = s.db.TopProducts(ctx, since, topProductsLimit); err != nil {
		return Report{}, fmt.Errorf("top products: %w", err)
	}
	if report.Cancellations, err = s.db.CancellationsSince(ctx, since); err != nil {
		return Report{}, fmt.Errorf("cancellations: %w", err)
	}
	if report.BannedUsers, err = s.db.BannedUsers(ctx); err != nil {
		return Report{}, fmt.Errorf("banned users: %w", err)
	}
	return report, nil
}
