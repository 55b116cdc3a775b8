package analytics

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"storefront-bot/internal/models"
)

// DB runs the aggregate queries behind the operator report.
type DB struct {
	bun *bun.DB
}

func NewDB(db *bun.DB) *DB {
	return &DB{bun: db}
}

// StatusCount is the number and value of orders in one status.
type StatusCount struct {
	Status  models.OrderStatus `bun:"status" json:"status"`
	Orders  int                `bun:"orders" json:"orders"`
	Revenue int64              `bun:"revenue" json:"revenue"`
}

// ProductSales is the completed volume of one product.
type ProductSales struct {
	ProductID int64  `bun:"product_id" json:"product_id"`
	Name      string `bun:"name" json:"name"`
	Variant   string `bun:"variant" json:"variant"`
	Orders    int    `bun:"orders" json:"orders"`
	Revenue   int64  `bun:"revenue" json:"revenue"`
}

// StatusCounts groups orders created since the given instant by their
// effective status: an awaiting order whose reservation ran out before now
// counts as expired even if nobody has touched it yet.
func (db *DB) StatusCounts(ctx context.Context, since, now time.Time) ([]StatusCount, error) {
	effective := db.bun.NewSelect().
		Model((*models.Order)(nil)).
		ColumnExpr("CASE WHEN status = ? AND reserved_until < ? THEN ? ELSE status END AS status",
			models.StatusAwaitingPayment, now, models.StatusExpired).
		Column("total").
		Where("created_at >= ?", since)

	var rows []StatusCount
	err := db.bun.NewSelect().
		TableExpr("(?) AS o", effective).
		ColumnExpr("o.status").
		ColumnExpr("COUNT(*) AS orders").
		ColumnExpr("COALESCE(SUM(o.total), 0) AS revenue").
		GroupExpr("o.status").
		OrderExpr("o.status ASC").
		Scan(ctx, &rows)
	return rows, err
}

// TopProducts ranks products by completed revenue.
func (db *DB) TopProducts(ctx context.Context, since time.Time, limit int) ([]ProductSales, error) {
	var rows []ProductSales
	err := db.bun.NewSelect().
		TableExpr("orders AS o").
		Join("JOIN products AS p ON p.id = o.product_id").
		ColumnExpr("o.product_id, p.name, p.variant").
		ColumnExpr("COUNT(*) AS orders").
		ColumnExpr("SUM(o.total) AS revenue").
		Where("o.status = ?", models.StatusCompleted).
		Where("o.created_at >= ?", since).
		GroupExpr("o.product_id, p.name, p.variant").
		OrderExpr("revenue DESC, o.product_id ASC").
		Limit(limit).
		Scan(ctx, &rows)
	return rows, err
}

func (db *DB) CancellationsSince(ctx context.Context, since time.Time) (int, error) {
	return db.bun.NewSelect().
		Model((*models.CancellationEvent)(nil)).
		Where("canceled_at >= ?", since).
		Count(ctx)
}

func (db *DB) BannedUsers(ctx context.Context) (int, error) {
	return db.bun.NewSelect().
		Model((*models.User)(nil)).
		Where("banned = ?", true).
		Count(ctx)
}
