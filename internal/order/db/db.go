package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"storefront-bot/internal/models"
	"storefront-bot/internal/order"
)

// DB is the bun-backed order store.
type DB struct {
	Bun *bun.DB
}

var _ order.Store = (*DB)(nil)

// RunInTx commits when fn returns nil and rolls back otherwise.
func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Tx{db: tx})
	})
}

// Tx implements order.Tx over any bun.IDB.
type Tx struct {
	db bun.IDB
}

func NewTx(db bun.IDB) *Tx {
	return &Tx{db: db}
}

// ---------------- USERS ----------------

func (t *Tx) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	err := t.db.NewSelect().
		Model(&user).
		Where("id = ?", userID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", userID, order.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (t *Tx) BanUser(ctx context.Context, userID int64) error {
	_, err := t.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("banned = ?", true).
		Where("id = ?", userID).
		Exec(ctx)
	return err
}

// ---------------- ORDERS ----------------

// InsertOrder → insert and fill in the generated id
func (t *Tx) InsertOrder(ctx context.Context, o *models.Order) error {
	_, err := t.db.NewInsert().Model(o).Returning("id").Exec(ctx)
	return err
}

// GetOrder → fetch one order scoped to its owner
func (t *Tx) GetOrder(ctx context.Context, orderID, userID int64) (*models.Order, error) {
	var o models.Order
	err := t.db.NewSelect().
		Model(&o).
		Where("id = ?", orderID).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", orderID, order.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrderByID → unscoped lookup, operator use only
func (t *Tx) GetOrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	var o models.Order
	err := t.db.NewSelect().
		Model(&o).
		Where("id = ?", orderID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", orderID, order.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (t *Tx) LastOrderID(ctx context.Context, userID int64) (int64, bool, error) {
	var id int64
	err := t.db.NewSelect().
		Model((*models.Order)(nil)).
		Column("id").
		Where("user_id = ?", userID).
		OrderExpr("id DESC").
		Limit(1).
		Scan(ctx, &id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (t *Tx) TransitionOrder(ctx context.Context, orderID int64, from, to models.OrderStatus) (bool, error) {
	if !models.CanTransition(from, to) {
		return false, fmt.Errorf("%w: %s -> %s", order.ErrInvalidState, from, to)
	}
	res, err := t.db.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", to).
		Where("id = ?", orderID).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

func (t *Tx) ExtendOrder(ctx context.Context, orderID int64, seenExtensions int, reservedUntil time.Time) (bool, error) {
	res, err := t.db.NewUpdate().
		Model((*models.Order)(nil)).
		Set("reserved_until = ?", reservedUntil).
		Set("extensions = extensions + 1").
		Where("id = ?", orderID).
		Where("status = ?", models.StatusAwaitingPayment).
		Where("extensions = ?", seenExtensions).
		Where("reserved_until < ?", reservedUntil).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

// ---------------- CANCELLATION LEDGER ----------------

func (t *Tx) AppendCancellation(ctx context.Context, userID int64, at time.Time) error {
	event := &models.CancellationEvent{UserID: userID, CanceledAt: at}
	_, err := t.db.NewInsert().Model(event).Exec(ctx)
	return err
}

// CountCancellationsSince counts the user's ledger rows with canceled_at >= since.
func (t *Tx) CountCancellationsSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	return t.db.NewSelect().
		Model((*models.CancellationEvent)(nil)).
		Where("user_id = ?", userID).
		Where("canceled_at >= ?", since).
		Count(ctx)
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
