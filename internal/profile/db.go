// Package profile stores chat users: their chosen city and ban flag.
package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"storefront-bot/internal/clock"
	"storefront-bot/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

type DB struct {
	Bun   *bun.DB
	Clock clock.Clock
}

func NewDB(db *bun.DB, clk clock.Clock) *DB {
	if clk == nil {
		clk = clock.System{}
	}
	return &DB{Bun: db, Clock: clk}
}

// EnsureUser creates the user on first interaction and is a no-op after.
func (d *DB) EnsureUser(ctx context.Context, userID int64) error {
	user := &models.User{ID: userID, CreatedAt: d.Clock.Now()}
	_, err := d.Bun.NewInsert().
		Model(user).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	return err
}

func (d *DB) GetUserProfile(ctx context.Context, userID int64) (models.UserProfile, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("id = ?", userID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserProfile{}, fmt.Errorf("user %d: %w", userID, ErrUserNotFound)
	}
	if err != nil {
		return models.UserProfile{}, err
	}
	return user.Profile(), nil
}

func (d *DB) SetUserCity(ctx context.Context, userID int64, city string) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.User)(nil)).
		Set("city = ?", city).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrUserNotFound)
	}
	return nil
}
