package db_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"

	"storefront-bot/internal/config"
	"storefront-bot/internal/database"
	"storefront-bot/internal/database/migrations"
	"storefront-bot/internal/logger"
	"storefront-bot/internal/models"
	"storefront-bot/internal/order"
	"storefront-bot/internal/order/db"
)

// setupPostgres starts a postgres container and applies the embedded
// migrations to it.
func setupPostgres(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "storefront",
				"POSTGRES_PASSWORD": "storefront",
				"POSTGRES_DB":       "storefront",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	bunDB, err := database.OpenPostgres(config.DatabaseConfig{
		Driver:       database.DriverPostgres,
		DSN:          fmt.Sprintf("postgres://storefront:storefront@%s:%s/storefront?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 5,
	})
	require.NoError(t, err)
	require.NoError(t, database.Ping(ctx, bunDB, 10, 500*time.Millisecond))

	runner := migrations.NewRunner(bunDB.DB, logger.NewNopLogger())
	require.NoError(t, runner.MigrateUp())
	require.NoError(t, runner.MigrateUp(), "second run is a no-op")
	t.Cleanup(func() { runner.Close() })

	return bunDB
}

func TestOrderStoreOnPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Postgres integration test in short mode")
	}

	ctx := context.Background()
	bunDB := setupPostgres(t)
	store := &db.DB{Bun: bunDB}
	tx := db.NewTx(bunDB)

	_, err := bunDB.NewInsert().Model(&models.User{ID: 7, City: "KYIV", CreatedAt: t0}).Exec(ctx)
	require.NoError(t, err)

	t.Run("owner scoping", func(t *testing.T) {
		o := newOrder(7)
		require.NoError(t, tx.InsertOrder(ctx, o))
		require.NotZero(t, o.ID)

		got, err := tx.GetOrder(ctx, o.ID, 7)
		require.NoError(t, err)
		assert.True(t, got.ReservedUntil.Equal(t0.Add(time.Hour)))

		_, err = tx.GetOrder(ctx, o.ID, 8)
		assert.ErrorIs(t, err, order.ErrNotFound)
	})

	t.Run("extend compares timestamps", func(t *testing.T) {
		o := newOrder(7)
		require.NoError(t, tx.InsertOrder(ctx, o))

		ok, err := tx.ExtendOrder(ctx, o.ID, 0, o.ReservedUntil)
		require.NoError(t, err)
		assert.False(t, ok, "deadline must move forward")

		next := o.ReservedUntil.Add(30 * time.Minute)
		ok, err = tx.ExtendOrder(ctx, o.ID, 0, next)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = tx.ExtendOrder(ctx, o.ID, 0, next.Add(30*time.Minute))
		require.NoError(t, err)
		assert.False(t, ok, "stale extension count must not apply")

		got, err := tx.GetOrder(ctx, o.ID, 7)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Extensions)
		assert.True(t, got.ReservedUntil.Equal(next))
	})

	t.Run("transition is conditional", func(t *testing.T) {
		o := newOrder(7)
		require.NoError(t, tx.InsertOrder(ctx, o))

		ok, err := tx.TransitionOrder(ctx, o.ID, models.StatusAwaitingPayment, models.StatusExpired)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = tx.TransitionOrder(ctx, o.ID, models.StatusAwaitingPayment, models.StatusCancelled)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("cancellation window is inclusive", func(t *testing.T) {
		require.NoError(t, tx.AppendCancellation(ctx, 7, t0))
		require.NoError(t, tx.AppendCancellation(ctx, 7, t0.Add(time.Hour)))

		n, err := tx.CountCancellationsSince(ctx, 7, t0)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = tx.CountCancellationsSince(ctx, 7, t0.Add(time.Microsecond))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("ban and last order", func(t *testing.T) {
		require.NoError(t, tx.BanUser(ctx, 7))
		user, err := tx.GetUser(ctx, 7)
		require.NoError(t, err)
		assert.True(t, user.Banned)

		last := newOrder(7)
		require.NoError(t, tx.InsertOrder(ctx, last))
		id, found, err := tx.LastOrderID(ctx, 7)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, last.ID, id)
	})

	t.Run("transaction rolls back", func(t *testing.T) {
		before, err := bunDB.NewSelect().Model((*models.Order)(nil)).Count(ctx)
		require.NoError(t, err)

		boom := errors.New("boom")
		err = store.RunInTx(ctx, func(ctx context.Context, tx order.Tx) error {
			if err := tx.InsertOrder(ctx, newOrder(7)); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		after, err := bunDB.NewSelect().Model((*models.Order)(nil)).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}
