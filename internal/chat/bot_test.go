package chat_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-bot/internal/analytics"
	"storefront-bot/internal/catalog"
	"storefront-bot/internal/chat"
	"storefront-bot/internal/clock"
	"storefront-bot/internal/database"
	"storefront-bot/internal/order"
	orderdb "storefront-bot/internal/order/db"
	"storefront-bot/internal/order/policy"
	"storefront-bot/internal/profile"
)

const (
	adminID int64 = 99
	alice   int64 = 1
	city          = "KRYVYI RIH"
)

type silentNotifier struct{}

func (silentNotifier) NotifyOperator(string) {}

func newBot(t *testing.T) (*chat.Bot, *clock.Manual) {
	t.Helper()
	ctx := context.Background()

	bunDB, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.CreateSchema(ctx, bunDB))
	t.Cleanup(func() { bunDB.Close() })

	clk := clock.NewManual(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	products := catalog.NewCatalogService(&catalog.DB{Bun: bunDB}, nil)
	_, err = products.SeedDemo(ctx)
	require.NoError(t, err)

	orders := order.NewOrderService(&orderdb.DB{Bun: bunDB}, products, silentNotifier{}, clk, policy.DefaultRules(), nil)
	bot := chat.NewBot(profile.NewDB(bunDB, clk), products, orders, nil, adminID, nil)
	bot.Reports = analytics.NewService(analytics.NewDB(bunDB), clk)
	return bot, clk
}

func send(t *testing.T, bot *chat.Bot, userID int64, data string) (chat.Reply, error) {
	t.Helper()
	req, err := chat.ParseCallback(data)
	require.NoError(t, err)
	return bot.Handle(context.Background(), userID, req)
}

func mustSend(t *testing.T, bot *chat.Bot, userID int64, data string) chat.Reply {
	t.Helper()
	reply, err := send(t, bot, userID, data)
	require.NoError(t, err, data)
	return reply
}

func hasButton(r chat.Reply, data string) bool {
	for _, row := range r.Keyboard {
		for _, b := range row {
			if b.Data == data {
				return true
			}
		}
	}
	return false
}

func TestBotBrowseAndOrder(t *testing.T) {
	bot, clk := newBot(t)

	start, err := bot.Handle(context.Background(), alice, chat.Start{})
	require.NoError(t, err)
	assert.True(t, hasButton(start, "choose_city"))

	_, err = send(t, bot, alice, "catalog")
	assert.ErrorIs(t, err, order.ErrNoCityChosen)

	cities := mustSend(t, bot, alice, "choose_city")
	assert.True(t, hasButton(cities, "set_city:"+city))

	mustSend(t, bot, alice, "set_city:"+city)
	listing := mustSend(t, bot, alice, "catalog")
	assert.True(t, hasButton(listing, "product:1"))

	product := mustSend(t, bot, alice, "product:1")
	assert.Contains(t, product.Text, "Coffee beans")
	assert.True(t, hasButton(product, "order:1"))

	placed := mustSend(t, bot, alice, "order:1")
	assert.Contains(t, placed.Text, "Order #1 created.")
	assert.Contains(t, placed.Text, "60 min left")
	assert.True(t, hasButton(placed, "extend:1"))

	clk.Advance(10 * time.Minute)
	extended := mustSend(t, bot, alice, "extend:1")
	assert.Contains(t, extended.Text, "Reservation extended until 10:30 UTC")
	assert.False(t, hasButton(extended, "extend:1"))

	card := mustSend(t, bot, alice, "pay_card:1")
	assert.Contains(t, card.Text, "Card payment for order #1")

	paid := mustSend(t, bot, alice, "paid:1")
	assert.Contains(t, paid.Text, "operator will check")
	assert.False(t, hasButton(paid, "paid:1"))

	status, err := bot.Handle(context.Background(), alice, chat.Status{})
	require.NoError(t, err)
	assert.Contains(t, status.Text, "Order #1")
}

func TestBotRejectsUnknownCity(t *testing.T) {
	bot, _ := newBot(t)

	reply, err := send(t, bot, alice, "set_city:ATLANTIS")
	assert.ErrorIs(t, err, order.ErrValidation)
	assert.Equal(t, 400, chat.StatusFor(err))
	assert.Contains(t, reply.Text, "Invalid input")
}

func TestBotStatusWithoutOrders(t *testing.T) {
	bot, _ := newBot(t)

	reply, err := bot.Handle(context.Background(), alice, chat.Status{})
	require.NoError(t, err)
	assert.Equal(t, "You have no orders yet.", reply.Text)
}

func TestBotExpiredOrderOffersNoActions(t *testing.T) {
	bot, clk := newBot(t)
	mustSend(t, bot, alice, "set_city:"+city)
	mustSend(t, bot, alice, "order:1")

	clk.Advance(61 * time.Minute)
	reply := mustSend(t, bot, alice, "status:1")
	assert.Contains(t, reply.Text, "Reservation expired")
	assert.False(t, hasButton(reply, "paid:1"))

	_, err := send(t, bot, alice, "extend:1")
	assert.ErrorIs(t, err, order.ErrAlreadyLapsed)
	assert.Equal(t, 409, chat.StatusFor(err))
}

func TestBotCancellationEscalates(t *testing.T) {
	bot, _ := newBot(t)
	mustSend(t, bot, alice, "set_city:"+city)

	mustSend(t, bot, alice, "order:1")
	first := mustSend(t, bot, alice, "cancel:1")
	assert.True(t, strings.HasPrefix(first.Text, "Order #1 cancelled.\n\n"))

	mustSend(t, bot, alice, "order:1")
	second := mustSend(t, bot, alice, "cancel:2")
	assert.Contains(t, second.Text, "⚠️")
}

func TestBotHidesOtherUsersOrders(t *testing.T) {
	bot, _ := newBot(t)
	mustSend(t, bot, alice, "set_city:"+city)
	mustSend(t, bot, alice, "order:1")

	_, err := send(t, bot, 2, "status:1")
	assert.ErrorIs(t, err, order.ErrNotFound)
	assert.Equal(t, 404, chat.StatusFor(err))
}

func TestBotAdminCommands(t *testing.T) {
	ctx := context.Background()
	bot, _ := newBot(t)

	add := chat.AdminAdd{Line: "KYIV|Green tea|50 g|150|Sencha"}
	_, err := bot.Handle(ctx, alice, add)
	assert.ErrorIs(t, err, chat.ErrForbidden)
	assert.Equal(t, 403, chat.StatusFor(err))

	reply, err := bot.Handle(ctx, adminID, add)
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Green tea")

	_, err = bot.Handle(ctx, adminID, chat.AdminAdd{Line: "KYIV|Tea|50 g|free"})
	assert.ErrorIs(t, err, catalog.ErrValidation)

	mustSend(t, bot, alice, "set_city:"+city)
	mustSend(t, bot, alice, "order:1")
	mustSend(t, bot, alice, "paid:1")

	_, err = bot.Handle(ctx, alice, chat.AdminComplete{OrderID: 1})
	assert.ErrorIs(t, err, chat.ErrForbidden)

	reply, err = bot.Handle(ctx, adminID, chat.AdminComplete{OrderID: 1})
	require.NoError(t, err)
	assert.Equal(t, "✅ Order #1 completed.", reply.Text)

	status := mustSend(t, bot, alice, "status:1")
	assert.Contains(t, status.Text, "Completed")
}

func TestBotStats(t *testing.T) {
	ctx := context.Background()
	bot, _ := newBot(t)
	mustSend(t, bot, alice, "set_city:"+city)
	mustSend(t, bot, alice, "order:1")
	mustSend(t, bot, alice, "paid:1")
	_, err := bot.Handle(ctx, adminID, chat.AdminComplete{OrderID: 1})
	require.NoError(t, err)

	_, err = bot.Handle(ctx, alice, chat.AdminStats{})
	assert.ErrorIs(t, err, chat.ErrForbidden)

	reply, err := bot.Handle(ctx, adminID, chat.AdminStats{})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Last 24h")
	assert.Contains(t, reply.Text, "Revenue: 280 UAH")
	assert.Contains(t, reply.Text, "1. Coffee beans • 250 g: 1 pcs, 280 UAH")
}
