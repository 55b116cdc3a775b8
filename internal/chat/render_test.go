package chat

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"storefront-bot/internal/models"
	"storefront-bot/internal/order"
)

func buttonData(r Reply) []string {
	var out []string
	for _, row := range r.Keyboard {
		for _, b := range row {
			out = append(out, b.Data)
		}
	}
	return out
}

func snapshot(status models.OrderStatus, used int) order.OrderSnapshot {
	return order.OrderSnapshot{
		OrderID:          4,
		City:             "KYIV",
		Total:            280,
		Status:           status,
		ReservedUntil:    time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC),
		RemainingMinutes: 42,
		ExtensionsUsed:   used,
		ExtensionsLimit:  1,
	}
}

func TestOrderViewAwaitingPayment(t *testing.T) {
	r := OrderView(snapshot(models.StatusAwaitingPayment, 0), "🧾 Order #4 created.")

	assert.Contains(t, r.Text, "Order #4 created.")
	assert.Contains(t, r.Text, "42 min left")
	assert.Contains(t, r.Text, "Extensions used: 0/1")
	assert.Equal(t, []string{"pay_card:4", "pay_cash:4", "paid:4", "extend:4", "cancel:4", "status:4", "menu"}, buttonData(r))
}

func TestOrderViewHidesExtendWhenExhausted(t *testing.T) {
	r := OrderView(snapshot(models.StatusAwaitingPayment, 1), "")
	assert.NotContains(t, buttonData(r), "extend:4")
}

func TestOrderViewByStatus(t *testing.T) {
	paid := OrderView(snapshot(models.StatusPaidReported, 0), "")
	assert.Equal(t, []string{"cancel:4", "status:4", "menu"}, buttonData(paid))
	assert.NotContains(t, paid.Text, "min left")

	for _, status := range []models.OrderStatus{models.StatusCancelled, models.StatusExpired, models.StatusCompleted} {
		r := OrderView(snapshot(status, 0), "")
		assert.Equal(t, []string{"status:4", "menu"}, buttonData(r), status)
		assert.Contains(t, r.Text, statusLabel(status))
	}
}

func TestOrderViewIsPure(t *testing.T) {
	snap := snapshot(models.StatusAwaitingPayment, 0)
	assert.Equal(t, OrderView(snap, "x"), OrderView(snap, "x"))
}

func TestCatalogView(t *testing.T) {
	r := CatalogView("KYIV", []models.Product{{ID: 1, Name: "Coffee", Variant: "250 g", Price: 280}})
	assert.Equal(t, "Catalog (KYIV):", r.Text)
	assert.Equal(t, "Coffee • 250 g • 280 UAH", r.Keyboard[0][0].Text)
	assert.Equal(t, []string{"product:1", "menu"}, buttonData(r))

	empty := CatalogView("KYIV", nil)
	assert.Contains(t, empty.Text, "No products in KYIV")
}

func TestCityListView(t *testing.T) {
	r := CityListView([]string{"KYIV", "ODESA"})
	assert.Equal(t, []string{"set_city:KYIV", "set_city:ODESA", "menu"}, buttonData(r))
	assert.Equal(t, []string{"menu"}, buttonData(CityListView(nil)))
}

func TestCancelNotice(t *testing.T) {
	assert.Equal(t, "Order #4 cancelled.", cancelNotice(order.CancelResult{OrderID: 4, Count: 1}))
	assert.Contains(t, cancelNotice(order.CancelResult{OrderID: 4, Count: 2, Warning: true}), "⚠️")
	assert.Contains(t, cancelNotice(order.CancelResult{OrderID: 4, Count: 15, Banned: true}), "blocked after 15")
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "⛔ Your account is blocked.", ErrorText(fmt.Errorf("wrapped: %w", order.ErrBanned)))
	assert.Equal(t, "⌛ The reservation has already expired.", ErrorText(order.ErrAlreadyLapsed))
	assert.Equal(t, "The reservation cannot be extended any more.", ErrorText(order.ErrLimitExhausted))
	assert.Equal(t, "Not found.", ErrorText(order.ErrNotFound))
	assert.Equal(t, "Something went wrong, please try again later.", ErrorText(fmt.Errorf("storage: disk full")))
}
