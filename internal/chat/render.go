package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-bot/internal/analytics"
	"storefront-bot/internal/catalog"
	chatredis "storefront-bot/internal/chat/redis"
	"storefront-bot/internal/models"
	"storefront-bot/internal/order"
	"storefront-bot/internal/profile"
)

type Button struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

// Reply is everything the transport needs to show one screen.
type Reply struct {
	Text     string     `json:"text"`
	Keyboard [][]Button `json:"keyboard,omitempty"`
}

const currency = "UAH"

var (
	menuButton    = Button{Text: "⬅️ Menu", Data: actionMenu}
	catalogButton = Button{Text: "🛍 Catalog", Data: actionCatalog}
)

func backToMenu() [][]Button {
	return [][]Button{{menuButton}}
}

func mainKeyboard() [][]Button {
	return [][]Button{
		{{Text: "🏙 Choose city", Data: actionChooseCity}},
		{catalogButton, {Text: "📦 Order status", Data: actionStatus}},
	}
}

func WelcomeView() Reply {
	return Reply{
		Text: "Hi! I am the shop bot.\n\n" +
			"1) Choose your city\n" +
			"2) Open the catalog\n" +
			"3) Place an order and follow its status",
		Keyboard: mainKeyboard(),
	}
}

func MenuView(notice string) Reply {
	text := "Main menu:"
	if notice != "" {
		text = notice
	}
	return Reply{Text: text, Keyboard: mainKeyboard()}
}

func CityListView(cities []string) Reply {
	if len(cities) == 0 {
		return Reply{Text: "There are no cities or products yet.", Keyboard: backToMenu()}
	}
	rows := make([][]Button, 0, len(cities)+1)
	for _, city := range cities {
		rows = append(rows, []Button{{Text: city, Data: token(actionSetCity, city)}})
	}
	rows = append(rows, []Button{menuButton})
	return Reply{Text: "Choose your city:", Keyboard: rows}
}

func CatalogView(city string, products []models.Product) Reply {
	if len(products) == 0 {
		return Reply{Text: fmt.Sprintf("No products in %s yet.", city), Keyboard: mainKeyboard()}
	}
	rows := make([][]Button, 0, len(products)+1)
	for _, p := range products {
		label := fmt.Sprintf("%s • %s • %d %s", p.Name, p.Variant, p.Price, currency)
		rows = append(rows, []Button{{Text: label, Data: token(actionProduct, p.ID)}})
	}
	rows = append(rows, []Button{menuButton})
	return Reply{Text: fmt.Sprintf("Catalog (%s):", city), Keyboard: rows}
}

func ProductView(p models.Product) Reply {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\nCity: %s\nPrice: %d %s", p.Name, p.Variant, p.City, p.Price, currency)
	if p.Description != "" {
		fmt.Fprintf(&b, "\n\n%s", p.Description)
	}
	return Reply{
		Text: b.String(),
		Keyboard: [][]Button{
			{{Text: "🧾 Order", Data: token(actionOrder, p.ID)}},
			{catalogButton, menuButton},
		},
	}
}

var statusLabels = map[models.OrderStatus]string{
	models.StatusAwaitingPayment: "⏳ Awaiting payment",
	models.StatusPaidReported:    "💳 Payment reported, waiting for confirmation",
	models.StatusCancelled:       "❌ Cancelled",
	models.StatusExpired:         "⌛ Reservation expired",
	models.StatusCompleted:       "✅ Completed",
}

func statusLabel(s models.OrderStatus) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// OrderView renders a snapshot. The notice, if any, goes on top.
func OrderView(snap order.OrderSnapshot, notice string) Reply {
	var b strings.Builder
	if notice != "" {
		b.WriteString(notice)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Order #%d\nCity: %s\nTotal: %d %s\nStatus: %s",
		snap.OrderID, snap.City, snap.Total, currency, statusLabel(snap.Status))
	if snap.Status == models.StatusAwaitingPayment {
		fmt.Fprintf(&b, "\nReserved until %s (%d min left)", snap.ReservedUntil.UTC().Format("15:04 MST"), snap.RemainingMinutes)
		fmt.Fprintf(&b, "\nExtensions used: %d/%d", snap.ExtensionsUsed, snap.ExtensionsLimit)
	}

	id := snap.OrderID
	var rows [][]Button
	switch snap.Status {
	case models.StatusAwaitingPayment:
		rows = append(rows,
			[]Button{{Text: "💳 Pay by card (instructions)", Data: token(actionPayCard, id)}},
			[]Button{{Text: "💵 Pay cash on delivery", Data: token(actionPayCash, id)}},
			[]Button{{Text: "✅ I have paid", Data: token(actionPaid, id)}},
		)
		if snap.CanExtend() {
			rows = append(rows, []Button{{Text: "⏱ Extend reservation", Data: token(actionExtend, id)}})
		}
		rows = append(rows, []Button{{Text: "❌ Cancel order", Data: token(actionCancel, id)}})
	case models.StatusPaidReported:
		rows = append(rows, []Button{{Text: "❌ Cancel order", Data: token(actionCancel, id)}})
	}
	rows = append(rows, []Button{{Text: "🔄 Refresh", Data: token(actionStatus, id)}, menuButton})
	return Reply{Text: b.String(), Keyboard: rows}
}

func PayCardView(snap order.OrderSnapshot) Reply {
	return Reply{
		Text: fmt.Sprintf("Card payment for order #%d\n\nTransfer %d %s to the card number the operator sends you, "+
			"then press \"I have paid\".", snap.OrderID, snap.Total, currency),
		Keyboard: [][]Button{
			{{Text: "✅ I have paid", Data: token(actionPaid, snap.OrderID)}},
			{{Text: "⬅️ Back to order", Data: token(actionStatus, snap.OrderID)}},
		},
	}
}

func PayCashView(snap order.OrderSnapshot) Reply {
	return Reply{
		Text: fmt.Sprintf("Cash on delivery for order #%d\n\nPay %d %s to the courier on delivery. "+
			"The operator will contact you to arrange it.", snap.OrderID, snap.Total, currency),
		Keyboard: [][]Button{
			{{Text: "⬅️ Back to order", Data: token(actionStatus, snap.OrderID)}},
		},
	}
}

func StatsView(r analytics.Report, window time.Duration) Reply {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Last %.0fh\nOrders: %d\nRevenue: %d %s\nCancellations: %d\nBanned users: %d",
		window.Hours(), r.TotalOrders, r.Revenue, currency, r.Cancellations, r.BannedUsers)
	for _, row := range r.ByStatus {
		fmt.Fprintf(&b, "\n  %s: %d", statusLabel(row.Status), row.Orders)
	}
	if len(r.TopProducts) > 0 {
		b.WriteString("\n\nTop products:")
		for i, p := range r.TopProducts {
			fmt.Fprintf(&b, "\n%d. %s • %s: %d pcs, %d %s", i+1, p.Name, p.Variant, p.Orders, p.Revenue, currency)
		}
	}
	return Reply{Text: b.String()}
}

func extendedNotice(until time.Time) string {
	return fmt.Sprintf("⏱ Reservation extended until %s.", until.UTC().Format("15:04 MST"))
}

func cancelNotice(res order.CancelResult) string {
	switch {
	case res.Banned:
		return fmt.Sprintf("Order #%d cancelled.\n⛔ Your account has been blocked after %d cancellations.", res.OrderID, res.Count)
	case res.Warning:
		return fmt.Sprintf("Order #%d cancelled.\n⚠️ You have cancelled %d orders recently. Frequent cancellations lead to a block.", res.OrderID, res.Count)
	}
	return fmt.Sprintf("Order #%d cancelled.", res.OrderID)
}

// ErrorText maps an error to the message shown to the user.
func ErrorText(err error) string {
	switch {
	case errors.Is(err, order.ErrBanned):
		return "⛔ Your account is blocked."
	case errors.Is(err, order.ErrNoCityChosen):
		return "Choose your city first 👇"
	case errors.Is(err, order.ErrCityMismatch):
		return "This product is not sold in your city."
	case errors.Is(err, order.ErrAlreadyLapsed):
		return "⌛ The reservation has already expired."
	case errors.Is(err, order.ErrLimitExhausted):
		return "The reservation cannot be extended any more."
	case errors.Is(err, order.ErrAlreadyTerminal):
		return "This order is already closed."
	case errors.Is(err, order.ErrInvalidState):
		return "This action is not available for the order any more."
	case errors.Is(err, order.ErrNotFound), errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, profile.ErrUserNotFound):
		return "Not found."
	case errors.Is(err, catalog.ErrValidation), errors.Is(err, order.ErrValidation):
		return "Invalid input: " + err.Error()
	case errors.Is(err, ErrMalformed):
		return "Unknown command."
	case errors.Is(err, ErrForbidden):
		return "This command is for the operator only."
	case errors.Is(err, chatredis.ErrBusy):
		return "Still working on your previous action, try again in a moment."
	}
	return "Something went wrong, please try again later."
}

// ErrorView renders an error with a way back to the menu.
func ErrorView(err error) Reply {
	keyboard := backToMenu()
	if errors.Is(err, order.ErrNoCityChosen) {
		keyboard = mainKeyboard()
	}
	return Reply{Text: ErrorText(err), Keyboard: keyboard}
}
