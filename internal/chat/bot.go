package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"storefront-bot/internal/analytics"
	"storefront-bot/internal/logger"
	"storefront-bot/internal/models"
	"storefront-bot/internal/order"
)

// ErrForbidden is returned when a non-operator sends an operator command.
var ErrForbidden = errors.New("operator only")

type Profiles interface {
	EnsureUser(ctx context.Context, userID int64) error
	GetUserProfile(ctx context.Context, userID int64) (models.UserProfile, error)
	SetUserCity(ctx context.Context, userID int64, city string) error
}

type Products interface {
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
	ListCities(ctx context.Context) ([]string, error)
	ListProducts(ctx context.Context, city string) ([]models.Product, error)
	AddProduct(ctx context.Context, line string) (*models.Product, error)
}

type Orders interface {
	CreateOrder(ctx context.Context, userID, productID int64) (int64, error)
	ReportPaid(ctx context.Context, orderID, userID int64) error
	ExtendReservation(ctx context.Context, orderID, userID int64) (time.Time, error)
	CancelOrder(ctx context.Context, orderID, userID int64) (order.CancelResult, error)
	GetOrderStatus(ctx context.Context, orderID, userID int64) (order.OrderSnapshot, error)
	GetLastOrderID(ctx context.Context, userID int64) (int64, bool, error)
	CompleteOrder(ctx context.Context, orderID int64) error
}

// Reporter builds the operator's sales report. It is optional on Bot.
type Reporter interface {
	Report(ctx context.Context, window time.Duration) (analytics.Report, error)
}

// Locker serializes the actions of one user.
type Locker interface {
	WithLock(ctx context.Context, userID int64, fn func(ctx context.Context) error) error
}

type Bot struct {
	Profiles Profiles
	Products Products
	Orders   Orders
	Lock     Locker
	AdminID  int64
	Logger   *logger.Logger
	Reports  Reporter
}

const statsWindow = 24 * time.Hour

func NewBot(profiles Profiles, products Products, orders Orders, lock Locker, adminID int64, log *logger.Logger) *Bot {
	if lock == nil {
		lock = NewLocalLock()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Bot{Profiles: profiles, Products: products, Orders: orders, Lock: lock, AdminID: adminID, Logger: log}
}

// Handle runs one request for userID. On failure the returned Reply is the
// error screen and the error is returned as well for the transport to map.
func (b *Bot) Handle(ctx context.Context, userID int64, req Request) (Reply, error) {
	var reply Reply
	err := b.Lock.WithLock(ctx, userID, func(ctx context.Context) error {
		if err := b.Profiles.EnsureUser(ctx, userID); err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}
		var err error
		reply, err = b.dispatch(ctx, userID, req)
		return err
	})
	if err != nil {
		if !isUserError(err) {
			b.Logger.Error("CHAT", fmt.Sprintf("user %d, %T: %v", userID, req, err))
		} else {
			b.Logger.Debug("CHAT", fmt.Sprintf("user %d, %T: %v", userID, req, err))
		}
		return ErrorView(err), err
	}
	return reply, nil
}

func (b *Bot) dispatch(ctx context.Context, userID int64, req Request) (Reply, error) {
	switch r := req.(type) {
	case Start:
		return WelcomeView(), nil
	case Menu:
		return MenuView(""), nil
	case ChooseCity:
		cities, err := b.Products.ListCities(ctx)
		if err != nil {
			return Reply{}, err
		}
		return CityListView(cities), nil
	case SetCity:
		return b.setCity(ctx, userID, r.City)
	case Catalog:
		return b.catalog(ctx, userID)
	case Product:
		p, err := b.Products.GetProduct(ctx, r.ProductID)
		if err != nil {
			return Reply{}, err
		}
		return ProductView(*p), nil
	case Order:
		orderID, err := b.Orders.CreateOrder(ctx, userID, r.ProductID)
		if err != nil {
			return Reply{}, err
		}
		return b.orderView(ctx, orderID, userID, fmt.Sprintf("🧾 Order #%d created.", orderID))
	case PayCard:
		snap, err := b.Orders.GetOrderStatus(ctx, r.OrderID, userID)
		if err != nil {
			return Reply{}, err
		}
		if snap.Status != models.StatusAwaitingPayment {
			return OrderView(snap, ""), nil
		}
		return PayCardView(snap), nil
	case PayCash:
		snap, err := b.Orders.GetOrderStatus(ctx, r.OrderID, userID)
		if err != nil {
			return Reply{}, err
		}
		if snap.Status != models.StatusAwaitingPayment {
			return OrderView(snap, ""), nil
		}
		return PayCashView(snap), nil
	case Paid:
		if err := b.Orders.ReportPaid(ctx, r.OrderID, userID); err != nil {
			return Reply{}, err
		}
		return b.orderView(ctx, r.OrderID, userID, "✅ Thank you! The operator will check the payment.")
	case Extend:
		until, err := b.Orders.ExtendReservation(ctx, r.OrderID, userID)
		if err != nil {
			return Reply{}, err
		}
		return b.orderView(ctx, r.OrderID, userID, extendedNotice(until))
	case Cancel:
		res, err := b.Orders.CancelOrder(ctx, r.OrderID, userID)
		if err != nil {
			return Reply{}, err
		}
		return b.orderView(ctx, r.OrderID, userID, cancelNotice(res))
	case Status:
		return b.status(ctx, userID, r.OrderID)
	case AdminAdd:
		if !b.isAdmin(userID) {
			return Reply{}, ErrForbidden
		}
		p, err := b.Products.AddProduct(ctx, r.Line)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: fmt.Sprintf("✅ Added product #%d: %s • %s (%s), %d %s",
			p.ID, p.Name, p.Variant, p.City, p.Price, currency)}, nil
	case AdminComplete:
		if !b.isAdmin(userID) {
			return Reply{}, ErrForbidden
		}
		if err := b.Orders.CompleteOrder(ctx, r.OrderID); err != nil {
			return Reply{}, err
		}
		return Reply{Text: fmt.Sprintf("✅ Order #%d completed.", r.OrderID)}, nil
	case AdminStats:
		if !b.isAdmin(userID) {
			return Reply{}, ErrForbidden
		}
		if b.Reports == nil {
			return Reply{Text: "Reports are not configured."}, nil
		}
		report, err := b.Reports.Report(ctx, statsWindow)
		if err != nil {
			return Reply{}, err
		}
		return StatsView(report, statsWindow), nil
	}
	return Reply{}, fmt.Errorf("%w: %T", ErrMalformed, req)
}

func (b *Bot) setCity(ctx context.Context, userID int64, city string) (Reply, error) {
	cities, err := b.Products.ListCities(ctx)
	if err != nil {
		return Reply{}, err
	}
	if !slices.Contains(cities, city) {
		return Reply{}, fmt.Errorf("%w: unknown city %q", order.ErrValidation, city)
	}
	if err := b.Profiles.SetUserCity(ctx, userID, city); err != nil {
		return Reply{}, err
	}
	return MenuView(fmt.Sprintf("✅ City selected: %s\n\nNow open the catalog.", city)), nil
}

func (b *Bot) catalog(ctx context.Context, userID int64) (Reply, error) {
	prof, err := b.Profiles.GetUserProfile(ctx, userID)
	if err != nil {
		return Reply{}, err
	}
	if prof.City == "" {
		return Reply{}, order.ErrNoCityChosen
	}
	products, err := b.Products.ListProducts(ctx, prof.City)
	if err != nil {
		return Reply{}, err
	}
	return CatalogView(prof.City, products), nil
}

func (b *Bot) status(ctx context.Context, userID, orderID int64) (Reply, error) {
	if orderID == 0 {
		last, found, err := b.Orders.GetLastOrderID(ctx, userID)
		if err != nil {
			return Reply{}, err
		}
		if !found {
			return MenuView("You have no orders yet."), nil
		}
		orderID = last
	}
	return b.orderView(ctx, orderID, userID, "")
}

// orderView re-reads the order so the screen always reflects stored state.
func (b *Bot) orderView(ctx context.Context, orderID, userID int64, notice string) (Reply, error) {
	snap, err := b.Orders.GetOrderStatus(ctx, orderID, userID)
	if err != nil {
		return Reply{}, err
	}
	return OrderView(snap, notice), nil
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.AdminID != 0 && userID == b.AdminID
}

// isUserError reports errors caused by the request rather than the system.
func isUserError(err error) bool {
	return order.IsDomainError(err) || StatusFor(err) < 500
}
