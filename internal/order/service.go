package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-bot/internal/catalog"
	"storefront-bot/internal/clock"
	"storefront-bot/internal/logger"
	"storefront-bot/internal/models"
	"storefront-bot/internal/order/policy"
)

// Store opens one transaction per logical operation.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of reads and conditional writes available inside a
// transaction. Order lookups are always scoped by owner; a foreign order
// reports ErrNotFound.
type Tx interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	BanUser(ctx context.Context, userID int64) error

	InsertOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, orderID, userID int64) (*models.Order, error)
	GetOrderByID(ctx context.Context, orderID int64) (*models.Order, error)
	LastOrderID(ctx context.Context, userID int64) (int64, bool, error)

	// TransitionOrder moves the order from -> to only if it is still in from.
	TransitionOrder(ctx context.Context, orderID int64, from, to models.OrderStatus) (bool, error)
	// ExtendOrder applies an extension only if the order is still awaiting
	// payment with exactly seenExtensions extensions.
	ExtendOrder(ctx context.Context, orderID int64, seenExtensions int, reservedUntil time.Time) (bool, error)

	AppendCancellation(ctx context.Context, userID int64, at time.Time) error
	CountCancellationsSince(ctx context.Context, userID int64, since time.Time) (int, error)
}

type Catalog interface {
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
}

// Notifier delivers operator messages at most once. It must not block.
type Notifier interface {
	NotifyOperator(text string)
}

type OrderService struct {
	Store    Store
	Catalog  Catalog
	Notifier Notifier
	Clock    clock.Clock
	Rules    policy.Rules
	Logger   *logger.Logger
}

func NewOrderService(store Store, catalog Catalog, notifier Notifier, clk clock.Clock, rules policy.Rules, log *logger.Logger) *OrderService {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &OrderService{Store: store, Catalog: catalog, Notifier: notifier, Clock: clk, Rules: rules, Logger: log}
}

// inTx runs fn in one transaction. Business failures still commit so that a
// lapse recorded along the way is kept; storage failures roll back.
func (s *OrderService) inTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	var domainErr error
	err := s.Store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := fn(ctx, tx); err != nil {
			if IsDomainError(err) {
				domainErr = err
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return domainErr
}

func (s *OrderService) notify(text string) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.NotifyOperator(text)
}

// ---------------- ORDERS ----------------

func (s *OrderService) CreateOrder(ctx context.Context, userID, productID int64) (int64, error) {
	product, err := s.Catalog.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return 0, fmt.Errorf("product %d: %w", productID, ErrNotFound)
		}
		return 0, fmt.Errorf("storage: %w", err)
	}

	var order models.Order
	err = s.inTx(ctx, func(ctx context.Context, tx Tx) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if user.Banned {
			return ErrBanned
		}
		if user.City == "" {
			return ErrNoCityChosen
		}
		if user.City != product.City {
			return ErrCityMismatch
		}

		now := s.Clock.Now()
		order = models.Order{
			UserID:        userID,
			ProductID:     product.ID,
			City:          product.City,
			Total:         product.Price,
			Status:        models.StatusAwaitingPayment,
			CreatedAt:     now,
			ReservedUntil: s.Rules.Reservation.InitialExpiry(now),
			Extensions:    0,
		}
		return tx.InsertOrder(ctx, &order)
	})
	if err != nil {
		return 0, err
	}

	s.Logger.LogOrder("CREATE", order.ID, fmt.Sprintf("user %d, product %d, total %d", userID, product.ID, order.Total))
	s.notify(fmt.Sprintf("🆕 New order #%d\nUser: %d\nCity: %s\nProduct: %s • %s\nTotal: %d\nStatus: %s",
		order.ID, userID, order.City, product.Name, product.Variant, order.Total, order.Status))

	return order.ID, nil
}

// normalizeLapse marks an unpaid order EXPIRED once its reservation has run
// out. It is the first step of every read or transition on an order.
func (s *OrderService) normalizeLapse(ctx context.Context, tx Tx, o *models.Order, now time.Time) error {
	if !s.Rules.Reservation.Lapsed(o.Status, o.ReservedUntil, now) {
		return nil
	}
	ok, err := tx.TransitionOrder(ctx, o.ID, models.StatusAwaitingPayment, models.StatusExpired)
	if err != nil {
		return err
	}
	if !ok {
		// someone else moved it first; reload what they wrote
		fresh, err := tx.GetOrder(ctx, o.ID, o.UserID)
		if err != nil {
			return err
		}
		*o = *fresh
		return nil
	}
	o.Status = models.StatusExpired
	s.Logger.LogOrder("EXPIRE", o.ID, "reservation lapsed")
	return nil
}

// loadOrder fetches the caller's order and normalizes its lapse state.
func (s *OrderService) loadOrder(ctx context.Context, tx Tx, orderID, userID int64, now time.Time) (*models.Order, error) {
	o, err := tx.GetOrder(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.normalizeLapse(ctx, tx, o, now); err != nil {
		return nil, err
	}
	return o, nil
}

// checkNotBanned loads the caller and rejects flagged accounts.
func checkNotBanned(ctx context.Context, tx Tx, userID int64) error {
	user, err := tx.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.Banned {
		return ErrBanned
	}
	return nil
}

// NormalizeLapse applies lazy lapse detection on its own and returns the
// resulting status.
func (s *OrderService) NormalizeLapse(ctx context.Context, orderID, userID int64) (models.OrderStatus, error) {
	var status models.OrderStatus
	err := s.inTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := s.loadOrder(ctx, tx, orderID, userID, s.Clock.Now())
		if err != nil {
			return err
		}
		status = o.Status
		return nil
	})
	return status, err
}

// ReportPaid records the user's claim that they paid. Nothing is verified;
// an operator confirms it out of band.
func (s *OrderService) ReportPaid(ctx context.Context, orderID, userID int64) error {
	var total int64
	err := s.inTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := checkNotBanned(ctx, tx, userID); err != nil {
			return err
		}
		o, err := s.loadOrder(ctx, tx, orderID, userID, s.Clock.Now())
		if err != nil {
			return err
		}
		if o.Status != models.StatusAwaitingPayment {
			return fmt.Errorf("%w: order is %s", ErrInvalidState, o.Status)
		}
		ok, err := tx.TransitionOrder(ctx, o.ID, models.StatusAwaitingPayment, models.StatusPaidReported)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: order changed concurrently", ErrInvalidState)
		}
		total = o.Total
		return nil
	})
	if err != nil {
		return err
	}

	s.Logger.LogOrder("PAID", orderID, fmt.Sprintf("user %d reported payment", userID))
	s.notify(fmt.Sprintf("💳 User %d reports payment for order #%d (total %d). Please verify.", userID, orderID, total))
	return nil
}

// ExtendReservation prolongs the reservation once per MaxExtends and returns
// the new deadline.
func (s *OrderService) ExtendReservation(ctx context.Context, orderID, userID int64) (time.Time, error) {
	var newExpiry time.Time
	err := s.inTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := checkNotBanned(ctx, tx, userID); err != nil {
			return err
		}
		now := s.Clock.Now()
		o, err := s.loadOrder(ctx, tx, orderID, userID, now)
		if err != nil {
			return err
		}
		if err := s.extensionError(o, now); err != nil {
			return err
		}

		next := s.Rules.Reservation.ExtendedExpiry(o.ReservedUntil)
		ok, err := tx.ExtendOrder(ctx, o.ID, o.Extensions, next)
		if err != nil {
			return err
		}
		if !ok {
			// lost a race with another extension; report against the winner's state
			fresh, err := tx.GetOrder(ctx, o.ID, userID)
			if err != nil {
				return err
			}
			if err := s.extensionError(fresh, now); err != nil {
				return err
			}
			return ErrLimitExhausted
		}
		newExpiry = next
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}

	s.Logger.LogOrder("EXTEND", orderID, fmt.Sprintf("reserved until %s", newExpiry.Format(time.RFC3339)))
	return newExpiry, nil
}

func (s *OrderService) extensionError(o *models.Order, now time.Time) error {
	switch s.Rules.Reservation.CheckExtension(o.Status, o.Extensions, o.ReservedUntil, now) {
	case policy.ExtensionWrongStatus:
		return fmt.Errorf("%w: order is %s", ErrInvalidState, o.Status)
	case policy.ExtensionLimitExhausted:
		return ErrLimitExhausted
	case policy.ExtensionLapsed:
		return ErrAlreadyLapsed
	}
	return nil
}

// CancelOrder closes a non-terminal order, records the cancellation in the
// ledger and applies the abuse policy in the same transaction.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, userID int64) (CancelResult, error) {
	result := CancelResult{OrderID: orderID}
	err := s.inTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := checkNotBanned(ctx, tx, userID); err != nil {
			return err
		}
		now := s.Clock.Now()
		o, err := s.loadOrder(ctx, tx, orderID, userID, now)
		if err != nil {
			return err
		}
		if o.Status.Terminal() {
			return ErrAlreadyTerminal
		}
		ok, err := tx.TransitionOrder(ctx, o.ID, o.Status, models.StatusCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyTerminal
		}

		if err := tx.AppendCancellation(ctx, userID, now); err != nil {
			return err
		}
		count, err := tx.CountCancellationsSince(ctx, userID, s.Rules.Abuse.WindowStart(now))
		if err != nil {
			return err
		}
		result.Count = count

		switch s.Rules.Abuse.Decide(count) {
		case policy.ActionWarn:
			result.Warning = true
		case policy.ActionBan:
			if err := tx.BanUser(ctx, userID); err != nil {
				return err
			}
			result.Banned = true
		}
		return nil
	})
	if err != nil {
		return CancelResult{}, err
	}

	s.Logger.LogOrder("CANCEL", orderID, fmt.Sprintf("user %d, %d cancellations in window", userID, result.Count))
	s.notify(fmt.Sprintf("❌ User %d cancelled order #%d", userID, orderID))
	if result.Banned {
		s.Logger.LogSecurity("BAN", fmt.Sprintf("user %d banned after %d cancellations", userID, result.Count))
		s.notify(fmt.Sprintf("⛔ User %d banned after %d cancellations in %s", userID, result.Count, s.Rules.Abuse.Window))
	}
	return result, nil
}

// GetOrderStatus returns the caller's order after lapse normalization.
func (s *OrderService) GetOrderStatus(ctx context.Context, orderID, userID int64) (OrderSnapshot, error) {
	var snap OrderSnapshot
	err := s.inTx(ctx, func(ctx context.Context, tx Tx) error {
		now := s.Clock.Now()
		o, err := s.loadOrder(ctx, tx, orderID, userID, now)
		if err != nil {
			return err
		}
		snap = Project(o, s.Rules.Reservation, now)
		return nil
	})
	return snap, err
}

// GetLastOrderID returns the caller's most recent order, if any.
func (s *OrderService) GetLastOrderID(ctx context.Context, userID int64) (int64, bool, error) {
	var (
		id    int64
		found bool
	)
	err := s.inTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		id, found, err = tx.LastOrderID(ctx, userID)
		return err
	})
	return id, found, err
}

// CompleteOrder is the operator's confirmation of a reported payment. It is
// the only way into COMPLETED.
func (s *OrderService) CompleteOrder(ctx context.Context, orderID int64) error {
	var owner int64
	err := s.inTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.GetOrderByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := s.normalizeLapse(ctx, tx, o, s.Clock.Now()); err != nil {
			return err
		}
		if !models.CanTransition(o.Status, models.StatusCompleted) {
			return fmt.Errorf("%w: order is %s", ErrInvalidState, o.Status)
		}
		ok, err := tx.TransitionOrder(ctx, o.ID, o.Status, models.StatusCompleted)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: order changed concurrently", ErrInvalidState)
		}
		owner = o.UserID
		return nil
	})
	if err != nil {
		return err
	}

	s.Logger.LogOrder("COMPLETE", orderID, fmt.Sprintf("confirmed by operator for user %d", owner))
	return nil
}
