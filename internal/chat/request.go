// Package chat turns user messages and button presses into order and
// catalog operations and renders the result as a Reply.
package chat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned for tokens and commands that do not parse.
var ErrMalformed = errors.New("malformed request")

// Request is one parsed user action. The set of implementations is closed.
// A Status with a zero OrderID asks for the user's most recent order.
type Request interface {
	isRequest()
}

type (
	Start         struct{}
	Menu          struct{}
	ChooseCity    struct{}
	SetCity       struct{ City string }
	Catalog       struct{}
	Product       struct{ ProductID int64 }
	Order         struct{ ProductID int64 }
	PayCard       struct{ OrderID int64 }
	PayCash       struct{ OrderID int64 }
	Paid          struct{ OrderID int64 }
	Extend        struct{ OrderID int64 }
	Cancel        struct{ OrderID int64 }
	Status        struct{ OrderID int64 }
	AdminAdd      struct{ Line string }
	AdminComplete struct{ OrderID int64 }
	AdminStats    struct{}
)

func (Start) isRequest()         {}
func (Menu) isRequest()          {}
func (ChooseCity) isRequest()    {}
func (SetCity) isRequest()       {}
func (Catalog) isRequest()       {}
func (Product) isRequest()       {}
func (Order) isRequest()         {}
func (PayCard) isRequest()       {}
func (PayCash) isRequest()       {}
func (Paid) isRequest()          {}
func (Extend) isRequest()        {}
func (Cancel) isRequest()        {}
func (Status) isRequest()        {}
func (AdminAdd) isRequest()      {}
func (AdminComplete) isRequest() {}
func (AdminStats) isRequest()    {}

// callback actions
const (
	actionMenu       = "menu"
	actionChooseCity = "choose_city"
	actionSetCity    = "set_city"
	actionCatalog    = "catalog"
	actionProduct    = "product"
	actionOrder      = "order"
	actionPayCard    = "pay_card"
	actionPayCash    = "pay_cash"
	actionPaid       = "paid"
	actionExtend     = "extend"
	actionCancel     = "cancel"
	actionStatus     = "status"
)

// token builds the callback data for a button.
func token(action string, arg any) string {
	return fmt.Sprintf("%s:%v", action, arg)
}

// ParseCallback parses a button token of the form action or action:arg.
func ParseCallback(data string) (Request, error) {
	action, arg, hasArg := strings.Cut(strings.TrimSpace(data), ":")

	switch action {
	case actionMenu, actionChooseCity, actionCatalog:
		if hasArg {
			return nil, fmt.Errorf("%w: %q takes no argument", ErrMalformed, action)
		}
		switch action {
		case actionMenu:
			return Menu{}, nil
		case actionChooseCity:
			return ChooseCity{}, nil
		default:
			return Catalog{}, nil
		}
	case actionSetCity:
		city := strings.TrimSpace(arg)
		if city == "" {
			return nil, fmt.Errorf("%w: city is empty", ErrMalformed)
		}
		return SetCity{City: city}, nil
	case actionStatus:
		if !hasArg {
			return Status{}, nil
		}
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		return Status{OrderID: id}, nil
	}

	if !hasArg {
		return nil, fmt.Errorf("%w: unknown action %q", ErrMalformed, action)
	}
	id, err := parseID(arg)
	if err != nil {
		return nil, err
	}
	switch action {
	case actionProduct:
		return Product{ProductID: id}, nil
	case actionOrder:
		return Order{ProductID: id}, nil
	case actionPayCard:
		return PayCard{OrderID: id}, nil
	case actionPayCash:
		return PayCash{OrderID: id}, nil
	case actionPaid:
		return Paid{OrderID: id}, nil
	case actionExtend:
		return Extend{OrderID: id}, nil
	case actionCancel:
		return Cancel{OrderID: id}, nil
	}
	return nil, fmt.Errorf("%w: unknown action %q", ErrMalformed, action)
}

// ParseMessage parses a slash command typed by the user.
func ParseMessage(text string) (Request, error) {
	text = strings.TrimSpace(text)
	command, rest, _ := strings.Cut(text, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(command) {
	case "/start":
		return Start{}, nil
	case "/menu":
		return Menu{}, nil
	case "/status":
		if rest == "" {
			return Status{}, nil
		}
		id, err := parseID(strings.TrimPrefix(rest, "#"))
		if err != nil {
			return nil, err
		}
		return Status{OrderID: id}, nil
	case "/add":
		if rest == "" {
			return nil, fmt.Errorf("%w: usage /add city|name|variant|price|description", ErrMalformed)
		}
		return AdminAdd{Line: rest}, nil
	case "/complete":
		id, err := parseID(strings.TrimPrefix(rest, "#"))
		if err != nil {
			return nil, err
		}
		return AdminComplete{OrderID: id}, nil
	case "/stats":
		return AdminStats{}, nil
	}
	return nil, fmt.Errorf("%w: unknown command %q", ErrMalformed, command)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad id %q", ErrMalformed, s)
	}
	return id, nil
}
