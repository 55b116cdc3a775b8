package policy

import "time"

const (
	DefaultCancelWindow  = 24 * time.Hour
	DefaultWarnThreshold = 2
	DefaultBanThreshold  = 15
)

type AbuseAction int

const (
	ActionNone AbuseAction = iota
	ActionWarn
	ActionBan
)

func (a AbuseAction) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionWarn:
		return "warn"
	case ActionBan:
		return "ban"
	}
	return "unknown"
}

// Abuse escalates cancellations counted over a trailing window.
type Abuse struct {
	Window        time.Duration
	WarnThreshold int
	BanThreshold  int
}

func DefaultAbuse() Abuse {
	return Abuse{
		Window:        DefaultCancelWindow,
		WarnThreshold: DefaultWarnThreshold,
		BanThreshold:  DefaultBanThreshold,
	}
}

// WindowStart is the inclusive lower bound of the window ending at now.
func (a Abuse) WindowStart(now time.Time) time.Time {
	return now.Add(-a.Window)
}

// Decide maps the number of cancellations in the window, including the one
// just recorded, to an action.
func (a Abuse) Decide(count int) AbuseAction {
	switch {
	case count >= a.BanThreshold:
		return ActionBan
	case count >= a.WarnThreshold:
		return ActionWarn
	}
	return ActionNone
}
