package policy

// Rules bundles both policies handed to the order service.
type Rules struct {
	Reservation Reservation
	Abuse       Abuse
}

func DefaultRules() Rules {
	return Rules{Reservation: DefaultReservation(), Abuse: DefaultAbuse()}
}
