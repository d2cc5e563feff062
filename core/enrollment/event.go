package enrollment

// EventType names the provider notifications the reconciler understands.
// Anything else is accepted, logged and dropped so vocabulary growth on the
// provider side never breaks the receiver.
type EventType string

const (
	EventCheckoutCompleted EventType = "checkout_completed"
	EventCheckoutExpired   EventType = "checkout_expired"
	EventPaymentFailed     EventType = "payment_failed"
	EventChargeRefunded    EventType = "charge_refunded"
)

// PaymentEvent is the provider-neutral notification shape. Delivery is
// at-least-once; the reconciler absorbs duplicates instead of assuming
// exactly-once.
type PaymentEvent struct {
	Type       EventType
	SessionRef string
	PaymentRef string
	UserID     string
	CourseID   string

	// Amount is in minor units (cents).
	Amount int
}
