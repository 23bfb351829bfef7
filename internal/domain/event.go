package domain

const EventTypePaymentIntentSucceeded = "payment_intent.succeeded"

// Event is a verified webhook event. The set of kinds is closed: every
// implementation lives in this file, and dispatchers switch over them.
type Event interface {
	EventID() string
	EventType() string
	isEvent()
}

// PaymentIntentSucceeded carries the payment intent embedded in data.object.
type PaymentIntentSucceeded struct {
	ID     string
	Intent PaymentIntent
}

func (e PaymentIntentSucceeded) EventID() string   { return e.ID }
func (e PaymentIntentSucceeded) EventType() string { return EventTypePaymentIntentSucceeded }
func (PaymentIntentSucceeded) isEvent()            {}

// IgnoredEvent is any event type this service accepts but does not act on.
type IgnoredEvent struct {
	ID   string
	Type string
}

func (e IgnoredEvent) EventID() string   { return e.ID }
func (e IgnoredEvent) EventType() string { return e.Type }
func (IgnoredEvent) isEvent()            {}
