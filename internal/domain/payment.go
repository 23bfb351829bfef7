package domain

import "encoding/json"

type PaymentIntentStatus string

const (
	PaymentIntentStatusSucceeded      PaymentIntentStatus = "succeeded"
	PaymentIntentStatusProcessing     PaymentIntentStatus = "processing"
	PaymentIntentStatusRequiresAction PaymentIntentStatus = "requires_action"
	PaymentIntentStatusCanceled       PaymentIntentStatus = "canceled"
)

// PaymentIntent is the slice of the provider's payment intent this service reads.
// Raw keeps the full provider object for fulfillment.
type PaymentIntent struct {
	ID           string              `json:"id"`
	Amount       int64               `json:"amount"`
	Currency     string              `json:"currency"`
	Status       PaymentIntentStatus `json:"status"`
	ClientSecret string              `json:"-"`
	Raw          json.RawMessage     `json:"-"`
}

// Account is a connected account exactly as the provider returned it.
type Account = json.RawMessage
