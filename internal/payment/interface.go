package payment

import "context"

// PaymentResult contains the result of a payment creation.
type PaymentResult struct {
	PaymentURL string `json:"payment_url"`
	Authority  string `json:"authority"`
}

// VerifyResult contains the result of a payment verification.
type VerifyResult struct {
	Verified bool   `json:"verified"`
	RefID    string `json:"ref_id,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Gateway defines the interface for payment gateway implementations.
type Gateway interface {
	// Name returns the gateway identifier.
	Name() string

	// CreatePayment initiates a new payment and returns the hosted
	// payment-page URL plus the gateway's correlation token.
	CreatePayment(ctx context.Context, amount int, description, callbackURL string) (*PaymentResult, error)

	// VerifyPayment verifies a payment after callback.
	VerifyPayment(ctx context.Context, authority string, amount int) (*VerifyResult, error)

	// PaymentURL rebuilds the hosted payment-page URL for a known authority.
	PaymentURL(authority string) string
}

// Outcome is the adapter-level result of verifying a payment.
type Outcome int

const (
	// OutcomeConfirmed means the gateway confirmed the payment and this
	// caller won the pending-to-success transition.
	OutcomeConfirmed Outcome = iota
	// OutcomeRejected means the gateway rejected the payment.
	OutcomeRejected
	// OutcomeDuplicate means the payment was confirmed but another caller
	// already resolved the pending attempt.
	OutcomeDuplicate
)
