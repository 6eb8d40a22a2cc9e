// The gateway is the external hosted checkout surface. The engine only ever
// hands it an external order id and learns the outcome later through the
// callback route, so everything here is an opaque boundary type.

package gateway

import (
	"context"
	"errors"
	"fmt"
)

// ErrUserAborted means the buyer closed the checkout before submitting.
// It is not a hard failure: no error is shown to the user, but the caller
// must cancel the order it created for the attempt.
var ErrUserAborted = errors.New("user aborted checkout")

type GatewayError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s failed: %s (status %d)", e.Op, e.Message, e.StatusCode)
}

type LaunchRequest struct {
	ExternalOrderID string
	Amount          int64 // minor units
	Currency        string
	SuccessURL      string
	FailureURL      string
	BuyerName       string
	BuyerEmail      string
}

// Launch is where to send the buyer's browser. The QR encodes CheckoutURL so
// the payment can be finished on a second device.
type Launch struct {
	CheckoutURL string
	QRCodePNG   []byte
}

type ConfirmResult struct {
	Approved       bool
	PaymentRef     string
	DeclineCode    string
	DeclineMessage string
}

type CancelResult struct {
	Voided  bool
	Message string
}

type Gateway interface {
	// Launch opens a checkout session. Control returns to the application
	// only through the success/failure callback URLs; a non-nil error here
	// means the session never started.
	Launch(ctx context.Context, req LaunchRequest) (*Launch, error)

	// Confirm finalizes a payment server-side. Safe to call more than once
	// with the same idempotencyKey; the gateway dedupes retries.
	Confirm(ctx context.Context, externalOrderID, transactionKey string, amount int64, idempotencyKey string) (*ConfirmResult, error)

	// Cancel voids or refunds a session. Callers on the user-facing path
	// must not propagate its failure.
	Cancel(ctx context.Context, externalOrderID, reason string) (*CancelResult, error)
}
