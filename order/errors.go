package order

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOwner: neither or both owner forms present, or a partially
	// filled guest pair. Rejected before any store write.
	ErrInvalidOwner = errors.New("invalid order owner")

	ErrInvalidAmount = errors.New("order amount must be positive")

	ErrOrderNotFound = errors.New("order not found")
)

// AmountMismatchError hard-fails a confirmation whose reported amount
// disagrees with the stored order. Defends against tampered callbacks.
type AmountMismatchError struct {
	OrderID  string
	Stored   int64
	Reported int64
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("amount mismatch for order %s: stored %d, reported %d", e.OrderID, e.Stored, e.Reported)
}
