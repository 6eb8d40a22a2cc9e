// Order lifecycle: payment_requested -> confirmed -> completed, with failed,
// cancelled, expired and refunded as terminal branches. Every transition is a
// conditional write keyed on the expected prior status, so duplicate
// callbacks, retries and racing browser tabs resolve to exactly one winner
// and the rest become no-ops.

package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"go-checkout/gateway"
	"go-checkout/store"
	"go-checkout/utils"
)

// Store is the persistence surface the lifecycle engine consumes.
// Implemented by store.Store.
type Store interface {
	Insert(order *store.Order) error
	GetByID(id string) (*store.Order, error)
	GetByExternalOrderID(externalOrderID string) (*store.Order, error)
	UpdateIfStatus(id string, expected store.OrderStatus, patch map[string]interface{}) (int64, error)
	ListPendingForOwner(identityRef, guestEmail string) ([]store.Order, error)
	MarkExpiredBefore(cutoff time.Time) (int64, error)
}

type Manager struct {
	store    Store
	gw       gateway.Gateway
	currency string // fixed per deployment
	logger   *zap.SugaredLogger
}

func NewManager(s Store, gw gateway.Gateway, currency string, logger *zap.SugaredLogger) *Manager {
	return &Manager{store: s, gw: gw, currency: currency, logger: logger}
}

type CreateInput struct {
	OrderName         string
	OrderKind         store.OrderKind
	Amount            int64 // minor units
	RelatedEntityType string
	RelatedEntityID   string
	Metadata          string
}

// CreateOrder opens an order for an authenticated caller. The owner is forced
// to the caller's own identity; there is no way to create on behalf of others.
func (m *Manager) CreateOrder(ctx context.Context, identityRef string, in CreateInput) (*store.Order, error) {
	owner, err := IdentityOwner(identityRef)
	if err != nil {
		return nil, err
	}
	return m.create(ctx, owner, in)
}

// CreateGuestOrder is the privilege-elevated write path for guests. It only
// accepts the guest shape; an identity ref can never reach it.
func (m *Manager) CreateGuestOrder(ctx context.Context, guestName, guestEmail string, in CreateInput) (*store.Order, error) {
	owner, err := GuestOwner(guestName, guestEmail)
	if err != nil {
		return nil, err
	}
	return m.create(ctx, owner, in)
}

func (m *Manager) create(ctx context.Context, owner Owner, in CreateInput) (*store.Order, error) {
	if in.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := owner.validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	order := &store.Order{
		ID:                 utils.GenerateUUID(),
		IdentityRef:        owner.IdentityRef,
		GuestName:          owner.GuestName,
		GuestEmail:         owner.GuestEmail,
		OrderName:          in.OrderName,
		OrderKind:          in.OrderKind,
		Amount:             in.Amount,
		Currency:           m.currency,
		Status:             store.StatusPaymentRequested,
		ExternalOrderID:    utils.GenerateUUID(),
		RelatedEntityType:  in.RelatedEntityType,
		RelatedEntityID:    in.RelatedEntityID,
		Metadata:           in.Metadata,
		PaymentRequestedAt: now,
	}

	if err := m.store.Insert(order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	m.logger.Infow("order created",
		"order_id", order.ID,
		"external_order_id", order.ExternalOrderID,
		"amount", order.Amount,
		"guest", owner.IsGuest(),
	)
	return order, nil
}

// LaunchCheckout hands the order to the hosted checkout. On success the
// returned Launch carries the URL the buyer's browser leaves through;
// completion arrives later via the callback route, never here. Any launch
// failure cancels the order best-effort before returning: for
// gateway.ErrUserAborted the caller must not surface an error to the user.
func (m *Manager) LaunchCheckout(ctx context.Context, orderID, successURL, failureURL string) (*gateway.Launch, error) {
	order, err := m.store.GetByID(orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	owner := OwnerOf(order)
	launch, err := m.gw.Launch(ctx, gateway.LaunchRequest{
		ExternalOrderID: order.ExternalOrderID,
		Amount:          order.Amount,
		Currency:        order.Currency,
		SuccessURL:      successURL,
		FailureURL:      failureURL,
		BuyerName:       owner.GuestName,
		BuyerEmail:      owner.GuestEmail,
	})
	if err != nil {
		// compensating cancel, regardless of why the launch failed
		m.CancelOrder(ctx, order.ID, "checkout launch failed")
		if errors.Is(err, gateway.ErrUserAborted) {
			m.logger.Infow("checkout aborted by user", "order_id", order.ID)
			return nil, gateway.ErrUserAborted
		}
		return nil, fmt.Errorf("launch checkout for order %s: %w", order.ID, err)
	}

	return launch, nil
}

// ConfirmOrder finalizes a payment after the gateway redirected back.
// reportedAmount comes from the callback and is only ever compared against
// the stored amount. The gateway call is idempotent on idempotencyKey, and
// the local transition is guarded, so retries and duplicate callbacks settle
// on the first outcome.
func (m *Manager) ConfirmOrder(ctx context.Context, orderID, transactionKey string, reportedAmount int64, idempotencyKey string) (*gateway.ConfirmResult, error) {
	order, err := m.store.GetByID(orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if reportedAmount != order.Amount {
		return nil, &AmountMismatchError{OrderID: order.ID, Stored: order.Amount, Reported: reportedAmount}
	}

	result, err := m.gw.Confirm(ctx, order.ExternalOrderID, transactionKey, order.Amount, idempotencyKey)
	if err != nil {
		// primary failure drives the caller's error; cleanup is best-effort
		m.CancelOrder(ctx, order.ID, "gateway confirm failed")
		return nil, fmt.Errorf("confirm order %s: %w", order.ID, err)
	}

	now := time.Now()
	if result.Approved {
		changed, err := m.store.UpdateIfStatus(order.ID, store.StatusPaymentRequested, map[string]interface{}{
			"status":              store.StatusConfirmed,
			"gateway_payment_ref": result.PaymentRef,
			"confirmed_at":        &now,
		})
		if err != nil {
			return nil, err
		}
		if changed == 0 {
			m.logger.Infow("confirm arrived after order left payment_requested, no-op", "order_id", order.ID)
		} else {
			m.logger.Infow("order confirmed", "order_id", order.ID, "payment_ref", result.PaymentRef)
		}
		return result, nil
	}

	changed, err := m.store.UpdateIfStatus(order.ID, store.StatusPaymentRequested, map[string]interface{}{
		"status":          store.StatusFailed,
		"failure_code":    result.DeclineCode,
		"failure_message": result.DeclineMessage,
		"failed_at":       &now,
	})
	if err != nil {
		return nil, err
	}
	if changed > 0 {
		m.logger.Warnw("order declined by gateway", "order_id", order.ID, "decline_code", result.DeclineCode)
	}
	return result, nil
}

// CancelOutcome is what a cancel reports back. Changed is false when the
// order had already left payment_requested and nothing happened.
type CancelOutcome struct {
	Changed bool
	Status  store.OrderStatus
}

// CancelOrder moves a payment_requested order to cancelled. It never returns
// an error: cancellation runs on the user's way back from an abandoned
// checkout and must not block on cleanup trouble. Gateway-side voiding is a
// recorded side effect, not part of the result.
func (m *Manager) CancelOrder(ctx context.Context, orderID, reason string) CancelOutcome {
	order, err := m.store.GetByID(orderID)
	if err != nil {
		m.record(SideEffect{Op: "cancel.load", OrderID: orderID, Err: err})
		return CancelOutcome{}
	}

	changed, err := m.store.UpdateIfStatus(order.ID, store.StatusPaymentRequested, map[string]interface{}{
		"status": store.StatusCancelled,
	})
	if err != nil {
		m.record(SideEffect{Op: "cancel.update", OrderID: orderID, Err: err})
		return CancelOutcome{Status: order.Status}
	}
	if changed == 0 {
		return CancelOutcome{Status: order.Status}
	}

	m.logger.Infow("order cancelled", "order_id", order.ID, "reason", reason)

	_, err = m.gw.Cancel(ctx, order.ExternalOrderID, reason)
	m.record(SideEffect{Op: "cancel.gateway", OrderID: orderID, Err: err})

	return CancelOutcome{Changed: true, Status: store.StatusCancelled}
}

// RefundOrder compensates a confirmed order through the gateway's void/refund
// path. Deliberately distinct from CancelOrder: a plain cancel never touches
// an order that has money behind it.
func (m *Manager) RefundOrder(ctx context.Context, orderID, reason string) (*gateway.CancelResult, error) {
	order, err := m.store.GetByID(orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	// only a confirmed order has money behind it; anything else must not
	// reach the gateway's void endpoint
	if order.Status != store.StatusConfirmed {
		m.logger.Infow("refund on non-confirmed order, no-op", "order_id", order.ID, "status", order.Status)
		return &gateway.CancelResult{Message: "order not refundable"}, nil
	}

	result, err := m.gw.Cancel(ctx, order.ExternalOrderID, reason)
	if err != nil {
		return nil, fmt.Errorf("refund order %s: %w", order.ID, err)
	}

	changed, err := m.store.UpdateIfStatus(order.ID, store.StatusConfirmed, map[string]interface{}{
		"status": store.StatusRefunded,
	})
	if err != nil {
		return nil, err
	}
	if changed == 0 {
		m.logger.Infow("refund arrived after order left confirmed, no-op", "order_id", order.ID)
	} else {
		m.logger.Infow("order refunded", "order_id", order.ID, "reason", reason)
	}
	return result, nil
}

// CompleteOrder records business fulfillment of a confirmed order.
func (m *Manager) CompleteOrder(ctx context.Context, orderID string) error {
	changed, err := m.store.UpdateIfStatus(orderID, store.StatusConfirmed, map[string]interface{}{
		"status": store.StatusCompleted,
	})
	if err != nil {
		return err
	}
	if changed == 0 {
		m.logger.Infow("complete on non-confirmed order, no-op", "order_id", orderID)
	}
	return nil
}

func (m *Manager) GetOrder(ctx context.Context, orderID string) (*store.Order, error) {
	order, err := m.store.GetByID(orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// SideEffect is the outcome of a best-effort cleanup action. Recorded for
// operators, never returned to the caller.
type SideEffect struct {
	Op      string
	OrderID string
	Err     error
}

func (m *Manager) record(se SideEffect) {
	if se.Err != nil {
		m.logger.Warnw("best-effort side effect failed", "op", se.Op, "order_id", se.OrderID, "error", se.Err)
	}
}
