package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-checkout/gateway"
	"go-checkout/store"
)

// fakeStore keeps orders in memory and applies the status guard under a
// mutex, so racing writers see the same first-write-wins behavior as the
// database.
type fakeStore struct {
	mu      sync.Mutex
	orders  map[string]*store.Order
	inserts int
	updates int
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: make(map[string]*store.Order)}
}

func (f *fakeStore) Insert(order *store.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	cp := *order
	f.orders[order.ID] = &cp
	f.inserts++
	return nil
}

func (f *fakeStore) GetByID(id string) (*store.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) GetByExternalOrderID(externalOrderID string) (*store.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ExternalOrderID == externalOrderID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) UpdateIfStatus(id string, expected store.OrderStatus, patch map[string]interface{}) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || o.Status != expected {
		return 0, nil
	}
	for key, value := range patch {
		switch key {
		case "status":
			o.Status = value.(store.OrderStatus)
		case "gateway_payment_ref":
			o.GatewayPaymentRef = value.(string)
		case "confirmed_at":
			o.ConfirmedAt = value.(*time.Time)
		case "failed_at":
			o.FailedAt = value.(*time.Time)
		case "failure_code":
			o.FailureCode = value.(string)
		case "failure_message":
			o.FailureMessage = value.(string)
		}
	}
	o.UpdatedAt = time.Now()
	f.updates++
	return 1, nil
}

func (f *fakeStore) ListPendingForOwner(identityRef, guestEmail string) ([]store.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var pending []store.Order
	for _, o := range f.orders {
		if o.Status != store.StatusPaymentRequested {
			continue
		}
		if identityRef != "" && o.IdentityRef != identityRef {
			continue
		}
		if identityRef == "" && o.GuestEmail != guestEmail {
			continue
		}
		pending = append(pending, *o)
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.After(pending[j].CreatedAt)
	})
	return pending, nil
}

func (f *fakeStore) MarkExpiredBefore(cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var expired int64
	for _, o := range f.orders {
		if o.Status == store.StatusPaymentRequested && o.PaymentRequestedAt.Before(cutoff) {
			o.Status = store.StatusExpired
			expired++
		}
	}
	return expired, nil
}

func (f *fakeStore) get(id string) *store.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[id]
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

type fakeGateway struct {
	mu sync.Mutex

	launchErr  error
	confirmErr error
	cancelErr  error
	approved   bool
	paymentRef string
	decline    string

	confirmCalls int
	cancelCalls  int
	idemKeys     []string
}

func approvingGateway() *fakeGateway {
	return &fakeGateway{approved: true, paymentRef: "pay_ref_1"}
}

func (g *fakeGateway) Launch(ctx context.Context, req gateway.LaunchRequest) (*gateway.Launch, error) {
	if g.launchErr != nil {
		return nil, g.launchErr
	}
	return &gateway.Launch{CheckoutURL: "https://pay.example/s/" + req.ExternalOrderID}, nil
}

func (g *fakeGateway) Confirm(ctx context.Context, externalOrderID, transactionKey string, amount int64, idempotencyKey string) (*gateway.ConfirmResult, error) {
	g.mu.Lock()
	g.confirmCalls++
	g.idemKeys = append(g.idemKeys, idempotencyKey)
	g.mu.Unlock()
	if g.confirmErr != nil {
		return nil, g.confirmErr
	}
	return &gateway.ConfirmResult{
		Approved:       g.approved,
		PaymentRef:     g.paymentRef,
		DeclineCode:    g.decline,
		DeclineMessage: g.decline,
	}, nil
}

func (g *fakeGateway) Cancel(ctx context.Context, externalOrderID, reason string) (*gateway.CancelResult, error) {
	g.mu.Lock()
	g.cancelCalls++
	g.mu.Unlock()
	if g.cancelErr != nil {
		return nil, g.cancelErr
	}
	return &gateway.CancelResult{Voided: true}, nil
}

func (g *fakeGateway) cancels() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancelCalls
}
