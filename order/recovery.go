// Recovery: when the app comes back to the foreground (or starts up) the UI
// asks for the one order worth resuming. A periodic sweep expires orders that
// were never resolved, so the pending set cannot grow without bound.

package order

import (
	"context"
	"time"

	"go-checkout/store"
)

// ScanPendingOrder returns the most recent unresolved order for owner, or nil
// when there is nothing to resume. Whether to resume or abandon it is the
// caller's decision.
func (m *Manager) ScanPendingOrder(ctx context.Context, owner Owner) (*store.Order, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}

	pending, err := m.store.ListPendingForOwner(owner.IdentityRef, owner.GuestEmail)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}
	// newest first from the store
	return &pending[0], nil
}

// ExpireStale moves every payment_requested order older than maxAge to
// expired. The guarded bulk write cannot race a confirm into a lost update.
func (m *Manager) ExpireStale(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	expired, err := m.store.MarkExpiredBefore(cutoff)
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		m.logger.Infow("expired stale orders", "count", expired, "max_age", maxAge)
	}
	return expired, nil
}

// StartExpirySweep runs ExpireStale once immediately and then on every tick
// until ctx is done.
func (m *Manager) StartExpirySweep(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		if _, err := m.ExpireStale(maxAge); err != nil {
			m.logger.Errorw("expiry sweep failed", "error", err)
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.ExpireStale(maxAge); err != nil {
					m.logger.Errorw("expiry sweep failed", "error", err)
				}
			}
		}
	}()
}
