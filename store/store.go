// Persistence primitives for orders. There is exactly one mutation path,
// UpdateIfStatus: a status-predicated update that returns the affected row
// count instead of taking a lock, so racing writers (duplicate callbacks,
// a cancel racing a confirm) are absorbed as no-ops.

package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("order not found")

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Insert(order *Order) error {
	if err := s.db.Create(order).Error; err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *Store) GetByID(id string) (*Order, error) {
	var order Order
	result := s.db.First(&order, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &order, nil
}

func (s *Store) GetByExternalOrderID(externalOrderID string) (*Order, error) {
	var order Order
	result := s.db.First(&order, "external_order_id = ?", externalOrderID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &order, nil
}

// UpdateIfStatus applies patch only if the stored row's status still equals
// expected at write time. Returns the number of rows changed; 0 means the
// order had already moved on and the caller must treat the call as a no-op.
func (s *Store) UpdateIfStatus(id string, expected OrderStatus, patch map[string]interface{}) (int64, error) {
	result := s.db.Model(&Order{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(patch)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ListPendingForOwner returns unresolved orders for one owner, newest first.
// Exactly one of identityRef or guestEmail is non-empty.
func (s *Store) ListPendingForOwner(identityRef, guestEmail string) ([]Order, error) {
	query := s.db.Where("status = ?", StatusPaymentRequested)
	if identityRef != "" {
		query = query.Where("identity_ref = ?", identityRef)
	} else {
		query = query.Where("guest_email = ?", guestEmail)
	}

	var orders []Order
	if err := query.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// MarkExpiredBefore moves every payment_requested order older than cutoff to
// expired. The status predicate keeps the sweep from clobbering a confirm
// that lands at the same moment.
func (s *Store) MarkExpiredBefore(cutoff time.Time) (int64, error) {
	result := s.db.Model(&Order{}).
		Where("status = ? AND payment_requested_at < ?", StatusPaymentRequested, cutoff).
		Updates(map[string]interface{}{"status": StatusExpired})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
