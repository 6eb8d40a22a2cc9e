package store

import "time"

type OrderStatus string

const (
	StatusPaymentRequested OrderStatus = "payment_requested"
	StatusConfirmed        OrderStatus = "confirmed"
	StatusCompleted        OrderStatus = "completed"
	StatusFailed           OrderStatus = "failed"
	StatusCancelled        OrderStatus = "cancelled"
	StatusExpired          OrderStatus = "expired"
	StatusRefunded         OrderStatus = "refunded"
)

// Terminal reports whether no further transition is accepted from s.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusExpired, StatusRefunded:
		return true
	}
	return false
}

type OrderKind string

const (
	KindOneTime        OrderKind = "one_time"
	KindRecurringFee   OrderKind = "recurring_fee"
	KindDigitalProduct OrderKind = "digital_product"
)

type Order struct {
	ID string `gorm:"primaryKey;size:36" json:"id"` // uuid

	// exactly one of IdentityRef or the guest pair is set
	IdentityRef string `gorm:"size:64;index" json:"identity_ref,omitempty"`
	GuestName   string `gorm:"size:120" json:"guest_name,omitempty"`
	GuestEmail  string `gorm:"size:120;index" json:"guest_email,omitempty"`

	OrderName string    `gorm:"size:200" json:"order_name"`
	OrderKind OrderKind `gorm:"size:32" json:"order_kind"`

	Amount   int64  `gorm:"not null" json:"amount"` // minor units, always > 0
	Currency string `gorm:"size:8" json:"currency"`

	Status OrderStatus `gorm:"size:32;index" json:"status"`

	ExternalOrderID   string `gorm:"size:36;uniqueIndex" json:"external_order_id"` // idempotency anchor for gateway-side matching
	GatewayPaymentRef string `gorm:"size:128" json:"gateway_payment_ref,omitempty"`

	RelatedEntityType string `gorm:"size:64" json:"related_entity_type,omitempty"`
	RelatedEntityID   string `gorm:"size:64" json:"related_entity_id,omitempty"`

	Metadata string `gorm:"type:text" json:"metadata,omitempty"` // opaque, never interpreted here

	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	PaymentRequestedAt time.Time  `json:"payment_requested_at"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	FailedAt           *time.Time `json:"failed_at,omitempty"`

	FailureCode    string `gorm:"size:64" json:"failure_code,omitempty"`
	FailureMessage string `gorm:"size:255" json:"failure_message,omitempty"`
}
