package order

import "go-checkout/store"

// Owner is who an order belongs to: an authenticated identity reference, or a
// guest contact pair. Exactly one form is ever set. The two constructors keep
// the privilege boundary type-checkable: the elevated guest write path can
// only ever produce a guest-shaped owner.
type Owner struct {
	IdentityRef string
	GuestName   string
	GuestEmail  string
}

func IdentityOwner(identityRef string) (Owner, error) {
	if identityRef == "" {
		return Owner{}, ErrInvalidOwner
	}
	return Owner{IdentityRef: identityRef}, nil
}

func GuestOwner(name, email string) (Owner, error) {
	if name == "" || email == "" {
		return Owner{}, ErrInvalidOwner
	}
	return Owner{GuestName: name, GuestEmail: email}, nil
}

func (o Owner) IsGuest() bool {
	return o.IdentityRef == ""
}

func (o Owner) validate() error {
	if o.IdentityRef != "" {
		if o.GuestName != "" || o.GuestEmail != "" {
			return ErrInvalidOwner
		}
		return nil
	}
	if o.GuestName == "" || o.GuestEmail == "" {
		return ErrInvalidOwner
	}
	return nil
}

// OwnerOf recovers the owner shape from a stored order, for recovery scans
// and buyer info on relaunch.
func OwnerOf(order *store.Order) Owner {
	if order.IdentityRef != "" {
		return Owner{IdentityRef: order.IdentityRef}
	}
	return Owner{GuestName: order.GuestName, GuestEmail: order.GuestEmail}
}
