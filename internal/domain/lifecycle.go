package domain

import (
	"fmt"
	"time"
)

// TransitionPolicy decides whether an order may move from one status to
// another. It is the single place where transition rules are enforced; the
// tracker consults it before calling AdvanceStatus.
type TransitionPolicy func(from, to ShippingStatus) error

// AllowAnyTransition accepts every move to a valid status, including jumps
// and rewinds. It is the default policy.
func AllowAnyTransition(_, to ShippingStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, string(to))
	}
	return nil
}

// ForwardOnly accepts re-applying the current status or moving to its
// immediate successor.
func ForwardOnly(from, to ShippingStatus) error {
	if err := AllowAnyTransition(from, to); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	if next, ok := NextStatus(from); ok && next == to {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, from, to)
}

// PolicyByName resolves a configured policy name. Unknown names yield nil.
func PolicyByName(name string) TransitionPolicy {
	switch name {
	case "", "permissive":
		return AllowAnyTransition
	case "forward_only":
		return ForwardOnly
	default:
		return nil
	}
}

// OrderInput carries the descriptive fields of an order.
type OrderInput struct {
	ProductDescription string
	Store              string
	TrackingNumber     string
}

// NewOrder builds an order in StatusPurchased with its first history entry.
func NewOrder(id, clientID string, in OrderInput, now time.Time) Order {
	return Order{
		ID:                 id,
		ClientID:           clientID,
		ProductDescription: in.ProductDescription,
		Store:              in.Store,
		TrackingNumber:     in.TrackingNumber,
		Status:             StatusPurchased,
		StatusHistory: []StatusChange{
			{Status: StatusPurchased, Timestamp: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AdvanceStatus returns a copy of o moved to next.
//
// A history entry {next, now, false} is appended only when no entry with
// that status exists yet; an existing entry keeps its NotificationSent flag.
// Status and UpdatedAt are always updated.
//
// AdvanceStatus applies no transition rule. Callers check a TransitionPolicy
// first.
func AdvanceStatus(o Order, next ShippingStatus, now time.Time) Order {
	out := o.Clone()
	if !out.HasStatus(next) {
		out.StatusHistory = append(out.StatusHistory, StatusChange{
			Status:    next,
			Timestamp: now,
		})
	}
	out.Status = next
	out.UpdatedAt = now
	return out
}

// MarkNotified returns a copy of o with the most recent history entry for
// status flagged as notified. ok is false when no entry matches.
func MarkNotified(o Order, status ShippingStatus) (Order, bool) {
	out := o.Clone()
	for i := len(out.StatusHistory) - 1; i >= 0; i-- {
		if out.StatusHistory[i].Status == status {
			out.StatusHistory[i].NotificationSent = true
			return out, true
		}
	}
	return out, false
}
