// Package workflow owns the order status lifecycle. Every status an order can
// carry, every transition between them, who may trigger it and which side
// effects it entails are declared here, so handlers never compare raw status
// strings themselves.
package workflow

import "errors"

// Status is an order lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Actor identifies who is requesting a transition.
type Actor string

const (
	ActorFarmer Actor = "farmer"
	ActorBuyer  Actor = "buyer"
	ActorAdmin  Actor = "admin"
)

// ErrInvalidTransition is returned for any (from, to) pair outside the
// transition table, and for valid pairs requested by the wrong actor.
var ErrInvalidTransition = errors.New("INVALID_TRANSITION")

// ErrUnknownStatus is returned by Parse for values outside the enum.
var ErrUnknownStatus = errors.New("unknown order status")

// Transition describes one allowed edge of the lifecycle.
type Transition struct {
	From Status
	To   Status

	// TimestampColumn is the orders column stamped with now() when the
	// transition lands, or "" if the transition records no timestamp.
	TimestampColumn string

	// Actors that may trigger the transition.
	Actors []Actor

	// Restock reserves back the ordered quantity on the listing.
	Restock bool

	// Settle creates the payment transaction and updates the party rollups.
	Settle bool
}

// The lifecycle is monotonic: no transition leads back out of
// rejected, delivered or cancelled.
var transitions = []Transition{
	{From: StatusPending, To: StatusAccepted, TimestampColumn: "accepted_at", Actors: []Actor{ActorFarmer, ActorAdmin}},
	{From: StatusPending, To: StatusRejected, Actors: []Actor{ActorFarmer, ActorAdmin}, Restock: true},
	{From: StatusPending, To: StatusCancelled, Actors: []Actor{ActorBuyer, ActorAdmin}, Restock: true},
	{From: StatusAccepted, To: StatusShipped, TimestampColumn: "shipped_at", Actors: []Actor{ActorFarmer, ActorAdmin}},
	{From: StatusAccepted, To: StatusCancelled, Actors: []Actor{ActorBuyer, ActorAdmin}, Restock: true},
	{From: StatusShipped, To: StatusDelivered, TimestampColumn: "delivered_at", Actors: []Actor{ActorFarmer, ActorAdmin}, Settle: true},
	{From: StatusShipped, To: StatusCancelled, Actors: []Actor{ActorAdmin}, Restock: true},
}

// Parse validates a raw status string against the enum.
func Parse(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusPending, StatusAccepted, StatusRejected, StatusShipped, StatusDelivered, StatusCancelled:
		return s, nil
	}
	return "", ErrUnknownStatus
}

// Terminal reports whether no transition leaves the status.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Validate returns the transition for (from, to) if it exists and the actor
// is allowed to trigger it, and ErrInvalidTransition otherwise.
func Validate(from, to Status, actor Actor) (Transition, error) {
	for _, t := range transitions {
		if t.From != from || t.To != to {
			continue
		}
		for _, a := range t.Actors {
			if a == actor {
				return t, nil
			}
		}
		return Transition{}, ErrInvalidTransition
	}
	return Transition{}, ErrInvalidTransition
}
