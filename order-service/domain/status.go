package domain

import (
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/pkg/errors"
)

// OrderStatus is a state of the order lifecycle:
//
//	CREATED -> PAID -> SHIPPED
//	CREATED -> FAILED
//
// FAILED and SHIPPED are terminal.
type OrderStatus string

const (
	OrderStatusCreated OrderStatus = "CREATED"
	OrderStatusPaid    OrderStatus = "PAID"
	OrderStatusFailed  OrderStatus = "FAILED"
	OrderStatusShipped OrderStatus = "SHIPPED"
)

var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusCreated: {OrderStatusPaid, OrderStatusFailed},
	OrderStatusPaid:    {OrderStatusShipped},
}

// ParseOrderStatus validates a status name
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if !status.IsValid() {
		return "", errors.Wrapf(models.ErrInvalidInput, "unknown order status %q", s)
	}
	return status, nil
}

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusCreated, OrderStatusPaid, OrderStatusFailed, OrderStatusShipped:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s
func (s OrderStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo reports whether s -> next is an edge of the lifecycle
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// CanReach reports whether target is reachable from s in one or more steps
func (s OrderStatus) CanReach(target OrderStatus) bool {
	for _, next := range transitions[s] {
		if next == target || next.CanReach(target) {
			return true
		}
	}
	return false
}

// Predecessors lists the statuses from which target can be entered
func Predecessors(target OrderStatus) []OrderStatus {
	var from []OrderStatus
	for _, s := range []OrderStatus{OrderStatusCreated, OrderStatusPaid, OrderStatusFailed, OrderStatusShipped} {
		if s.CanTransitionTo(target) {
			from = append(from, s)
		}
	}
	return from
}
