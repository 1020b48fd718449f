package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allStatuses = []OrderStatus{OrderStatusCreated, OrderStatusPaid, OrderStatusFailed, OrderStatusShipped}

func TestOrderStatus_Transitions(t *testing.T) {
	allowed := map[OrderStatus]map[OrderStatus]bool{
		OrderStatusCreated: {OrderStatusPaid: true, OrderStatusFailed: true},
		OrderStatusPaid:    {OrderStatusShipped: true},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			assert.Equal(t, allowed[from][to], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestOrderStatus_TerminalStatesHaveNoWayOut(t *testing.T) {
	for _, terminal := range []OrderStatus{OrderStatusFailed, OrderStatusShipped} {
		assert.True(t, terminal.IsTerminal())
		for _, to := range allStatuses {
			assert.False(t, terminal.CanTransitionTo(to))
			assert.False(t, terminal.CanReach(to))
		}
	}
	assert.False(t, OrderStatusCreated.IsTerminal())
	assert.False(t, OrderStatusPaid.IsTerminal())
}

func TestOrderStatus_CanReach(t *testing.T) {
	assert.True(t, OrderStatusCreated.CanReach(OrderStatusShipped))
	assert.True(t, OrderStatusCreated.CanReach(OrderStatusPaid))
	assert.True(t, OrderStatusPaid.CanReach(OrderStatusShipped))
	assert.False(t, OrderStatusPaid.CanReach(OrderStatusFailed))
	assert.False(t, OrderStatusPaid.CanReach(OrderStatusPaid))
	assert.False(t, OrderStatusCreated.CanReach(OrderStatusCreated))
}

func TestPredecessors(t *testing.T) {
	assert.Equal(t, []OrderStatus{OrderStatusCreated}, Predecessors(OrderStatusPaid))
	assert.Equal(t, []OrderStatus{OrderStatusCreated}, Predecessors(OrderStatusFailed))
	assert.Equal(t, []OrderStatus{OrderStatusPaid}, Predecessors(OrderStatusShipped))
	assert.Empty(t, Predecessors(OrderStatusCreated))
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("PAID")
	assert.NoError(t, err)
	assert.Equal(t, OrderStatusPaid, status)

	_, err = ParseOrderStatus("paid")
	assert.Error(t, err)
}
