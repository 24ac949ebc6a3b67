package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mall/internal/service/order/domain"
)

func TestNextLegalTransitions(t *testing.T) {
	cases := []struct {
		from  domain.State
		event domain.Event
		want  domain.State
	}{
		{domain.StatePendingPayment, domain.EventPay, domain.StatePaid},
		{domain.StatePendingPayment, domain.EventCancel, domain.StateCancelled},
		{domain.StatePaid, domain.EventShip, domain.StateShipped},
		{domain.StatePaid, domain.EventCancel, domain.StateCancelled},
		{domain.StateShipped, domain.EventComplete, domain.StateCompleted},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"_"+string(tc.event), func(t *testing.T) {
			got, err := domain.Next(tc.from, tc.event)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNextIllegalTransitions(t *testing.T) {
	legal := map[domain.State]map[domain.Event]bool{
		domain.StatePendingPayment: {domain.EventPay: true, domain.EventCancel: true},
		domain.StatePaid:           {domain.EventShip: true, domain.EventCancel: true},
		domain.StateShipped:        {domain.EventComplete: true},
	}

	states := []domain.State{
		domain.StatePendingPayment, domain.StatePaid, domain.StateShipped,
		domain.StateCompleted, domain.StateCancelled,
	}
	events := []domain.Event{
		domain.EventPay, domain.EventShip, domain.EventComplete, domain.EventCancel,
	}

	for _, s := range states {
		for _, e := range events {
			if legal[s][e] {
				continue
			}
			t.Run(string(s)+"_"+string(e), func(t *testing.T) {
				_, err := domain.Next(s, e)
				require.Error(t, err)

				var invalid *domain.InvalidTransitionError
				require.True(t, errors.As(err, &invalid))
				assert.Equal(t, s, invalid.From)
				assert.Equal(t, e, invalid.Event)
			})
		}
	}
}

func TestNextIsPure(t *testing.T) {
	first, err1 := domain.Next(domain.StatePendingPayment, domain.EventCancel)
	second, err2 := domain.Next(domain.StatePendingPayment, domain.EventCancel)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
}

func TestTerminalStatesHaveNoOutgoingEvents(t *testing.T) {
	assert.True(t, domain.StateCompleted.IsTerminal())
	assert.True(t, domain.StateCancelled.IsTerminal())
	assert.False(t, domain.StatePendingPayment.IsTerminal())
	assert.False(t, domain.StatePaid.IsTerminal())
	assert.False(t, domain.StateShipped.IsTerminal())
}
