package events

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingHandler struct {
	types  []string
	err    error
	events []Event
}

func (h *countingHandler) Handles() []string { return h.types }

func (h *countingHandler) Handle(_ context.Context, event Event) error {
	h.events = append(h.events, event)
	return h.err
}

func TestBus_PublishDispatchesToSubscribers(t *testing.T) {
	bus := NewBus(zap.NewNop())

	succeeded := &countingHandler{types: []string{PaymentSucceededType}}
	failed := &countingHandler{types: []string{PaymentFailedType}}
	bus.Register(succeeded)
	bus.Register(failed)

	event := NewPaymentSucceededEvent(uuid.New(), uuid.New(), "VG1", 999, "usd", "stripe", "pi_1", 500, 0)
	bus.Publish(context.Background(), event)

	require.Len(t, succeeded.events, 1)
	assert.Empty(t, failed.events)
	assert.Equal(t, PaymentSucceededType, succeeded.events[0].EventType())
}

func TestBus_PublishIsolatesHandlerErrors(t *testing.T) {
	bus := NewBus(zap.NewNop())

	failing := &countingHandler{types: []string{PaymentSucceededType}, err: errors.New("boom")}
	healthy := &countingHandler{types: []string{PaymentSucceededType}}
	bus.Register(failing)
	bus.Register(healthy)

	event := NewPaymentSucceededEvent(uuid.New(), uuid.New(), "VG2", 999, "usd", "stripe", "pi_2", 500, 0)
	bus.Publish(context.Background(), event)

	assert.Len(t, failing.events, 1)
	assert.Len(t, healthy.events, 1)
}

func TestBus_PublishSyncSurfacesFirstError(t *testing.T) {
	bus := NewBus(zap.NewNop())

	wantErr := errors.New("grant failed")
	failing := &countingHandler{types: []string{PaymentSucceededType}, err: wantErr}
	healthy := &countingHandler{types: []string{PaymentSucceededType}}
	bus.Register(failing)
	bus.Register(healthy)

	event := NewPaymentSucceededEvent(uuid.New(), uuid.New(), "VG3", 999, "usd", "stripe", "pi_3", 500, 0)
	err := bus.PublishSync(context.Background(), event)

	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
	// All handlers still run even when an earlier one fails.
	assert.Len(t, healthy.events, 1)
}

func TestBus_PublishSyncNoSubscribers(t *testing.T) {
	bus := NewBus(zap.NewNop())

	event := NewPaymentFailedEvent(uuid.New(), uuid.New(), "VG4", "stripe", "card_declined", "declined")
	assert.NoError(t, bus.PublishSync(context.Background(), event))
}
