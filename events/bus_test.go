package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type created struct{ id string }
type cancelled struct{ id string }

func TestTypedDelivery(t *testing.T) {
	bus := NewBus(nil)

	var gotCreated []string
	var gotCancelled []string
	SubscribeSync(bus, func(e created) { gotCreated = append(gotCreated, e.id) })
	SubscribeSync(bus, func(e cancelled) { gotCancelled = append(gotCancelled, e.id) })

	bus.Publish(created{id: "a"})
	bus.Publish(cancelled{id: "b"})
	bus.Publish(created{id: "c"})

	assert.Equal(t, []string{"a", "c"}, gotCreated)
	assert.Equal(t, []string{"b"}, gotCancelled)
}

func TestPanickingSubscriberDoesNotBreakPublish(t *testing.T) {
	bus := NewBus(nil)

	SubscribeSync(bus, func(e created) { panic("subscriber bug") })

	var delivered bool
	SubscribeSync(bus, func(e created) { delivered = true })

	assert.NotPanics(t, func() {
		bus.Publish(created{id: "a"})
	})
	assert.True(t, delivered)
}

func TestMultipleSubscribersSameType(t *testing.T) {
	bus := NewBus(nil)

	var a, b int
	SubscribeSync(bus, func(e created) { a++ })
	SubscribeSync(bus, func(e created) { b++ })

	bus.Publish(created{id: "x"})
	bus.Publish(created{id: "y"})

	assert.Equal(t, 2, a)
	assert.Equal(t, 2, b)
}
