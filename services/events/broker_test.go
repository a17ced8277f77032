package events

import (
	"testing"

	"refurb-app/services/intake"
	"refurb-app/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesOrderSubscribers(t *testing.T) {
	b := NewBroker()

	ch, cancel := b.Subscribe("refurb", 1)
	defer cancel()
	other, cancelOther := b.Subscribe("refurb", 2)
	defer cancelOther()

	b.Publish(intake.DeviceAddedEvent{Unit: "refurb", OrderID: 1, DeviceIDs: []types.SnowflakeID{10}})

	select {
	case e := <-ch:
		assert.Equal(t, []types.SnowflakeID{10}, e.DeviceIDs)
	default:
		t.Fatal("expected an event")
	}

	select {
	case <-other:
		t.Fatal("unexpected event for another order")
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	ch, cancel := b.Subscribe("refurb", 1)
	require.Equal(t, 1, b.Subscribers("refurb", 1))

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, b.Subscribers("refurb", 1))

	b.Publish(intake.DeviceAddedEvent{Unit: "refurb", OrderID: 1})
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	b := NewBroker()
	_, cancel := b.Subscribe("refurb", 1)
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		b.Publish(intake.DeviceAddedEvent{Unit: "refurb", OrderID: 1})
	}
}
