package events

import (
	"sync"

	"refurb-app/services/intake"
	"refurb-app/types"

	"go.uber.org/zap"
)

const subscriberBuffer = 16

type topic struct {
	unit    string
	orderID types.SnowflakeID
}

// Broker fans "device added" notifications out to the listeners of a purchase order.
type Broker struct {
	mu     sync.Mutex
	nextID int
	subs   map[topic]map[int]chan intake.DeviceAddedEvent
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[topic]map[int]chan intake.DeviceAddedEvent)}
}

// Subscribe registers a listener for one order. The returned func unsubscribes and closes the channel.
func (b *Broker) Subscribe(unit string, orderID types.SnowflakeID) (<-chan intake.DeviceAddedEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := topic{unit: unit, orderID: orderID}
	if b.subs[t] == nil {
		b.subs[t] = make(map[int]chan intake.DeviceAddedEvent)
	}
	b.nextID++
	id := b.nextID
	ch := make(chan intake.DeviceAddedEvent, subscriberBuffer)
	b.subs[t][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[t], id)
			if len(b.subs[t]) == 0 {
				delete(b.subs, t)
			}
			close(ch)
		})
	}
}

// Publish delivers e to every listener of its order. Slow listeners miss events instead of blocking intake.
func (b *Broker) Publish(e intake.DeviceAddedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs[topic{unit: e.Unit, orderID: e.OrderID}] {
		select {
		case ch <- e:
		default:
			zap.L().Warn("dropped device added event",
				zap.Int("subscriber", id),
				zap.String("purchase_order_id", e.OrderID.String()))
		}
	}
}

func (b *Broker) Subscribers(unit string, orderID types.SnowflakeID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic{unit: unit, orderID: orderID}])
}
