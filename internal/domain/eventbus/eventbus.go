// Package eventbus fans device events out to the display, metrics and the
// local API without coupling them to the device loop.
package eventbus

import (
	evbus "github.com/asaskevich/EventBus"
)

// Bus is a thin wrapper so callers depend on this package, not the library.
type Bus struct {
	bus evbus.Bus
}

func New() *Bus {
	return &Bus{bus: evbus.New()}
}

// Publish delivers synchronously to sync subscribers and queues for async ones.
func (b *Bus) Publish(topic string, args ...interface{}) {
	if b == nil {
		return
	}
	b.bus.Publish(topic, args...)
}

// Subscribe registers fn for synchronous delivery on the publisher goroutine.
func (b *Bus) Subscribe(topic string, fn interface{}) error {
	return b.bus.Subscribe(topic, fn)
}

// SubscribeAsync registers fn on its own goroutine; deliveries are serialised.
func (b *Bus) SubscribeAsync(topic string, fn interface{}) error {
	return b.bus.SubscribeAsync(topic, fn, true)
}

func (b *Bus) Unsubscribe(topic string, fn interface{}) error {
	return b.bus.Unsubscribe(topic, fn)
}

func (b *Bus) HasCallback(topic string) bool {
	return b.bus.HasCallback(topic)
}

// WaitAsync blocks until every queued async delivery has run.
func (b *Bus) WaitAsync() {
	b.bus.WaitAsync()
}
