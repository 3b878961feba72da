package bus

import "time"

// EventBus is a thread-safe, in-process pub/sub bus.
//
// Handlers subscribe by event type, optionally inside a topic. Delivery is
// synchronous in the publisher's goroutine and handler errors are joined
// into the error returned by Publish. Metrics are only collected while at
// least one observer is registered.
type EventBus interface {
	// Publish delivers event to the subscribers of event.Type() in the
	// default topic.
	Publish(event Event) error
	// PublishToTopic delivers event within topic.
	PublishToTopic(topic string, event Event) error
	// PublishAsync publishes in a separate goroutine. The returned channel
	// receives the joined handler error (or nil) and is then closed.
	PublishAsync(event Event) <-chan error

	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	SubscribeTopic(topic, eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels sub. A nil sub is ignored.
	Unsubscribe(sub Subscription) error

	AddObserver(obs Observer)
	RemoveObserver(obs Observer)
	Metrics() Metrics
}

// Event is an immutable message carried by the bus.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

type (
	// EventHandler is invoked once per delivered event.
	EventHandler func(event Event) error
)

// Subscription is a registered handler. Cancel may be called more than once.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	Cancel() error
}

// Observer is told about every publish and delivery. It must return quickly.
type Observer interface {
	OnPublish(topic string, event Event)
	OnDelivered(topic string, event Event, handlers int, err error)
}

// Metrics counts bus activity while observed.
type Metrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
}
