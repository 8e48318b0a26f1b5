package realtime

import "context"

// Subscriber registers change handlers.
type Subscriber interface {
	Subscribe(topic Topic, h Handler) Unsubscribe
}

// Publisher pushes changes to subscribers.
type Publisher interface {
	Publish(ctx context.Context, c Change) error
}
