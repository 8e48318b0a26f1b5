package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/realtime"
)

type subscription struct {
	id     uint64
	h      realtime.Handler
	active atomic.Bool
}

// Hub is an in-process change fan-out. Publish delivers synchronously on the
// caller's goroutine, one call per subscriber, in subscription order.
type Hub struct {
	mu     sync.RWMutex
	subs   map[realtime.Topic][]*subscription
	nextID atomic.Uint64
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{subs: make(map[realtime.Topic][]*subscription), logger: logger}
}

// Subscribe registers h for topic. A change already being delivered when the
// returned func runs may still reach h once.
func (b *Hub) Subscribe(topic realtime.Topic, h realtime.Handler) realtime.Unsubscribe {
	s := &subscription{id: b.nextID.Add(1), h: h}
	s.active.Store(true)

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], s)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.active.Store(false)
			b.remove(topic, s.id)
		})
	}
}

func (b *Hub) remove(topic realtime.Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[topic]
	for i, s := range list {
		if s.id == id {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(b.subs, topic)
		return
	}
	b.subs[topic] = list
}

// Publish delivers c to every subscriber of its topic. Handler panics are
// logged and do not stop delivery to the rest.
func (b *Hub) Publish(_ context.Context, c realtime.Change) error {
	b.mu.RLock()
	list := append([]*subscription(nil), b.subs[c.Topic()]...)
	b.mu.RUnlock()

	for _, s := range list {
		if !s.active.Load() {
			continue
		}
		b.dispatch(s, c)
	}
	return nil
}

func (b *Hub) dispatch(s *subscription, c realtime.Change) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("realtime handler panicked",
				zap.String("topic", c.Topic().String()),
				zap.Any("panic", r),
			)
		}
	}()
	s.h(c)
}

// Subscribers returns the number of live subscriptions on topic.
func (b *Hub) Subscribers(topic realtime.Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

var (
	_ realtime.Subscriber = (*Hub)(nil)
	_ realtime.Publisher  = (*Hub)(nil)
)
