// Package channel wraps a change feed into per-subscription ordered delivery.
//
// Every subscription owns a bounded queue and a delivery goroutine. Callbacks
// receive the inserts of their topic and filter in the order the feed committed
// them. When the feed reports a reconnect, or when a queue overflows, the
// subscription's OnResync callback runs so that the owner can re-fetch what it
// may have missed.
package channel

import (
	"chat-sync/contract"
	"chat-sync/domain/event"
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

const defaultBufferSize = 256

type Adapter struct {
	mu         sync.Mutex
	log        *slog.Logger
	feed       contract.IChangeFeed
	bufferSize int
	nextID     uint64
	handles    map[uint64]*Handle
}

func NewAdapter(log *slog.Logger, feed contract.IChangeFeed, bufferSize int) *Adapter {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Adapter{
		log:        log,
		feed:       feed,
		bufferSize: bufferSize,
		handles:    make(map[uint64]*Handle),
	}
}

// Subscribe opens a subscription on topic and starts delivering to callbacks.
func (a *Adapter) Subscribe(topic event.Topic, filter event.Filter, callbacks contract.Callbacks) (contract.Subscription, error) {
	a.mu.Lock()
	a.nextID++
	h := newHandle(a.nextID, topic, filter, callbacks, a.bufferSize, a.log)
	a.handles[h.id] = h
	a.mu.Unlock()

	cancel, err := a.feed.Listen(topic, filter, h.push)
	if err != nil {
		a.release(h)
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	h.attach(cancel)
	go h.run()

	a.log.Debug("Subscription opened", "id", h.id, "topic", topic, "filter", filter.String())
	return h, nil
}

// Unsubscribe stops the delivery of sub. It can be called any number of times,
// with a nil subscription, or before any event arrived.
func (a *Adapter) Unsubscribe(sub contract.Subscription) {
	if sub == nil {
		return
	}
	a.mu.Lock()
	h, ok := a.handles[sub.ID()]
	a.mu.Unlock()
	if !ok {
		return
	}
	a.release(h)
	a.log.Debug("Subscription closed", "id", h.id, "topic", h.topic)
}

func (a *Adapter) release(h *Handle) {
	a.mu.Lock()
	delete(a.handles, h.id)
	a.mu.Unlock()
	h.close()
}

// Close releases every open subscription.
func (a *Adapter) Close() {
	a.mu.Lock()
	handles := make([]*Handle, 0, len(a.handles))
	for _, h := range a.handles {
		handles = append(handles, h)
	}
	a.mu.Unlock()

	for _, h := range handles {
		a.release(h)
	}
}

// Open returns the number of live subscriptions.
func (a *Adapter) Open() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.handles)
}

// QueueStat is a sample of one subscription queue.
type QueueStat struct {
	ID       uint64
	Topic    event.Topic
	Length   int
	Capacity int
}

// Queues samples the queue of every open subscription.
func (a *Adapter) Queues() []QueueStat {
	a.mu.Lock()
	defer a.mu.Unlock()
	stats := make([]QueueStat, 0, len(a.handles))
	for _, h := range a.handles {
		stats = append(stats, QueueStat{ID: h.id, Topic: h.topic, Length: len(h.queue), Capacity: cap(h.queue)})
	}
	slices.SortFunc(stats, func(a, b QueueStat) int { return cmp.Compare(a.ID, b.ID) })
	return stats
}
