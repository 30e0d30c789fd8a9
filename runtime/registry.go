package runtime

import (
	"chat-sync/domain/event"
	"log/slog"
	"sync"
)

type listener struct {
	filter  event.Filter
	deliver func(event.Change)
}

// Registry is the in-process change feed.
// Stores call Publish after each commit, while still holding their write lock,
// so listeners observe inserts of one topic in commit order.
type Registry struct {
	mu        sync.RWMutex
	log       *slog.Logger
	nextID    uint64
	listeners map[event.Topic]map[uint64]listener // map topic -> listeners
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:       log,
		listeners: make(map[event.Topic]map[uint64]listener),
	}
}

// Listen registers deliver for every future insert of topic matching filter.
// The returned function removes the listener and can be called more than once.
func (r *Registry) Listen(topic event.Topic, filter event.Filter, deliver func(event.Change)) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	if _, ok := r.listeners[topic]; !ok {
		r.listeners[topic] = make(map[uint64]listener)
	}
	r.listeners[topic][id] = listener{filter: filter, deliver: deliver}
	r.log.Debug("Listener registered", "topic", topic, "filter", filter.String(), "id", id)

	return func() { r.remove(topic, id) }, nil
}

// remove cleans up the listener and ensures no empty sets are left in the topic map
func (r *Registry) remove(topic event.Topic, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if topicListeners, ok := r.listeners[topic]; ok {
		delete(topicListeners, id)
		if len(topicListeners) == 0 {
			delete(r.listeners, topic)
		}
	}
}

// Publish hands a committed insert to every matching listener.
func (r *Registry) Publish(e event.DomainEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, l := range r.listeners[e.Topic()] {
		if l.filter.Match(e) {
			l.deliver(event.Inserted(e))
		}
	}
}

// Disconnected tells every listener that inserts may be lost until Reconnected.
func (r *Registry) Disconnected(err error) {
	r.broadcast(event.Change{Kind: event.ChangeDisconnected, Err: err})
}

// Reconnected tells every listener that delivery resumed.
func (r *Registry) Reconnected() {
	r.broadcast(event.Change{Kind: event.ChangeReconnected})
}

func (r *Registry) broadcast(c event.Change) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, topicListeners := range r.listeners {
		for _, l := range topicListeners {
			l.deliver(c)
		}
	}
}

// Count returns the number of listeners of a topic.
func (r *Registry) Count(topic event.Topic) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners[topic])
}
