package channel

import (
	"chat-sync/contract"
	"chat-sync/domain/event"
	"chat-sync/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Handle is one live subscription.
// Changes pushed by the feed are queued and handed to the callbacks by a single
// goroutine, so callbacks of one handle never run concurrently.
type Handle struct {
	id        uint64
	topic     event.Topic
	filter    event.Filter
	log       *slog.Logger
	callbacks contract.Callbacks

	queue chan event.Change
	gap   chan struct{} // capacity 1, set when the queue overflowed
	ctx   context.Context
	stop  context.CancelFunc
	once  sync.Once

	mu         sync.Mutex
	cancelFeed func()
}

func newHandle(id uint64, topic event.Topic, filter event.Filter, callbacks contract.Callbacks,
	bufferSize int, log *slog.Logger) *Handle {
	ctx, stop := context.WithCancel(context.Background())
	return &Handle{
		id:        id,
		topic:     topic,
		filter:    filter,
		log:       log.With("subscription", id, "topic", topic, "filter", filter.String()),
		callbacks: callbacks,
		queue:     make(chan event.Change, bufferSize),
		gap:       make(chan struct{}, 1),
		ctx:       ctx,
		stop:      stop,
	}
}

func (h *Handle) ID() uint64 { return h.id }

func (h *Handle) Topic() event.Topic { return h.topic }

// Done is closed once the handle has been unsubscribed.
func (h *Handle) Done() <-chan struct{} { return h.ctx.Done() }

// push is called by the feed and never blocks.
// A full queue means an insert is lost, which is recovered like a reconnect.
func (h *Handle) push(c event.Change) {
	if h.ctx.Err() != nil {
		return
	}
	select {
	case h.queue <- c:
	default:
		h.log.Warn("Subscription queue full, change dropped", "kind", c.Kind.String())
		select {
		case h.gap <- struct{}{}:
		default:
		}
	}
}

func (h *Handle) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-h.gap:
			h.resync("queue overflow")
		case c := <-h.queue:
			h.dispatch(c)
		}
	}
}

func (h *Handle) dispatch(c event.Change) {
	if h.ctx.Err() != nil {
		return
	}
	switch c.Kind {
	case event.ChangeInsert:
		if c.Event == nil || !h.filter.Match(c.Event) {
			return
		}
		if h.callbacks.OnEvent == nil {
			return
		}
		if err := h.safeCall(func() error { return h.callbacks.OnEvent(h.ctx, c.Event) }); err != nil {
			h.log.Error("Event handler failed", "error", err)
		}
	case event.ChangeDisconnected:
		h.log.Warn(fmt.Sprintf("%s: %v", errors.ErrChannelDisconnected, c.Err))
	case event.ChangeReconnected:
		h.resync("reconnected")
	}
}

func (h *Handle) resync(reason string) {
	if h.callbacks.OnResync == nil {
		return
	}
	h.log.Info("Resynchronizing subscription", "reason", reason)
	if err := h.safeCall(func() error { return h.callbacks.OnResync(h.ctx) }); err != nil {
		h.log.Error("Resync handler failed", "error", err)
	}
}

// safeCall keeps the delivery goroutine alive whatever the handler does.
func (h *Handle) safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return fn()
}

// attach records how to stop the feed delivery.
// If the handle was closed in the meantime the delivery is stopped right away.
func (h *Handle) attach(cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ctx.Err() != nil {
		cancel()
		return
	}
	h.cancelFeed = cancel
}

// close is idempotent.
func (h *Handle) close() {
	h.once.Do(func() {
		h.stop()
		h.mu.Lock()
		cancel := h.cancelFeed
		h.cancelFeed = nil
		h.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	})
}
