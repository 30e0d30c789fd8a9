package channel

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/domain/event"
	"chat-sync/mocks"
	"chat-sync/runtime"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type recorder struct {
	mu      sync.Mutex
	authors []string
	resyncs int
}

func (r *recorder) callbacks() contract.Callbacks {
	return contract.Callbacks{
		OnEvent: func(ctx context.Context, e event.DomainEvent) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.authors = append(r.authors, e.(event.MessagePosted).Message.Author)
			return nil
		},
		OnResync: func(ctx context.Context) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.resyncs++
			return nil
		},
	}
}

func (r *recorder) snapshot() ([]string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.authors...), r.resyncs
}

func posted(room domain.RoomID, author string) event.MessagePosted {
	return event.MessagePosted{Message: domain.Message{ID: uuid.New(), RoomID: room, Author: author}}
}

func TestAdapter_Delivers_In_Commit_Order(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := runtime.NewRegistry(log)
	adapter := NewAdapter(log, registry, 16)
	defer adapter.Close()

	rec := &recorder{}
	sub, err := adapter.Subscribe(event.TopicMessages, event.ForRoom(1), rec.callbacks())
	req.NoError(err)
	req.Equal(event.TopicMessages, sub.Topic())

	// When inserts are committed for two rooms
	for _, author := range []string{"Alice", "Bob", "Clara"} {
		registry.Publish(posted(1, author))
		registry.Publish(posted(2, "Mallory"))
	}

	// Then only room 1 is delivered, in commit order
	req.Eventually(func() bool {
		authors, _ := rec.snapshot()
		return len(authors) == 3
	}, time.Second, 5*time.Millisecond)
	authors, _ := rec.snapshot()
	req.Equal([]string{"Alice", "Bob", "Clara"}, authors)
}

func TestAdapter_Handler_Failure_Keeps_Subscription(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	registry := runtime.NewRegistry(log)
	adapter := NewAdapter(log, registry, 16)
	defer adapter.Close()

	var mu sync.Mutex
	var seen []string
	_, err := adapter.Subscribe(event.TopicMessages, event.AllRows(), contract.Callbacks{
		OnEvent: func(ctx context.Context, e event.DomainEvent) error {
			author := e.(event.MessagePosted).Message.Author
			mu.Lock()
			seen = append(seen, author)
			mu.Unlock()
			switch author {
			case "error":
				return errors.New("boom")
			case "panic":
				panic("boom")
			}
			return nil
		},
	})
	req.NoError(err)

	// Given a handler returning an error and then panicking
	registry.Publish(posted(1, "error"))
	registry.Publish(posted(1, "panic"))
	// When another insert arrives
	registry.Publish(posted(1, "Alice"))

	// Then it is still delivered
	req.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, time.Second, 5*time.Millisecond)
	req.Equal(1, adapter.Open())
}

func TestAdapter_Unsubscribe_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	registry := runtime.NewRegistry(log)
	adapter := NewAdapter(log, registry, 16)

	rec := &recorder{}
	sub, err := adapter.Subscribe(event.TopicMessages, event.AllRows(), rec.callbacks())
	req.NoError(err)

	// When unsubscribing before any event, several times, and with nil
	adapter.Unsubscribe(sub)
	adapter.Unsubscribe(sub)
	adapter.Unsubscribe(nil)

	// Then the feed listener is gone and nothing is delivered
	req.Zero(adapter.Open())
	req.Zero(registry.Count(event.TopicMessages))
	registry.Publish(posted(1, "Alice"))
	time.Sleep(20 * time.Millisecond)
	authors, _ := rec.snapshot()
	req.Empty(authors)
	<-sub.(*Handle).Done()
}

func TestAdapter_Reconnect_Triggers_Resync(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	registry := runtime.NewRegistry(log)
	adapter := NewAdapter(log, registry, 16)
	defer adapter.Close()

	rec := &recorder{}
	_, err := adapter.Subscribe(event.TopicMessages, event.ForRoom(1), rec.callbacks())
	req.NoError(err)

	// Given the transport drops, then comes back
	registry.Disconnected(errors.New("connection reset"))
	registry.Reconnected()

	// Then the owner is asked to resynchronize exactly once
	req.Eventually(func() bool {
		_, resyncs := rec.snapshot()
		return resyncs == 1
	}, time.Second, 5*time.Millisecond)
}

func TestAdapter_Queue_Overflow_Triggers_Resync(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	registry := runtime.NewRegistry(log)
	adapter := NewAdapter(log, registry, 1)
	defer adapter.Close()

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var mu sync.Mutex
	resyncs := 0
	_, err := adapter.Subscribe(event.TopicMessages, event.AllRows(), contract.Callbacks{
		OnEvent: func(ctx context.Context, e event.DomainEvent) error {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
			return nil
		},
		OnResync: func(ctx context.Context) error {
			mu.Lock()
			resyncs++
			mu.Unlock()
			return nil
		},
	})
	req.NoError(err)

	// Given a handler blocked on the first event
	registry.Publish(posted(1, "Alice"))
	<-started
	// When more inserts arrive than the queue holds
	for i := 0; i < 5; i++ {
		registry.Publish(posted(1, "Bob"))
	}
	close(release)

	// Then a resync is requested to recover the dropped inserts
	req.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return resyncs == 1
	}, time.Second, 5*time.Millisecond)
}

func TestAdapter_Subscribe_Feed_Error(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	feed := mocks.NewMockIChangeFeed(ctrl)
	adapter := NewAdapter(slog.Default(), feed, 16)

	// Given a feed refusing the listener
	feed.EXPECT().
		Listen(event.TopicRooms, gomock.Any(), gomock.Any()).
		Return(nil, errors.New("unknown table")).
		Times(1)

	// When subscribing
	sub, err := adapter.Subscribe(event.TopicRooms, event.AllRows(), contract.Callbacks{})

	// Then nothing stays registered
	req.Error(err)
	req.Nil(sub)
	req.Zero(adapter.Open())
}
