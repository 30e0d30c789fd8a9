//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-sync/domain"
	"chat-sync/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// IRoomStore is the authoritative room table.
// Failures are errors.ErrNotFound or errors.ErrWriteRejected.
type IRoomStore interface {
	ListRooms(ctx context.Context) ([]domain.Room, error)
	GetRoom(ctx context.Context, id domain.RoomID) (domain.Room, error)
	CreateRoom(ctx context.Context, name string) (domain.Room, error)
}

// IMessageStore is the authoritative message table.
// ListMessages returns messages ordered by CreatedAt ascending.
type IMessageStore interface {
	ListMessages(ctx context.Context, roomID domain.RoomID) ([]domain.Message, error)
	AppendMessage(ctx context.Context, roomID domain.RoomID, author, body string) (domain.Message, error)
}

// IChangeFeed delivers committed inserts at least once, in commit order per topic.
// deliver must not block. The returned function stops the delivery.
type IChangeFeed interface {
	Listen(topic event.Topic, filter event.Filter, deliver func(event.Change)) (func(), error)
}

// Callbacks are run on the subscription's own goroutine, one at a time.
type Callbacks struct {
	OnEvent  func(ctx context.Context, e event.DomainEvent) error
	OnResync func(ctx context.Context) error
}

type Subscription interface {
	ID() uint64
	Topic() event.Topic
}

type IChannel interface {
	Subscribe(topic event.Topic, filter event.Filter, callbacks Callbacks) (Subscription, error)
	Unsubscribe(sub Subscription)
}

// IPlayer is a preloadable alert sound.
// Prime must be called from a user interaction before the first Play.
type IPlayer interface {
	Prime(ctx context.Context) error
	Play(ctx context.Context) error
}

type Presenter interface {
	MessageAppended(msg domain.Message)
	ScrollToLatest(roomID domain.RoomID)
}

type Navigator interface {
	RedirectHome(reason error)
}
