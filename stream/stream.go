// Package stream keeps the message timeline of one room in sync with the store.
//
// A Stream goes Unbound -> Loading -> Live and back to Unbound when the room is
// left. Entering a room subscribes to its inserts before fetching the history;
// inserts delivered while the fetch is in flight are queued and merged once the
// history is applied. Every binding carries a generation number, results and
// events of an older generation are dropped.
//
// Sending never touches the timeline: a sent message appears when its insert
// comes back through the subscription, like anybody else's.
package stream

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/domain/event"
	"chat-sync/errors"
	"chat-sync/notification"
	"chat-sync/projection"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

type State int

const (
	Unbound State = iota
	Loading
	Live
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Loading:
		return "loading"
	case Live:
		return "live"
	default:
		return "unknown"
	}
}

type Stream struct {
	mu        sync.Mutex
	log       *slog.Logger
	rooms     contract.IRoomStore
	messages  contract.IMessageStore
	channel   contract.IChannel
	gate      *notification.Gate
	presenter contract.Presenter

	state      State
	generation uint64
	room       domain.RoomID
	self       string
	timeline   *projection.Timeline
	sub        contract.Subscription
	pending    []domain.Message // inserts received while loading
	resync     bool             // resync requested while loading
	ctx        context.Context  // canceled when the binding ends
	cancel     context.CancelFunc
}

// New builds an unbound stream. gate and presenter may be nil.
func New(log *slog.Logger, rooms contract.IRoomStore, messages contract.IMessageStore,
	channel contract.IChannel, gate *notification.Gate, presenter contract.Presenter) *Stream {
	return &Stream{
		log:       log,
		rooms:     rooms,
		messages:  messages,
		channel:   channel,
		gate:      gate,
		presenter: presenter,
	}
}

// Enter binds the stream to roomID, leaving the current room first.
// It returns errors.ErrRoomNotFound when the room does not exist, and
// errors.ErrRoomSwitched when another Enter or a Leave happened meanwhile.
func (s *Stream) Enter(ctx context.Context, roomID domain.RoomID, identity domain.Identity) (domain.Room, error) {
	s.Leave()

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.state = Loading
	s.room = roomID
	s.self = identity.DisplayName
	s.timeline = projection.NewTimeline(roomID)
	s.pending = nil
	s.resync = false
	// The binding outlives the caller's deadline but not the binding itself
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Unlock()

	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		s.abort(gen)
		if stderrors.Is(err, errors.ErrNotFound) {
			return domain.Room{}, fmt.Errorf("%w: %d", errors.ErrRoomNotFound, roomID)
		}
		s.log.Error("Error fetching room", "room", roomID, "error", err)
		return domain.Room{}, err
	}

	sub, err := s.channel.Subscribe(event.TopicMessages, event.ForRoom(roomID), contract.Callbacks{
		OnEvent: func(_ context.Context, e event.DomainEvent) error {
			return s.onEvent(gen, e)
		},
		OnResync: func(_ context.Context) error {
			return s.onResync(gen)
		},
	})
	if err != nil {
		s.abort(gen)
		return domain.Room{}, err
	}
	if !s.bind(gen, sub) {
		s.channel.Unsubscribe(sub)
		return domain.Room{}, errors.ErrRoomSwitched
	}

	history, err := s.messages.ListMessages(ctx, roomID)
	if err != nil {
		s.abort(gen)
		s.log.Error("Error fetching messages", "room", roomID, "error", err)
		return domain.Room{}, err
	}
	if err = s.goLive(gen, history); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

// Leave releases the subscription and discards the timeline.
// Results still in flight for the left room are ignored when they complete.
func (s *Stream) Leave() {
	s.mu.Lock()
	if s.state == Unbound {
		s.mu.Unlock()
		return
	}
	s.generation++
	sub, cancel := s.unbindLocked()
	s.mu.Unlock()

	s.release(sub, cancel)
}

// Send writes a message and returns as soon as the store accepted it.
// Blank bodies are refused without any call to the store.
func (s *Stream) Send(ctx context.Context, roomID domain.RoomID, author, body string) error {
	if strings.TrimSpace(body) == "" {
		return errors.ErrEmptyMessage
	}
	if _, err := s.messages.AppendMessage(ctx, roomID, author, body); err != nil {
		s.log.Error("Error sending message", "room", roomID, "error", err)
		return fmt.Errorf("%w: %w", errors.ErrStoreWriteFailed, err)
	}
	return nil
}

func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Room returns the bound room, if any.
func (s *Stream) Room() (domain.RoomID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room, s.state != Unbound
}

// Messages returns a copy of the timeline. It is empty until the stream is live.
func (s *Stream) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Live {
		return nil
	}
	return s.timeline.Messages()
}

func (s *Stream) bind(gen uint64, sub contract.Subscription) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.sub = sub
	return true
}

func (s *Stream) goLive(gen uint64, history []domain.Message) error {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return errors.ErrRoomSwitched
	}
	s.timeline.Load(history)
	loaded := s.timeline.Messages()
	replayed := s.timeline.Merge(s.pending)
	s.pending = nil
	s.state = Live
	resync := s.resync
	s.resync = false
	ctx, room, self := s.ctx, s.room, s.self
	s.mu.Unlock()

	s.log.Debug("Room is live", "room", room, "history", len(history), "replayed", len(replayed))
	// History is displayed but never alerted, replayed inserts are live ones
	s.show(room, loaded)
	s.show(room, replayed)
	s.alertEach(ctx, self, replayed)
	if len(loaded)+len(replayed) > 0 {
		s.scroll(room)
	}

	if resync {
		// The room is live, a failed reconcile waits for the next resync
		if err := s.onResync(gen); err != nil {
			s.log.Warn("Deferred resync failed", "room", room, "error", err)
		}
	}
	return nil
}

func (s *Stream) onEvent(gen uint64, e event.DomainEvent) error {
	posted, ok := e.(event.MessagePosted)
	if !ok {
		return fmt.Errorf("unexpected event %T on messages topic", e)
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}
	switch s.state {
	case Loading:
		s.pending = append(s.pending, posted.Message)
		s.mu.Unlock()
		return nil
	case Live:
	default:
		s.mu.Unlock()
		return nil
	}
	if !s.timeline.Append(posted.Message) {
		s.mu.Unlock()
		s.log.Debug("Duplicate delivery ignored", "id", posted.Message.ID)
		return nil
	}
	ctx, room, self := s.ctx, s.room, s.self
	s.mu.Unlock()

	s.show(room, []domain.Message{posted.Message})
	if s.gate != nil {
		s.gate.Consider(ctx, posted.Message, self)
	}
	s.scroll(room)
	return nil
}

// onResync fetches the room again and appends whatever the subscription missed.
func (s *Stream) onResync(gen uint64) error {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}
	if s.state == Loading {
		// The fetch in flight may predate the gap, run again once live
		s.resync = true
		s.mu.Unlock()
		return nil
	}
	ctx, room := s.ctx, s.room
	s.mu.Unlock()

	history, err := s.messages.ListMessages(ctx, room)
	if err != nil {
		return fmt.Errorf("resync room %d: %w", room, err)
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}
	missed := s.timeline.Merge(history)
	self := s.self
	s.mu.Unlock()

	if len(missed) == 0 {
		return nil
	}
	s.log.Info("Recovered missed messages", "room", room, "count", len(missed))
	s.show(room, missed)
	s.alertOnce(ctx, self, missed)
	s.scroll(room)
	return nil
}

func (s *Stream) abort(gen uint64) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.generation++
	sub, cancel := s.unbindLocked()
	s.mu.Unlock()

	s.release(sub, cancel)
}

func (s *Stream) unbindLocked() (contract.Subscription, context.CancelFunc) {
	sub, cancel := s.sub, s.cancel
	s.state = Unbound
	s.sub = nil
	s.cancel = nil
	s.ctx = nil
	s.timeline = nil
	s.pending = nil
	s.resync = false
	return sub, cancel
}

func (s *Stream) release(sub contract.Subscription, cancel context.CancelFunc) {
	if cancel != nil {
		cancel()
	}
	if sub != nil {
		s.channel.Unsubscribe(sub)
	}
}

func (s *Stream) show(room domain.RoomID, messages []domain.Message) {
	if s.presenter == nil {
		return
	}
	for _, m := range messages {
		s.presenter.MessageAppended(m)
	}
}

func (s *Stream) scroll(room domain.RoomID) {
	if s.presenter != nil {
		s.presenter.ScrollToLatest(room)
	}
}

func (s *Stream) alertEach(ctx context.Context, self string, messages []domain.Message) {
	if s.gate == nil {
		return
	}
	for _, m := range messages {
		s.gate.Consider(ctx, m, self)
	}
}

// alertOnce plays at most one alert for a batch of messages.
func (s *Stream) alertOnce(ctx context.Context, self string, messages []domain.Message) {
	if s.gate == nil {
		return
	}
	for _, m := range messages {
		if s.gate.Consider(ctx, m, self) {
			return
		}
	}
}
