// Package directory keeps the list of known rooms in sync with the store.
//
// The local mapping only changes through the rooms subscription and through
// explicit loads. CreateRoom writes and returns, the new room shows up once its
// creation event is observed, whoever created it.
package directory

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/domain/event"
	"chat-sync/errors"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
)

type Directory struct {
	openMu    sync.Mutex // serializes Open
	mu        sync.Mutex
	log       *slog.Logger
	store     contract.IRoomStore
	channel   contract.IChannel
	sub       contract.Subscription
	rooms     map[domain.RoomID]domain.Room
	order     []domain.RoomID
	listeners []func(domain.Room)
}

func New(log *slog.Logger, store contract.IRoomStore, channel contract.IChannel) *Directory {
	return &Directory{
		log:     log,
		store:   store,
		channel: channel,
		rooms:   make(map[domain.RoomID]domain.Room),
	}
}

// Open subscribes to room creations, then loads the existing rooms.
// Subscribing first means a room created during the load is either in the
// fetch result or delivered afterwards, the mapping absorbs both.
func (d *Directory) Open(ctx context.Context) error {
	d.openMu.Lock()
	defer d.openMu.Unlock()

	d.mu.Lock()
	if d.sub != nil {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	sub, err := d.channel.Subscribe(event.TopicRooms, event.AllRows(), contract.Callbacks{
		OnEvent:  d.onEvent,
		OnResync: d.onResync,
	})
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.sub = sub
	d.mu.Unlock()

	if _, err = d.LoadRooms(ctx); err != nil {
		d.Close()
		return err
	}
	return nil
}

// LoadRooms fetches every room and merges it into the mapping.
// Rooms new to the mapping are announced to the listeners.
func (d *Directory) LoadRooms(ctx context.Context) ([]domain.Room, error) {
	rooms, err := d.store.ListRooms(ctx)
	if err != nil {
		d.log.Error("Error fetching rooms", "error", err)
		return nil, err
	}
	for _, room := range rooms {
		d.insert(room)
	}
	return rooms, nil
}

// OnRoomCreated registers handler for every room that becomes known.
func (d *Directory) OnRoomCreated(handler func(domain.Room)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, handler)
}

// CreateRoom asks the store for a new room and does not touch the mapping.
func (d *Directory) CreateRoom(ctx context.Context, name string) (domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Room{}, errors.ErrEmptyRoomName
	}
	room, err := d.store.CreateRoom(ctx, name)
	if err != nil {
		d.log.Error("Error creating room", "name", name, "error", err)
		return domain.Room{}, fmt.Errorf("%w: %w", errors.ErrStoreWriteFailed, err)
	}
	return room, nil
}

// Rooms returns the known rooms in the order they became known.
func (d *Directory) Rooms() []domain.Room {
	d.mu.Lock()
	defer d.mu.Unlock()
	return lo.Map(d.order, func(id domain.RoomID, _ int) domain.Room {
		return d.rooms[id]
	})
}

func (d *Directory) Room(id domain.RoomID) (domain.Room, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.rooms[id]
	return room, ok
}

// Close releases the subscription. The mapping is kept.
func (d *Directory) Close() {
	d.mu.Lock()
	sub := d.sub
	d.sub = nil
	d.mu.Unlock()
	d.channel.Unsubscribe(sub)
}

func (d *Directory) onEvent(_ context.Context, e event.DomainEvent) error {
	created, ok := e.(event.RoomCreated)
	if !ok {
		return fmt.Errorf("unexpected event %T on rooms topic", e)
	}
	d.insert(created.Room)
	return nil
}

func (d *Directory) onResync(ctx context.Context) error {
	_, err := d.LoadRooms(ctx)
	return err
}

// insert is keyed by id, so replayed or duplicated creations are no-ops.
func (d *Directory) insert(room domain.Room) {
	d.mu.Lock()
	if _, ok := d.rooms[room.ID]; ok {
		d.mu.Unlock()
		return
	}
	d.rooms[room.ID] = room
	d.order = append(d.order, room.ID)
	listeners := slices.Clone(d.listeners)
	d.mu.Unlock()

	for _, l := range listeners {
		l(room)
	}
}
