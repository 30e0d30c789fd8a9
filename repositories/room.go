package repositories

import (
	"chat-sync/domain"
	"chat-sync/domain/event"
	"chat-sync/errors"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Publisher receives every committed insert. Publish must not block.
type Publisher interface {
	Publish(e event.DomainEvent)
}

const sequenceBandwidth = 16

type RoomRepository struct {
	mu        sync.Mutex // serializes writes so that publish order is commit order
	db        *badger.DB
	log       *slog.Logger
	publisher Publisher
	seq       *badger.Sequence
	now       func() time.Time
}

func NewRoomRepository(db *badger.DB, log *slog.Logger, publisher Publisher) (*RoomRepository, error) {
	seq, err := db.GetSequence([]byte(roomSequenceKey), sequenceBandwidth)
	if err != nil {
		return nil, err
	}
	return &RoomRepository{db: db, log: log, publisher: publisher, seq: seq, now: time.Now}, nil
}

// Close hands the leased ids back to badger.
func (r *RoomRepository) Close() error {
	return r.seq.Release()
}

func (r *RoomRepository) CreateRoom(ctx context.Context, name string) (domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return domain.Room{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := r.seq.Next()
	if err != nil {
		return domain.Room{}, fmt.Errorf("%w: %w", errors.ErrWriteRejected, err)
	}
	room := domain.Room{
		// Sequences start at 0, room ids start at 1
		ID:        domain.RoomID(next + 1),
		Name:      name,
		CreatedAt: r.now().UTC(),
	}
	bytes, err := encodeRoom(room)
	if err != nil {
		return domain.Room{}, fmt.Errorf("%w: %w", errors.ErrWriteRejected, err)
	}
	if err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(roomKey(room.ID), bytes)
	}); err != nil {
		return domain.Room{}, fmt.Errorf("%w: %w", errors.ErrWriteRejected, err)
	}

	r.log.Debug("Room stored", "id", room.ID, "name", room.Name)
	r.publisher.Publish(event.RoomCreated{Room: room})
	return room, nil
}

func (r *RoomRepository) GetRoom(ctx context.Context, id domain.RoomID) (domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return domain.Room{}, err
	}
	var room domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			room, err = decodeRoom(value)
			return err
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Room{}, fmt.Errorf("%w: room %d", errors.ErrNotFound, id)
	}
	return room, err
}

// ListRooms returns rooms in creation order.
func (r *RoomRepository) ListRooms(ctx context.Context) ([]domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rooms []domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(roomPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				room, err := decodeRoom(value)
				if err != nil {
					return err
				}
				rooms = append(rooms, room)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return rooms, err
}
