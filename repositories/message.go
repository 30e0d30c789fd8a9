package repositories

import (
	"chat-sync/domain"
	"chat-sync/domain/event"
	"chat-sync/errors"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type MessageRepository struct {
	mu            sync.Mutex // serializes writes so that publish order is commit order
	db            *badger.DB
	log           *slog.Logger
	publisher     Publisher
	limitMessages *int
	now           func() time.Time
	lastAt        time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, publisher Publisher, limitMessages *int) *MessageRepository {
	return &MessageRepository{
		db:            db,
		log:           log,
		publisher:     publisher,
		limitMessages: limitMessages,
		now:           time.Now,
	}
}

// AppendMessage persists a message in BadgerDB and publishes it once committed.
// The room must exist, otherwise the write is rejected.
// Creation times are strictly increasing so that the key order is the commit order.
func (m *MessageRepository) AppendMessage(ctx context.Context, roomID domain.RoomID, author, body string) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	at := m.now().UTC()
	if !at.After(m.lastAt) {
		at = m.lastAt.Add(time.Nanosecond)
	}
	message := domain.Message{
		ID:        uuid.New(),
		RoomID:    roomID,
		Author:    author,
		Body:      body,
		CreatedAt: at,
	}
	bytes, err := encodeMessage(message)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %w", errors.ErrWriteRejected, err)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(roomKey(roomID)); err != nil {
			if stderrors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("room %d does not exist", roomID)
			}
			return err
		}
		return txn.Set(messageKey(message), bytes)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %w", errors.ErrWriteRejected, err)
	}
	m.lastAt = at

	m.publisher.Publish(event.MessagePosted{Message: message})
	return message, nil
}

// ListMessages retrieves messages of a room using a prefix scan.
// Thanks to the padded timestamp in the key, messages are naturally sorted by time.
// With a limit, only the most recent messages are kept, still in ascending order.
func (m *MessageRepository) ListMessages(ctx context.Context, roomID domain.RoomID) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var byteMessages [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := roomMessagesPrefix(roomID)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Reverse iteration starts from the newest possible key of the room
		seekKey := append(prefix, []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(byteMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				byteMessages = append(byteMessages, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Reverse(byteMessages)
	messages := make([]domain.Message, 0, len(byteMessages))
	for _, b := range byteMessages {
		message, err := decodeMessage(b)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}
