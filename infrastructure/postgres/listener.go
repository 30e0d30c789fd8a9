package postgres

import (
	"chat-sync/domain"
	"chat-sync/domain/event"
	"chat-sync/errors"
	"chat-sync/runtime"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Listener turns NOTIFY messages into change events.
// It owns one dedicated connection, LISTEN needs a session.
// Run is meant to be supervised: it returns when the connection is lost and
// the supervisor starts a new session after its restart interval.
type Listener struct {
	log         *slog.Logger
	databaseURL string
	registry    *runtime.Registry
	live        atomic.Bool
}

func NewListener(log *slog.Logger, databaseURL string, registry *runtime.Registry) *Listener {
	return &Listener{log: log, databaseURL: databaseURL, registry: registry}
}

// Listen registers a listener on the events received from Postgres.
func (l *Listener) Listen(topic event.Topic, filter event.Filter, deliver func(event.Change)) (func(), error) {
	switch topic {
	case event.TopicRooms, event.TopicMessages:
		return l.registry.Listen(topic, filter, deliver)
	default:
		return nil, fmt.Errorf("%w: %s", errors.ErrUnknownTopic, topic)
	}
}

func (l *Listener) Run(ctx context.Context) error {
	err := l.session(ctx)
	if l.live.Swap(false) {
		l.registry.Disconnected(err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("change feed lost: %w", err)
}

func (l *Listener) session(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	for _, topic := range []event.Topic{event.TopicRooms, event.TopicMessages} {
		if _, err = conn.Exec(ctx, "LISTEN "+pgx.Identifier{string(topic)}.Sanitize()); err != nil {
			return err
		}
	}
	l.live.Store(true)
	l.log.Info("Listening for inserts")
	// Inserts committed while no session was listening are unknown, owners refetch
	l.registry.Reconnected()

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		e, err := decodeNotification(notification.Channel, []byte(notification.Payload))
		if err != nil {
			l.log.Error("Dropping notification", "channel", notification.Channel, "error", err)
			continue
		}
		l.registry.Publish(e)
	}
}

type roomRow struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type messageRow struct {
	ID         uuid.UUID `json:"id"`
	ChatRoomID int64     `json:"chat_room_id"`
	UserName   string    `json:"user_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// decodeNotification reads a row_to_json payload of the table named by channel.
func decodeNotification(channel string, payload []byte) (event.DomainEvent, error) {
	switch event.Topic(channel) {
	case event.TopicRooms:
		var row roomRow
		if err := json.Unmarshal(payload, &row); err != nil {
			return nil, err
		}
		return event.RoomCreated{Room: domain.Room{
			ID:        domain.RoomID(row.ID),
			Name:      row.Name,
			CreatedAt: row.CreatedAt.UTC(),
		}}, nil
	case event.TopicMessages:
		var row messageRow
		if err := json.Unmarshal(payload, &row); err != nil {
			return nil, err
		}
		return event.MessagePosted{Message: domain.Message{
			ID:        row.ID,
			RoomID:    domain.RoomID(row.ChatRoomID),
			Author:    row.UserName,
			Body:      row.Content,
			CreatedAt: row.CreatedAt.UTC(),
		}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", errors.ErrUnknownTopic, channel)
	}
}
