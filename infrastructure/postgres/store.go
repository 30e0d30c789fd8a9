// Package postgres is the remote store: rooms and messages live in Postgres
// and every committed insert is announced with NOTIFY on a channel named after
// its table.
package postgres

import (
	"chat-sync/domain"
	"chat-sync/errors"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool          *pgxpool.Pool
	log           *slog.Logger
	limitMessages *int
}

// NewStore opens a connection pool and checks the database is reachable.
func NewStore(ctx context.Context, databaseURL string, log *slog.Logger, limitMessages *int) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool, log: log, limitMessages: limitMessages}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) ListRooms(ctx context.Context) ([]domain.Room, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, created_at
		FROM chat_rooms
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (s *Store) GetRoom(ctx context.Context, id domain.RoomID) (domain.Room, error) {
	room, err := scanRoom(s.pool.QueryRow(ctx, `
		SELECT id, name, created_at
		FROM chat_rooms WHERE id = $1
	`, int64(id)))
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.Room{}, fmt.Errorf("%w: room %d", errors.ErrNotFound, id)
	}
	return room, err
}

func (s *Store) CreateRoom(ctx context.Context, name string) (domain.Room, error) {
	room, err := scanRoom(s.pool.QueryRow(ctx, `
		INSERT INTO chat_rooms (name)
		VALUES ($1)
		RETURNING id, name, created_at
	`, name))
	if err != nil {
		return domain.Room{}, fmt.Errorf("%w: %w", errors.ErrWriteRejected, err)
	}
	s.log.Debug("Room stored", "id", room.ID, "name", room.Name)
	return room, nil
}

// ListMessages returns the messages of a room oldest first.
// With a limit, only the most recent ones are returned.
func (s *Store) ListMessages(ctx context.Context, roomID domain.RoomID) ([]domain.Message, error) {
	// A NULL limit means no limit
	rows, err := s.pool.Query(ctx, `
		SELECT id, chat_room_id, user_name, content, created_at
		FROM (
			SELECT id::text AS id, chat_room_id, user_name, content, created_at
			FROM messages
			WHERE chat_room_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) AS latest
		ORDER BY created_at, id
	`, int64(roomID), s.limitMessages)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, rows.Err()
}

// AppendMessage inserts a message. Unknown rooms are rejected by the foreign key.
func (s *Store) AppendMessage(ctx context.Context, roomID domain.RoomID, author, body string) (domain.Message, error) {
	message, err := scanMessage(s.pool.QueryRow(ctx, `
		INSERT INTO messages (chat_room_id, user_name, content)
		VALUES ($1, $2, $3)
		RETURNING id::text, chat_room_id, user_name, content, created_at
	`, int64(roomID), author, body))
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %w", errors.ErrWriteRejected, err)
	}
	return message, nil
}

func scanRoom(row pgx.Row) (domain.Room, error) {
	var (
		room domain.Room
		id   int64
	)
	if err := row.Scan(&id, &room.Name, &room.CreatedAt); err != nil {
		return domain.Room{}, err
	}
	room.ID = domain.RoomID(id)
	room.CreatedAt = room.CreatedAt.UTC()
	return room, nil
}

func scanMessage(row pgx.Row) (domain.Message, error) {
	var (
		message domain.Message
		id      string
		roomID  int64
	)
	if err := row.Scan(&id, &roomID, &message.Author, &message.Body, &message.CreatedAt); err != nil {
		return domain.Message{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return domain.Message{}, err
	}
	message.ID = parsed
	message.RoomID = domain.RoomID(roomID)
	message.CreatedAt = message.CreatedAt.UTC()
	return message, nil
}
