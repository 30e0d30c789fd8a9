package repositories

import (
	"chat-sync/domain"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Records are stored as protobuf Struct values so that the badger inspector can
// decode them without knowing the record type.
// Timestamps are kept as RFC3339Nano strings, a float would lose nanoseconds.

func encodeRoom(room domain.Room) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		"id":         int(room.ID),
		"name":       room.Name,
		"created_at": room.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func decodeRoom(b []byte) (domain.Room, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return domain.Room{}, err
	}
	fields := s.GetFields()
	at, err := time.Parse(time.RFC3339Nano, fields["created_at"].GetStringValue())
	if err != nil {
		return domain.Room{}, fmt.Errorf("room created_at: %w", err)
	}
	return domain.Room{
		ID:        domain.RoomID(fields["id"].GetNumberValue()),
		Name:      fields["name"].GetStringValue(),
		CreatedAt: at,
	}, nil
}

func encodeMessage(message domain.Message) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		"id":         message.ID.String(),
		"room_id":    int(message.RoomID),
		"author":     message.Author,
		"body":       message.Body,
		"created_at": message.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func decodeMessage(b []byte) (domain.Message, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return domain.Message{}, err
	}
	fields := s.GetFields()
	parsedID, err := uuid.Parse(fields["id"].GetStringValue())
	if err != nil {
		return domain.Message{}, err
	}
	at, err := time.Parse(time.RFC3339Nano, fields["created_at"].GetStringValue())
	if err != nil {
		return domain.Message{}, fmt.Errorf("message created_at: %w", err)
	}
	return domain.Message{
		ID:        parsedID,
		RoomID:    domain.RoomID(fields["room_id"].GetNumberValue()),
		Author:    fields["author"].GetStringValue(),
		Body:      fields["body"].GetStringValue(),
		CreatedAt: at,
	}, nil
}

// Decode turns a stored value back into a room or a message, based on its key.
func Decode(key string, value []byte) (any, error) {
	switch {
	case IsRoomKey(key):
		return decodeRoom(value)
	case IsMessageKey(key):
		return decodeMessage(value)
	default:
		return nil, fmt.Errorf("unknown key %q", key)
	}
}
