package client

import (
	"strconv"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// max counts runes, maxbytes counts the encoded length
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= limit
	})
	return v
}

type identityRequest struct {
	DisplayName string `validate:"max=64"`
}

type roomRequest struct {
	Name string `validate:"max=100"`
}

// The body limit matches the octet_length check of the messages table and
// keeps a message notification under the Postgres payload limit.
type messageRequest struct {
	Body string `validate:"maxbytes=4000"`
}

func validateDisplayName(name string) error {
	return validate.Struct(identityRequest{DisplayName: name})
}

func validateRoomName(name string) error {
	return validate.Struct(roomRequest{Name: name})
}

func validateBody(body string) error {
	return validate.Struct(messageRequest{Body: body})
}
