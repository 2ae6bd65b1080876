package services

import (
	"errors"
	"fmt"

	"truowners/internal/repository"
)

var (
	ErrNotFound     = repository.ErrNotFound
	ErrConflict     = repository.ErrConflict
	ErrBadRequest   = errors.New("bad request")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrGateway      = errors.New("payment gateway error")
)

// Error — доменная ошибка с сообщением для клиента.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func newErr(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func badRequest(format string, args ...interface{}) error {
	return newErr(ErrBadRequest, format, args...)
}

func forbidden(format string, args ...interface{}) error {
	return newErr(ErrForbidden, format, args...)
}

func notFound(format string, args ...interface{}) error {
	return newErr(ErrNotFound, format, args...)
}

func conflict(format string, args ...interface{}) error {
	return newErr(ErrConflict, format, args...)
}

// orNotFound подменяет repository.ErrNotFound понятным сообщением.
func orNotFound(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound("%s", msg)
	}
	return err
}
