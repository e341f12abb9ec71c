package service

import (
	"errors"
	"fmt"
)

// 错误分类，使用 errors.Is 判断.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrNotFound        = errors.New("not found")
	ErrGone            = errors.New("gone")
	ErrDuplicateID     = errors.New("duplicate id")
	ErrIO              = errors.New("storage i/o failure")
)

// Error 携带分类与面向用户的简短信息.
type Error struct {
	Kind  error
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}

	return e.Msg
}

// Unwrap 同时暴露分类与底层原因.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}

	return []error{e.Kind}
}

func newError(kind error, msg string, cause error) error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

func badRequest(msg string) error { return newError(ErrBadRequest, msg, nil) }

// NewBadRequest 构造 ErrBadRequest 分类的错误，msg 会直接返回给客户端.
func NewBadRequest(msg string, cause error) error { return newError(ErrBadRequest, msg, cause) }

func ioFailure(op string, cause error) error { return newError(ErrIO, op, cause) }

// Message 返回可直接展示给客户端的信息，非分类错误返回 fallback.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != ErrIO && e.Kind != ErrDuplicateID {
		return e.Msg
	}

	return fallback
}
