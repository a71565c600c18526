// Package apperr описывает типизированные ошибки ядра. Каждая операция сервисов
// возвращает (результат, error), где error это *Error с видом ошибки и
// человеко-читаемой деталью. Вызывающая сторона разбирает вид через KindOf,
// не анализируя текст.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

// Kind вид ошибки.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalidState
	KindInvalidInput
	KindPlayerNotFound
	KindPackageNotFound
	// KindInfrastructure сбой хранилища или брокера. Состояние не изменено,
	// операцию можно повторить.
	KindInfrastructure
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindInvalidState:
		return "InvalidState"
	case KindInvalidInput:
		return "InvalidInput"
	case KindPlayerNotFound:
		return "PlayerNotFound"
	case KindPackageNotFound:
		return "PackageNotFound"
	case KindInfrastructure:
		return "InfrastructureError"
	default:
		return "Unknown"
	}
}

// Error ошибка ядра с видом, деталью и необязательной причиной.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is позволяет сравнивать ошибки по виду: errors.Is(err, apperr.NotFound("")).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Detail == "" || t.Detail == e.Detail)
}

// New создаёт ошибку указанного вида.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func InvalidState(format string, args ...any) *Error {
	return New(KindInvalidState, format, args...)
}

func InvalidInput(format string, args ...any) *Error {
	return New(KindInvalidInput, format, args...)
}

func PlayerNotFound(format string, args ...any) *Error {
	return New(KindPlayerNotFound, format, args...)
}

func PackageNotFound(format string, args ...any) *Error {
	return New(KindPackageNotFound, format, args...)
}

// Infrastructure оборачивает сбой хранилища. Уже типизированные ошибки
// возвращаются без изменений, чтобы доменная причина не терялась при выходе
// из транзакции.
func Infrastructure(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindInfrastructure, Detail: op, Err: err}
}

// KindOf возвращает вид ошибки. Ошибки контекста считаются инфраструктурными.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindInfrastructure
	}
	return KindUnknown
}

// DetailOf возвращает деталь ошибки ядра или текст обычной ошибки.
func DetailOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Detail
	}
	return err.Error()
}

// IsRetryable сообщает, можно ли безопасно повторить операцию.
func IsRetryable(err error) bool {
	return KindOf(err) == KindInfrastructure
}
