// internal/types/dashboard/errors.go
package dashboard

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout ответ не пришел за отведенное время
	ErrTimeout = errors.New("request timed out")
	// ErrHTTPStatus сервис вернул неуспешный код
	ErrHTTPStatus = errors.New("unexpected http status")
	// ErrMalformedPayload тело не декодируется или не соответствует схеме
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrMissingDisplayTarget виджет отсутствует на поверхности отображения
	ErrMissingDisplayTarget = errors.New("missing display target")
	// ErrTransport запрос не дошел до сервиса
	ErrTransport = errors.New("transport failure")
)

// HTTPStatusError неуспешный HTTP-ответ
type HTTPStatusError struct {
	Code int
	URL  string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s: %d from %s", ErrHTTPStatus, e.Code, e.URL)
}

func (e *HTTPStatusError) Unwrap() error {
	return ErrHTTPStatus
}

// MissingTargetError ссылка на отсутствующий виджет
func MissingTargetError(widgetID string) error {
	return fmt.Errorf("%w: %q", ErrMissingDisplayTarget, widgetID)
}

// ErrorKind имя категории ошибки для логов и метрик
type ErrorKind string

const (
	KindNone                 ErrorKind = ""
	KindTimeout              ErrorKind = "timeout"
	KindHTTPStatus           ErrorKind = "http_status"
	KindMalformedPayload     ErrorKind = "malformed_payload"
	KindMissingDisplayTarget ErrorKind = "missing_display_target"
	KindTransport            ErrorKind = "transport"
	KindUnknown              ErrorKind = "unknown"
)

// Kind сопоставляет ошибку с категорией
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrHTTPStatus):
		return KindHTTPStatus
	case errors.Is(err, ErrMalformedPayload):
		return KindMalformedPayload
	case errors.Is(err, ErrMissingDisplayTarget):
		return KindMissingDisplayTarget
	case errors.Is(err, ErrTransport):
		return KindTransport
	default:
		return KindUnknown
	}
}
