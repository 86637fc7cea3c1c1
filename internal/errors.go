package internal

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Kind classifies an error for the HTTP boundary.
type Kind string

const (
	KindInvalidInput    Kind = "invalid_input"
	KindConflict        Kind = "conflict"
	KindAuthFailure     Kind = "auth_failure"
	KindNotFound        Kind = "not_found"
	KindTooManyRequests Kind = "too_many_requests"
	KindInternal        Kind = "internal"
)

// Status maps a kind to the response code used by the API.
func (k Kind) Status() int {
	switch k {
	case KindInvalidInput, KindConflict:
		return http.StatusBadRequest
	case KindAuthFailure:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusForbidden
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ErrorFormat is the error type returned by every flow. Message and Detail are
// safe to show to clients, Err is logged only.
type ErrorFormat struct {
	Kind     Kind               `json:"kind"`
	ObjectID primitive.ObjectID `json:"objectID,omitempty"`
	Message  string             `json:"message,omitempty"`
	Detail   string             `json:"detail,omitempty"`
	Err      error              `json:"-"`
	Function string             `json:"function,omitempty"`
	Package  string             `json:"package,omitempty"`
}

func (e *ErrorFormat) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ErrorFormat) Unwrap() error {
	return e.Err
}

func (e *ErrorFormat) String() string {
	marshal, err := json.Marshal(e)
	if err != nil {
		return ""
	}

	return string(marshal)
}

// Level is the log level the error is reported at.
func (e *ErrorFormat) Level() logrus.Level {
	switch e.Kind {
	case KindInternal:
		return logrus.ErrorLevel
	case KindAuthFailure, KindTooManyRequests:
		return logrus.WarnLevel
	default:
		return logrus.DebugLevel
	}
}

// Print logs the error with its internal cause.
func (e *ErrorFormat) Print(logger logrus.FieldLogger) {
	fields := logrus.Fields{
		"kind":     e.Kind,
		"package":  e.Package,
		"function": e.Function,
	}
	if !e.ObjectID.IsZero() {
		fields["objectID"] = e.ObjectID.Hex()
	}
	if e.Err != nil {
		fields["error"] = e.Err.Error()
	}

	entry := logger.WithFields(fields)
	switch e.Level() {
	case logrus.ErrorLevel:
		entry.Error(e.Message)
	case logrus.WarnLevel:
		entry.Warn(e.Message)
	default:
		entry.Debug(e.Message)
	}
}

// AsErrorFormat unwraps err into an ErrorFormat. Anything that is not one
// becomes an Internal error with a generic message.
func AsErrorFormat(err error) *ErrorFormat {
	var ef *ErrorFormat
	if errors.As(err, &ef) {
		return ef
	}
	return &ErrorFormat{Kind: KindInternal, Message: "internal server error", Err: err}
}

func newError(kind Kind, pkg, fn, message string, err error) *ErrorFormat {
	return &ErrorFormat{Kind: kind, Package: pkg, Function: fn, Message: message, Err: err}
}

func InvalidInput(pkg, fn, message string, err error) *ErrorFormat {
	return newError(KindInvalidInput, pkg, fn, message, err)
}

func Conflict(pkg, fn, message string) *ErrorFormat {
	return newError(KindConflict, pkg, fn, message, nil)
}

func AuthFailure(pkg, fn, message string, err error) *ErrorFormat {
	return newError(KindAuthFailure, pkg, fn, message, err)
}

func NotFound(pkg, fn, message string) *ErrorFormat {
	return newError(KindNotFound, pkg, fn, message, nil)
}

func TooManyRequests(pkg, fn string) *ErrorFormat {
	return newError(KindTooManyRequests, pkg, fn, "too many requests", nil)
}

// Internal hides err from the client behind a generic message.
func Internal(pkg, fn string, err error) *ErrorFormat {
	return newError(KindInternal, pkg, fn, "internal server error", err)
}
