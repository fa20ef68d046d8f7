package restful

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// errorMapping selects the response written for a failed domain call.
type errorMapping int

const (
	// internalOnError writes 500 with the error's message.
	internalOnError errorMapping = iota
	// notFoundOnError writes 404 with NotFoundBody whatever the error.
	notFoundOnError
)

// writeResult maps a domain result: 200 with the JSON encoding of value when
// err is nil, otherwise the response selected by onErr.
func writeResult(w http.ResponseWriter, value any, err error, onErr errorMapping, logger *slog.Logger) {
	if err == nil {
		writeValue(w, value, logger)
		return
	}
	if onErr == notFoundOnError {
		writeNotFound(w)
		return
	}
	writeInternal(w, err)
}

// writeValue writes a successful response. The value is encoded before the
// status is sent so an unencodable value still yields a 500.
func writeValue(w http.ResponseWriter, value any, logger *slog.Logger) {
	data, err := json.Marshal(value)
	if err != nil {
		loggerOrDefault(logger).Error("failed to encode response", slog.Any("error", err))
		writeInternal(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		// Headers already sent, nothing we can do. Log for debugging.
		loggerOrDefault(logger).Debug("failed to write response", slog.Any("error", err))
	}
}

func writeNotFound(w http.ResponseWriter) {
	writeText(w, http.StatusNotFound, NotFoundBody)
}

func writeInternal(w http.ResponseWriter, err error) {
	writeText(w, http.StatusInternalServerError, err.Error())
}

// writeBindingError writes the client error for a failed binder.
func writeBindingError(w http.ResponseWriter, err error) {
	var bindErr *BindingError
	if !errors.As(err, &bindErr) {
		writeInternal(w, err)
		return
	}
	if bindErr.Kind == PathInvalid {
		writeNotFound(w)
		return
	}
	writeText(w, bindErr.Kind.HTTPStatus(), bindErr.Error())
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
