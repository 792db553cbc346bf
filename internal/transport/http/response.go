package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type meta struct {
	RequestID string `json:"request_id,omitempty"`
}

type envelope struct {
	OK    bool          `json:"ok"`
	Data  interface{}   `json:"data,omitempty"`
	Error *errorPayload `json:"error,omitempty"`
	Meta  meta          `json:"meta"`
}

func writeOK(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	write(w, r, status, envelope{OK: true, Data: data})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeErrorData(w, r, status, msg, nil)
}

// writeErrorData reports a failure while still handing back data, e.g. the failed session view.
func writeErrorData(w http.ResponseWriter, r *http.Request, status int, msg string, data interface{}) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	write(w, r, status, envelope{
		Data:  data,
		Error: &errorPayload{Code: codeFromStatus(status), Message: msg},
	})
}

func write(w http.ResponseWriter, r *http.Request, status int, res envelope) {
	res.Meta.RequestID = middleware.GetReqID(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(res)
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrBankNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrIndexOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadySubmitted), errors.Is(err, domain.ErrSessionLoading),
		errors.Is(err, domain.ErrNotSubmitted):
		return http.StatusConflict
	case app.IsLoadError(err):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// messageFor hides load failure details behind the generic user-facing message.
func messageFor(err error) string {
	if app.IsLoadError(err) {
		return app.LoadFailedMessage
	}
	return err.Error()
}

func codeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusRequestTimeout:
		return "timeout"
	case http.StatusBadGateway:
		return "upstream_error"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		if status >= 200 && status < 300 {
			return ""
		}
		return "error"
	}
}
