package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/config"
	"trivia-quiz/internal/domain"
)

// errConfirmationRequired is returned when submit is called without the user's confirmation.
var errConfirmationRequired = errors.New("submit requires confirmation")

type RESTHandler struct {
	service *app.QuizService
}

func NewRESTHandler(service *app.QuizService) *RESTHandler {
	return &RESTHandler{service: service}
}

type startRequest struct {
	Bank string `json:"bank"`
	Name string `json:"name"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type jumpRequest struct {
	Index *int `json:"index"`
}

type submitRequest struct {
	Confirm bool `json:"confirm"`
}

// Routes mounts the session API.
func (h *RESTHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/quiz/{bank}", h.ProxyBank)
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.StartSession)
		r.Get("/{id}", h.GetSession)
		r.Delete("/{id}", h.CloseSession)
		r.Post("/{id}/answers", h.SelectAnswer)
		r.Post("/{id}/jump", h.JumpTo)
		r.Post("/{id}/advance", h.Advance)
		r.Post("/{id}/submit", h.Submit)
		r.Post("/{id}/restart", h.Restart)
	})
	return r
}

// ProxyBank relays the upstream payload untouched.
func (h *RESTHandler) ProxyBank(w http.ResponseWriter, r *http.Request) {
	bankID := chi.URLParam(r, "bank")
	bank, err := h.service.RawBank(r.Context(), bankID)
	if err != nil {
		config.WithContext(r.Context()).WithError(err).WithField("bank", bankID).Error("proxy fetch failed")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": app.LoadFailedMessage})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(bank.Payload)
}

func (h *RESTHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := h.service.Start(r.Context(), req.Bank, req.Name)
	if err != nil {
		writeErrorData(w, r, statusFor(err), messageFor(err), view)
		return
	}
	writeOK(w, r, http.StatusCreated, view)
}

func (h *RESTHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, view, err)
}

func (h *RESTHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.service.Get(r.Context(), id); err != nil {
		writeError(w, r, statusFor(err), err.Error())
		return
	}
	h.service.Close(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *RESTHandler) SelectAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := h.service.SelectAnswer(r.Context(), chi.URLParam(r, "id"), req.Answer)
	h.respond(w, r, view, err)
}

func (h *RESTHandler) JumpTo(w http.ResponseWriter, r *http.Request) {
	var req jumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Index == nil {
		writeError(w, r, http.StatusBadRequest, "index is required")
		return
	}
	view, err := h.service.JumpTo(r.Context(), chi.URLParam(r, "id"), *req.Index)
	h.respond(w, r, view, err)
}

func (h *RESTHandler) Advance(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Advance(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, view, err)
}

func (h *RESTHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Confirm {
		writeError(w, r, http.StatusConflict, errConfirmationRequired.Error())
		return
	}
	view, err := h.service.Submit(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, view, err)
}

func (h *RESTHandler) Restart(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Restart(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, view, err)
}

func (h *RESTHandler) respond(w http.ResponseWriter, r *http.Request, view domain.SessionView, err error) {
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			config.WithContext(r.Context()).WithError(err).Error("session request failed")
		}
		if view.SessionID != "" {
			writeErrorData(w, r, status, messageFor(err), view)
			return
		}
		writeError(w, r, status, messageFor(err))
		return
	}
	writeOK(w, r, http.StatusOK, view)
}

// decodeOptional decodes a JSON body, treating an empty body as zero values.
func decodeOptional(r *http.Request, dst interface{}) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
