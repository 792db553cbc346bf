package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/config"
)

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Answer string `json:"answer"`
}

type jumpPayload struct {
	Index int `json:"index"`
}

type submitPayload struct {
	Confirm bool `json:"confirm"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type wsError struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and streams session state while applying inbound actions.
// With ?sessionId= it attaches to an existing session; otherwise it starts one for
// ?bank= and ?name=.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	log := config.WithContext(r.Context())
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID != "" {
		if _, err := h.service.Get(r.Context(), sessionID); err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	if sessionID == "" {
		view, err := h.service.Start(r.Context(), r.URL.Query().Get("bank"), r.URL.Query().Get("name"))
		if view.SessionID == "" {
			_ = conn.WriteJSON(outboundMessage[wsError]{Type: "error", Payload: wsError{Message: messageFor(err)}})
			return
		}
		sessionID = view.SessionID
		// sessions opened by this socket live only as long as it does
		defer h.service.Close(context.Background(), sessionID)
	}

	updates, cancel, err := h.service.Subscribe(r.Context(), sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[wsError]{Type: "error", Payload: wsError{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(r, sessionID, inbound); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: wsError{Message: messageFor(err)}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// dispatch applies one inbound action. Successful actions are reported through the
// session subscription, so only errors are returned to the caller.
func (h *WSHandler) dispatch(r *http.Request, sessionID string, inbound inboundMessage) error {
	ctx := r.Context()
	var err error
	switch inbound.Type {
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		_, err = h.service.SelectAnswer(ctx, sessionID, payload.Answer)
	case "jump":
		var payload jumpPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		_, err = h.service.JumpTo(ctx, sessionID, payload.Index)
	case "advance":
		_, err = h.service.Advance(ctx, sessionID)
	case "submit":
		var payload submitPayload
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				return errInvalidPayload
			}
		}
		if !payload.Confirm {
			return errConfirmationRequired
		}
		_, err = h.service.Submit(ctx, sessionID)
	case "restart":
		_, err = h.service.Restart(ctx, sessionID)
	default:
		return errUnsupportedMessage
	}
	return err
}

var (
	errInvalidPayload     = errors.New("invalid message payload")
	errUnsupportedMessage = errors.New("unsupported message type")
)
