package http

import (
	"encoding/json"
	"math/rand"
	"net/http/httptest"
	"testing"
	"time"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/infra/memory"
	"trivia-quiz/internal/normalizer"
)

func newTestService() *app.QuizService {
	service, _ := newTestServiceWithStore()
	return service
}

func newTestServiceWithStore() (*app.QuizService, *memory.SessionStore) {
	banks := memory.SampleBanks()
	banks["broken"] = domain.RawBank{
		ID:      "broken",
		Shape:   domain.ShapeFlat,
		Payload: json.RawMessage(`{"response_code":1,"results":[]}`),
	}
	repo := memory.NewBankRepository(memory.NewStaticBankLoader(banks), time.Minute)
	store := memory.NewSessionStore()
	service := app.NewQuizService(store, repo, app.Options{
		DefaultBank: "sample-general",
		Normalizer:  normalizer.New(rand.New(rand.NewSource(7))),
	})
	return service, store
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(NewRouter(newTestService()))
	t.Cleanup(server.Close)
	return server
}

type testEnvelope struct {
	OK    bool               `json:"ok"`
	Data  domain.SessionView `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta struct {
		RequestID string `json:"request_id"`
	} `json:"meta"`
}
