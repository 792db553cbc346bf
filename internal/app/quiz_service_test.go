package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/infra/memory"
	"trivia-quiz/internal/normalizer"
)

const flatBank = `{"response_code":0,"results":[
 {"question":"2 + 2?","correct_answer":"4","incorrect_answers":["3","5","22"]},
 {"question":"Capital of France?","correct_answer":"Paris","incorrect_answers":["Rome","Lyon","Nice"]}
]}`

const keyedBank = `[
 {"id":1,"question":"Which command lists files?",
  "answers":{"answer_a":"ls","answer_b":"cd","answer_c":null,"answer_d":"pwd","answer_e":null,"answer_f":null},
  "correct_answers":{"answer_a_correct":"true","answer_b_correct":"false","answer_c_correct":"false","answer_d_correct":"false","answer_e_correct":"false","answer_f_correct":"false"}},
 {"id":2,"question":"Unscorable?",
  "answers":{"answer_a":"x","answer_b":"y"},
  "correct_answers":{"answer_a_correct":"false","answer_b_correct":"false"}}
]`

func TestStartLoadsQuestions(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(app.RestartReshuffle)

	view, err := service.Start(ctx, "", "Alice")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if view.State != domain.StateActive || view.Total != 2 || view.Bank != "flat" {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.UserName != "Alice" || view.SessionID == "" {
		t.Fatalf("expected id and user name, got %+v", view)
	}
	if len(view.Current.Candidates) != 4 {
		t.Fatalf("expected 4 candidates, got %v", view.Current.Candidates)
	}
}

func TestKeyedBankScoring(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(app.RestartReshuffle)

	view, err := service.Start(ctx, "keyed", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(view.Current.Candidates) != 3 {
		t.Fatalf("expected null slots dropped, got %v", view.Current.Candidates)
	}
	id := view.SessionID

	if _, err := service.SelectAnswer(ctx, id, "ls"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := service.Advance(ctx, id); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := service.SelectAnswer(ctx, id, "x"); err != nil {
		t.Fatalf("select: %v", err)
	}
	view, err = service.Submit(ctx, id)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if view.Score == nil || *view.Score != 1 {
		t.Fatalf("expected score 1, got %+v", view.Score)
	}
	if view.Review[1].CorrectAnswer != "" || view.Review[1].Correct {
		t.Fatalf("expected unscorable question, got %+v", view.Review[1])
	}
}

func TestStartFailureLeavesFailedSession(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(app.RestartReshuffle)

	tests := []struct {
		name string
		bank string
		want error
	}{
		{name: "unknown bank", bank: "missing", want: domain.ErrBankNotFound},
		{name: "upstream code", bank: "rejected", want: domain.ErrUpstream},
		{name: "empty results", bank: "empty", want: domain.ErrEmptyQuestionSet},
		{name: "malformed", bank: "garbage", want: domain.ErrMalformedPayload},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			view, err := service.Start(ctx, tc.bank, "")
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !app.IsLoadError(err) {
				t.Fatalf("expected load error classification for %v", err)
			}
			if view.State != domain.StateFailed || view.Error != app.LoadFailedMessage {
				t.Fatalf("unexpected failed view %+v", view)
			}
			if _, err := service.SelectAnswer(ctx, view.SessionID, "x"); !errors.Is(err, domain.ErrSessionLoading) {
				t.Fatalf("expected loading error, got %v", err)
			}
		})
	}
}

func TestUnknownSession(t *testing.T) {
	service, _ := newTestService(app.RestartReshuffle)
	if _, err := service.Get(context.Background(), "nope"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRestartPolicies(t *testing.T) {
	ctx := context.Background()

	t.Run("reshuffle keeps cache", func(t *testing.T) {
		service, loader := newTestService(app.RestartReshuffle)
		view, _ := service.Start(ctx, "flat", "")
		_, _ = service.SelectAnswer(ctx, view.SessionID, "4")
		_, _ = service.Submit(ctx, view.SessionID)

		view, err := service.Restart(ctx, view.SessionID)
		if err != nil {
			t.Fatalf("restart: %v", err)
		}
		if view.State != domain.StateActive || view.Progress != 0 || view.Score != nil {
			t.Fatalf("unexpected restart view %+v", view)
		}
		if loader.count() != 1 {
			t.Fatalf("expected no refetch, got %d loads", loader.count())
		}
	})

	t.Run("refetch loads again", func(t *testing.T) {
		service, loader := newTestService(app.RestartRefetch)
		view, _ := service.Start(ctx, "flat", "")
		_, _ = service.Submit(ctx, view.SessionID)

		view, err := service.Restart(ctx, view.SessionID)
		if err != nil {
			t.Fatalf("restart: %v", err)
		}
		if view.State != domain.StateActive || view.Total != 2 {
			t.Fatalf("unexpected restart view %+v", view)
		}
		if loader.count() != 2 {
			t.Fatalf("expected refetch, got %d loads", loader.count())
		}
	})
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(app.RestartReshuffle)

	view, err := service.Start(ctx, "flat", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	ch, cancel, err := service.Subscribe(ctx, view.SessionID)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	<-ch // initial snapshot
	if _, err := service.SelectAnswer(ctx, view.SessionID, "4"); err != nil {
		t.Fatalf("select: %v", err)
	}

	select {
	case update := <-ch:
		if update.Selected != "4" || update.Progress != 50 {
			t.Fatalf("unexpected update %+v", update)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for update")
	}
}

func TestCloseEndsSubscriptions(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(app.RestartReshuffle)
	view, _ := service.Start(ctx, "flat", "")
	ch, cancel, _ := service.Subscribe(ctx, view.SessionID)
	defer cancel()
	<-ch

	service.Close(ctx, view.SessionID)
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	if _, err := service.Get(ctx, view.SessionID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session removed, got %v", err)
	}
}

func TestFetchQuestions(t *testing.T) {
	service, _ := newTestService(app.RestartReshuffle)
	questions, err := service.FetchQuestions(context.Background(), "keyed")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(questions) != 2 || questions[0].CorrectAnswer != "ls" {
		t.Fatalf("unexpected questions %+v", questions)
	}
}

func TestRefetchRestartBypassesBankCache(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{BankLoader: memory.NewStaticBankLoader(map[string]domain.RawBank{
		"flat": {ID: "flat", Shape: domain.ShapeFlat, Payload: json.RawMessage(flatBank)},
	})}
	repo := memory.NewBankRepository(loader, 10*time.Minute)
	service := app.NewQuizService(memory.NewSessionStore(), repo, app.Options{
		DefaultBank:   "flat",
		RestartPolicy: app.RestartRefetch,
	})

	view, err := service.Start(ctx, "", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := service.Submit(ctx, view.SessionID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := service.Restart(ctx, view.SessionID); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if loader.count() != 2 {
		t.Fatalf("expected refetch to reach the loader, got %d loads", loader.count())
	}

	// fresh copy went back into the cache
	if _, err := service.Start(ctx, "", ""); err != nil {
		t.Fatalf("start 2: %v", err)
	}
	if loader.count() != 2 {
		t.Fatalf("expected cached bank for new session, got %d loads", loader.count())
	}
}

func TestRejectedBankIsNotCached(t *testing.T) {
	ctx := context.Background()
	loader := &sequenceLoader{payloads: []string{`{"response_code":5,"results":[]}`, flatBank}}
	repo := memory.NewBankRepository(loader, 10*time.Minute)
	service := app.NewQuizService(memory.NewSessionStore(), repo, app.Options{DefaultBank: "flat"})

	if _, err := service.Start(ctx, "", ""); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream rejection, got %v", err)
	}
	view, err := service.Start(ctx, "", "")
	if err != nil {
		t.Fatalf("expected second start to refetch, got %v", err)
	}
	if view.State != domain.StateActive || loader.calls != 2 {
		t.Fatalf("unexpected state %s after %d loads", view.State, loader.calls)
	}
}

func newTestService(policy app.RestartPolicy) (*app.QuizService, *countingLoader) {
	loader := &countingLoader{BankLoader: memory.NewStaticBankLoader(map[string]domain.RawBank{
		"flat":     {ID: "flat", Shape: domain.ShapeFlat, Payload: json.RawMessage(flatBank)},
		"keyed":    {ID: "keyed", Shape: domain.ShapeKeyed, Payload: json.RawMessage(keyedBank)},
		"rejected": {ID: "rejected", Shape: domain.ShapeFlat, Payload: json.RawMessage(`{"response_code":1,"results":[]}`)},
		"empty":    {ID: "empty", Shape: domain.ShapeAuto, Payload: json.RawMessage(`[]`)},
		"garbage":  {ID: "garbage", Shape: domain.ShapeAuto, Payload: json.RawMessage(`{"hello":"world"}`)},
	})}
	// zero TTL so every fetch reaches the loader
	repo := memory.NewBankRepository(loader, 0)
	service := app.NewQuizService(memory.NewSessionStore(), repo, app.Options{
		DefaultBank:   "flat",
		RestartPolicy: policy,
		Normalizer:    normalizer.New(rand.New(rand.NewSource(1))),
	})
	return service, loader
}

type countingLoader struct {
	memory.BankLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadBank(ctx context.Context, bankID string) (domain.RawBank, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.BankLoader.LoadBank(ctx, bankID)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// sequenceLoader serves its payloads in order, repeating the last one.
type sequenceLoader struct {
	payloads []string
	calls    int
}

func (l *sequenceLoader) LoadBank(_ context.Context, bankID string) (domain.RawBank, error) {
	idx := l.calls
	if idx >= len(l.payloads) {
		idx = len(l.payloads) - 1
	}
	l.calls++
	return domain.RawBank{ID: bankID, Shape: domain.ShapeFlat, Payload: json.RawMessage(l.payloads[idx])}, nil
}
