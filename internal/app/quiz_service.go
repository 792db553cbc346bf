package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"trivia-quiz/internal/config"
	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/normalizer"
)

// LoadFailedMessage is the user-facing message for any load failure.
const LoadFailedMessage = "Failed to fetch quiz data"

// SessionRepository abstracts how quiz sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	Save(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// BankRepository loads raw question banks (from cache/backing store).
// RefreshBank always goes to the backing store and replaces any cached copy.
type BankRepository interface {
	GetBank(ctx context.Context, bankID string) (domain.RawBank, error)
	RefreshBank(ctx context.Context, bankID string) (domain.RawBank, error)
}

// RestartPolicy selects what Restart does with the question set.
type RestartPolicy string

const (
	// RestartReshuffle keeps the questions and re-permutes their candidates.
	RestartReshuffle RestartPolicy = config.RestartReshuffle
	// RestartRefetch runs a fresh fetch and normalize cycle.
	RestartRefetch RestartPolicy = config.RestartRefetch
)

// Options configures a QuizService.
type Options struct {
	DefaultBank   string
	FetchTimeout  time.Duration
	RestartPolicy RestartPolicy
	Normalizer    *normalizer.Normalizer
	NewID         func() string
	Now           func() time.Time
}

// QuizService contains the quiz use cases invoked by the presentation layers.
type QuizService struct {
	sessions   SessionRepository
	banks      BankRepository
	normalizer *normalizer.Normalizer
	opts       Options
}

func NewQuizService(store SessionRepository, banks BankRepository, opts Options) *QuizService {
	if opts.Normalizer == nil {
		opts.Normalizer = normalizer.New(nil)
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	if opts.RestartPolicy == "" {
		opts.RestartPolicy = RestartReshuffle
	}
	return &QuizService{
		sessions:   store,
		banks:      banks,
		normalizer: opts.Normalizer,
		opts:       opts,
	}
}

// Start creates a session for bankID and runs its fetch-then-load cycle.
// On failure the session is kept in the failed state and the error is returned.
func (s *QuizService) Start(ctx context.Context, bankID, userName string) (domain.SessionView, error) {
	if bankID == "" {
		bankID = s.opts.DefaultBank
	}
	session := NewSession(s.opts.NewID(), bankID,
		WithUserName(userName),
		WithReshuffle(s.normalizer.Reshuffle),
		WithClock(s.opts.Now),
	)
	s.sessions.Save(session)

	config.WithContext(ctx).WithFields(logrus.Fields{
		"session_id": session.ID(),
		"bank":       bankID,
	}).Info("starting quiz session")

	err := s.load(ctx, session, false)
	return session.View(), err
}

// Get returns the current view of a session.
func (s *QuizService) Get(_ context.Context, sessionID string) (domain.SessionView, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return domain.SessionView{}, err
	}
	return session.View(), nil
}

// SelectAnswer toggles answer on the current question.
func (s *QuizService) SelectAnswer(_ context.Context, sessionID, answer string) (domain.SessionView, error) {
	return s.apply(sessionID, func(session *Session) error {
		return session.SelectAnswer(answer)
	})
}

// JumpTo moves a session to question index.
func (s *QuizService) JumpTo(_ context.Context, sessionID string, index int) (domain.SessionView, error) {
	return s.apply(sessionID, func(session *Session) error {
		return session.JumpTo(index)
	})
}

// Advance moves a session to its next question.
func (s *QuizService) Advance(_ context.Context, sessionID string) (domain.SessionView, error) {
	return s.apply(sessionID, func(session *Session) error {
		return session.Advance()
	})
}

// Submit scores a session. Callers gate this behind a user confirmation.
func (s *QuizService) Submit(ctx context.Context, sessionID string) (domain.SessionView, error) {
	view, err := s.apply(sessionID, func(session *Session) error {
		_, err := session.Submit()
		return err
	})
	if err == nil && view.Score != nil {
		config.WithContext(ctx).WithFields(logrus.Fields{
			"session_id": sessionID,
			"score":      *view.Score,
			"total":      view.Total,
		}).Info("quiz submitted")
	}
	return view, err
}

// Restart resets a session according to the configured restart policy.
func (s *QuizService) Restart(ctx context.Context, sessionID string) (domain.SessionView, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return domain.SessionView{}, err
	}

	if s.opts.RestartPolicy == RestartRefetch {
		if err := session.beginReload(); err != nil {
			return session.View(), err
		}
		err := s.load(ctx, session, true)
		return session.View(), err
	}

	if err := session.Restart(); err != nil {
		return session.View(), err
	}
	return session.View(), nil
}

// Subscribe returns a channel that receives session updates.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan domain.SessionView, func(), error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Close drops a session and closes its subscriptions.
func (s *QuizService) Close(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(sessionID)
}

// RawBank returns the undecoded payload of a bank, as served by the upstream.
func (s *QuizService) RawBank(ctx context.Context, bankID string) (domain.RawBank, error) {
	return s.rawBank(ctx, bankID, false)
}

// FetchQuestions fetches and normalizes a bank without starting a session.
func (s *QuizService) FetchQuestions(ctx context.Context, bankID string) ([]domain.Question, error) {
	return s.fetchQuestions(ctx, bankID, false)
}

func (s *QuizService) rawBank(ctx context.Context, bankID string, fresh bool) (domain.RawBank, error) {
	if bankID == "" {
		bankID = s.opts.DefaultBank
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()
	if fresh {
		return s.banks.RefreshBank(ctx, bankID)
	}
	return s.banks.GetBank(ctx, bankID)
}

func (s *QuizService) fetchQuestions(ctx context.Context, bankID string, fresh bool) ([]domain.Question, error) {
	bank, err := s.rawBank(ctx, bankID, fresh)
	if err != nil {
		return nil, err
	}
	questions, err := s.normalizer.NormalizePayload(bank.Payload, bank.Shape)
	if err != nil {
		return nil, fmt.Errorf("normalize bank %s: %w", bank.ID, err)
	}
	if len(questions) == 0 {
		return nil, domain.ErrEmptyQuestionSet
	}
	return questions, nil
}

// load runs the fetch-then-load cycle. fresh bypasses the bank cache.
func (s *QuizService) load(ctx context.Context, session *Session, fresh bool) error {
	log := config.WithContext(ctx).WithFields(logrus.Fields{
		"session_id": session.ID(),
		"bank":       session.Bank(),
	})

	questions, err := s.fetchQuestions(ctx, session.Bank(), fresh)
	if err == nil {
		err = session.Load(questions)
	}
	if err != nil {
		log.WithError(err).Error("failed to load quiz questions")
		session.fail(LoadFailedMessage)
		return err
	}

	for _, idx := range normalizer.Unwinnable(questions) {
		log.WithError(domain.ErrNoCorrectAnswer).WithField("question", idx).Warn("question cannot be answered correctly")
	}
	log.WithField("questions", len(questions)).Info("quiz session loaded")
	return nil
}

func (s *QuizService) apply(sessionID string, fn func(*Session) error) (domain.SessionView, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return domain.SessionView{}, err
	}
	if err := fn(session); err != nil {
		return session.View(), err
	}
	return session.View(), nil
}

func (s *QuizService) lookup(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// IsLoadError reports whether err came from the fetch/normalize cycle.
func IsLoadError(err error) bool {
	return errors.Is(err, domain.ErrUpstream) ||
		errors.Is(err, domain.ErrMalformedPayload) ||
		errors.Is(err, domain.ErrEmptyQuestionSet) ||
		errors.Is(err, domain.ErrBankNotFound) ||
		errors.Is(err, context.DeadlineExceeded)
}
