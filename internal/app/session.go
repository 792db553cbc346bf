package app

import (
	"math"
	"sync"
	"time"

	"trivia-quiz/internal/domain"
)

// Session holds all mutable state of one quiz attempt.
type Session struct {
	id        string
	bank      string
	createdAt time.Time
	now       func() time.Time
	reshuffle func([]domain.Question) []domain.Question

	mu          sync.RWMutex
	state       domain.State
	userName    string
	questions   []domain.Question
	current     int
	selected    map[int]string
	score       *int
	loadErr     string
	updatedAt   time.Time
	subscribers map[chan domain.SessionView]struct{}
}

// SessionOption customizes a new Session.
type SessionOption func(*Session)

// WithClock allows deterministic timestamps in tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithReshuffle sets the function used by Restart to re-permute candidate answers.
func WithReshuffle(fn func([]domain.Question) []domain.Question) SessionOption {
	return func(s *Session) { s.reshuffle = fn }
}

// WithUserName records the name entered before the quiz.
func WithUserName(name string) SessionOption {
	return func(s *Session) { s.userName = name }
}

// NewSession returns a session in the loading state.
func NewSession(id, bank string, opts ...SessionOption) *Session {
	s := &Session{
		id:          id,
		bank:        bank,
		now:         time.Now,
		state:       domain.StateLoading,
		selected:    make(map[int]string),
		subscribers: make(map[chan domain.SessionView]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.createdAt = s.now()
	s.updatedAt = s.createdAt
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Bank returns the question bank the session was started from.
func (s *Session) Bank() string { return s.bank }

// State returns the current lifecycle state.
func (s *Session) State() domain.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Load seeds the session with questions and enters the active state.
func (s *Session) Load(questions []domain.Question) error {
	if len(questions) == 0 {
		return domain.ErrEmptyQuestionSet
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.questions = questions
	s.resetLocked()
	s.loadErr = ""
	s.broadcastLocked()
	return nil
}

// SelectAnswer records answer for the current question. Selecting the answer that is
// already selected clears it.
func (s *Session) SelectAnswer(answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return err
	}

	if prev, ok := s.selected[s.current]; ok && prev == answer {
		delete(s.selected, s.current)
	} else {
		s.selected[s.current] = answer
	}
	s.broadcastLocked()
	return nil
}

// JumpTo moves to question index. Allowed before and after submission.
func (s *Session) JumpTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.questions) {
		return domain.ErrIndexOutOfRange
	}
	s.current = index
	s.broadcastLocked()
	return nil
}

// Advance moves to the next question; it stays put on the last one.
func (s *Session) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return err
	}
	if s.current < len(s.questions)-1 {
		s.current++
		s.broadcastLocked()
	}
	return nil
}

// Submit scores the attempt and freezes answers. The score is computed once.
func (s *Session) Submit() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return 0, err
	}

	score := 0
	for i, q := range s.questions {
		if answer, ok := s.selected[i]; ok && answer == q.CorrectAnswer {
			score++
		}
	}
	s.score = &score
	s.state = domain.StateSubmitted
	s.broadcastLocked()
	return score, nil
}

// Restart clears answers and score and re-permutes candidate answers when a
// reshuffle function is configured.
func (s *Session) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return err
	}
	if s.reshuffle != nil {
		s.questions = s.reshuffle(s.questions)
	}
	s.resetLocked()
	s.broadcastLocked()
	return nil
}

// Progress returns the rounded percentage of answered questions.
func (s *Session) Progress() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progressLocked()
}

// Score returns the submitted score, if any.
func (s *Session) Score() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.score == nil {
		return 0, false
	}
	return *s.score, true
}

// Review returns per-question results. It is only available after submission.
func (s *Session) Review() ([]domain.ReviewItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != domain.StateSubmitted {
		return nil, domain.ErrNotSubmitted
	}
	return s.reviewLocked(), nil
}

// View returns a snapshot for the presentation layer.
func (s *Session) View() domain.SessionView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// beginReload puts the session back into loading ahead of a fresh fetch.
func (s *Session) beginReload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == domain.StateLoading {
		return domain.ErrSessionLoading
	}
	s.state = domain.StateLoading
	s.questions = nil
	s.current = 0
	s.selected = make(map[int]string)
	s.score = nil
	s.loadErr = ""
	s.broadcastLocked()
	return nil
}

// fail records a load failure. Only a loading session can fail.
func (s *Session) fail(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateLoading {
		return
	}
	s.state = domain.StateFailed
	s.loadErr = message
	s.broadcastLocked()
}

func (s *Session) resetLocked() {
	s.current = 0
	s.selected = make(map[int]string)
	s.score = nil
	s.state = domain.StateActive
}

// readyLocked allows navigation in both answering and review mode.
func (s *Session) readyLocked() error {
	switch s.state {
	case domain.StateActive, domain.StateSubmitted:
		return nil
	default:
		return domain.ErrSessionLoading
	}
}

// activeLocked allows mutation of answers only before submission.
func (s *Session) activeLocked() error {
	switch s.state {
	case domain.StateActive:
		return nil
	case domain.StateSubmitted:
		return domain.ErrAlreadySubmitted
	default:
		return domain.ErrSessionLoading
	}
}

func (s *Session) progressLocked() int {
	if len(s.questions) == 0 {
		return 0
	}
	answered := 0
	for i := range s.questions {
		if _, ok := s.selected[i]; ok {
			answered++
		}
	}
	return int(math.Round(100 * float64(answered) / float64(len(s.questions))))
}

func (s *Session) reviewLocked() []domain.ReviewItem {
	items := make([]domain.ReviewItem, 0, len(s.questions))
	for i, q := range s.questions {
		selected, answered := s.selected[i]
		items = append(items, domain.ReviewItem{
			Index:         i,
			Text:          q.Text,
			Selected:      selected,
			Answered:      answered,
			CorrectAnswer: q.CorrectAnswer,
			Correct:       answered && selected == q.CorrectAnswer,
		})
	}
	return items
}

func (s *Session) subscribe() (<-chan domain.SessionView, func()) {
	ch := make(chan domain.SessionView, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Close ends every open subscription. The session itself stays usable.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Session) broadcastLocked() {
	s.updatedAt = s.now()
	if len(s.subscribers) == 0 {
		return
	}
	view := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- view:
		default:
			// Drop the stale view so slow readers always see the latest state.
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}

func (s *Session) snapshotLocked() domain.SessionView {
	view := domain.SessionView{
		SessionID:    s.id,
		Bank:         s.bank,
		UserName:     s.userName,
		State:        s.state,
		CurrentIndex: s.current,
		Total:        len(s.questions),
		Answered:     make([]bool, len(s.questions)),
		Progress:     s.progressLocked(),
		Submitted:    s.state == domain.StateSubmitted,
		Error:        s.loadErr,
		UpdatedAt:    s.updatedAt,
	}
	for i := range s.questions {
		_, view.Answered[i] = s.selected[i]
	}
	if s.score != nil {
		score := *s.score
		view.Score = &score
	}
	if len(s.questions) > 0 {
		q := s.questions[s.current]
		view.Current = &domain.QuestionView{
			Index:      s.current,
			Text:       q.Text,
			Candidates: append([]string(nil), q.Candidates...),
			Category:   q.Category,
		}
		view.Selected = s.selected[s.current]
		last := s.current >= len(s.questions)-1
		view.CanAdvance = !last && (view.Submitted || view.Answered[s.current])
	}
	if view.Submitted {
		view.Review = s.reviewLocked()
	}
	return view
}
