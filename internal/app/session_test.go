package app

import (
	"errors"
	"testing"
	"time"

	"trivia-quiz/internal/domain"
)

func threeQuestions() []domain.Question {
	return []domain.Question{
		{Text: "q1", CorrectAnswer: "B", Candidates: []string{"A", "B", "C"}},
		{Text: "q2", CorrectAnswer: "C", Candidates: []string{"A", "B", "C"}},
		{Text: "q3", CorrectAnswer: "B", Candidates: []string{"A", "B", "C"}},
	}
}

func loadedSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession("s1", "bank")
	if err := s.Load(threeQuestions()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func answerAll(t *testing.T, s *Session, answers ...string) {
	t.Helper()
	for i, answer := range answers {
		if err := s.JumpTo(i); err != nil {
			t.Fatalf("jump %d: %v", i, err)
		}
		if err := s.SelectAnswer(answer); err != nil {
			t.Fatalf("select %d: %v", i, err)
		}
	}
}

func TestLoadRejectsEmptySet(t *testing.T) {
	s := NewSession("s1", "bank")
	if err := s.Load(nil); !errors.Is(err, domain.ErrEmptyQuestionSet) {
		t.Fatalf("expected empty question set, got %v", err)
	}
	if s.State() != domain.StateLoading {
		t.Fatalf("expected session to stay loading, got %s", s.State())
	}
}

func TestLoadResetsState(t *testing.T) {
	s := loadedSession(t)
	view := s.View()
	if view.State != domain.StateActive || view.CurrentIndex != 0 || view.Progress != 0 || view.Score != nil {
		t.Fatalf("unexpected view after load: %+v", view)
	}
}

func TestScoreCountsMatches(t *testing.T) {
	s := loadedSession(t)
	answerAll(t, s, "B", "A", "B")

	score, err := s.Submit()
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if score != 2 {
		t.Fatalf("expected score 2, got %d", score)
	}
	if !s.View().Submitted {
		t.Fatalf("expected submitted")
	}
}

func TestUnansweredNeverScores(t *testing.T) {
	s := NewSession("s1", "bank")
	// an empty correct answer must not match an unanswered question
	if err := s.Load([]domain.Question{{Text: "q", Candidates: []string{"x", "y"}}}); err != nil {
		t.Fatalf("load: %v", err)
	}
	score, _ := s.Submit()
	if score != 0 {
		t.Fatalf("expected 0, got %d", score)
	}
}

func TestSelectTwiceClears(t *testing.T) {
	s := loadedSession(t)
	_ = s.SelectAnswer("X")
	_ = s.SelectAnswer("X")

	if _, ok := s.selected[0]; ok {
		t.Fatalf("expected selection cleared")
	}
	if s.Progress() != 0 {
		t.Fatalf("expected progress 0, got %d", s.Progress())
	}
}

func TestSelectReplaces(t *testing.T) {
	s := loadedSession(t)
	_ = s.SelectAnswer("A")
	_ = s.SelectAnswer("C")
	if got := s.View().Selected; got != "C" {
		t.Fatalf("expected C, got %q", got)
	}
}

func TestJumpOutOfRange(t *testing.T) {
	s := loadedSession(t)
	for _, idx := range []int{-1, 3, 5} {
		if err := s.JumpTo(idx); !errors.Is(err, domain.ErrIndexOutOfRange) {
			t.Fatalf("jump(%d): expected out of range, got %v", idx, err)
		}
	}
	if s.View().CurrentIndex != 0 {
		t.Fatalf("expected index unchanged")
	}
}

func TestAdvanceStopsAtEnd(t *testing.T) {
	s := loadedSession(t)
	for i := 0; i < 5; i++ {
		if err := s.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if got := s.View().CurrentIndex; got != 2 {
		t.Fatalf("expected last index 2, got %d", got)
	}
}

func TestCanAdvance(t *testing.T) {
	s := loadedSession(t)
	if s.View().CanAdvance {
		t.Fatalf("expected advance disabled before answering")
	}
	_ = s.SelectAnswer("A")
	if !s.View().CanAdvance {
		t.Fatalf("expected advance enabled after answering")
	}
	_ = s.JumpTo(2)
	_ = s.SelectAnswer("A")
	if s.View().CanAdvance {
		t.Fatalf("expected advance disabled on last question")
	}
}

func TestProgressBoundsAndMonotonic(t *testing.T) {
	s := loadedSession(t)
	prev := s.Progress()
	want := []int{33, 67, 100}
	for i := range threeQuestions() {
		_ = s.JumpTo(i)
		_ = s.SelectAnswer("A")
		got := s.Progress()
		if got < prev || got < 0 || got > 100 {
			t.Fatalf("progress %d after %d (prev %d)", got, i, prev)
		}
		if got != want[i] {
			t.Fatalf("expected %d, got %d", want[i], got)
		}
		prev = got
	}
}

func TestDoubleSubmitKeepsScore(t *testing.T) {
	s := loadedSession(t)
	answerAll(t, s, "B", "C", "B")
	first, _ := s.Submit()

	if _, err := s.Submit(); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected already submitted, got %v", err)
	}
	if err := s.SelectAnswer("A"); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected select rejected, got %v", err)
	}
	score, ok := s.Score()
	if !ok || score != first || first != 3 {
		t.Fatalf("expected score %d kept, got %d", first, score)
	}
}

func TestReviewModeNavigation(t *testing.T) {
	s := loadedSession(t)
	_, _ = s.Submit()
	if err := s.JumpTo(2); err != nil {
		t.Fatalf("jump after submit: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance after submit: %v", err)
	}
	review, err := s.Review()
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if len(review) != 3 || review[0].Answered || review[0].Correct {
		t.Fatalf("unexpected review %+v", review)
	}
}

func TestReviewBeforeSubmit(t *testing.T) {
	s := loadedSession(t)
	if _, err := s.Review(); !errors.Is(err, domain.ErrNotSubmitted) {
		t.Fatalf("expected not submitted, got %v", err)
	}
	if s.View().Review != nil {
		t.Fatalf("expected no review data before submit")
	}
}

func TestRestartReproducesScore(t *testing.T) {
	reshuffles := 0
	s := NewSession("s1", "bank", WithReshuffle(func(qs []domain.Question) []domain.Question {
		reshuffles++
		out := make([]domain.Question, len(qs))
		for i, q := range qs {
			q.Candidates = append([]string{}, q.Candidates...)
			q.Candidates[0], q.Candidates[len(q.Candidates)-1] = q.Candidates[len(q.Candidates)-1], q.Candidates[0]
			out[i] = q
		}
		return out
	}))
	if err := s.Load(threeQuestions()); err != nil {
		t.Fatalf("load: %v", err)
	}
	answerAll(t, s, "B", "A", "B")
	first, _ := s.Submit()

	if err := s.Restart(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	view := s.View()
	if view.Submitted || view.Score != nil || view.Progress != 0 || view.CurrentIndex != 0 {
		t.Fatalf("expected reset after restart: %+v", view)
	}
	if reshuffles != 1 || view.Current.Candidates[0] != "C" {
		t.Fatalf("expected reshuffled candidates, got %v", view.Current.Candidates)
	}

	answerAll(t, s, "B", "A", "B")
	second, _ := s.Submit()
	if first != second {
		t.Fatalf("expected same score %d, got %d", first, second)
	}
}

func TestLoadingAndFailedRejectActions(t *testing.T) {
	s := NewSession("s1", "bank")
	if err := s.SelectAnswer("A"); !errors.Is(err, domain.ErrSessionLoading) {
		t.Fatalf("expected loading, got %v", err)
	}
	if err := s.Advance(); !errors.Is(err, domain.ErrSessionLoading) {
		t.Fatalf("expected loading, got %v", err)
	}

	s.fail("Failed to fetch quiz data")
	view := s.View()
	if view.State != domain.StateFailed || view.Error != "Failed to fetch quiz data" {
		t.Fatalf("unexpected failed view %+v", view)
	}
	if _, err := s.Submit(); !errors.Is(err, domain.ErrSessionLoading) {
		t.Fatalf("expected loading error on failed session, got %v", err)
	}
}

func TestViewHidesCorrectAnswerUntilSubmit(t *testing.T) {
	s := loadedSession(t)
	view := s.View()
	if view.Current == nil || view.Current.Text != "q1" || len(view.Review) != 0 {
		t.Fatalf("unexpected view %+v", view)
	}
	_, _ = s.Submit()
	if got := s.View().Review; len(got) != 3 || got[1].CorrectAnswer != "C" {
		t.Fatalf("expected review with correct answers, got %+v", got)
	}
}

func TestSubscribersReceiveLatest(t *testing.T) {
	s := loadedSession(t)
	ch, cancel := s.subscribe()
	defer cancel()

	initial := <-ch
	if initial.State != domain.StateActive {
		t.Fatalf("expected active snapshot, got %s", initial.State)
	}

	for i := 0; i < 20; i++ {
		_ = s.SelectAnswer("A")
	}
	var last domain.SessionView
	timeout := time.After(time.Second)
	for drained := false; !drained; {
		select {
		case last = <-ch:
		case <-timeout:
			t.Fatalf("timed out")
		default:
			drained = true
		}
	}
	// 20 toggles of the same answer end with no selection
	if last.Selected != "" {
		t.Fatalf("expected latest view without selection, got %q", last.Selected)
	}
}
