package normalizer

import (
	"fmt"
	"html"
	"math/rand"
	"sort"
	"sync"
	"time"

	"trivia-quiz/internal/domain"
)

const keyedCorrectSuffix = "_correct"

// Normalizer turns raw upstream questions into canonical questions with shuffled candidates.
// It is safe for concurrent use.
type Normalizer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a Normalizer using rnd for candidate permutations.
// A nil rnd is replaced with a time-seeded source.
func New(rnd *rand.Rand) *Normalizer {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Normalizer{rnd: rnd}
}

// NormalizePayload decodes and normalizes an upstream payload in one step.
func (n *Normalizer) NormalizePayload(data []byte, hint domain.Shape) ([]domain.Question, error) {
	raw, err := Decode(data, hint)
	if err != nil {
		return nil, err
	}
	return n.Normalize(raw)
}

// Normalize converts raw questions into canonical ones. Order is preserved.
func (n *Normalizer) Normalize(raw []domain.RawQuestion) ([]domain.Question, error) {
	out := make([]domain.Question, 0, len(raw))
	for i, rq := range raw {
		var (
			q   domain.Question
			err error
		)
		switch {
		case rq.Shape == domain.ShapeFlat && rq.Flat != nil:
			q, err = n.normalizeFlat(rq.Flat)
		case rq.Shape == domain.ShapeKeyed && rq.Keyed != nil:
			q, err = n.normalizeKeyed(rq.Keyed)
		default:
			err = fmt.Errorf("%w: record does not match shape %q", domain.ErrMalformedPayload, rq.Shape)
		}
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		out = append(out, q)
	}
	return out, nil
}

// Reshuffle returns copies of questions with freshly permuted candidates.
func (n *Normalizer) Reshuffle(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	for i, q := range questions {
		candidates := make([]string, len(q.Candidates))
		copy(candidates, q.Candidates)
		n.shuffle(candidates)
		q.Candidates = candidates
		out[i] = q
	}
	return out
}

func (n *Normalizer) normalizeFlat(q *domain.FlatQuestion) (domain.Question, error) {
	if q.CorrectAnswer == nil {
		return domain.Question{}, fmt.Errorf("%w: missing correct_answer", domain.ErrMalformedPayload)
	}
	if q.IncorrectAnswers == nil {
		return domain.Question{}, fmt.Errorf("%w: missing incorrect_answers", domain.ErrMalformedPayload)
	}

	correct := html.UnescapeString(*q.CorrectAnswer)
	candidates := make([]string, 0, len(q.IncorrectAnswers)+1)
	for _, answer := range q.IncorrectAnswers {
		candidates = append(candidates, html.UnescapeString(answer))
	}
	candidates = append(candidates, correct)
	if len(candidates) < 2 {
		return domain.Question{}, fmt.Errorf("%w: fewer than two answers", domain.ErrMalformedPayload)
	}
	n.shuffle(candidates)

	return domain.Question{
		Text:          html.UnescapeString(q.Question),
		CorrectAnswer: correct,
		Candidates:    candidates,
		Category:      html.UnescapeString(q.Category),
		Difficulty:    q.Difficulty,
	}, nil
}

// normalizeKeyed resolves the slot flagged "true". When several slots are flagged the
// first in key order wins; when none is, the correct answer is left empty.
func (n *Normalizer) normalizeKeyed(q *domain.KeyedQuestion) (domain.Question, error) {
	if q.Answers == nil {
		return domain.Question{}, fmt.Errorf("%w: missing answers", domain.ErrMalformedPayload)
	}

	keys := make([]string, 0, len(q.Answers))
	for key := range q.Answers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var (
		correct    string
		found      bool
		candidates = make([]string, 0, len(keys))
	)
	for _, key := range keys {
		text := q.Answers[key]
		if text == nil {
			continue
		}
		candidates = append(candidates, *text)
		if !found && q.CorrectAnswers[key+keyedCorrectSuffix] == "true" {
			correct = *text
			found = true
		}
	}
	if len(candidates) < 2 {
		return domain.Question{}, fmt.Errorf("%w: fewer than two answers", domain.ErrMalformedPayload)
	}
	n.shuffle(candidates)

	return domain.Question{
		Text:          q.Question,
		CorrectAnswer: correct,
		Candidates:    candidates,
		Category:      q.Category,
		Difficulty:    q.Difficulty,
	}, nil
}

func (n *Normalizer) shuffle(values []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rnd.Shuffle(len(values), func(i, j int) {
		values[i], values[j] = values[j], values[i]
	})
}

// Unwinnable returns the indices of questions whose correct answer is not a candidate.
func Unwinnable(questions []domain.Question) []int {
	var out []int
	for i, q := range questions {
		if q.CorrectAnswer == "" || !q.HasCandidate(q.CorrectAnswer) {
			out = append(out, i)
		}
	}
	return out
}
