package domain

import "time"

// Question is the canonical multiple-choice question used by every session.
type Question struct {
	Text          string   `json:"question"`
	CorrectAnswer string   `json:"correct_answer"`
	Candidates    []string `json:"answers"`
	Category      string   `json:"category,omitempty"`
	Difficulty    string   `json:"difficulty,omitempty"`
}

// HasCandidate reports whether answer is one of the selectable options.
func (q Question) HasCandidate(answer string) bool {
	for _, c := range q.Candidates {
		if c == answer {
			return true
		}
	}
	return false
}

// State is the lifecycle phase of a quiz session.
type State string

const (
	StateLoading   State = "loading"
	StateActive    State = "active"
	StateSubmitted State = "submitted"
	StateFailed    State = "failed"
)

// QuestionView is what the presentation layer may show before submission.
type QuestionView struct {
	Index      int      `json:"index"`
	Text       string   `json:"question"`
	Candidates []string `json:"answers"`
	Category   string   `json:"category,omitempty"`
}

// ReviewItem is one row of the results screen.
type ReviewItem struct {
	Index         int    `json:"index"`
	Text          string `json:"question"`
	Selected      string `json:"selected,omitempty"`
	Answered      bool   `json:"answered"`
	CorrectAnswer string `json:"correct_answer"`
	Correct       bool   `json:"correct"`
}

// SessionView is a read-only snapshot of a session for rendering.
type SessionView struct {
	SessionID    string        `json:"sessionId"`
	Bank         string        `json:"bank"`
	UserName     string        `json:"userName,omitempty"`
	State        State         `json:"state"`
	CurrentIndex int           `json:"currentIndex"`
	Total        int           `json:"total"`
	Current      *QuestionView `json:"current,omitempty"`
	Selected     string        `json:"selected,omitempty"`
	Answered     []bool        `json:"answered"`
	Progress     int           `json:"progress"`
	CanAdvance   bool          `json:"canAdvance"`
	Submitted    bool          `json:"submitted"`
	Score        *int          `json:"score,omitempty"`
	Review       []ReviewItem  `json:"review,omitempty"`
	Error        string        `json:"error,omitempty"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}
