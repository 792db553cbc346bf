package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"trivia-quiz/internal/domain"
)

var (
	colorTitle   = lipgloss.Color("63")
	colorMuted   = lipgloss.Color("242")
	colorCursor  = lipgloss.Color("212")
	colorCorrect = lipgloss.Color("42")
	colorWrong   = lipgloss.Color("196")
	colorWarn    = lipgloss.Color("214")
)

// View renders the active screen.
func (m Model) View() string {
	switch m.screen {
	case screenName:
		return lipgloss.JoinVertical(lipgloss.Left,
			m.title("Trivia Quiz"),
			"What should we call you?",
			m.nameInput.View(),
			m.muted("enter to start • esc to quit"),
		)
	case screenLoading:
		return m.spinner.View() + " Loading questions..."
	case screenError:
		return lipgloss.JoinVertical(lipgloss.Left,
			stylize(m.notice, m.opts.NoColor, colorWrong),
			m.muted("r to retry • q to quit"),
		)
	case screenResults:
		return m.renderResults()
	case screenConfirm:
		return lipgloss.JoinVertical(lipgloss.Left,
			m.renderQuiz(),
			"",
			stylize(fmt.Sprintf("Submit your answers? %d of %d answered. (y/n)", answeredCount(m.view), m.view.Total), m.opts.NoColor, colorWarn),
		)
	default:
		return m.renderQuiz()
	}
}

func (m Model) renderQuiz() string {
	view := m.view
	if view.Current == nil {
		return ""
	}
	lines := []string{
		m.title(fmt.Sprintf("Question %d of %d", view.CurrentIndex+1, view.Total)),
		renderQuestionList(view, m.opts.NoColor),
		m.renderProgress(),
		"",
		view.Current.Text,
	}
	if view.Current.Category != "" {
		lines = append(lines, m.muted(view.Current.Category))
	}
	lines = append(lines, "")
	for i, candidate := range view.Current.Candidates {
		marker := "( )"
		if candidate == view.Selected {
			marker = "(x)"
		}
		line := marker + " " + candidate
		if i == m.cursor {
			line = stylize("> "+line, m.opts.NoColor, colorCursor)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	lines = append(lines, "")
	if m.notice != "" {
		lines = append(lines, stylize(m.notice, m.opts.NoColor, colorWarn))
	}
	lines = append(lines, m.muted(m.quizHelp()))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) quizHelp() string {
	next := "n next"
	if !m.view.CanAdvance {
		next = "n next (answer first)"
	}
	if m.view.CurrentIndex == m.view.Total-1 {
		next = "s submit"
	}
	return "↑/↓ move • enter select • " + next + " • p back • 1-9 jump • s submit • q quit"
}

func (m Model) renderResults() string {
	view := m.view
	score := 0
	if view.Score != nil {
		score = *view.Score
	}
	header := "Your score: " + fmt.Sprintf("%d out of %d", score, view.Total)
	if view.UserName != "" {
		header = view.UserName + ", " + strings.ToLower(header[:1]) + header[1:]
	}
	lines := []string{m.title("Results"), header, ""}
	for i := 0; i < m.revealed && i < len(view.Review); i++ {
		lines = append(lines, renderReviewCard(view.Review[i], i == view.CurrentIndex, m.opts.NoColor), "")
	}
	lines = append(lines, m.muted("↑/↓ review • r restart • q quit"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderReviewCard(item domain.ReviewItem, focused bool, noColor bool) string {
	answer := item.Selected
	if !item.Answered {
		answer = "No answer selected"
	}
	color := colorWrong
	if item.Correct {
		color = colorCorrect
	}
	prefix := "  "
	if focused {
		prefix = "> "
	}
	return strings.Join([]string{
		prefix + fmt.Sprintf("%d. %s", item.Index+1, item.Text),
		"   Your answer: " + stylize(answer, noColor, color),
		"   Correct answer: " + item.CorrectAnswer,
	}, "\n")
}

// renderQuestionList shows one marker per question: current, answered or open.
func renderQuestionList(view domain.SessionView, noColor bool) string {
	cells := make([]string, 0, len(view.Answered))
	for i, answered := range view.Answered {
		label := fmt.Sprintf("%d", i+1)
		switch {
		case i == view.CurrentIndex:
			cells = append(cells, stylize("["+label+"]", noColor, colorCursor))
		case answered:
			cells = append(cells, stylize(" "+label+"*", noColor, colorCorrect))
		default:
			cells = append(cells, " "+label+" ")
		}
	}
	return strings.Join(cells, "")
}

func (m Model) renderProgress() string {
	pct := float64(m.view.Progress) / 100
	if m.opts.NoColor {
		width := m.progress.Width
		filled := int(pct * float64(width))
		return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + fmt.Sprintf("] %d%%", m.view.Progress)
	}
	return m.progress.ViewAs(pct)
}

func (m Model) title(text string) string {
	if m.opts.NoColor {
		return text
	}
	return lipgloss.NewStyle().Bold(true).Foreground(colorTitle).Render(text)
}

func (m Model) muted(text string) string {
	return stylize(text, m.opts.NoColor, colorMuted)
}

func answeredCount(view domain.SessionView) int {
	n := 0
	for _, answered := range view.Answered {
		if answered {
			n++
		}
	}
	return n
}

// stylize applies optional color styling.
func stylize(text string, noColor bool, color lipgloss.Color) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}
