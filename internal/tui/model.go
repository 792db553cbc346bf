package tui

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"
)

// QuizService is the subset of app.QuizService the terminal client drives.
type QuizService interface {
	Start(ctx context.Context, bankID, userName string) (domain.SessionView, error)
	SelectAnswer(ctx context.Context, sessionID, answer string) (domain.SessionView, error)
	JumpTo(ctx context.Context, sessionID string, index int) (domain.SessionView, error)
	Advance(ctx context.Context, sessionID string) (domain.SessionView, error)
	Submit(ctx context.Context, sessionID string) (domain.SessionView, error)
	Restart(ctx context.Context, sessionID string) (domain.SessionView, error)
}

// Options configures the terminal client.
type Options struct {
	Bank              string
	ShowUserName      bool
	ProgressiveReveal bool
	RevealInterval    time.Duration
	NoColor           bool
}

type screen int

const (
	screenName screen = iota
	screenLoading
	screenQuiz
	screenConfirm
	screenResults
	screenError
)

// Model is the Bubble Tea model for one quiz attempt.
type Model struct {
	ctx     context.Context
	service QuizService
	opts    Options

	screen   screen
	view     domain.SessionView
	userName string
	cursor   int
	revealed int
	notice   string

	nameInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
}

// NewModel builds the model. With ShowUserName the name-entry step comes first.
func NewModel(ctx context.Context, service QuizService, opts Options) Model {
	if opts.RevealInterval <= 0 {
		opts.RevealInterval = 400 * time.Millisecond
	}
	input := textinput.New()
	input.Placeholder = "Your name"
	input.CharLimit = 40
	input.Focus()

	m := Model{
		ctx:       ctx,
		service:   service,
		opts:      opts,
		screen:    screenLoading,
		nameInput: input,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		progress:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
	if opts.ShowUserName {
		m.screen = screenName
	}
	return m
}

type sessionMsg struct {
	view domain.SessionView
	err  error
}

type revealMsg struct{}

// Init starts the name prompt or the first fetch.
func (m Model) Init() tea.Cmd {
	if m.screen == screenName {
		return textinput.Blink
	}
	return tea.Batch(m.spinner.Tick, m.startCmd())
}

// Update routes key presses per screen and applies service results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if typed.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m.handleKey(typed)
	case sessionMsg:
		return m.applySession(typed)
	case revealMsg:
		if m.revealed < len(m.view.Review) {
			m.revealed++
		}
		if m.revealed < len(m.view.Review) {
			return m, m.revealCmd()
		}
		return m, nil
	case spinner.TickMsg:
		if m.screen != screenLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	case tea.WindowSizeMsg:
		width := typed.Width - 10
		if width > 60 {
			width = 60
		}
		if width > 10 {
			m.progress.Width = width
		}
		return m, nil
	}

	if m.screen == screenName {
		var cmd tea.Cmd
		m.nameInput, cmd = m.nameInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.screen {
	case screenName:
		switch key.Type {
		case tea.KeyEnter:
			m.userName = strings.TrimSpace(m.nameInput.Value())
			m.screen = screenLoading
			return m, tea.Batch(m.spinner.Tick, m.startCmd())
		case tea.KeyEsc:
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.nameInput, cmd = m.nameInput.Update(key)
		return m, cmd
	case screenQuiz:
		return m.handleQuizKey(key)
	case screenConfirm:
		switch key.String() {
		case "y", "Y", "enter":
			m.screen = screenQuiz
			return m, m.call(m.service.Submit)
		case "n", "N", "esc":
			m.screen = screenQuiz
		}
		return m, nil
	case screenResults:
		switch key.String() {
		case "r":
			return m, m.call(m.service.Restart)
		case "up", "k", "left":
			return m, m.jump(m.view.CurrentIndex - 1)
		case "down", "j", "right":
			return m, m.call(m.service.Advance)
		case "q", "esc":
			return m, tea.Quit
		}
	case screenError:
		switch key.String() {
		case "r":
			m.screen = screenLoading
			m.notice = ""
			return m, tea.Batch(m.spinner.Tick, m.startCmd())
		case "q", "esc":
			return m, tea.Quit
		}
	case screenLoading:
		if key.String() == "q" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) handleQuizKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	candidates := m.candidates()
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(candidates)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(candidates) == 0 {
			return m, nil
		}
		answer := candidates[m.cursor]
		return m, m.call(func(ctx context.Context, id string) (domain.SessionView, error) {
			return m.service.SelectAnswer(ctx, id, answer)
		})
	case "right", "n":
		if !m.view.CanAdvance {
			m.notice = "Answer this question first"
			return m, nil
		}
		return m, m.call(m.service.Advance)
	case "left", "p":
		return m, m.jump(m.view.CurrentIndex - 1)
	case "s":
		m.screen = screenConfirm
		m.notice = ""
	case "q", "esc":
		return m, tea.Quit
	default:
		if n, err := strconv.Atoi(key.String()); err == nil && n >= 1 {
			return m, m.jump(n - 1)
		}
	}
	return m, nil
}

func (m Model) applySession(msg sessionMsg) (tea.Model, tea.Cmd) {
	prevIndex := m.view.CurrentIndex
	wasSubmitted := m.view.Submitted
	if msg.view.SessionID != "" {
		m.view = msg.view
	}

	if msg.err != nil && (app.IsLoadError(msg.err) || m.view.State == domain.StateFailed) {
		m.screen = screenError
		m.notice = app.LoadFailedMessage
		return m, nil
	}
	m.notice = ""
	if msg.err != nil {
		m.notice = msg.err.Error()
	}

	if m.view.CurrentIndex != prevIndex || !m.view.Submitted && wasSubmitted {
		m.cursor = cursorFor(m.view)
	}

	switch {
	case m.view.Submitted:
		m.screen = screenResults
		if !wasSubmitted {
			if m.opts.ProgressiveReveal {
				m.revealed = 0
				return m, m.revealCmd()
			}
			m.revealed = len(m.view.Review)
		}
	case m.view.State == domain.StateActive:
		m.screen = screenQuiz
	}
	return m, nil
}

func (m Model) startCmd() tea.Cmd {
	bank, name := m.opts.Bank, m.userName
	return func() tea.Msg {
		view, err := m.service.Start(m.ctx, bank, name)
		return sessionMsg{view: view, err: err}
	}
}

func (m Model) call(fn func(ctx context.Context, sessionID string) (domain.SessionView, error)) tea.Cmd {
	id := m.view.SessionID
	return func() tea.Msg {
		view, err := fn(m.ctx, id)
		return sessionMsg{view: view, err: err}
	}
}

func (m Model) jump(index int) tea.Cmd {
	if index < 0 || index >= m.view.Total {
		return nil
	}
	return m.call(func(ctx context.Context, id string) (domain.SessionView, error) {
		return m.service.JumpTo(ctx, id, index)
	})
}

func (m Model) revealCmd() tea.Cmd {
	return tea.Tick(m.opts.RevealInterval, func(time.Time) tea.Msg { return revealMsg{} })
}

func (m Model) candidates() []string {
	if m.view.Current == nil {
		return nil
	}
	return m.view.Current.Candidates
}

// cursorFor places the cursor on the current selection, if any.
func cursorFor(view domain.SessionView) int {
	if view.Current == nil {
		return 0
	}
	for i, c := range view.Current.Candidates {
		if c == view.Selected {
			return i
		}
	}
	return 0
}
