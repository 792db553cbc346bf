package domain

import "errors"

var (
	// ErrMalformedPayload is returned when raw question data matches neither supported shape.
	ErrMalformedPayload = errors.New("malformed question payload")
	// ErrNoCorrectAnswer marks a keyed question without any answer flagged "true".
	// Normalization does not fail on it; the question keeps an empty correct answer.
	ErrNoCorrectAnswer = errors.New("no correct answer found")
	// ErrEmptyQuestionSet is returned when a session is loaded with zero questions.
	ErrEmptyQuestionSet = errors.New("empty question set")
	// ErrIndexOutOfRange is returned when navigating outside the question list.
	ErrIndexOutOfRange = errors.New("question index out of range")
	// ErrAlreadySubmitted guards against double submit and post-submit mutation.
	ErrAlreadySubmitted = errors.New("quiz already submitted")
	// ErrNotSubmitted is returned when results are requested before the quiz is submitted.
	ErrNotSubmitted = errors.New("quiz not submitted yet")
	// ErrSessionNotFound is returned when a quiz session has not been initialized.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionLoading is returned while the question fetch for a session is pending or failed.
	ErrSessionLoading = errors.New("quiz session is not ready")
	// ErrBankNotFound indicates the requested question bank is not configured.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrUpstream indicates the upstream trivia source failed or rejected the request.
	ErrUpstream = errors.New("upstream question source failed")
)
