package domain

import "encoding/json"

// Shape identifies which upstream payload layout a raw question uses.
type Shape string

const (
	// ShapeAuto lets the decoder detect the shape per record.
	ShapeAuto Shape = "auto"
	// ShapeFlat carries correct_answer + incorrect_answers (OpenTDB).
	ShapeFlat Shape = "flat"
	// ShapeKeyed carries answers/correct_answers slot maps (QuizAPI).
	ShapeKeyed Shape = "keyed"
)

// Valid reports whether s is a known shape.
func (s Shape) Valid() bool {
	switch s {
	case ShapeAuto, ShapeFlat, ShapeKeyed:
		return true
	}
	return false
}

// RawQuestion is a tagged union over the supported upstream shapes.
// Exactly one of Flat or Keyed is set, matching Shape.
type RawQuestion struct {
	Shape Shape
	Flat  *FlatQuestion
	Keyed *KeyedQuestion
}

// FlatQuestion is the Shape A record.
type FlatQuestion struct {
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Category         string   `json:"category"`
	Question         string   `json:"question"`
	CorrectAnswer    *string  `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

// KeyedQuestion is the Shape B record. Answers maps slot keys such as "answer_a"
// to text or null; CorrectAnswers maps "answer_a_correct" to "true" or "false".
type KeyedQuestion struct {
	ID                     int                `json:"id"`
	Question               string             `json:"question"`
	Answers                map[string]*string `json:"answers"`
	MultipleCorrectAnswers string             `json:"multiple_correct_answers"`
	CorrectAnswers         map[string]string  `json:"correct_answers"`
	Category               string             `json:"category"`
	Difficulty             string             `json:"difficulty"`
}

// RawBank is an undecoded question payload as fetched from a bank source.
type RawBank struct {
	ID      string          `json:"id"`
	Shape   Shape           `json:"shape"`
	Payload json.RawMessage `json:"payload"`
}
