package normalizer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"trivia-quiz/internal/domain"
)

// envelope is the OpenTDB response wrapper around the question list.
type envelope struct {
	ResponseCode *int            `json:"response_code"`
	Results      json.RawMessage `json:"results"`
}

// Decode parses an upstream payload into raw questions. The payload may be a bare
// JSON array or an OpenTDB envelope. With domain.ShapeAuto (or an empty hint) the
// shape is detected per record.
func Decode(data []byte, hint domain.Shape) ([]domain.RawQuestion, error) {
	body := bytes.TrimSpace(data)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", domain.ErrMalformedPayload)
	}

	if body[0] == '{' {
		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
		}
		if env.ResponseCode != nil && *env.ResponseCode != 0 {
			return nil, fmt.Errorf("%w: response_code %d", domain.ErrUpstream, *env.ResponseCode)
		}
		if len(env.Results) == 0 {
			return nil, fmt.Errorf("%w: missing results", domain.ErrMalformedPayload)
		}
		body = bytes.TrimSpace(env.Results)
	}

	if len(body) == 0 || body[0] != '[' {
		return nil, fmt.Errorf("%w: payload is not a sequence", domain.ErrMalformedPayload)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}

	out := make([]domain.RawQuestion, 0, len(items))
	for i, item := range items {
		rq, err := decodeRecord(item, hint)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		out = append(out, rq)
	}
	return out, nil
}

func decodeRecord(item json.RawMessage, hint domain.Shape) (domain.RawQuestion, error) {
	shape := hint
	if shape == "" || shape == domain.ShapeAuto {
		detected, err := detectShape(item)
		if err != nil {
			return domain.RawQuestion{}, err
		}
		shape = detected
	}

	switch shape {
	case domain.ShapeFlat:
		var q domain.FlatQuestion
		if err := json.Unmarshal(item, &q); err != nil {
			return domain.RawQuestion{}, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
		}
		return domain.RawQuestion{Shape: domain.ShapeFlat, Flat: &q}, nil
	case domain.ShapeKeyed:
		var q domain.KeyedQuestion
		if err := json.Unmarshal(item, &q); err != nil {
			return domain.RawQuestion{}, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
		}
		return domain.RawQuestion{Shape: domain.ShapeKeyed, Keyed: &q}, nil
	default:
		return domain.RawQuestion{}, fmt.Errorf("%w: unknown shape %q", domain.ErrMalformedPayload, shape)
	}
}

func detectShape(item json.RawMessage) (domain.Shape, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(item, &probe); err != nil {
		return "", fmt.Errorf("%w: record is not an object", domain.ErrMalformedPayload)
	}
	if _, ok := probe["answers"]; ok {
		if _, ok := probe["correct_answers"]; ok {
			return domain.ShapeKeyed, nil
		}
	}
	if _, ok := probe["correct_answer"]; ok {
		return domain.ShapeFlat, nil
	}
	if _, ok := probe["incorrect_answers"]; ok {
		return domain.ShapeFlat, nil
	}
	return "", fmt.Errorf("%w: unrecognized question shape", domain.ErrMalformedPayload)
}
