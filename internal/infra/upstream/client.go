package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"trivia-quiz/internal/config"
	"trivia-quiz/internal/domain"
)

// maxPayloadBytes caps how much of an upstream response is read.
const maxPayloadBytes = 4 << 20

// Client fetches raw question banks from the configured trivia APIs.
type Client struct {
	banks  map[string]config.BankConfig
	client *http.Client
}

// NewClient builds a loader over banks. A zero timeout leaves deadlines to the caller's context.
func NewClient(banks []config.BankConfig, timeout time.Duration) *Client {
	byID := make(map[string]config.BankConfig, len(banks))
	for _, bank := range banks {
		byID[bank.ID] = bank
	}
	return &Client{
		banks:  byID,
		client: &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient swaps the underlying http.Client.
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	c.client = client
	return c
}

// LoadBank issues a GET against the bank URL and returns the body untouched.
func (c *Client) LoadBank(ctx context.Context, bankID string) (domain.RawBank, error) {
	bank, ok := c.banks[bankID]
	if !ok {
		return domain.RawBank{}, fmt.Errorf("bank %s: %w", bankID, domain.ErrBankNotFound)
	}

	endpoint, err := bankURL(bank)
	if err != nil {
		return domain.RawBank{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.RawBank{}, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return domain.RawBank{}, fmt.Errorf("%w: %s: %v", domain.ErrUpstream, bankID, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxPayloadBytes))
	if err != nil {
		return domain.RawBank{}, fmt.Errorf("%w: read %s: %v", domain.ErrUpstream, bankID, err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return domain.RawBank{}, fmt.Errorf("%w: %s returned %d: %s", domain.ErrUpstream, bankID, res.StatusCode, snippet(body))
	}

	return domain.RawBank{ID: bank.ID, Shape: domain.Shape(bank.Shape), Payload: body}, nil
}

func bankURL(bank config.BankConfig) (string, error) {
	u, err := url.Parse(bank.URL)
	if err != nil {
		return "", fmt.Errorf("bank %s url: %w", bank.ID, err)
	}
	q := u.Query()
	keys := make([]string, 0, len(bank.Params))
	for k := range bank.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		q.Set(k, bank.Params[k])
	}
	if bank.APIKey != "" {
		q.Set("apiKey", bank.APIKey)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}
