package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trivia-quiz/internal/domain"
)

func TestFetchPrintsSampleBank(t *testing.T) {
	t.Setenv("POSTGRES_URL", "")
	t.Setenv("REDIS_ADDR", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	// no upstream banks reachable: sample banks are served by the fallback loader
	body := "source:\n  default_bank: sample-linux\n  banks:\n    - id: offline\n      url: http://127.0.0.1:1/\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"fetch", "--config", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	var questions []domain.Question
	if err := json.Unmarshal(out.Bytes(), &questions); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if len(questions) != 3 {
		t.Fatalf("expected 3 sample questions, got %d", len(questions))
	}
	for _, q := range questions {
		if !q.HasCandidate(q.CorrectAnswer) {
			t.Fatalf("correct answer missing from candidates: %+v", q)
		}
	}
}

func TestFetchSaveNeedsPostgres(t *testing.T) {
	t.Setenv("POSTGRES_URL", "")
	t.Setenv("REDIS_ADDR", "")
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"fetch", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "--bank", "sample-general", "--save"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "postgres.url") {
		t.Fatalf("expected postgres error, got %v", err)
	}
}

func TestPlayRequiresTerminal(t *testing.T) {
	orig := isTerminal
	isTerminal = func(*os.File) bool { return false }
	defer func() { isTerminal = orig }()

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"play"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "interactive terminal") {
		t.Fatalf("expected terminal error, got %v", err)
	}
}
