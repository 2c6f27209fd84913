package ai

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func TestTranslateWithFallbackLogsAndReturnsOriginal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	g := &Gemini{apiKey: "test", apiURL: server.URL, client: server.Client()}

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	if got := g.TranslateWithFallback("das Haus"); got != "das Haus" {
		t.Errorf("fallback returned %q, want the original text", got)
	}
	if !strings.Contains(buf.String(), "Error translating") {
		t.Errorf("translation failure was not logged, log output: %q", buf.String())
	}
}

func TestParseGrammarExercise(t *testing.T) {
	out := `{"question": "Kino - welcher Artikel?", "option_a": "der Kino", "option_b": "die Kino", "option_c": "das Kino", "correct": "c", "rule": "Слова на -o обычно среднего рода", "follow_up": "Gehst du oft ins Kino?"}`

	ex, err := ParseGrammarExercise(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex.Correct != "C" {
		t.Errorf("expected normalized correct answer C, got %q", ex.Correct)
	}
	if ex.OptionC != "das Kino" {
		t.Errorf("unexpected option C: %q", ex.OptionC)
	}
}

func TestParseGrammarExerciseStripsCodeFence(t *testing.T) {
	out := "```json\n{\"question\": \"q\", \"option_a\": \"a\", \"option_b\": \"b\", \"option_c\": \"c\", \"correct\": \"A\", \"rule\": \"r\", \"follow_up\": \"f\"}\n```"

	ex, err := ParseGrammarExercise(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex.Question != "q" || ex.Correct != "A" {
		t.Errorf("unexpected exercise parsed: %+v", ex)
	}
}

func TestParseGrammarExerciseRejectsBadAnswer(t *testing.T) {
	out := `{"question": "q", "option_a": "a", "option_b": "b", "option_c": "c", "correct": "D"}`
	if _, err := ParseGrammarExercise(out); err == nil {
		t.Error("expected an error for an out-of-range correct answer")
	}
}

func TestParseGrammarExerciseRejectsMissingFields(t *testing.T) {
	out := `{"question": "q", "correct": "A"}`
	if _, err := ParseGrammarExercise(out); err == nil {
		t.Error("expected an error for missing options")
	}
}
