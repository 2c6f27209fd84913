package quiz

import (
	"math/rand"
	"testing"

	"github.com/example/lingbot/pkg/models"
)

func card(id int64, de, ru string) models.VocabularyItem {
	return models.VocabularyItem{ID: id, WordDE: de, WordRU: ru}
}

func TestCheckTextAnswer(t *testing.T) {
	q := Question{Item: card(1, "der Hund", "собака"), QuizType: TextInput}

	cases := []struct {
		answer string
		want   bool
	}{
		{"собака", true},
		{"  Собака ", true},
		{"кошка", false},
		{"", false},
	}
	for _, c := range cases {
		if got := CheckTextAnswer(q, c.answer); got != c.want {
			t.Errorf("CheckTextAnswer(%q) = %v, want %v", c.answer, got, c.want)
		}
	}
}

func TestCheckTextAnswerCommaVariants(t *testing.T) {
	q := Question{Item: card(2, "laufen", "бежать, бегать"), QuizType: TextInput}
	if !CheckTextAnswer(q, "бегать") {
		t.Error("expected comma-separated variant to be accepted")
	}
	if CheckTextAnswer(q, "идти") {
		t.Error("expected wrong answer to be rejected")
	}
}

func TestBuildOptionsContainsCorrectAnswer(t *testing.T) {
	pool := []models.VocabularyItem{
		card(1, "der Hund", "собака"),
		card(2, "die Katze", "кошка"),
		card(3, "das Haus", "дом"),
		card(4, "der Baum", "дерево"),
		card(5, "das Auto", "машина"),
	}
	rnd := rand.New(rand.NewSource(42))

	options, correctIndex := buildOptions(rnd, pool[0], pool, 3)
	if len(options) != 4 {
		t.Fatalf("expected 4 options, got %d", len(options))
	}
	if options[correctIndex] != "собака" {
		t.Errorf("correct index points at %q, want %q", options[correctIndex], "собака")
	}
	seen := map[string]bool{}
	for _, o := range options {
		if seen[o] {
			t.Errorf("duplicate option %q", o)
		}
		seen[o] = true
	}
}

func TestBuildOptionsSmallPool(t *testing.T) {
	pool := []models.VocabularyItem{
		card(1, "der Hund", "собака"),
		card(2, "die Katze", "кошка"),
	}
	rnd := rand.New(rand.NewSource(7))

	options, correctIndex := buildOptions(rnd, pool[0], pool, 3)
	if len(options) != 2 {
		t.Fatalf("expected 2 options with a pool of 2, got %d", len(options))
	}
	if options[correctIndex] != "собака" {
		t.Errorf("correct index points at %q, want %q", options[correctIndex], "собака")
	}
}
