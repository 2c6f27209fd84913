package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
)

// Gemini represents a client for the Google Gemini API
type Gemini struct {
	apiKey string
	apiURL string
	client *http.Client
}

// New creates a new Gemini client
func New() (*Gemini, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is not set")
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-1.5-flash"
	}

	return &Gemini{
		apiKey: apiKey,
		apiURL: "https://generativelanguage.googleapis.com/v1beta/models/" + model + ":generateContent",
		client: &http.Client{},
	}, nil
}

// Part is a piece of content in a Gemini message
type Part struct {
	Text string `json:"text"`
}

// Content represents a message in the Gemini conversation
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// GenerationConfig tunes the Gemini response
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// GenerateRequest represents a request to the Gemini API
type GenerateRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// GenerateResponse represents a response from the Gemini API
type GenerateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []Part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// generate sends one request and returns the first candidate's text
func (g *Gemini) generate(system string, prompt string, temperature float64, maxTokens int) (string, error) {
	request := GenerateRequest{
		Contents: []Content{
			{Role: "user", Parts: []Part{{Text: prompt}}},
		},
		GenerationConfig: &GenerationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		},
	}
	if system != "" {
		request.SystemInstruction = &Content{Parts: []Part{{Text: system}}}
	}

	requestData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequest("POST", g.apiURL, bytes.NewBuffer(requestData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	var response GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %v", err)
	}

	if response.Error != nil {
		return "", fmt.Errorf("API error: %s", response.Error.Message)
	}
	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response candidates returned")
	}

	return strings.TrimSpace(response.Candidates[0].Content.Parts[0].Text), nil
}

// ChatReply answers a learner's free-form German message as a patient tutor.
func (g *Gemini) ChatReply(userMessage string, level string) (string, error) {
	system := fmt.Sprintf(
		"Ты — дружелюбный преподаватель немецкого языка. Ученик уровня %s пишет тебе на немецком. "+
			"Отвечай на немецком простыми фразами, мягко исправляй ошибки и добавляй короткое пояснение на русском.",
		level,
	)
	return g.generate(system, userMessage, 0.9, 400)
}

// Translate translates a German word or phrase into Russian.
func (g *Gemini) Translate(text string) (string, error) {
	prompt := fmt.Sprintf(
		"Переведи с немецкого на русский:\n\n%s\n\nВерни только перевод, без пояснений.",
		text,
	)
	return g.generate("", prompt, 0.3, 100)
}

// TranslateWithFallback translates a word and falls back to the original text
// when the API is unavailable.
func (g *Gemini) TranslateWithFallback(text string) string {
	translation, err := g.Translate(text)
	if err != nil {
		log.Printf("Error translating %q: %v", text, err)
		return text
	}
	return translation
}

// GenerateChallenge produces a daily challenge text for the given parameters.
func (g *Gemini) GenerateChallenge(level, topic, format string) (string, error) {
	prompt := fmt.Sprintf(
		"Сгенерируй ежедневный челлендж для изучения немецкого языка.\n\n"+
			"Уровень: %s\nТема: %s\nФормат: %s\n\n"+
			"Дай чёткую инструкцию на русском (что сделать на немецком), пример для старта "+
			"и минимальные требования (количество предложений). Без лишних пояснений.",
		level, topic, format,
	)
	system := "Ты — помощник для изучения немецкого языка. Твоя задача — придумывать интересные и практичные задания."
	return g.generate(system, prompt, 0.8, 300)
}

// GrammarExercise is one generated multiple-choice grammar task.
type GrammarExercise struct {
	Question string `json:"question"`
	OptionA  string `json:"option_a"`
	OptionB  string `json:"option_b"`
	OptionC  string `json:"option_c"`
	Correct  string `json:"correct"` // "A", "B" or "C"
	Rule     string `json:"rule"`
	FollowUp string `json:"follow_up"`
}

// GenerateGrammarExercise builds a quick multiple-choice grammar task from a
// phrase of the ongoing conversation.
func (g *Gemini) GenerateGrammarExercise(level, topicPrompt, contextPhrase string) (*GrammarExercise, error) {
	prompt := fmt.Sprintf(
		"Ты создаёшь грамматическое упражнение для изучающего немецкий (уровень %s).\n\n"+
			"КОНТЕКСТ РАЗГОВОРА:\n%q\n\n"+
			"Создай БЫСТРОЕ упражнение на тему: %s.\n"+
			"Три варианта ответа, ровно один правильный.\n\n"+
			"Ответь СТРОГО в формате JSON без пояснений:\n"+
			`{"question": "...", "option_a": "...", "option_b": "...", "option_c": "...", `+
			`"correct": "A|B|C", "rule": "короткое правило на русском", "follow_up": "фраза, возвращающая к разговору"}`,
		level, contextPhrase, topicPrompt,
	)
	system := "Ты — преподаватель немецкого языка. Отвечай только валидным JSON."

	out, err := g.generate(system, prompt, 0.5, 400)
	if err != nil {
		return nil, err
	}
	return ParseGrammarExercise(out)
}

// ParseGrammarExercise decodes a model reply into an exercise, tolerating the
// code fences Gemini likes to wrap JSON in.
func ParseGrammarExercise(out string) (*GrammarExercise, error) {
	out = strings.TrimSpace(out)
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	out = strings.TrimSpace(out)

	var ex GrammarExercise
	if err := json.Unmarshal([]byte(out), &ex); err != nil {
		return nil, fmt.Errorf("failed to parse exercise: %v", err)
	}
	ex.Correct = strings.ToUpper(strings.TrimSpace(ex.Correct))
	if ex.Question == "" || ex.OptionA == "" || ex.OptionB == "" || ex.OptionC == "" {
		return nil, fmt.Errorf("exercise is missing required fields")
	}
	if ex.Correct != "A" && ex.Correct != "B" && ex.Correct != "C" {
		return nil, fmt.Errorf("invalid correct answer %q", ex.Correct)
	}
	return &ex, nil
}

// EvaluateResponse scores a challenge answer from 0 to 10 and returns short
// feedback. The score is parsed from the first line of the model output.
func (g *Gemini) EvaluateResponse(challengeText, answer string) (int, string, error) {
	prompt := fmt.Sprintf(
		"Задание:\n%s\n\nОтвет ученика:\n%s\n\n"+
			"Оцени ответ по шкале от 0 до 10. Первая строка ответа — только число. "+
			"Затем 2-3 предложения обратной связи на русском: что хорошо, какие ошибки.",
		challengeText, answer,
	)
	system := "Ты — преподаватель немецкого языка, оценивающий выполнение заданий."

	out, err := g.generate(system, prompt, 0.3, 300)
	if err != nil {
		return 0, "", err
	}

	lines := strings.SplitN(out, "\n", 2)
	score, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return 0, "", fmt.Errorf("failed to parse score from %q: %v", lines[0], err)
	}
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}

	feedback := ""
	if len(lines) > 1 {
		feedback = strings.TrimSpace(lines[1])
	}
	return score, feedback, nil
}
