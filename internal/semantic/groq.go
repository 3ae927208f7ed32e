package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/raptor-ai/event-scout/internal/config"
	"github.com/raptor-ai/event-scout/internal/logger"
)

// GroqAssessor scores events through Groq's OpenAI-compatible chat API.
type GroqAssessor struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewGroq creates a Groq-backed assessor. An empty API key leaves the
// assessor unavailable; the scorer then degrades every event.
func NewGroq(cfg config.SemanticConfig, apiKey string) *GroqAssessor {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.groq.com/openai"
	}
	model := cfg.Model
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &GroqAssessor{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(base, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *GroqAssessor) Name() string {
	return fmt.Sprintf("groq/%s", g.model)
}

func (g *GroqAssessor) Available() bool {
	return g.apiKey != ""
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Assess sends one scoring prompt and parses the bare float the rubric asks
// the model to return.
func (g *GroqAssessor) Assess(ctx context.Context, title, description string) (float64, error) {
	if !g.Available() {
		return 0, fmt.Errorf("groq assessor not configured")
	}

	description = truncateRunes(description, 500)
	prompt := fmt.Sprintf("Event Title: %s\nEvent Description: %s", title, description)

	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: Rubric},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("assessment request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("assessment API status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return 0, fmt.Errorf("parsing response: %w", err)
	}
	if parsed.Error != nil {
		return 0, fmt.Errorf("assessment API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return 0, fmt.Errorf("assessment API returned no choices")
	}

	score, err := ParseScore(parsed.Choices[0].Message.Content)
	if err != nil {
		logger.Warn("could not parse assessment score", logger.Fields{
			"assessor": g.Name(),
			"content":  truncate(parsed.Choices[0].Message.Content, 80),
		})
		return 0, err
	}
	return score, nil
}

var scorePattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ParseScore extracts the numeric score from a model reply and clamps it to
// [0,1]. Models occasionally wrap the number in prose despite the rubric.
func ParseScore(content string) (float64, error) {
	content = strings.TrimSpace(content)
	if v, err := strconv.ParseFloat(content, 64); err == nil {
		return clamp(v), nil
	}
	if match := scorePattern.FindString(content); match != "" {
		if v, err := strconv.ParseFloat(match, 64); err == nil {
			return clamp(v), nil
		}
	}
	return 0, fmt.Errorf("no numeric score in %q", truncate(content, 80))
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// truncateRunes cuts on a rune boundary. Descriptions are frequently Japanese
// and a byte slice could split a multi-byte sequence.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
