package chatgpt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"autotime/notes"
)

const defaultBaseURL = "https://api.openai.com/v1"

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config carries the chat-completion credentials and transport.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient httpDoer
	Logger     *slog.Logger
}

// Formatter rewrites a composed activity note into short plain-text prose.
// Every failure path returns the original note (truncated), never an error:
// note refinement must not fail a booking.
type Formatter struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient httpDoer
	logger     *slog.Logger
}

func NewFormatter(cfg Config) *Formatter {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	doer := cfg.HTTPClient
	if doer == nil {
		doer = &http.Client{Timeout: 60 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Formatter{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      cfg.Model,
		baseURL:    baseURL,
		httpClient: doer,
		logger:     logger,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const systemPrompt = "You format commits and llm prompts into generic work notes."

func userPrompt(note, projectName string) string {
	return strings.Join([]string{
		"Project: " + projectName,
		"",
		"Reformat the following llm calls and git commits. Keep it very short and generic. Just keep the message.",
		"Rules:",
		"- Keep all factual details.",
		"- Improve readability and wording only.",
		"- Don't leave commit diffs, make it generic",
		"- No need to show lines changed, just a message",
		"- No markdown just plain text.",
		"- Message only about what has been done.",
		"- No bullet points just sentences.",
		"- No titles or project id's.",
		"- No small changes like linting or merging, just features and fixes.",
		"",
		note,
	}, "\n")
}

// FormatNote sends the note through the chat endpoint and returns the
// rewritten text, or the truncated original when the call fails or returns
// nothing usable.
func (f *Formatter) FormatNote(ctx context.Context, note, projectName string) string {
	raw := strings.TrimSpace(note)
	if raw == "" {
		return ""
	}

	formatted, err := f.complete(ctx, raw, projectName)
	if err != nil {
		f.logger.Warn("note formatting failed, keeping raw note", "error", err)
		return notes.Truncate(raw)
	}
	if formatted == "" {
		return notes.Truncate(raw)
	}
	return notes.Truncate(formatted)
}

func (f *Formatter) complete(ctx context.Context, note, projectName string) (string, error) {
	reqBody := chatRequest{
		Model:       f.model,
		Temperature: 0.2,
		MaxTokens:   500,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(note, projectName)},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.apiKey)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return extractContent(parsed.Choices[0].Message.Content), nil
}

// extractContent handles both plain-string content and typed block lists.
func extractContent(content json.RawMessage) string {
	if len(content) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(content, &asString); err == nil {
		return strings.TrimSpace(asString)
	}

	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(content, &blocks); err != nil {
		return ""
	}

	parts := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
