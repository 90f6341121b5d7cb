package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"ragapi/config"
	"ragapi/internal/domain"
	"ragapi/internal/port"
)

const anthropicVersion = "2023-06-01"

// AnthropicLLM calls the Anthropic messages API. Requests pass through
// a weighted semaphore capping in-flight calls, so a burst of slow
// generations cannot starve the rest of the process of connections.
type AnthropicLLM struct {
	apiKey  string
	model   string
	baseURL string
	sem     *semaphore.Weighted
	client  *http.Client
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// anthropicStreamEvent covers the event payloads the stream cares
// about; everything else is skipped by type.
type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewAnthropicLLM creates the adapter from configuration.
func NewAnthropicLLM(cfg config.LLMConfig) (*AnthropicLLM, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key not found in environment variable %s", domain.ErrConfig, cfg.APIKeyEnv)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	model := cfg.Model
	if model == "" {
		model = "claude-3-5-sonnet-latest"
	}
	maxConcurrent := int64(cfg.MaxConcurrent)
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}

	return &AnthropicLLM{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		sem:     semaphore.NewWeighted(maxConcurrent),
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

func (l *AnthropicLLM) Generate(ctx context.Context, messages []domain.ChatMessage, opts port.GenerateOptions) (*domain.GenerationResult, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	defer l.sem.Release(1)

	resp, err := l.send(ctx, messages, opts, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrGeneration, err)
	}

	var msgResp anthropicResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", domain.ErrGeneration, err)
	}
	if msgResp.Error != nil {
		return nil, fmt.Errorf("%w: anthropic: %s", domain.ErrGeneration, msgResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: anthropic: status %d: %s", domain.ErrGeneration, resp.StatusCode, string(body))
	}
	if len(msgResp.Content) == 0 {
		return nil, fmt.Errorf("%w: anthropic: no response content returned", domain.ErrGeneration)
	}

	var text strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	model := msgResp.Model
	if model == "" {
		model = l.model
	}

	return &domain.GenerationResult{
		Content: text.String(),
		Model:   model,
		Usage: domain.Usage{
			PromptTokens:     msgResp.Usage.InputTokens,
			CompletionTokens: msgResp.Usage.OutputTokens,
			TotalTokens:      msgResp.Usage.InputTokens + msgResp.Usage.OutputTokens,
		},
		FinishReason: normalizeAnthropicFinish(msgResp.StopReason),
	}, nil
}

func (l *AnthropicLLM) GenerateStream(ctx context.Context, messages []domain.ChatMessage, opts port.GenerateOptions) (port.Stream, error) {
	// The gate covers request initiation only; reading the stream is
	// driven by the caller and does not hold a slot.
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	resp, err := l.send(ctx, messages, opts, true)
	l.sem.Release(1)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%w: anthropic: status %d: %s", domain.ErrGeneration, resp.StatusCode, string(body))
	}

	return &anthropicStream{
		body:    resp.Body,
		scanner: bufio.NewScanner(resp.Body),
	}, nil
}

func (l *AnthropicLLM) ModelName() string {
	return l.model
}

func (l *AnthropicLLM) send(ctx context.Context, messages []domain.ChatMessage, opts port.GenerateOptions, stream bool) (*http.Response, error) {
	// The messages API takes the system prompt as a top-level field.
	var systemPrompt string
	var apiMessages []anthropicMessage
	for _, m := range messages {
		if m.Role == domain.RoleSystem {
			systemPrompt = m.Content
			continue
		}
		apiMessages = append(apiMessages, anthropicMessage{Role: m.Role, Content: m.Content})
	}

	reqBody := anthropicRequest{
		Model:       l.model,
		Messages:    apiMessages,
		MaxTokens:   opts.MaxTokens,
		System:      systemPrompt,
		Temperature: opts.Temperature,
		Stream:      stream,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", domain.ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/v1/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", domain.ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", l.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %v", domain.ErrGeneration, err)
	}
	return resp, nil
}

// anthropicStream reads the messages API event stream, yielding
// content_block_delta text until message_stop.
type anthropicStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func (s *anthropicStream) Recv() (string, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

		var event anthropicStreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return "", fmt.Errorf("%w: parse stream event: %v", domain.ErrGeneration, err)
		}

		switch event.Type {
		case "content_block_delta":
			if event.Delta.Type == "text_delta" && event.Delta.Text != "" {
				return event.Delta.Text, nil
			}
		case "message_stop":
			return "", io.EOF
		case "error":
			msg := "stream error"
			if event.Error != nil {
				msg = event.Error.Message
			}
			return "", fmt.Errorf("%w: anthropic: %s", domain.ErrGeneration, msg)
		}
	}

	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: stream transport: %v", domain.ErrGeneration, err)
	}
	return "", fmt.Errorf("%w: stream ended before completion signal", domain.ErrGeneration)
}

func (s *anthropicStream) Close() error {
	return s.body.Close()
}

func normalizeAnthropicFinish(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return domain.FinishStop
	case "max_tokens":
		return domain.FinishLength
	default:
		return domain.FinishUnknown
	}
}
