package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"proacademics-service/internal/config"
	"proacademics-service/internal/models"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// ChatCompleter sends a conversation to a language model and returns its reply.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []models.ChatMessage) (string, error)
}

var ErrEmptyCompletion = errors.New("model returned no choices")

// LLMClient talks to an OpenAI compatible /chat/completions endpoint.
type LLMClient struct {
	client      *fasthttp.Client
	url         string
	apiKey      string
	model       string
	temperature float64
	timeout     time.Duration
}

// NewLLMClient returns nil when no API key is configured.
func NewLLMClient(cfg config.OpenAIConfig) *LLMClient {
	if cfg.APIKey == "" {
		return nil
	}
	return &LLMClient{
		client: &fasthttp.Client{
			Name:         "proacademics-service",
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
		},
		url:         strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string              `json:"model"`
	Messages    []completionMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message completionMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func buildRequest(req *fasthttp.Request, url, apiKey string, body []byte) {
	req.SetBody(body)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+apiKey)
	req.Header.SetContentType("application/json")
	req.SetRequestURI(url)
}

func (c *LLMClient) Complete(ctx context.Context, messages []models.ChatMessage) (string, error) {
	payload := completionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages:    make([]completionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		payload.Messages = append(payload.Messages, completionMessage{Role: string(m.Role), Content: m.Content})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	buildRequest(req, c.url, c.apiKey, body)

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}

	var out completionResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("failed to decode chat completion (status %d): %w", resp.StatusCode(), err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		msg := fmt.Sprintf("status %d", resp.StatusCode())
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", fmt.Errorf("chat completion rejected: %s", msg)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
