// Package openai adapts the OpenAI Responses API to the ADK model.LLM interface.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 20 * time.Second
	maxErrorBody   = 512
)

// Config for the Responses API.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// Timeout bounds one request. There is no retry.
	Timeout time.Duration
}

// ResponsesModel implements model.LLM over POST {BaseURL}/responses.
type ResponsesModel struct {
	config Config
	client *http.Client
}

var _ model.LLM = (*ResponsesModel)(nil)

func NewModel(cfg Config) *ResponsesModel {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &ResponsesModel{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (m *ResponsesModel) Name() string {
	return m.config.Model
}

// GenerateContent yields exactly one response; streaming is not supported.
func (m *ResponsesModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		resp, err := m.generate(ctx, req)
		yield(resp, err)
	}
}

type responsesRequest struct {
	Model        string `json:"model"`
	Input        string `json:"input"`
	Instructions string `json:"instructions,omitempty"`
}

type responsesResponse struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Text returns output_text, or the concatenated output_text parts when the
// convenience field is absent.
func (r responsesResponse) Text() string {
	if strings.TrimSpace(r.OutputText) != "" {
		return r.OutputText
	}
	var sb strings.Builder
	for _, item := range r.Output {
		for _, c := range item.Content {
			if c.Type == "output_text" {
				sb.WriteString(c.Text)
			}
		}
	}
	return sb.String()
}

func (m *ResponsesModel) generate(ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	body, err := json.Marshal(responsesRequest{
		Model:        m.config.Model,
		Input:        contentsText(req.Contents),
		Instructions: instructions(req),
	})
	if err != nil {
		return nil, fmt.Errorf("encode responses request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(m.config.BaseURL, "/")+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build responses request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("responses api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("responses api: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var result responsesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode responses body: %w", err)
	}
	if result.Error != nil && result.Error.Message != "" {
		return nil, fmt.Errorf("responses api: %s", result.Error.Message)
	}

	text := strings.TrimSpace(result.Text())
	parts := []*genai.Part{}
	if text != "" {
		parts = append(parts, genai.NewPartFromText(text))
	}

	return &model.LLMResponse{
		Content: &genai.Content{
			Role:  "model",
			Parts: parts,
		},
	}, nil
}

func instructions(req *model.LLMRequest) string {
	if req == nil || req.Config == nil || req.Config.SystemInstruction == nil {
		return ""
	}
	return partsText(req.Config.SystemInstruction.Parts)
}

// contentsText flattens the user turns into a single input string.
func contentsText(contents []*genai.Content) string {
	var sb strings.Builder
	for _, content := range contents {
		if content == nil || content.Role == "model" {
			continue
		}
		text := partsText(content.Parts)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}
	return sb.String()
}

func partsText(parts []*genai.Part) string {
	var sb strings.Builder
	for _, part := range parts {
		if part == nil || strings.TrimSpace(part.Text) == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}
