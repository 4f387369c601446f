package rewrite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	defaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel    = "gemini-1.5-flash"
	defaultOpenAIEndpoint = "https://api.openai.com/v1"
	defaultOpenAIModel    = "gpt-4o-mini"
)

// Generator sends a prompt to a text generation model and returns its raw text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorConfig selects and configures a model backend.
type GeneratorConfig struct {
	Provider    string
	Endpoint    string
	Model       string
	APIKey      string
	Timeout     time.Duration
	Temperature float64
}

// NewGenerator builds the backend named by cfg.Provider.
func NewGenerator(cfg GeneratorConfig) (Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("rewrite api key is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGemini:
		return newGeminiGenerator(cfg), nil
	case ProviderOpenAI:
		return newOpenAIGenerator(cfg), nil
	default:
		return nil, fmt.Errorf("rewrite provider %q is not supported", cfg.Provider)
	}
}

// geminiGenerator talks to the Gemini generateContent endpoint.
type geminiGenerator struct {
	client *resty.Client
	model  string
	cfg    GeneratorConfig
}

func newGeminiGenerator(cfg GeneratorConfig) *geminiGenerator {
	endpoint := strings.TrimRight(firstNonEmpty(cfg.Endpoint, defaultGeminiEndpoint), "/")
	return &geminiGenerator{
		client: resty.New().
			SetBaseURL(endpoint).
			SetTimeout(cfg.Timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("x-goog-api-key", cfg.APIKey),
		model: firstNonEmpty(cfg.Model, defaultGeminiModel),
		cfg:   cfg,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig map[string]any  `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var out geminiResponse
	req := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	}
	if g.cfg.Temperature > 0 {
		req.GenerationConfig = map[string]any{"temperature": g.cfg.Temperature}
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/models/" + g.model + ":generateContent")
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("gemini error %s: %s", resp.Status(), snippet(resp.Body()))
	}

	var sb strings.Builder
	if len(out.Candidates) > 0 {
		for _, p := range out.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", errors.New("gemini returned no text")
	}
	return sb.String(), nil
}

// openAIGenerator talks to any OpenAI compatible chat completions endpoint.
type openAIGenerator struct {
	client *resty.Client
	model  string
	cfg    GeneratorConfig
}

func newOpenAIGenerator(cfg GeneratorConfig) *openAIGenerator {
	endpoint := strings.TrimRight(firstNonEmpty(cfg.Endpoint, defaultOpenAIEndpoint), "/")
	return &openAIGenerator{
		client: resty.New().
			SetBaseURL(endpoint).
			SetTimeout(cfg.Timeout).
			SetAuthToken(cfg.APIKey).
			SetHeader("Content-Type", "application/json"),
		model: firstNonEmpty(cfg.Model, defaultOpenAIModel),
		cfg:   cfg,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (o *openAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model": o.model,
		"messages": []chatMessage{
			{Role: "system", Content: "You are a professional financial news editor. You answer with JSON only."},
			{Role: "user", Content: prompt},
		},
	}
	if o.cfg.Temperature > 0 {
		body["temperature"] = o.cfg.Temperature
	}

	var out chatResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("chat completion error %s: %s", resp.Status(), snippet(resp.Body()))
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", errors.New("chat completion returned no text")
	}
	return out.Choices[0].Message.Content, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 512 {
		return s[:512] + "..."
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
