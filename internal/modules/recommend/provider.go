package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	appcfg "github.com/shelfscout/server/internal/config"
	jetai "go.jetify.com/ai"
	jetapi "go.jetify.com/ai/api"
	jetanthropic "go.jetify.com/ai/provider/anthropic"
	jetopenai "go.jetify.com/ai/provider/openai"
)

// ErrNotConfigured is returned when no enabled AI provider is configured.
var ErrNotConfigured = errors.New("no AI provider configured")

// Generator produces raw model text for a system prompt and user prompt.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, systemPrompt, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	return f(ctx, systemPrompt, prompt)
}

// NewGenerator builds the Generator for provider. A nil provider yields a
// generator that always fails with ErrNotConfigured.
func NewGenerator(provider *appcfg.AIProvider, maxOutputTokens int) (Generator, error) {
	if provider == nil {
		return GeneratorFunc(func(context.Context, string, string) (string, error) {
			return "", ErrNotConfigured
		}), nil
	}
	if strings.TrimSpace(provider.APIKey) == "" {
		return nil, fmt.Errorf("AI provider %q api key is empty", provider.ID)
	}
	if maxOutputTokens <= 0 {
		maxOutputTokens = 1200
	}

	if isOpenAICompatibleProviderType(provider.Type) {
		return &compatibleGenerator{
			endpoint:  normalizeOpenAICompatibleEndpoint(provider.Endpoint),
			apiKey:    strings.TrimSpace(provider.APIKey),
			model:     modelOrDefault(provider.DefaultModel, "gpt-4o-mini"),
			maxTokens: maxOutputTokens,
			client:    &http.Client{Timeout: 60 * time.Second},
		}, nil
	}

	model, err := buildLanguageModel(provider)
	if err != nil {
		return nil, err
	}
	return &sdkGenerator{model: model, maxTokens: maxOutputTokens}, nil
}

func isOpenAICompatibleProviderType(raw string) bool {
	t := normalizeProviderType(raw)
	return t == "openai-compatible" || t == "openaicompatible"
}

func normalizeProviderType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, "_", "-")
	t = strings.ReplaceAll(t, " ", "")
	return t
}

func modelOrDefault(model, fallback string) string {
	if m := strings.TrimSpace(model); m != "" {
		return m
	}
	return fallback
}

// sdkGenerator drives OpenAI, OpenRouter and Anthropic through go.jetify.com/ai.
type sdkGenerator struct {
	model     jetapi.LanguageModel
	maxTokens int
}

func (g *sdkGenerator) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	resp, err := jetai.GenerateText(
		ctx,
		buildAIPromptMessages(systemPrompt, prompt),
		jetai.WithModel(g.model),
		jetai.WithMaxOutputTokens(g.maxTokens),
	)
	if err != nil {
		return "", err
	}
	return extractTextFromAIResponse(resp)
}

func buildAIPromptMessages(systemPrompt, prompt string) []jetapi.Message {
	messages := make([]jetapi.Message, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, &jetapi.SystemMessage{Content: systemPrompt})
	}
	messages = append(messages, &jetapi.UserMessage{Content: jetapi.ContentFromText(prompt)})
	return messages
}

func extractTextFromAIResponse(resp *jetapi.Response) (string, error) {
	if resp == nil {
		return "", errors.New("empty response from AI")
	}

	var full strings.Builder
	for _, block := range resp.Content {
		textBlock, ok := block.(*jetapi.TextBlock)
		if !ok || textBlock.Text == "" {
			continue
		}
		full.WriteString(textBlock.Text)
	}

	text := full.String()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty response from AI")
	}
	return text, nil
}

func buildLanguageModel(provider *appcfg.AIProvider) (jetapi.LanguageModel, error) {
	apiKey := strings.TrimSpace(provider.APIKey)
	modelID := strings.TrimSpace(provider.DefaultModel)
	endpoint := strings.TrimSpace(provider.Endpoint)

	switch normalizeProviderType(provider.Type) {
	case "anthropic":
		opts := []anthropicoption.RequestOption{
			anthropicoption.WithAPIKey(apiKey),
			anthropicoption.WithMaxRetries(0),
		}
		if endpoint != "" {
			opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(endpoint, "/")))
		}
		client := anthropicclient.NewClient(opts...)
		return jetanthropic.NewLanguageModel(modelOrDefault(modelID, "claude-haiku-4-5-20251001"), jetanthropic.WithClient(client)), nil

	case "openrouter":
		if endpoint == "" {
			endpoint = "https://openrouter.ai/api/v1"
		}
		fallthrough

	case "openai", "":
		opts := []openaioption.RequestOption{
			openaioption.WithAPIKey(apiKey),
			openaioption.WithMaxRetries(0),
		}
		if normalized := normalizeOpenAIBaseURL(endpoint); normalized != "" {
			opts = append(opts, openaioption.WithBaseURL(normalized))
		}
		client := openaiclient.NewClient(opts...)
		return jetopenai.NewLanguageModel(modelOrDefault(modelID, "gpt-4o-mini"), jetopenai.WithClient(client)), nil

	default:
		return nil, fmt.Errorf("unsupported AI provider type %q", provider.Type)
	}
}

// compatibleGenerator posts to any OpenAI-compatible /v1/chat/completions
// endpoint (Gemini, DeepSeek, local servers).
type compatibleGenerator struct {
	endpoint  string
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
}

func (g *compatibleGenerator) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	messages := make([]map[string]string, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, map[string]string{
			"role":    "system",
			"content": systemPrompt,
		})
	}
	messages = append(messages, map[string]string{
		"role":    "user",
		"content": prompt,
	})

	body, err := json.Marshal(map[string]interface{}{
		"model":      g.model,
		"messages":   messages,
		"max_tokens": g.maxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("openai-compatible error %d: %s", resp.StatusCode, truncateText(strings.TrimSpace(string(respBody)), 300))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", err
	}
	if result.Error != nil && strings.TrimSpace(result.Error.Message) != "" {
		return "", fmt.Errorf("openai-compatible error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", errors.New("empty response from AI")
	}
	return result.Choices[0].Message.Content, nil
}

func normalizeOpenAIBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimRight(base, "/")
	}

	path := strings.TrimRight(parsed.Path, "/")
	if !strings.HasSuffix(path, "/v1") {
		if path == "" {
			path = "/v1"
		} else {
			path += "/v1"
		}
	}
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}

// normalizeOpenAICompatibleEndpoint returns the base that /chat/completions
// is appended to. A bare host gets /v1; versioned paths such as Gemini's
// /v1beta/openai are kept as-is.
func normalizeOpenAICompatibleEndpoint(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if base == "" {
		return "https://api.openai.com/v1"
	}
	base = strings.TrimSuffix(base, "/chat/completions")

	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return base
	}
	if strings.Trim(parsed.Path, "/") == "" {
		parsed.Path = "/v1"
	}
	return strings.TrimRight(parsed.String(), "/")
}

func truncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
