package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	appcfg "github.com/shelfscout/server/internal/config"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceRecommend(t *testing.T) {
	var gotPrompt string
	gen := GeneratorFunc(func(_ context.Context, system, prompt string) (string, error) {
		gotPrompt = prompt
		assert.Contains(t, system, "JSON array")
		return `[{"title":"Sea Tales","relevanceScore":40},{"title":"The Keeper","author":"A. Smith","relevanceScore":91}]`, nil
	})

	recs, err := NewService(gen).Recommend(context.Background(), "  a lonely lighthouse keeper ", 5)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "The Keeper", recs[0].Title)
	assert.Equal(t, Score(91), recs[0].RelevanceScore)
	assert.Contains(t, gotPrompt, "a lonely lighthouse keeper")
}

func TestServiceRecommendEmptyQuerySkipsGenerator(t *testing.T) {
	var calls int32
	gen := GeneratorFunc(func(context.Context, string, string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "[]", nil
	})

	recs, err := NewService(gen).Recommend(context.Background(), "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestServiceBreakerOpens(t *testing.T) {
	var calls int32
	gen := GeneratorFunc(func(context.Context, string, string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", errors.New("provider down")
	})
	svc := NewService(gen, WithBreakerSettings(gobreaker.Settings{
		Name: "test",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
	}))

	for i := 0; i < 2; i++ {
		_, err := svc.Recommend(context.Background(), "query", 3)
		require.Error(t, err)
	}
	_, err := svc.Recommend(context.Background(), "query", 3)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestServiceMalformedOutput(t *testing.T) {
	gen := GeneratorFunc(func(context.Context, string, string) (string, error) {
		return "I cannot help with that.", nil
	})
	_, err := NewService(gen).Recommend(context.Background(), "query", 3)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestNewGeneratorWithoutProvider(t *testing.T) {
	gen, err := NewGenerator(nil, 0)
	require.NoError(t, err)
	_, err = gen.Generate(context.Background(), "", "hi")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewGeneratorRejectsEmptyKey(t *testing.T) {
	_, err := NewGenerator(&appcfg.AIProvider{ID: "gemini", Type: "openai-compatible"}, 100)
	assert.Error(t, err)
}

func TestCompatibleGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/openai/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body struct {
			Model     string              `json:"model"`
			Messages  []map[string]string `json:"messages"`
			MaxTokens int                 `json:"max_tokens"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gemini-2.0-flash", body.Model)
		assert.Equal(t, 256, body.MaxTokens)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0]["role"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"[]"}}]}`))
	}))
	defer srv.Close()

	gen, err := NewGenerator(&appcfg.AIProvider{
		ID:           "gemini",
		Type:         "openai-compatible",
		APIKey:       "secret",
		Endpoint:     srv.URL + "/v1beta/openai/",
		DefaultModel: "gemini-2.0-flash",
	}, 256)
	require.NoError(t, err)

	out, err := gen.Generate(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestCompatibleGeneratorErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	gen, err := NewGenerator(&appcfg.AIProvider{ID: "x", Type: "openai_compatible", APIKey: "k", Endpoint: srv.URL}, 0)
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "", "prompt")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "429"))
}

func TestNormalizeOpenAICompatibleEndpoint(t *testing.T) {
	assert.Equal(t, "https://api.openai.com/v1", normalizeOpenAICompatibleEndpoint(""))
	assert.Equal(t, "https://api.deepseek.com/v1", normalizeOpenAICompatibleEndpoint("https://api.deepseek.com"))
	assert.Equal(t, "https://example.com/v1", normalizeOpenAICompatibleEndpoint("https://example.com/v1/chat/completions"))
	assert.Equal(t,
		"https://generativelanguage.googleapis.com/v1beta/openai",
		normalizeOpenAICompatibleEndpoint("https://generativelanguage.googleapis.com/v1beta/openai/"),
	)
}

func TestNormalizeOpenAIBaseURL(t *testing.T) {
	assert.Equal(t, "", normalizeOpenAIBaseURL(""))
	assert.Equal(t, "https://openrouter.ai/api/v1", normalizeOpenAIBaseURL("https://openrouter.ai/api/v1/"))
	assert.Equal(t, "https://proxy.local/v1", normalizeOpenAIBaseURL("https://proxy.local"))
}
