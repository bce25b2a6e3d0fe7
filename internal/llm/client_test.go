package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/andreipetrus/first-base-api-dochancer/internal/config"
	"github.com/andreipetrus/first-base-api-dochancer/internal/types"
)

// fakeCompleter returns canned responses and records prompts.
type fakeCompleter struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeCompleter) complete(_ context.Context, req completion) (string, error) {
	f.prompts = append(f.prompts, req.Prompt)
	return f.response, f.err
}

func newFakeClient(t *testing.T, response string, err error) (*BaseClient, *fakeCompleter) {
	fake := &fakeCompleter{response: response, err: err}
	cfg := config.AIConfig{Provider: config.ProviderOpenAI, APIKey: "k", MaxTokens: 4000}
	return NewBaseClient(fake, cfg, zaptest.NewLogger(t)), fake
}

var longDocs = strings.Repeat("Creates an order for the authenticated customer. ", 3)

func TestBaseClientFailuresAreEnhancementErrors(t *testing.T) {
	client, _ := newFakeClient(t, "", errors.New("rate limited"))
	endpoint := types.Endpoint{Method: "POST", Path: "/orders", Description: longDocs}

	tests := []struct {
		name string
		fn   func() error
	}{
		{"CategorizeEndpoints", func() error {
			_, err := client.CategorizeEndpoints(context.Background(), []types.Endpoint{endpoint}, "")
			return err
		}},
		{"GenerateTestData", func() error {
			_, err := client.GenerateTestData(context.Background(), endpoint)
			return err
		}},
		{"ExtractEndpointDetails", func() error {
			_, err := client.ExtractEndpointDetails(context.Background(), endpoint)
			return err
		}},
		{"EnhanceEndpointDocumentation", func() error {
			_, err := client.EnhanceEndpointDocumentation(context.Background(), endpoint)
			return err
		}},
		{"GenerateProductIntro", func() error {
			_, err := client.GenerateProductIntro(context.Background(), "https://shop.io", "", "")
			return err
		}},
		{"SearchProductContext", func() error {
			_, err := client.SearchProductContext(context.Background(), "Shop")
			return err
		}},
		{"ExtractEndpoints", func() error {
			_, err := client.ExtractEndpoints(context.Background(), "GET /x")
			return err
		}},
		{"Ping", func() error {
			return client.Ping(context.Background())
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			var enhancementErr *EnhancementError
			require.ErrorAs(t, err, &enhancementErr)
			assert.Equal(t, tt.name, enhancementErr.Op)
			assert.ErrorContains(t, err, "rate limited")
		})
	}
}

func TestExtractEndpointDetailsOverlay(t *testing.T) {
	response := "Here you go:\n```json\n" + `{
  "summary": "Create an order",
  "description": "",
  "parameters": [
    {"name": "key", "in": "query", "schema": {"type": "string"}},
    {"name": "id", "in": "path"},
    {"name": "bogus", "in": "body"}
  ],
  "responses": []
}` + "\n```"
	client, _ := newFakeClient(t, response, nil)

	original := types.Endpoint{
		Method:                "POST",
		Path:                  "/orders",
		Description:           "Old description",
		OriginalDocumentation: longDocs,
		Responses:             []types.Response{{StatusCode: "201"}},
	}
	got, err := client.ExtractEndpointDetails(context.Background(), original)
	require.NoError(t, err)

	assert.Equal(t, "Create an order", got.Summary)
	assert.Equal(t, "Old description", got.Description)
	require.Len(t, got.Parameters, 2)
	assert.Equal(t, types.InQuery, got.Parameters[0].In)
	assert.True(t, got.Parameters[1].Required)
	assert.Equal(t, original.Responses, got.Responses)
	assert.Empty(t, original.Parameters, "input is not modified")
}

func TestExtractEndpointDetailsDropsRepeatedParameters(t *testing.T) {
	response := `{"parameters": [
  {"name": "limit", "in": "query", "description": "page size"},
  {"name": "limit", "in": "query", "description": "again"},
  {"name": "limit", "in": "header"}
]}`
	client, _ := newFakeClient(t, response, nil)

	got, err := client.ExtractEndpointDetails(context.Background(), types.Endpoint{Method: "GET", Path: "/items", OriginalDocumentation: longDocs})
	require.NoError(t, err)
	require.Len(t, got.Parameters, 2)
	assert.Equal(t, "page size", got.Parameters[0].Description)
	assert.Equal(t, types.InHeader, got.Parameters[1].In)
}

func TestExtractEndpointsFiltersParameters(t *testing.T) {
	response := `[{"method": "GET", "path": "/users/{id}", "parameters": [
  {"name": "id", "in": "path"},
  {"name": "id", "in": "path"},
  {"name": "payload", "in": "body"},
  {"name": "", "in": "query"}
]}]`
	client, _ := newFakeClient(t, response, nil)

	got, err := client.ExtractEndpoints(context.Background(), "docs")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []types.Parameter{{Name: "id", In: types.InPath, Required: true}}, got[0].Parameters)
}

func TestExtractEndpointDetailsSkipsShortDocs(t *testing.T) {
	client, fake := newFakeClient(t, "{}", nil)
	endpoint := types.Endpoint{Method: "GET", Path: "/x", Description: "Short."}

	got, err := client.ExtractEndpointDetails(context.Background(), endpoint)
	require.NoError(t, err)
	assert.Equal(t, endpoint, got)
	assert.Empty(t, fake.prompts)
}

func TestCategorizeEndpointsMergesByKey(t *testing.T) {
	response := `[
  {"method": "get", "path": "/users", "category": "Accounts", "description": "Lists users."},
  {"method": "GET", "path": "/unknown", "category": "Ghost"}
]`
	client, fake := newFakeClient(t, response, nil)
	endpoints := []types.Endpoint{
		{ID: "GET__users", Method: "GET", Path: "/users", Summary: "List"},
		{ID: "POST__users", Method: "POST", Path: "/users", Category: "Users"},
	}

	got, err := client.CategorizeEndpoints(context.Background(), endpoints, "A user directory")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Accounts", got[0].Category)
	assert.Equal(t, "Lists users.", got[0].Description)
	assert.Equal(t, "List", got[0].Summary)
	assert.Equal(t, "GET__users", got[0].ID)
	assert.Equal(t, "Users", got[1].Category)
	assert.Contains(t, fake.prompts[0], "A user directory")
}

func TestCategorizeEndpointsNoMatchIsError(t *testing.T) {
	client, _ := newFakeClient(t, `[{"method": "GET", "path": "/other"}]`, nil)
	_, err := client.CategorizeEndpoints(context.Background(), []types.Endpoint{{Method: "GET", Path: "/users"}}, "")
	assert.Error(t, err)
}

func TestExtractEndpointsNormalizes(t *testing.T) {
	response := `[
  {"method": "post", "path": "/orders", "summary": "Create"},
  {"method": "FETCH", "path": "/bad"},
  {"method": "GET", "path": "relative"}
]`
	client, _ := newFakeClient(t, response, nil)

	got, err := client.ExtractEndpoints(context.Background(), "docs")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "POST", got[0].Method)
	assert.Equal(t, "POST__orders", got[0].ID)
}

func TestEnhanceEndpointDocumentation(t *testing.T) {
	client, _ := newFakeClient(t, `{"summary": "Create an order", "description": "Creates an order.", "technicalNotes": "idempotent"}`, nil)

	got, err := client.EnhanceEndpointDocumentation(context.Background(), types.Endpoint{Method: "POST", Path: "/orders", Description: "make order"})
	require.NoError(t, err)
	assert.Equal(t, "Create an order", got.Summary)
	assert.Equal(t, "Creates an order.", got.Description)

	// Nothing to enhance.
	empty := types.Endpoint{Method: "GET", Path: "/x"}
	got, err = client.EnhanceEndpointDocumentation(context.Background(), empty)
	require.NoError(t, err)
	assert.Equal(t, empty, got)
}

func TestOpenAIClientAgainstServer(t *testing.T) {
	var gotAuth string
	var gotRequest struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotRequest)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Shop sells things through a REST API."},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	cfg := config.AIConfig{
		Provider:  config.ProviderOpenAI,
		APIKey:    "sk-test",
		BaseURL:   server.URL + "/v1",
		MaxTokens: 300,
	}
	client, err := NewClient(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	summary, err := client.SearchProductContext(context.Background(), "Shop")
	require.NoError(t, err)
	assert.Equal(t, "Shop sells things through a REST API.", summary)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotRequest.Model)
	assert.Equal(t, 300, gotRequest.MaxTokens)
	require.Len(t, gotRequest.Messages, 2)
	assert.Equal(t, "system", gotRequest.Messages[0].Role)
	assert.Contains(t, gotRequest.Messages[1].Content, "Shop")
}

func TestOpenAIClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(config.AIConfig{APIKey: "bad", BaseURL: server.URL + "/v1"}, zaptest.NewLogger(t))
	err := client.Ping(context.Background())

	var enhancementErr *EnhancementError
	require.ErrorAs(t, err, &enhancementErr)
	assert.Equal(t, "Ping", enhancementErr.Op)
}

func TestNewClient(t *testing.T) {
	log := zaptest.NewLogger(t)

	client, err := NewClient(context.Background(), config.AIConfig{Provider: config.ProviderOpenAI}, log)
	require.NoError(t, err)
	assert.Nil(t, client, "no key disables the capability")

	_, err = NewClient(context.Background(), config.AIConfig{Provider: "claude", APIKey: "k"}, log)
	assert.Error(t, err)

	client, err = NewClient(context.Background(), config.AIConfig{Provider: config.ProviderGemini, APIKey: "k"}, log)
	require.NoError(t, err)
	assert.IsType(t, &GeminiClient{}, client)
}
