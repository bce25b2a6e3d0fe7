package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreipetrus/first-base-api-dochancer/internal/types"
)

func TestInferVersion(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		sourceURL string
		want      string
	}{
		{"label with v prefix", "API version: v3 released", "", "3.0"},
		{"dotted passes through", "version: 2.5", "", "2.5"},
		{"v-prefixed api", "Welcome to the v2 API reference", "", "2.0"},
		{"api path", "call https://x.io/api/v4/users", "", "4.0"},
		{"json version", `{"version": "1.2"}`, "", "1.2"},
		{"label wins over path", "version: 7\nGET /api/v1/users", "", "7.0"},
		{"from url path", "no hints here", "https://docs.example.com/api_doc/2.html", "2.0"},
		{"from url segment", "no hints here", "https://docs.example.com/v5/intro", "5.0"},
		{"nothing", "no hints here", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inferVersion(tt.text, tt.sourceURL))
		})
	}
}

func TestInferBaseURL(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"label", "Base URL: https://api.example.com/v1", "https://api.example.com/v1"},
		{"label trailing punct", "The base url: https://api.example.com/v1/.", "https://api.example.com/v1"},
		{"trailing param segment", "Base URL: https://api.example.com/v1/{accountId}", "https://api.example.com/v1"},
		{"api host", "Requests go to https://api.shop.io/v2/orders", "https://api.shop.io/v2"},
		{"curl example", "curl -X GET 'https://shop.io/rest/items'", "https://shop.io/rest/items"},
		{"generic api path", "see https://shop.io/api/v3/items", "https://shop.io/api/v3"},
		{"none", "nothing useful", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inferBaseURL(tt.text))
		})
	}
}

func TestAcceptBaseURL(t *testing.T) {
	_, ok := acceptBaseURL("https://api.example.com/v1?key=1")
	assert.False(t, ok)

	_, ok = acceptBaseURL("api.example.com/v1")
	assert.False(t, ok)

	_, ok = acceptBaseURL("https://api.example.com/" + strings.Repeat("segment/", 15))
	assert.False(t, ok)

	cleaned, ok := acceptBaseURL("https://api.example.com/v1/`,")
	require.True(t, ok)
	assert.Equal(t, "https://api.example.com/v1", cleaned)
}

func TestDiscoverEndpoints(t *testing.T) {
	text := `Users
GET /users lists users.
POST /users/{id}: updates one.
get /users again
See https://example.com/api/v1/orders for orders.`

	doc := &types.ParsedDocument{}
	extractAPIInfo(doc, text, "")

	require.Len(t, doc.Endpoints, 3)
	assert.Equal(t, "GET /users", doc.Endpoints[0].Key())
	assert.Equal(t, "GET /users", doc.Endpoints[0].Summary)
	assert.Equal(t, "GET__users", doc.Endpoints[0].ID)
	assert.Equal(t, "POST /users/{id}", doc.Endpoints[1].Key())
	assert.Equal(t, "GET /api/v1/orders", doc.Endpoints[2].Key())
	assert.Equal(t, "API endpoint: /api/v1/orders", doc.Endpoints[2].Summary)
	assert.Equal(t, "https://example.com/api/v1", doc.BaseURL)
	assert.Equal(t, "1.0", doc.Version)
}

func TestExtractAPIInfoKeepsPopulatedFields(t *testing.T) {
	doc := &types.ParsedDocument{
		Version:   "9.9",
		BaseURL:   "https://given.example.com",
		Endpoints: []types.Endpoint{newEndpoint("GET", "/users", "List users")},
	}
	extractAPIInfo(doc, "version: 2\nBase URL: https://api.example.com\nGET /users\nDELETE /users/{id}", "")

	assert.Equal(t, "9.9", doc.Version)
	assert.Equal(t, "https://given.example.com", doc.BaseURL)
	require.Len(t, doc.Endpoints, 2)
	assert.Equal(t, "List users", doc.Endpoints[0].Summary)
	assert.Equal(t, "DELETE /users/{id}", doc.Endpoints[1].Key())
}
