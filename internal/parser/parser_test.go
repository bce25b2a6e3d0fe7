package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/andreipetrus/first-base-api-dochancer/internal/fetcher"
	"github.com/andreipetrus/first-base-api-dochancer/internal/types"
)

const petstoreJSON = `{
  "openapi": "3.0.3",
  "info": {"title": "Pet Store", "description": "Pets as a service", "version": "1.4.0"},
  "servers": [{"url": "https://api.pets.example.com/v1/"}],
  "paths": {
    "/pets/{petId}": {
      "parameters": [
        {"name": "petId", "in": "path", "required": true, "schema": {"type": "string"}}
      ],
      "get": {
        "summary": "Get a pet",
        "tags": ["pets"],
        "responses": {"200": {"description": "A pet"}, "404": {"description": "Missing"}}
      },
      "delete": {
        "summary": "Delete a pet",
        "parameters": [
          {"name": "petId", "in": "path", "required": true, "schema": {"type": "integer"}}
        ],
        "responses": {"204": {"description": "Deleted"}}
      }
    },
    "/pets": {
      "get": {
        "summary": "List pets",
        "parameters": [
          {"name": "limit", "in": "query", "schema": {"type": "integer", "minimum": 1}, "example": 10}
        ],
        "responses": {"200": {"description": "Pets"}}
      },
      "post": {
        "summary": "Create a pet",
        "requestBody": {
          "required": true,
          "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Pet"}}}
        },
        "responses": {"201": {"description": "Created"}}
      },
      "trace": {"responses": {"200": {"description": "ignored"}}}
    }
  },
  "components": {
    "schemas": {
      "Pet": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string"},
          "tag": {"type": "string", "enum": ["cat", "dog"]},
          "children": {"type": "array", "items": {"$ref": "#/components/schemas/Pet"}}
        }
      }
    }
  }
}`

const swaggerJSON = `{
  "swagger": "2.0",
  "info": {"title": "Legacy", "version": "0.9"},
  "host": "legacy.example.com",
  "basePath": "/rest",
  "schemes": ["http"],
  "paths": {
    "/items": {
      "get": {
        "summary": "List items",
        "parameters": [{"name": "q", "in": "query", "type": "string"}],
        "responses": {"200": {"description": "ok"}}
      }
    }
  }
}`

const petstoreYAML = `openapi: 3.0.3
info:
  title: YAML Pets
  version: "2.0"
servers:
  - url: https://yaml.example.com
paths:
  /pets:
    get:
      summary: List pets
      responses:
        200:
          description: ok
`

func newTestParser(t *testing.T, f Fetcher) *Parser {
	return New(f, nil, Options{}, zaptest.NewLogger(t))
}

func TestParseOpenAPIBypassesHeuristics(t *testing.T) {
	p := newTestParser(t, nil)
	calls := 0
	p.extract = func(*types.ParsedDocument, string, string) { calls++ }

	doc, err := p.Parse(context.Background(), []byte(petstoreJSON), FormatJSON, "")
	require.NoError(t, err)
	assert.Zero(t, calls)

	assert.Equal(t, "Pet Store", doc.Title)
	assert.Equal(t, "Pets as a service", doc.Description)
	assert.Equal(t, "1.4.0", doc.Version)
	assert.Equal(t, "https://api.pets.example.com/v1", doc.BaseURL)

	keys := make([]string, 0, len(doc.Endpoints))
	for _, e := range doc.Endpoints {
		keys = append(keys, e.Key())
	}
	assert.Equal(t, []string{"GET /pets", "POST /pets", "GET /pets/{petId}", "DELETE /pets/{petId}"}, keys)

	list := doc.Endpoints[0]
	require.Len(t, list.Parameters, 1)
	assert.Equal(t, "limit", list.Parameters[0].Name)
	assert.EqualValues(t, 10, list.Parameters[0].Example)
	require.NotNil(t, list.Parameters[0].Schema.Minimum)
	assert.Equal(t, 1.0, *list.Parameters[0].Schema.Minimum)

	create := doc.Endpoints[1]
	require.NotNil(t, create.RequestBody)
	assert.True(t, create.RequestBody.Required)
	body := create.RequestBody.JSONSchema()
	require.NotNil(t, body)
	assert.Equal(t, "object", body.Type)
	assert.Equal(t, []string{"name"}, body.Required)
	assert.Equal(t, []any{"cat", "dog"}, body.Properties["tag"].Enum)
	// The recursive reference terminates.
	assert.Equal(t, "array", body.Properties["children"].Type)
	assert.NotNil(t, body.Properties["children"].Items)

	get := doc.Endpoints[2]
	assert.Equal(t, "pets", get.Category)
	require.Len(t, get.Parameters, 1)
	assert.Equal(t, "string", get.Parameters[0].Schema.Type)
	require.Len(t, get.Responses, 2)
	assert.Equal(t, "200", get.Responses[0].StatusCode)
	assert.Equal(t, "A pet", get.Responses[0].Description)

	del := doc.Endpoints[3]
	require.Len(t, del.Parameters, 1)
	assert.Equal(t, "integer", del.Parameters[0].Schema.Type, "operation parameter overrides path-level one")
}

func TestParseSwagger2(t *testing.T) {
	doc, err := newTestParser(t, nil).Parse(context.Background(), []byte(swaggerJSON), FormatJSON, "")
	require.NoError(t, err)

	assert.Equal(t, "Legacy", doc.Title)
	assert.Equal(t, "http://legacy.example.com/rest", doc.BaseURL)
	require.Len(t, doc.Endpoints, 1)
	assert.Equal(t, "GET /items", doc.Endpoints[0].Key())
	require.Len(t, doc.Endpoints[0].Parameters, 1)
	assert.Equal(t, types.InQuery, doc.Endpoints[0].Parameters[0].In)
}

func TestParseYAMLOpenAPI(t *testing.T) {
	doc, err := newTestParser(t, nil).Parse(context.Background(), []byte(petstoreYAML), FormatYAML, "")
	require.NoError(t, err)

	assert.Equal(t, "YAML Pets", doc.Title)
	assert.Equal(t, "https://yaml.example.com", doc.BaseURL)
	require.Len(t, doc.Endpoints, 1)
	require.Len(t, doc.Endpoints[0].Responses, 1)
	assert.Equal(t, "200", doc.Endpoints[0].Responses[0].StatusCode)
}

func TestParseMalformedJSONFallsBackToText(t *testing.T) {
	p := newTestParser(t, nil)
	calls := 0
	p.extract = func(doc *types.ParsedDocument, text, sourceURL string) {
		calls++
		extractAPIInfo(doc, text, sourceURL)
	}

	data := []byte(`{"openapi": "3.0.0", broken... GET /users version: 2`)
	doc, err := p.Parse(context.Background(), data, FormatJSON, "")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "2.0", doc.Version)
	require.Len(t, doc.Endpoints, 1)
	assert.Equal(t, "GET /users", doc.Endpoints[0].Key())
}

func TestParsePlainJSONUsesHeuristics(t *testing.T) {
	data := []byte(`{"endpoints": ["GET /orders", "DELETE /orders/{id}"], "base": "Base URL: https://api.shop.io"}`)
	doc, err := newTestParser(t, nil).Parse(context.Background(), data, FormatJSON, "")
	require.NoError(t, err)

	assert.Equal(t, "https://api.shop.io", doc.BaseURL)
	require.Len(t, doc.Endpoints, 2)
	assert.Equal(t, "DELETE /orders/{id}", doc.Endpoints[1].Key())
}

func TestParseTextTitleAndTruncation(t *testing.T) {
	p := New(nil, nil, Options{RawContentLimit: 20}, zaptest.NewLogger(t))
	text := "# Shop API\n\nGET /carts\n" + strings.Repeat("é", 40)

	doc, err := p.Parse(context.Background(), []byte(text), FormatText, "")
	require.NoError(t, err)
	assert.Equal(t, "Shop API", doc.Title)
	assert.Len(t, []rune(doc.RawContent), 20)
	require.Len(t, doc.Endpoints, 1)
}

func TestParseUnsupportedFormat(t *testing.T) {
	_, err := newTestParser(t, nil).Parse(context.Background(), nil, "rtf", "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = newTestParser(t, nil).ParseFile(context.Background(), "docs.rtf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.md")
	require.NoError(t, os.WriteFile(path, []byte("# Notes\nPOST /notes"), 0o644))

	doc, err := newTestParser(t, nil).ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Notes", doc.Title)
	require.Len(t, doc.Endpoints, 1)
	assert.Equal(t, "POST /notes", doc.Endpoints[0].Key())
}

func TestParseBinaryFallsBackToPrintableRuns(t *testing.T) {
	data := append([]byte("%PDF-1.4 garbage"), 0x00, 0x01)
	data = append(data, []byte("GET /reports")...)

	doc, err := newTestParser(t, nil).Parse(context.Background(), data, FormatPDF, "")
	require.NoError(t, err)
	require.Len(t, doc.Endpoints, 1)
	assert.Equal(t, "GET /reports", doc.Endpoints[0].Key())
}

func TestFormatFromContentType(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFromContentType("application/json"))
	assert.Equal(t, FormatJSON, FormatFromContentType("application/vnd.oai.openapi+json"))
	assert.Equal(t, FormatYAML, FormatFromContentType("application/x-yaml"))
	assert.Equal(t, FormatPDF, FormatFromContentType("application/pdf"))
	assert.Equal(t, FormatText, FormatFromContentType("text/plain"))
	assert.Equal(t, FormatHTML, FormatFromContentType("text/html"))
	assert.Equal(t, FormatHTML, FormatFromContentType(""))
}

func TestParseURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(petstoreJSON))
	})
	mux.HandleFunc("/raw/spec.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(petstoreYAML))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	p := newTestParser(t, fetcher.New(fetcher.Options{}, zaptest.NewLogger(t)))

	doc, err := p.ParseURL(context.Background(), server.URL+"/openapi.json")
	require.NoError(t, err)
	assert.Len(t, doc.Endpoints, 4)

	doc, err = p.ParseURL(context.Background(), server.URL+"/raw/spec.yaml")
	require.NoError(t, err)
	assert.Equal(t, "YAML Pets", doc.Title)

	_, err = p.ParseURL(context.Background(), server.URL+"/missing")
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.NotContains(t, err.Error(), "unexpected status")

	_, err = p.ParseURL(context.Background(), "ftp://example.com/spec.json")
	assert.ErrorIs(t, err, ErrFetchFailed)
}
