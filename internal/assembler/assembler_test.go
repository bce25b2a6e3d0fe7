package assembler

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/andreipetrus/first-base-api-dochancer/internal/types"
)

func sampleEndpoints() []types.Endpoint {
	return []types.Endpoint{
		{
			ID:       types.EndpointID("GET", "/pets"),
			Method:   "GET",
			Path:     "/pets",
			Summary:  "List pets",
			Category: "Pets",
			Parameters: []types.Parameter{
				{Name: "limit", In: types.InQuery, Schema: &types.Schema{Type: "integer"}},
			},
		},
		{
			ID:          types.EndpointID("post", "/pets"),
			Method:      "post",
			Path:        "/pets",
			Description: "Create a pet.",
			RequestBody: &types.RequestBody{Required: true, Content: map[string]types.MediaType{
				types.ContentTypeJSON: {Schema: &types.Schema{
					Type:       "object",
					Required:   []string{"name"},
					Properties: map[string]*types.Schema{"name": {Type: "string"}},
				}},
			}},
			Responses: []types.Response{{StatusCode: "201"}, {StatusCode: "409", Description: "Conflict"}},
			TestResult: &types.TestResult{Status: types.StatusWarning, StatusCode: 409, Message: "Received 409 Conflict"},
		},
		{
			ID:     types.EndpointID("DELETE", "/pets/{petId}"),
			Method: "DELETE",
			Path:   "/pets/{petId}",
			Parameters: []types.Parameter{
				{Name: "petId", In: types.InPath},
			},
		},
	}
}

func TestGenerate(t *testing.T) {
	doc := Generate(sampleEndpoints(), Metadata{
		Title:       "Pet Store",
		Description: "Pets.",
		Version:     "2.0",
		BaseURL:     "https://api.pets.example/v2",
	})

	assert.Equal(t, "3.0.3", doc.OpenAPI)
	assert.Equal(t, "Pet Store", doc.Info.Title)
	assert.Equal(t, "Pets.", doc.Info.Description)
	assert.Equal(t, "2.0", doc.Info.Version)
	require.Len(t, doc.Servers, 1)
	assert.Equal(t, "https://api.pets.example/v2", doc.Servers[0].URL)
	assert.Equal(t, 2, doc.Paths.Len())

	list := doc.Paths.Value("/pets").Get
	require.NotNil(t, list)
	assert.Equal(t, "GET__pets", list.OperationID)
	assert.Equal(t, []string{"Pets"}, list.Tags)
	require.Len(t, list.Parameters, 1)
	assert.Equal(t, "limit", list.Parameters[0].Value.Name)
	assert.True(t, list.Parameters[0].Value.Schema.Value.Type.Is("integer"))
	for _, code := range []string{"200", "400", "401", "404", "500"} {
		assert.NotNil(t, list.Responses.Value(code), "default response %s", code)
	}
	assert.Equal(t, "Successful response", *list.Responses.Value("200").Value.Description)

	create := doc.Paths.Value("/pets").Post
	require.NotNil(t, create)
	assert.Nil(t, create.Tags)
	assert.Equal(t, "Create a pet.\n\nTest Result: WARNING: Received 409 Conflict", create.Description)
	assert.Equal(t, 2, create.Responses.Len())
	assert.Equal(t, "201 response", *create.Responses.Value("201").Value.Description)
	assert.Equal(t, "Conflict", *create.Responses.Value("409").Value.Description)
	body := create.RequestBody.Value
	assert.True(t, body.Required)
	assert.Equal(t, []string{"name"}, body.Content.Get(types.ContentTypeJSON).Schema.Value.Required)

	remove := doc.Paths.Value("/pets/{petId}").Delete
	require.NotNil(t, remove)
	petID := remove.Parameters[0].Value
	assert.True(t, petID.Required, "path parameters are always required")
	assert.True(t, petID.Schema.Value.Type.Is("string"))

	assert.Contains(t, doc.Components.SecuritySchemes, "bearerAuth")
	assert.Equal(t, "X-API-Key", doc.Components.SecuritySchemes["apiKey"].Value.Name)
	assert.Len(t, doc.Security, 2)
}

func TestGenerateDefaults(t *testing.T) {
	doc := Generate(nil, Metadata{})
	assert.Equal(t, "API Documentation", doc.Info.Title)
	assert.Equal(t, "Auto-generated API documentation", doc.Info.Description)
	assert.Equal(t, "1.0.0", doc.Info.Version)
	assert.Empty(t, doc.Servers)

	intro := Generate(nil, Metadata{Description: "desc", ProductIntro: "intro"})
	assert.Equal(t, "intro", intro.Info.Description)
}

func TestGenerateSkipsUnknownMethods(t *testing.T) {
	doc := Generate([]types.Endpoint{{Method: "BREW", Path: "/coffee"}}, Metadata{})
	assert.Zero(t, doc.Paths.Len())
}

func TestValidate(t *testing.T) {
	doc := Generate(sampleEndpoints(), Metadata{Title: "Pets", Version: "1", BaseURL: "https://api.pets.example"})
	warnings := Validate(context.Background(), doc)
	assert.Equal(t, []string{"DELETE /pets/{petId}: Missing summary and description"}, warnings)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	doc := &openapi3.T{OpenAPI: OpenAPIVersion, Info: &openapi3.Info{}, Paths: openapi3.NewPaths()}
	warnings := Validate(context.Background(), doc)
	assert.Equal(t, "Missing API title in info section", warnings[0])
	assert.Equal(t, "Missing API version in info section", warnings[1])
	assert.Equal(t, "No servers defined - API base URL is missing", warnings[2])
	assert.Equal(t, "No API endpoints defined", warnings[3])

	noResponses := openapi3.NewOperation()
	noResponses.Summary = "s"
	doc.AddOperation("/a", "GET", noResponses)
	warnings = Validate(context.Background(), doc)
	assert.Contains(t, warnings, "GET /a: No responses defined")
	assert.True(t, strings.HasPrefix(warnings[len(warnings)-1], "OpenAPI validation: "))
}

func TestWriteBundle(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, zaptest.NewLogger(t))
	w.now = func() time.Time { return time.UnixMilli(1700000000123) }

	doc := Generate(sampleEndpoints(), Metadata{Title: "Pets </script>"})
	bundle, err := w.WriteBundle(doc)
	require.NoError(t, err)

	assert.Equal(t, "api-docs-1700000000123", bundle.BaseName)
	assert.Equal(t, filepath.Join(dir, "api-docs-1700000000123.html"), bundle.HTMLPath)
	assert.Equal(t, filepath.Join(dir, "api-docs-1700000000123-spec.json"), bundle.SpecPath)

	spec, err := os.ReadFile(bundle.SpecPath)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(spec, &decoded))
	assert.Equal(t, "3.0.3", decoded["openapi"])

	page, err := os.ReadFile(bundle.HTMLPath)
	require.NoError(t, err)
	html := string(page)
	assert.Contains(t, html, "swagger-ui-bundle.js")
	assert.Contains(t, html, `"openapi":"3.0.3"`)
	assert.Contains(t, html, "<title>Pets &lt;/script&gt;</title>")
	assert.Contains(t, html, `Pets \u003c/script\u003e`, "embedded JSON cannot close the script element")

	require.NoError(t, w.WriteZip(doc, bundle))
	assert.Equal(t, filepath.Join(dir, "api-docs-1700000000123.zip"), bundle.ZipPath)
}

func TestZip(t *testing.T) {
	doc := Generate(sampleEndpoints(), Metadata{Title: "Pets"})

	var buf bytes.Buffer
	require.NoError(t, Zip(&buf, doc))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, ZipIndexName, zr.File[0].Name)
	assert.Equal(t, ZipSpecName, zr.File[1].Name)

	f, err := zr.File[1].Open()
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)

	loaded, err := openapi3.NewLoader().LoadFromData(data)
	require.NoError(t, err)
	assert.Equal(t, "Pets", loaded.Info.Title)
	assert.NotNil(t, loaded.Paths.Value("/pets/{petId}").Delete)
}
