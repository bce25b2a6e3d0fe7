// Package assembler turns normalized endpoints into an OpenAPI 3.0.3 document
// and the artifacts that publish it.
package assembler

import (
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/andreipetrus/first-base-api-dochancer/internal/types"
)

// OpenAPIVersion is the version every generated document declares.
const OpenAPIVersion = "3.0.3"

// Metadata describes the API as a whole.
type Metadata struct {
	Title        string
	Description  string
	ProductIntro string
	Version      string
	BaseURL      string
}

// Generate builds the document. Endpoints with an unsupported method are skipped.
func Generate(endpoints []types.Endpoint, meta Metadata) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: OpenAPIVersion,
		Info: &openapi3.Info{
			Title:       firstNonEmpty(meta.Title, "API Documentation"),
			Description: firstNonEmpty(meta.ProductIntro, meta.Description, "Auto-generated API documentation"),
			Version:     firstNonEmpty(meta.Version, "1.0.0"),
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{},
			SecuritySchemes: openapi3.SecuritySchemes{
				"bearerAuth": &openapi3.SecuritySchemeRef{Value: openapi3.NewJWTSecurityScheme()},
				"apiKey": &openapi3.SecuritySchemeRef{Value: openapi3.NewSecurityScheme().
					WithType("apiKey").
					WithIn("header").
					WithName("X-API-Key")},
			},
		},
		Security: openapi3.SecurityRequirements{
			{"bearerAuth": []string{}},
			{"apiKey": []string{}},
		},
	}
	if meta.BaseURL != "" {
		doc.AddServer(&openapi3.Server{URL: meta.BaseURL})
	}

	for _, e := range endpoints {
		if !types.IsMethod(e.Method) {
			continue
		}
		doc.AddOperation(e.Path, strings.ToUpper(e.Method), operation(e))
	}
	return doc
}

func operation(e types.Endpoint) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = e.ID
	op.Summary = e.Summary
	op.Description = e.Description
	if e.Category != "" {
		op.Tags = []string{e.Category}
	}

	for _, p := range e.Parameters {
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: parameter(p)})
	}

	if e.RequestBody != nil {
		op.RequestBody = &openapi3.RequestBodyRef{Value: requestBody(e.RequestBody)}
	}

	if len(e.Responses) > 0 {
		opts := make([]openapi3.NewResponsesOption, 0, len(e.Responses))
		for _, r := range e.Responses {
			description := firstNonEmpty(r.Description, r.StatusCode+" response")
			resp := openapi3.NewResponse().WithDescription(description)
			if len(r.Content) > 0 {
				resp.Content = content(r.Content)
			}
			opts = append(opts, openapi3.WithName(r.StatusCode, resp))
		}
		op.Responses = openapi3.NewResponses(opts...)
	} else {
		op.Responses = defaultResponses()
	}

	if tr := e.TestResult; tr != nil && tr.Message != "" {
		note := "Test Result: " + strings.ToUpper(tr.Status) + ": " + tr.Message
		op.Description = op.Description + "\n\n" + note
	}
	return op
}

func defaultResponses() *openapi3.Responses {
	ok := openapi3.NewResponse().
		WithDescription("Successful response").
		WithJSONSchema(openapi3.NewObjectSchema())
	return openapi3.NewResponses(
		openapi3.WithName("200", ok),
		openapi3.WithName("400", openapi3.NewResponse().WithDescription("Bad request")),
		openapi3.WithName("401", openapi3.NewResponse().WithDescription("Unauthorized")),
		openapi3.WithName("404", openapi3.NewResponse().WithDescription("Not found")),
		openapi3.WithName("500", openapi3.NewResponse().WithDescription("Internal server error")),
	)
}

func parameter(p types.Parameter) *openapi3.Parameter {
	out := &openapi3.Parameter{
		Name:        p.Name,
		In:          p.In,
		Description: p.Description,
		Required:    p.Required || p.In == types.InPath,
		Example:     p.Example,
	}
	if p.Schema != nil {
		out.Schema = schemaRef(p.Schema)
	} else {
		out.Schema = openapi3.NewStringSchema().NewRef()
	}
	return out
}

func requestBody(rb *types.RequestBody) *openapi3.RequestBody {
	out := openapi3.NewRequestBody().
		WithDescription(rb.Description).
		WithRequired(rb.Required)
	if len(rb.Content) > 0 {
		return out.WithContent(content(rb.Content))
	}
	return out.WithJSONSchema(openapi3.NewObjectSchema())
}

func content(in map[string]types.MediaType) openapi3.Content {
	out := make(openapi3.Content, len(in))
	for name, mt := range in {
		media := openapi3.NewMediaType()
		media.Example = mt.Example
		if mt.Schema != nil {
			media.Schema = schemaRef(mt.Schema)
		}
		out[name] = media
	}
	return out
}

func schemaRef(s *types.Schema) *openapi3.SchemaRef {
	out := &openapi3.Schema{
		Format:      s.Format,
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
		Example:     s.Example,
		Min:         s.Minimum,
	}
	if s.Type != "" {
		out.Type = &openapi3.Types{s.Type}
	}
	if len(s.Properties) > 0 {
		out.Properties = make(openapi3.Schemas, len(s.Properties))
		for name, prop := range s.Properties {
			if prop != nil {
				out.Properties[name] = schemaRef(prop)
			}
		}
	}
	if s.Items != nil {
		out.Items = schemaRef(s.Items)
	}
	return out.NewRef()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
