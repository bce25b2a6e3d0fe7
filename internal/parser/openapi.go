package parser

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/andreipetrus/first-base-api-dochancer/internal/types"
)

// maxSchemaDepth bounds conversion of recursive schemas.
const maxSchemaDepth = 12

// parseOpenAPI builds a ParsedDocument directly from an OpenAPI 3 or Swagger 2
// JSON document. No text heuristics run on this path.
func (p *Parser) parseOpenAPI(data []byte) (*types.ParsedDocument, error) {
	var head struct {
		Swagger string `json:"swagger"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to read document header: %w", err)
	}

	var (
		doc     *openapi3.T
		baseURL string
	)

	if head.Swagger != "" {
		var legacy openapi2.T
		if err := json.Unmarshal(data, &legacy); err != nil {
			return nil, fmt.Errorf("failed to parse Swagger 2 document: %w", err)
		}
		converted, err := openapi2conv.ToV3(&legacy)
		if err != nil {
			return nil, fmt.Errorf("failed to convert Swagger 2 document: %w", err)
		}
		doc = converted
		baseURL = swaggerBaseURL(&legacy)
	} else {
		loader := openapi3.NewLoader()
		loaded, err := loader.LoadFromData(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse OpenAPI doc: %w", err)
		}
		doc = loaded
		if len(doc.Servers) > 0 && doc.Servers[0] != nil {
			baseURL = doc.Servers[0].URL
		}
	}

	parsed := &types.ParsedDocument{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Endpoints:  extractEndpoints(doc),
		RawContent: truncate(string(data), p.opts.RawContentLimit),
	}
	if doc.Info != nil {
		parsed.Title = doc.Info.Title
		parsed.Description = doc.Info.Description
		parsed.Version = doc.Info.Version
	}
	return parsed, nil
}

func swaggerBaseURL(doc *openapi2.T) string {
	if doc.Host == "" {
		return ""
	}
	scheme := "https"
	if len(doc.Schemes) > 0 && doc.Schemes[0] != "" {
		scheme = doc.Schemes[0]
	}
	return scheme + "://" + doc.Host + doc.BasePath
}

// extractEndpoints builds one endpoint per path × allowed verb, in sorted path
// order and the fixed verb order.
func extractEndpoints(doc *openapi3.T) []types.Endpoint {
	endpoints := []types.Endpoint{}
	if doc.Paths == nil {
		return endpoints
	}

	paths := doc.Paths.Map()
	keys := make([]string, 0, len(paths))
	for path := range paths {
		keys = append(keys, path)
	}
	sort.Strings(keys)

	for _, path := range keys {
		pathItem := paths[path]
		if pathItem == nil {
			continue
		}
		for _, method := range types.Methods {
			operation := pathItem.GetOperation(method)
			if operation == nil {
				continue
			}
			endpoints = append(endpoints, buildEndpoint(method, path, pathItem.Parameters, operation))
		}
	}
	return endpoints
}

func buildEndpoint(method, path string, shared openapi3.Parameters, operation *openapi3.Operation) types.Endpoint {
	endpoint := types.Endpoint{
		ID:          types.EndpointID(method, path),
		Method:      method,
		Path:        path,
		Summary:     operation.Summary,
		Description: operation.Description,
	}
	if len(operation.Tags) > 0 {
		endpoint.Category = operation.Tags[0]
	}

	// Operation parameters override path-level ones with the same (in, name).
	seen := make(map[string]int)
	for _, params := range []openapi3.Parameters{shared, operation.Parameters} {
		for _, ref := range params {
			if ref == nil || ref.Value == nil {
				continue
			}
			param := convertParameter(ref.Value)
			key := param.In + ":" + param.Name
			if i, ok := seen[key]; ok {
				endpoint.Parameters[i] = param
				continue
			}
			seen[key] = len(endpoint.Parameters)
			endpoint.Parameters = append(endpoint.Parameters, param)
		}
	}

	if operation.RequestBody != nil && operation.RequestBody.Value != nil {
		body := operation.RequestBody.Value
		endpoint.RequestBody = &types.RequestBody{
			Description: body.Description,
			Required:    body.Required,
			Content:     convertContent(body.Content),
		}
	}

	if operation.Responses != nil {
		responses := operation.Responses.Map()
		codes := make([]string, 0, len(responses))
		for code := range responses {
			codes = append(codes, code)
		}
		sort.Strings(codes)

		for _, code := range codes {
			ref := responses[code]
			if ref == nil || ref.Value == nil {
				continue
			}
			response := types.Response{
				StatusCode: code,
				Content:    convertContent(ref.Value.Content),
			}
			if ref.Value.Description != nil {
				response.Description = *ref.Value.Description
			}
			endpoint.Responses = append(endpoint.Responses, response)
		}
	}
	return endpoint
}

func convertParameter(param *openapi3.Parameter) types.Parameter {
	out := types.Parameter{
		Name:        param.Name,
		In:          param.In,
		Required:    param.Required,
		Description: param.Description,
		Example:     param.Example,
		Schema:      convertSchema(param.Schema, 0, nil),
	}
	// Content-encoded parameters carry their schema inside the media type.
	if out.Schema == nil {
		for _, mt := range param.Content {
			if mt != nil && mt.Schema != nil {
				out.Schema = convertSchema(mt.Schema, 0, nil)
				break
			}
		}
	}
	return out
}

func convertContent(content openapi3.Content) map[string]types.MediaType {
	if len(content) == 0 {
		return nil
	}
	out := make(map[string]types.MediaType, len(content))
	for name, mt := range content {
		if mt == nil {
			continue
		}
		out[name] = types.MediaType{
			Schema:  convertSchema(mt.Schema, 0, nil),
			Example: mt.Example,
		}
	}
	return out
}

// convertSchema maps a resolved kin-openapi schema to the generator's schema
// shape. allOf members are merged into one object.
func convertSchema(ref *openapi3.SchemaRef, depth int, visiting map[*openapi3.Schema]bool) *types.Schema {
	if ref == nil || ref.Value == nil || depth > maxSchemaDepth {
		return nil
	}
	schema := ref.Value
	if visiting[schema] {
		// Recursive reference; stop at an untyped object.
		return &types.Schema{Type: "object"}
	}
	if visiting == nil {
		visiting = make(map[*openapi3.Schema]bool)
	}
	visiting[schema] = true
	defer delete(visiting, schema)

	out := &types.Schema{
		Type:        schemaType(schema),
		Format:      schema.Format,
		Description: schema.Description,
		Enum:        schema.Enum,
		Example:     schema.Example,
		Minimum:     schema.Min,
		Required:    schema.Required,
		Items:       convertSchema(schema.Items, depth+1, visiting),
	}

	if len(schema.Properties) > 0 {
		out.Properties = make(map[string]*types.Schema, len(schema.Properties))
		for name, prop := range schema.Properties {
			out.Properties[name] = convertSchema(prop, depth+1, visiting)
		}
	}

	for _, member := range schema.AllOf {
		merged := convertSchema(member, depth+1, visiting)
		if merged == nil {
			continue
		}
		if out.Properties == nil && len(merged.Properties) > 0 {
			out.Properties = make(map[string]*types.Schema, len(merged.Properties))
		}
		for name, prop := range merged.Properties {
			if _, exists := out.Properties[name]; !exists {
				out.Properties[name] = prop
			}
		}
		out.Required = append(out.Required, merged.Required...)
		if out.Type == "" {
			out.Type = merged.Type
		}
	}

	if out.Type == "" && len(out.Properties) > 0 {
		out.Type = "object"
	}
	return out
}

func schemaType(schema *openapi3.Schema) string {
	if schema.Type == nil {
		return ""
	}
	for _, t := range *schema.Type {
		if t != openapi3.TypeNull {
			return t
		}
	}
	return ""
}
