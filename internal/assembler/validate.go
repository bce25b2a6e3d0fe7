package assembler

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/andreipetrus/first-base-api-dochancer/internal/types"
)

// Validate lists problems that make the document less useful. None of them
// prevent publishing it.
func Validate(ctx context.Context, doc *openapi3.T) []string {
	var warnings []string

	if doc.Info == nil || doc.Info.Title == "" {
		warnings = append(warnings, "Missing API title in info section")
	}
	if doc.Info == nil || doc.Info.Version == "" {
		warnings = append(warnings, "Missing API version in info section")
	}
	if len(doc.Servers) == 0 {
		warnings = append(warnings, "No servers defined - API base URL is missing")
	}

	var paths map[string]*openapi3.PathItem
	if doc.Paths != nil {
		paths = doc.Paths.Map()
	}
	if len(paths) == 0 {
		warnings = append(warnings, "No API endpoints defined")
	}

	keys := make([]string, 0, len(paths))
	for path := range paths {
		keys = append(keys, path)
	}
	slices.Sort(keys)

	for _, path := range keys {
		item := paths[path]
		for _, method := range types.Methods {
			op := item.GetOperation(method)
			if op == nil {
				continue
			}
			label := strings.ToUpper(method) + " " + path
			if op.Summary == "" && op.Description == "" {
				warnings = append(warnings, label+": Missing summary and description")
			}
			if op.Responses == nil || op.Responses.Len() == 0 {
				warnings = append(warnings, label+": No responses defined")
			}
		}
	}

	if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		warnings = append(warnings, fmt.Sprintf("OpenAPI validation: %v", err))
	}
	return warnings
}
