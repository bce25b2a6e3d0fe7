// Package params infers parameters shared across an API's endpoints.
package params

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/andreipetrus/first-base-api-dochancer/internal/types"
)

// AuthHeaders are always offered as common headers when the documentation mentions them.
var AuthHeaders = []string{
	"Authorization",
	"X-API-Key",
	"API-Key",
	"X-Auth-Token",
	"X-Access-Token",
	"X-Request-ID",
	"X-Session-ID",
}

// authCues imply an Authorization header even when no header is named.
var authCues = []string{"authentication", "api key", "auth"}

type candidate struct {
	param types.APIParameter
	count int
}

// ExtractCommonParameters returns the parameters worth configuring once for the
// whole API: headers seen anywhere, query parameters used by at least 20% of
// the endpoints (rounded up), mentioned auth headers and, for
// JSON APIs, Content-Type and Accept. Path parameters are never included.
func ExtractCommonParameters(endpoints []types.Endpoint) []types.APIParameter {
	var (
		order      []string
		candidates = make(map[string]*candidate)
	)

	for _, e := range endpoints {
		counted := make(map[string]bool)
		for _, p := range e.Parameters {
			typ, ok := parameterType(p.In)
			if !ok || p.Name == "" {
				continue
			}
			key := typ + ":" + p.Name
			c, exists := candidates[key]
			if !exists {
				c = &candidate{param: types.APIParameter{
					Name:        p.Name,
					Value:       exampleValue(p),
					Type:        typ,
					Description: p.Description,
				}}
				if p.Schema != nil {
					c.param.Format = p.Schema.Format
				}
				candidates[key] = c
				order = append(order, key)
			}
			if !counted[key] {
				counted[key] = true
				c.count++
			}
		}
	}

	// ceil(0.2 × n)
	threshold := (len(endpoints) + 4) / 5

	var out []types.APIParameter
	for _, key := range order {
		c := candidates[key]
		switch {
		case c.param.Type == types.InPath:
			continue
		case c.param.Type == types.InHeader, c.count >= threshold:
			out = append(out, c.param)
		}
	}

	for _, name := range mentionedAuthHeaders(endpoints) {
		if !hasName(out, name) {
			out = append(out, types.APIParameter{
				Name:        name,
				Type:        types.InHeader,
				Description: "Authentication header",
			})
		}
	}

	if usesJSON(endpoints) {
		if !hasName(out, "Content-Type") {
			out = append(out, types.APIParameter{
				Name:        "Content-Type",
				Value:       types.ContentTypeJSON,
				Type:        types.InHeader,
				Generated:   true,
				Description: "Content type of the request body",
			})
		}
		if !hasName(out, "Accept") {
			out = append(out, types.APIParameter{
				Name:        "Accept",
				Value:       types.ContentTypeJSON,
				Type:        types.InHeader,
				Generated:   true,
				Description: "Accepted response content type",
			})
		}
	}
	return out
}

// parameterType maps a parameter location to a common-parameter type.
func parameterType(in string) (string, bool) {
	switch in {
	case types.InPath, types.InQuery, types.InHeader:
		return in, true
	default:
		return "", false
	}
}

func exampleValue(p types.Parameter) string {
	if p.Example == nil {
		return ""
	}
	if s, ok := p.Example.(string); ok {
		return s
	}
	return fmt.Sprint(p.Example)
}

// mentionedAuthHeaders lists the auth headers named anywhere in the endpoints.
// Generic authentication wording alone implies Authorization.
func mentionedAuthHeaders(endpoints []types.Endpoint) []string {
	serialized, err := json.Marshal(endpoints)
	if err != nil {
		return nil
	}
	text := strings.ToLower(string(serialized))

	var found []string
	for _, name := range AuthHeaders {
		if strings.Contains(text, strings.ToLower(name)) {
			found = append(found, name)
		}
	}
	if len(found) > 0 {
		return found
	}
	for _, cue := range authCues {
		if strings.Contains(text, cue) {
			return []string{"Authorization"}
		}
	}
	return nil
}

func usesJSON(endpoints []types.Endpoint) bool {
	for _, e := range endpoints {
		if e.HasJSONContent() {
			return true
		}
	}
	return false
}

func hasName(params []types.APIParameter, name string) bool {
	for _, p := range params {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

// Merge overlays user-supplied overrides onto inferred parameters by name and
// type. Overrides that match nothing are appended.
func Merge(inferred, overrides []types.APIParameter) []types.APIParameter {
	out := append([]types.APIParameter(nil), inferred...)
	for _, o := range overrides {
		replaced := false
		for i := range out {
			if out[i].Type == o.Type && strings.EqualFold(out[i].Name, o.Name) {
				out[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, o)
		}
	}
	return out
}
