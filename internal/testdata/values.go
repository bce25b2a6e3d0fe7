package testdata

import (
	"fmt"
	"strings"

	"github.com/andreipetrus/first-base-api-dochancer/internal/types"
)

// Canned values for well-known string formats.
const (
	SampleEmail    = "test@example.com"
	SampleDate     = "2024-01-01"
	SampleDateTime = "2024-01-01T00:00:00Z"
	SampleUUID     = "123e4567-e89b-12d3-a456-426614174000"
	SampleString   = "test-string"
)

var formatSamples = map[string]string{
	"email":     SampleEmail,
	"date":      SampleDate,
	"date-time": SampleDateTime,
	"uuid":      SampleUUID,
	"uri":       "https://example.com",
	"ipv4":      "192.168.1.1",
	"ipv6":      "2001:db8::1",
}

// FromSchema synthesizes a plausible value for the given schema.
// A nil schema yields an empty object, the same shape AI-less body synthesis
// falls back to when a body has no declared structure.
func FromSchema(schema *types.Schema) any {
	if schema == nil {
		return map[string]any{}
	}

	switch schema.Type {
	case "object":
		result := make(map[string]any, len(schema.Properties))
		for name, prop := range schema.Properties {
			result[name] = FromSchema(prop)
		}
		return result
	case "array":
		// Single element generated from the items schema
		return []any{FromSchema(schema.Items)}
	case "string":
		if len(schema.Enum) > 0 {
			return schema.Enum[0]
		}
		if sample, ok := formatSamples[schema.Format]; ok {
			return sample
		}
		return SampleString
	case "integer":
		if len(schema.Enum) > 0 {
			return schema.Enum[0]
		}
		if schema.Minimum != nil {
			return int64(*schema.Minimum)
		}
		return int64(1)
	case "number":
		if len(schema.Enum) > 0 {
			return schema.Enum[0]
		}
		if schema.Minimum != nil {
			return *schema.Minimum
		}
		return float64(1)
	case "boolean":
		return true
	}
	return nil
}

// ParamValue synthesizes the string form of a parameter value.
// Examples and enums win over type-based defaults.
func ParamValue(param types.Parameter) string {
	if param.Example != nil {
		return fmt.Sprint(param.Example)
	}

	schema := param.Schema
	if schema != nil {
		if schema.Example != nil {
			return fmt.Sprint(schema.Example)
		}
		if len(schema.Enum) > 0 {
			return fmt.Sprint(schema.Enum[0])
		}
		switch schema.Type {
		case "integer", "number":
			return "1"
		case "boolean":
			return "true"
		}
	}

	if strings.Contains(strings.ToLower(param.Name), "id") {
		return "123"
	}
	return "test"
}
