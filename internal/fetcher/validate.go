package fetcher

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Validation is the outcome of a pre-flight check.
type Validation struct {
	Valid      bool   `json:"valid"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
}

// ValidateURL checks that a documentation URL answers below 500 with content the parser can read.
func (c *Client) ValidateURL(ctx context.Context, rawURL string, timeout time.Duration) Validation {
	header := http.Header{}
	header.Set("Accept", "text/html,application/xhtml+xml,application/xml,application/json")

	resp, _, err := c.get(ctx, rawURL, timeout, header)
	if err != nil {
		c.logger.Info("URL validation failed", zap.String("url", rawURL), zap.Error(err))
		return Validation{Message: "Failed to access URL", Details: err.Error()}
	}

	contentType := resp.Header.Get("Content-Type")
	details := fmt.Sprintf("Content-Type: %s, Status: %d", contentType, resp.StatusCode)

	switch {
	case resp.StatusCode != http.StatusOK:
		return Validation{
			Message:    fmt.Sprintf("URL returned status %d", resp.StatusCode),
			Details:    http.StatusText(resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	case isParseable(contentType):
		return Validation{Valid: true, Message: "URL is accessible and parseable", Details: details, StatusCode: resp.StatusCode}
	default:
		return Validation{Valid: true, Message: "URL is accessible but may have limited parsing", Details: details, StatusCode: resp.StatusCode}
	}
}

func isParseable(contentType string) bool {
	ct := strings.ToLower(contentType)
	for _, marker := range []string{"text/", "application/json", "application/pdf", "yaml", "application/vnd.openxmlformats"} {
		if strings.Contains(ct, marker) {
			return true
		}
	}
	return false
}

// ValidateAPIKey probes baseURL with the key in the header forms the tester uses.
// Only 401 and 403 answers mark the key invalid.
func (c *Client) ValidateAPIKey(ctx context.Context, baseURL, apiKey string, timeout time.Duration) Validation {
	if baseURL == "" {
		return Validation{Message: "Cannot connect to API server", Details: "No base URL provided"}
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("Content-Type", "application/json")
	switch {
	case strings.HasPrefix(strings.ToLower(apiKey), "bearer "):
		header.Set("Authorization", apiKey)
	case strings.Contains(apiKey, ":"):
		header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(apiKey)))
	default:
		header.Set("Authorization", "Bearer "+apiKey)
		header.Set("X-API-Key", apiKey)
		header.Set("api-key", apiKey)
	}

	resp, _, err := c.get(ctx, baseURL, timeout, header)
	if err != nil {
		c.logger.Info("API key validation could not connect", zap.String("url", baseURL), zap.Error(err))
		return Validation{Message: "Cannot connect to API server", Details: fmt.Sprintf("Cannot reach %s", baseURL)}
	}

	status := resp.StatusCode
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Validation{Message: "API key authentication failed", Details: fmt.Sprintf("Status %d: %s", status, http.StatusText(status)), StatusCode: status}
	case status >= 200 && status < 300:
		return Validation{Valid: true, Message: "Test API key is valid", Details: fmt.Sprintf("Successfully authenticated with status %d", status), StatusCode: status}
	case status == http.StatusNotFound:
		return Validation{Valid: true, Message: "API key appears valid (endpoint not found is expected)", Details: "Authentication passed but specific endpoint not found", StatusCode: status}
	default:
		return Validation{Valid: true, Message: "API key validation inconclusive", Details: fmt.Sprintf("Received status %d - key may be valid", status), StatusCode: status}
	}
}
