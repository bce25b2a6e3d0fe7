// Package executor runs live requests against documented endpoints.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andreipetrus/first-base-api-dochancer/internal/llm"
	"github.com/andreipetrus/first-base-api-dochancer/internal/types"
)

// maxResponseBytes caps how much of a response body is kept in a result.
const maxResponseBytes = 64 << 10

// Options holds configuration for test execution
type Options struct {
	Timeout    time.Duration
	MaxWorkers int
	Transport  http.RoundTripper
}

// Target is what a test run is aimed at: the server, its credential, the
// optional AI capability for test data and the common parameter overrides.
type Target struct {
	BaseURL string
	APIKey  string
	AI      llm.LLMClient
	Common  []types.APIParameter
}

// settings is the configuration a test run reads. It is replaced, never mutated.
type settings struct {
	baseURL string
	apiKey  string
	ai      llm.LLMClient
	common  []types.APIParameter
}

func newSettings(target Target) *settings {
	return &settings{
		baseURL: strings.TrimRight(target.BaseURL, "/"),
		apiKey:  target.APIKey,
		ai:      target.AI,
		common:  append([]types.APIParameter(nil), target.Common...),
	}
}

// Tester handles the execution of API tests
type Tester struct {
	opts     Options
	client   *http.Client
	settings atomic.Pointer[settings]
	logger   *zap.Logger
}

// NewTester creates a new tester. It must be configured before use.
func NewTester(opts Options, logger *zap.Logger) *Tester {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 10
	}
	t := &Tester{
		opts: opts,
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
		logger: logger.Named("tester"),
	}
	t.settings.Store(&settings{})
	return t
}

// Configure sets the target server, credentials, optional AI capability and
// common parameter overrides. Runs already in flight keep the settings they
// started with.
func (t *Tester) Configure(baseURL, apiKey string, ai llm.LLMClient, common []types.APIParameter) {
	t.settings.Store(newSettings(Target{BaseURL: baseURL, APIKey: apiKey, AI: ai, Common: common}))
}

// CloseIdleConnections closes kept-alive connections to tested servers.
func (t *Tester) CloseIdleConnections() {
	t.client.CloseIdleConnections()
}

// TestEndpoint sends one synthesized request and classifies the outcome.
func (t *Tester) TestEndpoint(ctx context.Context, endpoint types.Endpoint) types.TestResult {
	return t.test(ctx, t.settings.Load(), endpoint)
}

// TestAllEndpoints tests every endpoint concurrently with the configured
// settings. The returned endpoints are copies of the input, in the same order,
// each carrying its result.
func (t *Tester) TestAllEndpoints(ctx context.Context, endpoints []types.Endpoint) []types.Endpoint {
	return t.run(ctx, t.settings.Load(), endpoints)
}

// TestAllEndpointsAt is TestAllEndpoints against target, leaving the
// configured settings untouched. Concurrent calls do not affect each other.
func (t *Tester) TestAllEndpointsAt(ctx context.Context, target Target, endpoints []types.Endpoint) []types.Endpoint {
	return t.run(ctx, newSettings(target), endpoints)
}

func (t *Tester) run(ctx context.Context, s *settings, endpoints []types.Endpoint) []types.Endpoint {
	out := make([]types.Endpoint, len(endpoints))

	g := new(errgroup.Group)
	g.SetLimit(t.opts.MaxWorkers)
	for i, endpoint := range endpoints {
		g.Go(func() error {
			result := t.test(ctx, s, endpoint)
			out[i] = endpoint.Clone()
			out[i].TestResult = &result
			return nil
		})
	}
	// Results are data; workers never fail.
	_ = g.Wait()

	var success, warning, failure int
	for _, e := range out {
		switch e.TestResult.Status {
		case types.StatusSuccess:
			success++
		case types.StatusWarning:
			warning++
		case types.StatusFailure:
			failure++
		}
	}
	t.logger.Info("Endpoint tests finished",
		zap.Int("endpoints", len(out)),
		zap.Int("success", success),
		zap.Int("warning", warning),
		zap.Int("failure", failure),
	)
	return out
}

func (t *Tester) test(ctx context.Context, s *settings, endpoint types.Endpoint) types.TestResult {
	if s.baseURL == "" {
		return types.TestResult{
			Status:    types.StatusWarning,
			Message:   "No base URL configured for testing",
			Timestamp: time.Now(),
		}
	}

	req, err := t.buildRequest(ctx, s, endpoint)
	if err != nil {
		return types.TestResult{
			Status:    types.StatusFailure,
			Message:   "failed to build request",
			Error:     err.Error(),
			Timestamp: time.Now(),
		}
	}

	t.logger.Info("Testing endpoint", zap.String("method", req.Method), zap.String("url", req.URL.String()))
	return t.execute(req)
}

// execute performs the request. Every received status is a result; only a
// missing response is a failure.
func (t *Tester) execute(req *http.Request) types.TestResult {
	start := time.Now()
	resp, err := t.client.Do(req)
	duration := time.Since(start)

	if err != nil {
		t.logger.Warn("Endpoint request failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.Error(err),
		)
		return types.TestResult{
			Status:    types.StatusFailure,
			Message:   err.Error(),
			Error:     fmt.Sprintf("%s %s: %+v", req.Method, req.URL.Redacted(), err),
			Duration:  duration,
			Timestamp: start,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		t.logger.Debug("Failed to read response body", zap.String("url", req.URL.String()), zap.Error(err))
	}

	result := types.TestResult{
		Status:     types.StatusWarning,
		StatusCode: resp.StatusCode,
		Message:    "Received " + resp.Status,
		Response:   formatBody(resp.Header.Get("Content-Type"), body),
		Headers:    flattenHeaders(resp.Header),
		Duration:   duration,
		Timestamp:  start,
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result.Status = types.StatusSuccess
	}
	return result
}

// formatBody pretty prints JSON responses and returns others verbatim.
func formatBody(contentType string, body []byte) string {
	if strings.Contains(contentType, "json") {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, body, "", "  "); err == nil {
			return pretty.String()
		}
	}
	return string(body)
}

func flattenHeaders(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for key, values := range h {
		out[key] = strings.Join(values, ", ")
	}
	return out
}
