package reporter

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andreipetrus/first-base-api-dochancer/internal/types"
)

// Report represents the test execution report
type Report struct {
	Timestamp  time.Time     `json:"timestamp"`
	BaseURL    string        `json:"baseUrl,omitempty"`
	TotalTests int           `json:"totalTests"`
	Success    int           `json:"success"`
	Warnings   int           `json:"warnings"`
	Failures   int           `json:"failures"`
	Untested   int           `json:"untested"`
	Duration   time.Duration `json:"duration"`
	Results    []Entry       `json:"results"`
}

// Entry is the outcome for a single endpoint
type Entry struct {
	Method     string        `json:"method"`
	Path       string        `json:"path"`
	Status     string        `json:"status"`
	StatusCode int           `json:"statusCode,omitempty"`
	Message    string        `json:"message,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// Summary is the one-line outcome of the run.
func (r *Report) Summary() string {
	return fmt.Sprintf("Testing complete: %d success, %d warnings, %d failures", r.Success, r.Warnings, r.Failures)
}

// Reporter handles the generation of test reports
type Reporter struct {
	config ReportingConfig
	now    func() time.Time
}

// ReportingConfig holds the configuration for reporting
type ReportingConfig struct {
	Formats   []string
	OutputDir string
}

// NewReporter creates a new instance of Reporter
func NewReporter(config ReportingConfig) *Reporter {
	return &Reporter{
		config: config,
		now:    time.Now,
	}
}

// Build tallies the test results carried by endpoints.
func Build(endpoints []types.Endpoint, baseURL string, now time.Time) *Report {
	report := &Report{
		Timestamp:  now,
		BaseURL:    baseURL,
		TotalTests: len(endpoints),
		Results:    make([]Entry, 0, len(endpoints)),
	}

	for _, e := range endpoints {
		entry := Entry{Method: strings.ToUpper(e.Method), Path: e.Path, Status: types.StatusPending}
		if tr := e.TestResult; tr != nil {
			entry.Status = tr.Status
			entry.StatusCode = tr.StatusCode
			entry.Message = tr.Message
			entry.Error = tr.Error
			entry.Duration = tr.Duration
			report.Duration += tr.Duration
		}
		switch entry.Status {
		case types.StatusSuccess:
			report.Success++
		case types.StatusWarning:
			report.Warnings++
		case types.StatusFailure:
			report.Failures++
		default:
			report.Untested++
		}
		report.Results = append(report.Results, entry)
	}
	return report
}

// GenerateReport builds the report and writes it in every configured format.
// It returns the report and the paths written.
func (r *Reporter) GenerateReport(endpoints []types.Endpoint, baseURL string) (*Report, []string, error) {
	report := Build(endpoints, baseURL, r.now())

	if len(r.config.Formats) > 0 {
		if err := os.MkdirAll(r.config.OutputDir, 0755); err != nil {
			return report, nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	var written []string
	for _, format := range r.config.Formats {
		var (
			path string
			err  error
		)
		switch format {
		case "json":
			path, err = r.generateJSONReport(report)
		case "html":
			path, err = r.generateHTMLReport(report)
		default:
			err = fmt.Errorf("unsupported report format %q", format)
		}
		if err != nil {
			return report, written, fmt.Errorf("failed to generate %s report: %w", format, err)
		}
		written = append(written, path)
	}
	return report, written, nil
}

func (r *Reporter) reportPath(report *Report, ext string) string {
	return filepath.Join(r.config.OutputDir, fmt.Sprintf("report_%s.%s", report.Timestamp.Format("20060102_150405"), ext))
}

// generateJSONReport generates a JSON format report
func (r *Reporter) generateJSONReport(report *Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	path := r.reportPath(report, "json")
	return path, os.WriteFile(path, data, 0644)
}

var htmlReport = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>API test report {{.Timestamp.Format "2006-01-02 15:04:05"}}</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; margin: 24px; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ddd; padding: 6px 10px; text-align: left; }
.success { color: #17803d; } .warning { color: #b26a00; } .failure { color: #c62828; } .pending { color: #777; }
</style>
</head>
<body>
<h1>API test report</h1>
{{with .BaseURL}}<p>Base URL: <code>{{.}}</code></p>{{end}}
<p>{{.Summary}} ({{.TotalTests}} endpoints, {{.Untested}} untested)</p>
<table>
<tr><th>Method</th><th>Path</th><th>Status</th><th>Code</th><th>Message</th><th>Duration</th></tr>
{{range .Results}}<tr class="{{.Status}}"><td>{{.Method}}</td><td><code>{{.Path}}</code></td><td class="{{.Status}}">{{.Status}}</td><td>{{if .StatusCode}}{{.StatusCode}}{{end}}</td><td>{{.Message}}</td><td>{{.Duration}}</td></tr>
{{end}}</table>
</body>
</html>
`))

// generateHTMLReport generates an HTML format report
func (r *Reporter) generateHTMLReport(report *Report) (string, error) {
	path := r.reportPath(report, "html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := htmlReport.Execute(f, report); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
