package store

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	insertRun = `INSERT INTO dochancer_runs
(id, base_url, started_at, finished_at, total, success, warnings, failures)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	insertResult = `INSERT INTO dochancer_results
(run_id, position, method, path, status, status_code, message, duration_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	runColumns = `id, base_url, started_at, finished_at, total, success, warnings, failures`
)

// dialect captures what differs between the supported databases.
type dialect struct {
	name string
	// placeholder renders the n-th (1-based) bind parameter.
	placeholder func(n int) string
	timestamp   string
	text        string
}

var dialects = map[string]dialect{
	"postgres": {
		name:        "postgres",
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		timestamp:   "TIMESTAMPTZ",
		text:        "TEXT",
	},
	"mysql": {
		name:        "mysql",
		placeholder: func(int) string { return "?" },
		timestamp:   "DATETIME(3)",
		text:        "TEXT",
	},
	"sqlserver": {
		name:        "sqlserver",
		placeholder: func(n int) string { return "@p" + strconv.Itoa(n) },
		timestamp:   "DATETIME2",
		text:        "NVARCHAR(MAX)",
	},
}

func dialectFor(name string) (dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported database type: %s", name)
	}
	return d, nil
}

// rebind rewrites ? placeholders into the dialect's form.
func (d dialect) rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d dialect) schema() []string {
	runs := fmt.Sprintf(`dochancer_runs (
    id VARCHAR(36) PRIMARY KEY,
    base_url VARCHAR(2048) NOT NULL,
    started_at %[1]s NOT NULL,
    finished_at %[1]s NOT NULL,
    total INT NOT NULL,
    success INT NOT NULL,
    warnings INT NOT NULL,
    failures INT NOT NULL
)`, d.timestamp)

	results := fmt.Sprintf(`dochancer_results (
    run_id VARCHAR(36) NOT NULL REFERENCES dochancer_runs(id),
    position INT NOT NULL,
    method VARCHAR(16) NOT NULL,
    path VARCHAR(2048) NOT NULL,
    status VARCHAR(16) NOT NULL,
    status_code INT NOT NULL,
    message %s,
    duration_ms BIGINT NOT NULL,
    PRIMARY KEY (run_id, position)
)`, d.text)

	if d.name == "sqlserver" {
		return []string{
			"IF OBJECT_ID('dochancer_runs', 'U') IS NULL CREATE TABLE " + runs,
			"IF OBJECT_ID('dochancer_results', 'U') IS NULL CREATE TABLE " + results,
		}
	}
	return []string{
		"CREATE TABLE IF NOT EXISTS " + runs,
		"CREATE TABLE IF NOT EXISTS " + results,
	}
}

func (d dialect) recentRuns() string {
	if d.name == "sqlserver" {
		return "SELECT TOP (?) " + runColumns + " FROM dochancer_runs ORDER BY started_at DESC"
	}
	return "SELECT " + runColumns + " FROM dochancer_runs ORDER BY started_at DESC LIMIT ?"
}
