package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/y0f/httpcheck/internal/checker"
	"github.com/y0f/httpcheck/internal/config"
	"github.com/y0f/httpcheck/internal/runner"
)

func TestRun(t *testing.T) {
	color.NoColor = true

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok","queue":{"depth":120}}`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	cfg, err := config.Parse([]byte(`
client:
  allow_private_targets: true
checks:
  - name: health
    url: ` + server.URL + `/health
    expect:
      custom: json_path
      payload:
        conditions:
          - {path: status, operator: eq, value: ok}
          - {path: queue.depth, operator: lt, value: "100", degraded: true}
  - name: down
    url: ` + server.URL + `/down
`))
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	logger := setupLogger(cfg.Logging, io.Discard)
	metricsFile := filepath.Join(t.TempDir(), "httpcheck.prom")
	code := run(context.Background(), cfg, cfg.Checks, logger, &out, metricsFile)

	if code != exitFailed {
		t.Fatalf("exit code = %d, want %d\n%s", code, exitFailed, out.String())
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", out.String())
	}
	if !strings.HasPrefix(lines[0], "WARN") || !strings.Contains(lines[0], "queue.depth") {
		t.Errorf("unexpected health line %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "ERROR") || !strings.Contains(lines[1], "Unexpected status code 503.") {
		t.Errorf("unexpected down line %q", lines[1])
	}

	prom, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(prom), `httpcheck_checks_total{check="down",outcome="error"} 1`) {
		t.Errorf("metrics file missing down counter:\n%s", prom)
	}
}

func TestRunJSONPathShorthand(t *testing.T) {
	color.NoColor = true

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"DOWN"}`))
	}))
	defer server.Close()

	cfg, err := config.Parse([]byte(`
client:
  allow_private_targets: true
checks:
  - name: api
    url: ` + server.URL + `
    expect:
      json_path:
        - {path: status, operator: eq, value: ok}
`))
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	code := run(context.Background(), cfg, cfg.Checks, setupLogger(cfg.Logging, io.Discard), &out, "")
	if code != exitFailed {
		t.Fatalf("exit code = %d, want %d\n%s", code, exitFailed, out.String())
	}
	if !strings.HasPrefix(out.String(), "ERROR") || !strings.Contains(out.String(), "expected eq ok, got DOWN") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name    string
		results []runner.Result
		want    int
	}{
		{"all ok", []runner.Result{{Verdict: checker.OK()}, {Verdict: checker.Warn("slow")}}, exitOK},
		{"one error", []runner.Result{{Verdict: checker.OK()}, {Verdict: checker.Error("down")}}, exitFailed},
		{"fatal wins", []runner.Result{{Verdict: checker.Error("down")}, {Err: errors.New("bad spec")}}, exitConfig},
		{"none", nil, exitOK},
	}
	for _, tt := range tests {
		if got := exitCode(tt.results); got != tt.want {
			t.Errorf("%s: exitCode = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestPrintResults(t *testing.T) {
	color.NoColor = true

	var out bytes.Buffer
	printResults(&out, []runner.Result{
		{Name: "a", Verdict: checker.OK()},
		{Name: "b", Err: checker.ErrMissingRequiredField},
	})

	got := out.String()
	if !strings.Contains(got, "OK     a") {
		t.Errorf("missing ok line in %q", got)
	}
	if !strings.Contains(got, "FATAL  b: missing required field") {
		t.Errorf("missing fatal line in %q", got)
	}
}
