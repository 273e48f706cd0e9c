package report

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/ncecere/bedrock_edge_probe/internal/probe"
)

var ansiPattern = regexp.MustCompile("\x1b\\[[0-9;]*m")

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func sampleResults() *probe.Results {
	results := probe.NewResults()
	keyA := probe.Key("Claude 3.5 Sonnet", "us-west-2")
	keyB := probe.Key("Claude 3 Haiku", "us-east-1")
	results.Keys = []string{keyA, keyB}

	results.Direct[keyA] = probe.Result{Success: true, StatusCode: 200, Elapsed: 1200 * time.Millisecond}
	results.Direct[keyB] = probe.Result{Success: true, StatusCode: 200, Elapsed: 900 * time.Millisecond}
	results.Proxy[keyA] = probe.Result{Success: true, StatusCode: 200, Elapsed: 2340 * time.Millisecond}
	results.Proxy[keyB] = probe.Result{ErrorKind: "AccessDeniedException", ErrorMessage: "denied"}
	return results
}

func TestSuccessRate(t *testing.T) {
	cases := []struct {
		success, total, want int
	}{
		{0, 0, 0},
		{3, 3, 100},
		{0, 3, 0},
		{2, 3, 67},
		{1, 3, 33},
		{1, 6, 17},
	}
	for _, tt := range cases {
		if got := SuccessRate(tt.success, tt.total); got != tt.want {
			t.Fatalf("SuccessRate(%d, %d): want %d got %d", tt.success, tt.total, tt.want, got)
		}
	}
}

func TestTableRowsMatchRunOrder(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Table(sampleResults())
	out := stripANSI(buf.String())

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	var rows []string
	pastDivider := false
	for _, line := range lines {
		if strings.HasPrefix(line, "---") {
			pastDivider = true
			continue
		}
		if pastDivider && strings.TrimSpace(line) != "" {
			rows = append(rows, line)
		}
	}

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d:\n%s", len(rows), out)
	}
	if !strings.HasPrefix(rows[0], "Claude 3.5 Sonnet") || !strings.Contains(rows[0], "us-west-2") {
		t.Fatalf("row 0 out of order: %q", rows[0])
	}
	if !strings.HasPrefix(rows[1], "Claude 3 Haiku") || !strings.Contains(rows[1], "us-east-1") {
		t.Fatalf("row 1 out of order: %q", rows[1])
	}

	// Successful proxy probe shows elapsed seconds, failed one a dash.
	if !strings.Contains(rows[0], "2.34s") {
		t.Fatalf("row 0 missing proxy elapsed: %q", rows[0])
	}
	if !strings.Contains(rows[1], "FAIL") || !strings.HasSuffix(strings.TrimSpace(rows[1]), "-") {
		t.Fatalf("row 1 should FAIL with placeholder elapsed: %q", rows[1])
	}
}

func TestTableTruncatesLongModelNames(t *testing.T) {
	results := probe.NewResults()
	longName := strings.Repeat("x", 40)
	key := probe.Key(longName, "us-west-2")
	results.Keys = []string{key}
	results.Direct[key] = probe.Result{Success: true}
	results.Proxy[key] = probe.Result{Success: true, Elapsed: time.Second}

	var buf bytes.Buffer
	New(&buf).Table(results)
	out := stripANSI(buf.String())

	if strings.Contains(out, longName) {
		t.Fatal("model name should be truncated in the table")
	}
	if !strings.Contains(out, strings.Repeat("x", 29)) {
		t.Fatalf("expected 29-char truncation:\n%s", out)
	}
}

func TestSummaryCountsAndRates(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Summary(sampleResults())
	out := stripANSI(buf.String())

	for _, want := range []string{
		"Direct Bedrock API:",
		"CDN proxy:",
		"Passed: 2/2",
		"Success rate: 100%",
		"Passed: 1/2",
		"Failed: 1/2",
		"Success rate: 50%",
		"FAIL Claude 3 Haiku @ us-east-1 (AccessDeniedException)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestSummaryAllFailed(t *testing.T) {
	results := probe.NewResults()
	key := probe.Key("Claude 3 Haiku", "eu-west-1")
	results.Keys = []string{key}
	results.Direct[key] = probe.Result{ErrorKind: "UnrecognizedClientException", ErrorMessage: "bad creds"}
	results.Proxy[key] = probe.Result{ErrorKind: "UnrecognizedClientException", ErrorMessage: "bad creds"}

	var buf bytes.Buffer
	New(&buf).Summary(results)
	out := stripANSI(buf.String())

	if strings.Count(out, "Success rate: 0%") != 2 {
		t.Fatalf("expected both modes at 0%%:\n%s", out)
	}
}

func TestSummarySkippedMode(t *testing.T) {
	results := probe.NewResults()
	key := probe.Key("Claude 3 Haiku", "eu-west-1")
	results.Keys = []string{key}
	results.Direct[key] = probe.Result{Success: true}

	var buf bytes.Buffer
	New(&buf).Summary(results)
	out := stripANSI(buf.String())

	if !strings.Contains(out, "skipped") {
		t.Fatalf("empty proxy map should render as skipped:\n%s", out)
	}
}

func TestBannerIncludesEndpointAndRunID(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Banner("run-123", "https://d1234abcd.cloudfront.net", time.Date(2026, time.August, 25, 10, 0, 0, 0, time.UTC))
	out := stripANSI(buf.String())

	if !strings.Contains(out, "https://d1234abcd.cloudfront.net") {
		t.Fatalf("banner missing endpoint:\n%s", out)
	}
	if !strings.Contains(out, "run-123") || !strings.Contains(out, "2026-08-25 10:00:00") {
		t.Fatalf("banner missing run metadata:\n%s", out)
	}
}
