package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ncecere/bedrock_edge_probe/internal/probe"
)

const (
	modelColumnWidth  = 29
	statusPlaceholder = "-"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 2)
	headerStyle = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#16a085", Dark: "#1abc9c"})
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#c0392b", Dark: "#e74c3c"})
)

// Reporter renders the probe outcome table and per-mode summaries. It is
// purely presentational: no side effects beyond writes to out.
type Reporter struct {
	out io.Writer
}

// New constructs a reporter writing to out.
func New(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

// Banner prints the run header with the proxy endpoint under test.
func (r *Reporter) Banner(runID, proxyEndpoint string, started time.Time) {
	fmt.Fprintln(r.out, bannerStyle.Render("Bedrock CDN proxy connectivity check"))
	fmt.Fprintf(r.out, "Proxy endpoint: %s\n", proxyEndpoint)
	fmt.Fprintf(r.out, "Run: %s at %s\n", runID, started.Format("2006-01-02 15:04:05"))
}

// Table prints one row per (model, region) pair in run order.
func (r *Reporter) Table(results *probe.Results) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, headerStyle.Render(fmt.Sprintf("%-30s %-20s %-6s %-6s %-10s",
		"Model", "Region", "Direct", "Proxy", "Elapsed")))
	fmt.Fprintln(r.out, strings.Repeat("-", 75))

	for _, key := range results.Keys {
		model, region := splitKey(key)
		direct, hasDirect := results.Direct[key]
		proxy, hasProxy := results.Proxy[key]

		elapsed := statusPlaceholder
		if hasProxy && proxy.Success {
			elapsed = fmt.Sprintf("%.2fs", proxy.Elapsed.Seconds())
		}

		// Statuses are padded before styling so ANSI sequences do not
		// skew the column widths.
		fmt.Fprintf(r.out, "%-30s %-20s %s %s %-10s\n",
			truncate(model, modelColumnWidth),
			region,
			statusCell(direct, hasDirect),
			statusCell(proxy, hasProxy),
			elapsed)
	}
}

// Summary prints aggregate pass/fail counts and the success rate for each
// mode, followed by the failed pair keys when there are any.
func (r *Reporter) Summary(results *probe.Results) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, strings.Repeat("=", 75))
	r.modeSummary("Direct Bedrock API", results.Direct, results.Keys)
	r.modeSummary("CDN proxy", results.Proxy, results.Keys)
}

func (r *Reporter) modeSummary(label string, outcomes map[string]probe.Result, order []string) {
	fmt.Fprintf(r.out, "\n%s:\n", label)
	if len(outcomes) == 0 {
		fmt.Fprintln(r.out, "  skipped")
		return
	}

	total := len(outcomes)
	success := 0
	var failures []string
	for _, key := range order {
		result, ok := outcomes[key]
		if !ok {
			continue
		}
		if result.Success {
			success++
		} else {
			failures = append(failures, fmt.Sprintf("%s (%s)", key, result.ErrorKind))
		}
	}

	fmt.Fprintf(r.out, "  Passed: %d/%d\n", success, total)
	fmt.Fprintf(r.out, "  Failed: %d/%d\n", total-success, total)
	fmt.Fprintf(r.out, "  Success rate: %d%%\n", SuccessRate(success, total))
	for _, failure := range failures {
		fmt.Fprintf(r.out, "  FAIL %s\n", failure)
	}
}

// SuccessRate returns success/total as a percentage rounded to the
// nearest integer. Zero totals yield zero.
func SuccessRate(success, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(success) / float64(total) * 100))
}

func statusCell(result probe.Result, present bool) string {
	if !present {
		return fmt.Sprintf("%-6s", statusPlaceholder)
	}
	if result.Success {
		return okStyle.Render(fmt.Sprintf("%-6s", "OK"))
	}
	return failStyle.Render(fmt.Sprintf("%-6s", "FAIL"))
}

func splitKey(key string) (model, region string) {
	idx := strings.LastIndex(key, " @ ")
	if idx < 0 {
		return key, ""
	}
	return key[:idx], key[idx+3:]
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
