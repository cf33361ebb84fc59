// Package report prints step outcomes for a scenario run: pass/fail markers per
// step, a status and body dump for failures, and a closing summary.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"homeharness/internal/client"
)

// ANSI escape sequences for console markers.
const (
	Green  = "\033[92m"
	Red    = "\033[91m"
	Yellow = "\033[93m"
	Reset  = "\033[0m"
)

// Reporter writes human-readable outcomes to an output stream.
// It is not safe for concurrent use.
type Reporter struct {
	out    io.Writer
	color  bool
	stages int
}

// NewReporter creates a reporter writing to out. When color is false no escape
// sequences are emitted.
func NewReporter(out io.Writer, color bool) *Reporter {
	return &Reporter{out: out, color: color}
}

func (r *Reporter) paint(code, s string) string {
	if !r.color {
		return s
	}
	return code + s + Reset
}

// Start prints the run banner.
func (r *Reporter) Start() {
	fmt.Fprintf(r.out, "\nStarting Comprehensive API Tests...\n\n")
}

// Stage prints a stage header such as "--- HOUSES ---".
func (r *Reporter) Stage(name string) {
	if r.stages > 0 {
		fmt.Fprintln(r.out)
	}
	r.stages++
	fmt.Fprintf(r.out, "--- %s ---\n", strings.ToUpper(name))
}

// LogOutcome prints message with an [OK] or [FAIL] marker.
func (r *Reporter) LogOutcome(message string, success bool) {
	if success {
		fmt.Fprintln(r.out, r.paint(Green, "[OK] "+message))
		return
	}
	fmt.Fprintln(r.out, r.paint(Red, "[FAIL] "+message))
}

// FailRun prints a failure marker and, when resp is non-nil, its status code and
// body. Bodies that decode as JSON are pretty-printed; anything else is printed raw.
// Ending the run is left to the caller.
func (r *Reporter) FailRun(message string, resp *client.Response) {
	r.LogOutcome(message, false)
	if resp == nil {
		return
	}

	dump := fmt.Sprintf("   Status: %d\n   Response: %s", resp.StatusCode, FormatBody(resp.Body))
	fmt.Fprintln(r.out, r.paint(Red, dump))
}

// Skip prints a step that did not run because a dependency did not pass.
func (r *Reporter) Skip(message string) {
	fmt.Fprintln(r.out, r.paint(Yellow, "[SKIP] "+message))
}

// Unreachable prints the preflight diagnostic for a server that is not listening.
func (r *Reporter) Unreachable(baseURL string) {
	fmt.Fprintln(r.out, r.paint(Red, "Error: Server not running at "+baseURL))
}

// Summary prints the closing line of a run.
func (r *Reporter) Summary(passed, failed, skipped int) {
	fmt.Fprintln(r.out)
	if failed == 0 && skipped == 0 {
		fmt.Fprintln(r.out, r.paint(Green, "All tests passed."))
		return
	}

	line := fmt.Sprintf("%d passed, %d failed, %d skipped", passed, failed, skipped)
	if failed > 0 {
		fmt.Fprintln(r.out, r.paint(Red, line))
		return
	}
	fmt.Fprintln(r.out, r.paint(Yellow, line))
}

// FormatBody renders a response body for diagnostics: indented JSON when the
// body is valid JSON, the trimmed raw text otherwise.
func FormatBody(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return string(trimmed)
	}
	return buf.String()
}
