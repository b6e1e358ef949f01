// Package ui renders the CLI's human-facing output: formatted failures with
// "did you mean" suggestions, aligned tables, and a progress spinner.
package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// notice is the shape behind every formatted failure: a red headline, an
// optional consequence line, fuzzy suggestions, and follow-up commands.
type notice struct {
	headline    string
	consequence string
	suggestions []string
	followups   []string
	noColor     bool
}

func (n notice) render() string {
	head := color.New(color.FgRed, color.Bold)
	body := color.New(color.FgRed)
	hint := color.New(color.FgYellow)
	next := color.New(color.FgCyan)
	if n.noColor {
		head.DisableColor()
		body.DisableColor()
		hint.DisableColor()
		next.DisableColor()
	}

	var b strings.Builder
	head.Fprintf(&b, "✗ %s\n", n.headline)
	if n.consequence != "" {
		body.Fprintf(&b, "  %s\n", n.consequence)
	}
	if len(n.suggestions) > 0 {
		hint.Fprintf(&b, "\n  Did you mean: %s?\n", strings.Join(n.suggestions, ", "))
	}
	if len(n.followups) > 0 {
		b.WriteString("\n")
		for _, f := range n.followups {
			next.Fprintf(&b, "  → %s\n", f)
		}
	}
	return b.String()
}

// PackageNotFoundError formats an unknown-package failure. suggestions come
// from fuzzy-matching the requested ID against the workspace; pass nil when
// nothing was close.
func PackageNotFoundError(packageID string, suggestions []string, noColor bool) string {
	return notice{
		headline:    fmt.Sprintf("package not found: %q", packageID),
		suggestions: suggestions,
		followups: []string{
			"See all packages: packsmith packages list",
		},
		noColor: noColor,
	}.render()
}

// ImportError formats a failed legacy import. consequence states what the
// workspace looks like after the failure.
func ImportError(message string, consequence string, noColor bool) string {
	return notice{
		headline:    "import failed: " + message,
		consequence: consequence,
		followups: []string{
			"Get help: packsmith import --help",
		},
		noColor: noColor,
	}.render()
}
