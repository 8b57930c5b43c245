package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
)

// writeReport renders the run summary as Markdown and HTML next to the
// workbook. Returns the Markdown path.
func writeReport(result *RunResult, dir string) (string, error) {
	md := renderMarkdown(result)
	stamp := result.StartedAt.Format("20060102_150405")

	mdPath := filepath.Join(dir, fmt.Sprintf("run_report_%s.md", stamp))
	if err := os.WriteFile(mdPath, []byte(md), 0644); err != nil {
		return "", fmt.Errorf("write markdown report: %w", err)
	}

	var html bytes.Buffer
	if err := goldmark.Convert([]byte(md), &html); err != nil {
		return "", fmt.Errorf("render html report: %w", err)
	}
	htmlPath := filepath.Join(dir, fmt.Sprintf("run_report_%s.html", stamp))
	if err := os.WriteFile(htmlPath, html.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("write html report: %w", err)
	}

	return mdPath, nil
}

func renderMarkdown(result *RunResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Watchlist Run Report\n\n")
	fmt.Fprintf(&b, "- Run ID: `%s`\n", result.RunID)
	fmt.Fprintf(&b, "- Started: %s\n", result.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "- Finished: %s\n", result.FinishedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "- Companies in workbook: %d\n", result.Records)
	if result.WorkbookPath != "" {
		fmt.Fprintf(&b, "- Workbook: `%s`\n", result.WorkbookPath)
	}
	b.WriteString("\n")

	if len(result.SkippedWatchlists) > 0 {
		b.WriteString("## Skipped watchlists\n\n")
		for _, wl := range result.SkippedWatchlists {
			fmt.Fprintf(&b, "- **%s**: %s\n", wl.Name, wl.Reason)
		}
		b.WriteString("\n")
	}

	if len(result.SkippedCompanies) > 0 {
		b.WriteString("## Skipped companies\n\n")
		for _, c := range result.SkippedCompanies {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", c.Name, c.Watchlist, c.Reason)
		}
		b.WriteString("\n")
	}

	if len(result.Duplicates) > 0 {
		b.WriteString("## Duplicates (first occurrence kept)\n\n")
		for _, name := range result.Duplicates {
			fmt.Fprintf(&b, "- %s\n", name)
		}
		b.WriteString("\n")
	}

	if len(result.PublishFailures) > 0 {
		b.WriteString("## Backup publish failures\n\n")
		for _, f := range result.PublishFailures {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		b.WriteString("\n")
	}

	if len(result.SkippedWatchlists)+len(result.SkippedCompanies)+len(result.PublishFailures) == 0 {
		b.WriteString("No warnings.\n")
	}
	return b.String()
}
