package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/bryanwahyu/reqverify/internal/domain/analysis"
)

const Title = "Requirements Verification Report"

// Format is a downloadable report encoding.
type Format string

const (
	FormatTXT Format = "txt"
	FormatPDF Format = "pdf"
)

// ParseFormat accepts "txt", "pdf" and the empty string (txt).
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatTXT:
		return FormatTXT, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("report: unsupported format %q", s)
}

func (f Format) FileName() string { return "verification_report." + string(f) }

func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/plain; charset=utf-8"
}

// Render lays a result out as the plain-text report.
func Render(r analysis.Result) string {
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	line(Title)
	line(strings.Repeat("=", 35))
	line("")
	line("Summary:")
	line(orDefault(r.Summary, "No summary provided."))
	line("")

	line("Traceability Matrix:")
	if len(r.TraceabilityMatrix) > 0 {
		for _, id := range sortedIDs(r.TraceabilityMatrix) {
			line(fmt.Sprintf("- %s: %s", id, r.TraceabilityMatrix[id]))
		}
	} else {
		line("(No traceability data)")
	}
	line("")

	line("Missing/Unimplemented Requirements:")
	list(&b, r.MissingRequirements, "(None)")
	line("")

	line("Actionable Suggestions:")
	list(&b, r.Suggestions, "(No suggestions)")
	line("")

	line("Detailed Analysis:")
	line(orDefault(r.DetailedAnalysis, "(No detailed analysis)"))
	return b.String()
}

// WriteText stores content at path, creating parent directories.
func WriteText(content, path string) (string, error) {
	err := writeFile(path, func(w io.Writer) error {
		if _, err := io.WriteString(w, content); err != nil {
			return fmt.Errorf("report: write txt: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

func list(b *strings.Builder, items []string, empty string) {
	if len(items) == 0 {
		b.WriteString(empty + "\n")
		return
	}
	for _, it := range items {
		b.WriteString("- " + it + "\n")
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// sortedIDs orders ids so that R-2 precedes R-10.
func sortedIDs(m map[string]string) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		pi, ni := splitID(ids[i])
		pj, nj := splitID(ids[j])
		if pi != pj {
			return pi < pj
		}
		if ni != nj {
			return ni < nj
		}
		return ids[i] < ids[j]
	})
	return ids
}

func splitID(id string) (string, int) {
	i := len(id)
	for i > 0 && id[i-1] >= '0' && id[i-1] <= '9' {
		i--
	}
	n, err := strconv.Atoi(id[i:])
	if err != nil {
		return id, -1
	}
	return id[:i], n
}
