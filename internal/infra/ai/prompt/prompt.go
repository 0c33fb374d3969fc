package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/reqverify/internal/domain/analysis"
)

// Schema is the JSON object every backend is asked to return.
const Schema = `{
  "summary": "<string>",
  "traceability_matrix": {"<requirement id>": "<IMPLEMENTED|PARTIALLY_IMPLEMENTED|NOT_IMPLEMENTED>"},
  "missing_requirements": ["<requirement id>"],
  "suggestions": ["<string>"],
  "detailed_analysis": "<string>"
}`

const fileSeparator = "------------------------------------------------------------"

// Build serializes requirements and source files into one prompt.
func Build(reqs []analysis.Requirement, files []analysis.SourceFile) string {
	var b strings.Builder

	b.WriteString(`You verify whether software requirements are implemented by the source code below.
Respond with one valid JSON object only (no markdown, no commentary, no code fences) following this schema:

`)
	b.WriteString(Schema)
	b.WriteString(`

Rules:
- Every requirement id listed under REQUIREMENTS must appear as a key of traceability_matrix.
- Use IMPLEMENTED, PARTIALLY_IMPLEMENTED or NOT_IMPLEMENTED as status values.
- missing_requirements lists the ids whose status is NOT_IMPLEMENTED.
- suggestions are short, actionable steps to close the gaps.
- detailed_analysis cites the files that implement each requirement.

REQUIREMENTS:
`)
	b.WriteString(requirementList(reqs))
	b.WriteString("\n\nSOURCE CODE:\n")
	b.WriteString(codeListing(files))
	b.WriteString("\n")
	return b.String()
}

func requirementList(reqs []analysis.Requirement) string {
	lines := make([]string, 0, len(reqs))
	for _, r := range reqs {
		lines = append(lines, fmt.Sprintf("- %s: %s", r.ID, r.Text))
	}
	return strings.Join(lines, "\n")
}

func codeListing(files []analysis.SourceFile) string {
	sections := make([]string, 0, len(files))
	for _, f := range files {
		sections = append(sections, fmt.Sprintf("FILE: %s\n%s\n%s", f.Path, fileSeparator, f.Content))
	}
	return strings.Join(sections, "\n\n")
}
