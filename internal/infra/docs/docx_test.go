package docs

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/reqverify/internal/domain/analysis"
)

func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
		body.WriteString(p)
		body.WriteString(`</w:t></w:r></w:p>`)
	}
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() +
		`</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(doc))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestReadRequirementsBytes(t *testing.T) {
	data := buildDocx(t,
		"Login Service Requirements",
		"R-1 Users can log in with email.",
		"",
		"2. Passwords are hashed.",
		"• Sessions expire after 30 minutes.",
	)

	got, err := ReadRequirementsBytes(data)
	require.NoError(t, err)
	assert.Equal(t, []analysis.Requirement{
		{ID: "R-1", Text: "Users can log in with email."},
		{ID: "R-2", Text: "Passwords are hashed."},
		{ID: "R-3", Text: "Sessions expire after 30 minutes."},
	}, got)
}

func TestParseRequirementsFallsBackToAllLines(t *testing.T) {
	got := ParseRequirements([]string{"  The system shall export reports.", "", "Reports are PDF."})

	assert.Equal(t, []analysis.Requirement{
		{ID: "R-1", Text: "The system shall export reports."},
		{ID: "R-2", Text: "Reports are PDF."},
	}, got)
}

func TestParseRequirementsPatterns(t *testing.T) {
	tests := []struct {
		line string
		want analysis.Requirement
	}{
		{"R-12 Keep explicit ids", analysis.Requirement{ID: "R-12", Text: "Keep explicit ids"}},
		{"A3 Lettered number", analysis.Requirement{ID: "R-1", Text: "Lettered number"}},
		{"* Starred bullet", analysis.Requirement{ID: "R-1", Text: "Starred bullet"}},
		{"- Dashed bullet", analysis.Requirement{ID: "R-1", Text: "Dashed bullet"}},
		{"7.Tight numbering", analysis.Requirement{ID: "R-1", Text: "Tight numbering"}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := ParseRequirements([]string{tt.line})
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func TestParagraphsHandlesTabsAndRuns(t *testing.T) {
	doc := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t>R-1</w:t></w:r><w:r><w:tab/><w:t>split</w:t></w:r><w:r><w:t> run</w:t></w:r></w:p>` +
		`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>in table</w:t></w:r></w:p></w:tc></w:tr></w:tbl>` +
		`</w:body></w:document>`

	got, err := decodeParagraphs(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"R-1\tsplit run", "in table"}, got)
}

func TestReadRequirementsErrors(t *testing.T) {
	_, err := ReadRequirementsBytes([]byte("plain text, not a zip"))
	assert.ErrorIs(t, err, ErrNotDocx)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err = zw.Create("other.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	_, err = ReadRequirementsBytes(buf.Bytes())
	assert.ErrorIs(t, err, ErrNotDocx)

	_, err = ReadRequirementsBytes(buildDocx(t, "", "   "))
	assert.ErrorIs(t, err, ErrNoRequirement)
}

func TestParagraphsKeepsOuterTextAroundTextBox(t *testing.T) {
	doc := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"` +
		` xmlns:wps="http://schemas.microsoft.com/office/word/2010/wordprocessingShape"><w:body>` +
		`<w:p><w:r><w:t>R-1 Users can </w:t></w:r>` +
		`<w:r><w:drawing><wps:txbx><w:txbxContent><w:p><w:r><w:t>boxed note</w:t></w:r></w:p></w:txbxContent></wps:txbx></w:drawing></w:r>` +
		`<w:r><w:t>log in.</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>R-2 Next</w:t></w:r></w:p>` +
		`</w:body></w:document>`

	got, err := decodeParagraphs(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"boxed note", "R-1 Users can log in.", "R-2 Next"}, got)
}
