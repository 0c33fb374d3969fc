package docs

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/bryanwahyu/reqverify/internal/domain/analysis"
)

const (
	wordNS       = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	documentPart = "word/document.xml"
	// maxDocumentPart bounds the uncompressed body we are willing to decode.
	maxDocumentPart = 64 << 20
)

var (
	ErrNotDocx       = errors.New("docs: not a .docx document")
	ErrNoRequirement = errors.New("docs: document contains no text")
)

// requirementLine matches "R-12 text", "3. text", "A1 text", "* text",
// "- text" and "• text".
var requirementLine = regexp.MustCompile(`^(R-\d+|[A-Za-z]?\d+\.?|\*|-|•)\s*(.+)$`)

// ReadRequirementsFile opens a .docx on disk and extracts its requirements.
func ReadRequirementsFile(path string) ([]analysis.Requirement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return ReadRequirements(f, st.Size())
}

// ReadRequirementsBytes is ReadRequirements for an in-memory upload.
func ReadRequirementsBytes(data []byte) ([]analysis.Requirement, error) {
	return ReadRequirements(bytes.NewReader(data), int64(len(data)))
}

func ReadRequirements(r io.ReaderAt, size int64) ([]analysis.Requirement, error) {
	paras, err := Paragraphs(r, size)
	if err != nil {
		return nil, err
	}
	reqs := ParseRequirements(paras)
	if len(reqs) == 0 {
		return nil, ErrNoRequirement
	}
	return reqs, nil
}

// ParseRequirements classifies non-blank lines. Lines led by an R-<n> id
// keep it; other numbered or bulleted lines get R-<position>. When no line
// matches, every line becomes a requirement.
func ParseRequirements(lines []string) []analysis.Requirement {
	var clean []string
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			clean = append(clean, l)
		}
	}

	reqs := []analysis.Requirement{}
	for _, line := range clean {
		m := requirementLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		id, text := m[1], strings.TrimSpace(m[2])
		if !strings.HasPrefix(id, "R-") {
			id = fmt.Sprintf("R-%d", len(reqs)+1)
		}
		reqs = append(reqs, analysis.Requirement{ID: id, Text: text})
	}

	if len(reqs) == 0 {
		for i, line := range clean {
			reqs = append(reqs, analysis.Requirement{ID: fmt.Sprintf("R-%d", i+1), Text: line})
		}
	}
	return reqs
}

// Paragraphs returns the text of every w:p element in document order.
func Paragraphs(r io.ReaderAt, size int64) ([]string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDocx, err)
	}
	var part *zip.File
	for _, f := range zr.File {
		if f.Name == documentPart {
			part = f
			break
		}
	}
	if part == nil {
		return nil, fmt.Errorf("%w: missing %s", ErrNotDocx, documentPart)
	}
	if part.UncompressedSize64 > maxDocumentPart {
		return nil, fmt.Errorf("docs: %s too large (%d bytes)", documentPart, part.UncompressedSize64)
	}

	rc, err := part.Open()
	if err != nil {
		return nil, fmt.Errorf("docs: open %s: %w", documentPart, err)
	}
	defer rc.Close()
	return decodeParagraphs(io.LimitReader(rc, maxDocumentPart))
}

func decodeParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		paras []string
		// open paragraphs; a text box nests a w:p inside a run of another
		open   []*strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotDocx, err)
		}
		var cur *strings.Builder
		if len(open) > 0 {
			cur = open[len(open)-1]
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "p":
				open = append(open, &strings.Builder{})
			case "t":
				inText = true
			case "tab":
				if cur != nil {
					cur.WriteByte('\t')
				}
			case "br", "cr":
				if cur != nil {
					cur.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if cur != nil {
					paras = append(paras, cur.String())
					open = open[:len(open)-1]
				}
			}
		case xml.CharData:
			if cur != nil && inText {
				cur.Write(t)
			}
		}
	}
	return paras, nil
}
