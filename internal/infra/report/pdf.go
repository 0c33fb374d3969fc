package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
)

// RenderPDF typesets a text report. Lines ending in ':' that are not list
// items become bold headings; blank lines become vertical space.
func RenderPDF(content string, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetTitle(Title, true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, line := range strings.Split(content, "\n") {
		switch {
		case strings.TrimSpace(line) == "":
			pdf.Ln(3)
		case strings.HasSuffix(line, ":") && !strings.HasPrefix(line, "-"):
			pdf.Ln(2)
			pdf.SetFont("Helvetica", "B", 12)
			pdf.MultiCell(0, 6, tr(line), "", "L", false)
			pdf.Ln(1)
		default:
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(line), "", "L", false)
		}
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("report: render pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("report: write pdf: %w", err)
	}
	return nil
}

var renderPDF = RenderPDF

// WritePDF renders content into a PDF file at path. A failed render leaves
// path as it was.
func WritePDF(content, path string) (string, error) {
	err := writeFile(path, func(w io.Writer) error { return renderPDF(content, w) })
	if err != nil {
		return "", err
	}
	return path, nil
}

// writeFile writes through a temp file in the same directory and renames it
// into place, so readers never see a partial report.
func writeFile(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report: create dir: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("report: create temp: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		return fmt.Errorf("report: chmod: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("report: close: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("report: rename: %w", err)
	}
	return nil
}
