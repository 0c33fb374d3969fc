package middleware

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Input validation and sanitization utilities

// ValidateSourceDir checks a server-side source directory path. When roots
// is non-empty the path must lie inside one of them.
func ValidateSourceDir(path string, roots []string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("source directory cannot be empty")
	}

	// Block dangerous patterns
	dangerous := []string{"\x00", "$(", "`", "|", ";", "\n", "\r"}
	for _, d := range dangerous {
		if strings.Contains(path, d) {
			return fmt.Errorf("invalid characters in path")
		}
	}

	cleaned := filepath.Clean(path)
	blocked := []string{"/etc", "/proc", "/sys", "/dev", "/boot"}
	for _, b := range blocked {
		if cleaned == b || strings.HasPrefix(cleaned, b+"/") {
			return fmt.Errorf("access to %s is not allowed", b)
		}
	}

	if len(roots) == 0 {
		return nil
	}
	abs, err := filepath.Abs(cleaned)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	for _, root := range roots {
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(rootAbs, abs)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("source directory is outside the allowed roots")
}

// ValidateUpload checks the requirements document name.
func ValidateUpload(filename string, size int64) error {
	if size <= 0 {
		return fmt.Errorf("requirements document is empty")
	}
	if !strings.EqualFold(filepath.Ext(filename), ".docx") {
		return fmt.Errorf("requirements document must be a .docx file")
	}
	return nil
}

// ValidateAnalysisID accepts canonical UUIDs only.
func ValidateAnalysisID(id string) error {
	if id == "" {
		return fmt.Errorf("analysis ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil || len(id) != 36 {
		return fmt.Errorf("invalid analysis ID format")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}
