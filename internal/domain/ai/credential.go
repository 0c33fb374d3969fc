package ai

import (
	"fmt"
	"strings"
	"unicode"
)

// CheckCredential rejects keys that no backend would accept as a header value.
func CheckCredential(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidCredential)
	}
	for _, r := range key {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r > unicode.MaxASCII {
			return fmt.Errorf("%w: unexpected character %q", ErrInvalidCredential, r)
		}
	}
	return nil
}
