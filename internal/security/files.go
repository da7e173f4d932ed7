package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadBoundedFile reads path after checking its extension (when ext is not
// empty) and that it is a regular file of at most maxSize bytes.
func ReadBoundedFile(path, ext string, maxSize int64) ([]byte, error) {
	clean := filepath.Clean(path)
	if ext != "" && !strings.EqualFold(filepath.Ext(clean), ext) {
		return nil, fmt.Errorf("file must have %s extension, got %q", ext, filepath.Ext(clean))
	}
	info, err := os.Stat(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", clean)
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), maxSize)
	}
	return os.ReadFile(clean)
}

// SanitizeFilename makes a safe file name from an arbitrary string such as a
// canvas name. Runs of characters other than ASCII letters, digits, dot,
// underscore and dash become one underscore; the result is trimmed of
// leading and trailing dots and underscores and capped at 128 bytes.
func SanitizeFilename(s string) string {
	const maxLen = 128
	var b strings.Builder
	pending := false
	for _, r := range s {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '_' || r == '-'
		if !ok {
			pending = true
			continue
		}
		if pending && b.Len() > 0 {
			b.WriteByte('_')
		}
		pending = false
		if b.Len() >= maxLen {
			break
		}
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), "._")
	if len(out) > maxLen {
		out = out[:maxLen]
	}
	if out == "" {
		return "unknown"
	}
	return out
}
