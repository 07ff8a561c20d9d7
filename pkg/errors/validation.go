package errors

import (
	"strings"
	"unicode"
)

const maxNameLength = 256

// ValidateResourceName validates a stored resource name (dataset, overlay or
// diagram) for safety. Names are plain basenames inside the data directory.
//
// Validation rules:
//   - Name cannot be empty or longer than 256 characters
//   - No control characters or null bytes
//   - No path separators
//   - No hidden files and no "." or ".."
func ValidateResourceName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPath, "name cannot be empty")
	}
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidPath, "name too long (max %d characters)", maxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "name contains invalid control characters")
		}
	}
	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidPath, "name cannot contain path separators")
	}
	if strings.HasPrefix(name, ".") {
		return New(ErrCodeInvalidPath, "name cannot be a hidden file")
	}
	return nil
}

// ValidateFolderPath validates a folder path submitted for analysis. Absolute
// and relative paths are both accepted; the analyzer resolves them.
func ValidateFolderPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return New(ErrCodeInvalidInput, "folder path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
