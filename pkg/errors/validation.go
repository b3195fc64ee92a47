package errors

import (
	"strings"
	"unicode"
)

// ValidateArchiveEntry validates the name of a file inside a downloaded
// archive before it is extracted. Archives come from arbitrary remote
// sources, so entry names are untrusted.
//
// Validation rules:
//   - Name cannot be empty
//   - Maximum length of 1024 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal segments (..)
//   - No backslashes (Windows-style paths)
func ValidateArchiveEntry(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPath, "archive entry name cannot be empty")
	}

	const maxEntryLength = 1024
	if len(name) > maxEntryLength {
		return New(ErrCodeInvalidPath, "archive entry name too long (max %d characters)", maxEntryLength)
	}

	for _, r := range name {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "archive entry %q contains invalid characters", name)
		}
	}

	if strings.HasPrefix(name, "/") {
		return New(ErrCodeInvalidPath, "archive entry %q must be relative", name)
	}

	if strings.Contains(name, "\\") {
		return New(ErrCodeInvalidPath, "archive entry %q cannot contain backslashes", name)
	}

	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return New(ErrCodeInvalidPath, "archive entry %q escapes the extraction root", name)
		}
	}

	return nil
}

// ValidateManifestFilename validates a manifest filename for safety.
// It ensures the filename is a simple basename without path components.
func ValidateManifestFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidManifest, "manifest filename cannot be empty")
	}

	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidManifest, "manifest filename cannot contain path separators")
	}

	if strings.HasPrefix(filename, ".") {
		return New(ErrCodeInvalidManifest, "manifest filename cannot be a hidden file")
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
