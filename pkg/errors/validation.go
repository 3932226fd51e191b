package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateModelName validates a model name for safety and correctness.
// It rejects names that could be used for path traversal or injection attacks.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path traversal sequences (.., //, etc.)
//   - No null bytes
//   - Maximum length of 256 characters
func ValidateModelName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidModel, "model name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidModel, "model name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidModel, "model name contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidModel, "model name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// nodeIDRegex matches node identifiers as they appear in model files.
// The leading character must be a letter or underscore, matching what the
// fitting frameworks accept for parameter names.
var nodeIDRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// ValidateNodeID validates a node identifier from a model definition.
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "node id cannot be empty")
	}

	if len(id) > 256 {
		return New(ErrCodeInvalidInput, "node id too long (max 256 characters)")
	}

	if !nodeIDRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid node id: %q", id)
	}

	return nil
}

// ValidateNormSet validates a list of observable names used as a
// normalization set. Duplicates are rejected; an empty list is allowed
// and means "do not unfold".
func ValidateNormSet(normSet []string) error {
	seen := make(map[string]bool, len(normSet))
	for _, v := range normSet {
		if err := ValidateNodeID(v); err != nil {
			return New(ErrCodeInvalidNormSet, "invalid observable name: %q", v)
		}
		if seen[v] {
			return New(ErrCodeInvalidNormSet, "duplicate observable in normalization set: %q", v)
		}
		seen[v] = true
	}
	return nil
}

// ValidateFormat validates an output artifact format.
func ValidateFormat(format string) error {
	switch format {
	case "json", "dot", "svg", "png":
		return nil
	}
	return New(ErrCodeInvalidFormat, "unsupported output format: %q (expected json, dot, svg, or png)", format)
}

// ValidatePath validates a user-supplied output path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
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
