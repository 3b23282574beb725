package util

import (
	"errors"
	"strings"
)

var errInvalidName = errors.New("invalid file name")

// SanitizeFileName maps a storage key segment to a file name. Separators
// become underscores; traversal and control characters are rejected.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") || strings.ContainsRune(name, 0) {
		return "", errInvalidName
	}
	s := strings.TrimSpace(name)
	s = strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(s)
	if s == "" {
		return "", errInvalidName
	}
	return s, nil
}
