package middleware

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Input validation and sanitization utilities

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ValidateID checks path IDs (UUIDs or slugs, max 64 chars).
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("invalid id format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateFileName rejects upload names that could escape the object key.
func ValidateFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("file name cannot be empty")
	}
	if len(name) > 255 {
		return fmt.Errorf("file name too long")
	}
	if filepath.Base(name) != name || strings.Contains(name, "..") {
		return fmt.Errorf("path traversal detected")
	}
	dangerous := []string{"$(", "`", "|", ";", "\n", "\r", "\x00"}
	for _, d := range dangerous {
		if strings.Contains(name, d) {
			return fmt.Errorf("invalid characters in file name")
		}
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

// ValidateYears clamps the look-back window for financial metrics.
func ValidateYears(years int) int {
	if years <= 0 {
		return 3 // default
	}
	if years > 25 {
		return 25
	}
	return years
}

// ParseYear reads an optional fiscal-year query value; "" means no bound.
func ParseYear(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	y, err := strconv.Atoi(raw)
	if err != nil || y < 1900 || y > 2200 {
		return 0, fmt.Errorf("invalid year: %q", raw)
	}
	return y, nil
}

// ValidateYearRange checks that start is not after end when both are set.
func ValidateYearRange(start, end int) error {
	if start != 0 && end != 0 && start > end {
		return fmt.Errorf("startYear must not be after endYear")
	}
	return nil
}
