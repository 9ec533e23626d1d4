package middleware

import (
	"fmt"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities

const maxCommandLength = 512

// allowedImageTypes are the upload content types accepted at the boundary
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
	"image/bmp":  true,
}

// ValidateImageType checks the uploaded part's declared content type
func ValidateImageType(contentType string) error {
	// Strip any parameters, e.g. "image/jpeg; charset=binary"
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	if !allowedImageTypes[contentType] {
		return fmt.Errorf("unsupported image type: %s (allowed: jpeg, png, webp, gif, bmp)", contentType)
	}
	return nil
}

// ValidateCommand checks the free-text command for size and content
func ValidateCommand(command string) error {
	command = strings.TrimSpace(command)
	if command == "" {
		return fmt.Errorf("command cannot be empty")
	}
	if len(command) > maxCommandLength {
		return fmt.Errorf("command too long (max %d characters)", maxCommandLength)
	}
	return nil
}

// ValidateClientID validates push target identity format
func ValidateClientID(id string) error {
	if id == "" {
		return fmt.Errorf("client ID cannot be empty")
	}

	// Allow alphanumeric, dash, underscore (max 64 chars)
	pattern := `^[a-zA-Z0-9_-]{1,64}$`
	matched, _ := regexp.MatchString(pattern, id)
	if !matched {
		return fmt.Errorf("invalid client ID format (alphanumeric, dash, underscore only, max 64 chars)")
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

// ValidateLimit validates history query limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}
