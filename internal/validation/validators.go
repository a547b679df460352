// Package validation holds edge checks for untrusted input arriving
// through the CLI and HTTP surfaces. Structural endpoint validation
// lives in the pjsip registry; these validators exist to stop anything
// shell- or path-hostile before it reaches the pipeline.
package validation

import (
	"fmt"
	"net"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	// Valid identifier: alphanumeric, dash, underscore
	identifierRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// Dangerous characters that should never appear in identifiers
	dangerousChars = []string{";", "|", "&", "$", "`", "(", ")", "<", ">", "\\", "\"", "'", "\n", "\r"}
)

// ValidateEndpointID validates an endpoint id before it is used in
// file lookups or passed to the reload command line.
func ValidateEndpointID(id string) error {
	if id == "" {
		return fmt.Errorf("endpoint id cannot be empty")
	}

	if len(id) > 50 {
		return fmt.Errorf("endpoint id too long (max 50 characters): %s", id)
	}

	if !identifierRegex.MatchString(id) {
		return fmt.Errorf("invalid endpoint id: %s (must be alphanumeric with -_)", id)
	}

	for _, char := range dangerousChars {
		if strings.Contains(id, char) {
			return fmt.Errorf("endpoint id contains dangerous character: %s", char)
		}
	}

	return nil
}

// ValidateIdentifier validates a general identifier (context names,
// transport names, backup descriptions used in filenames).
func ValidateIdentifier(id string) error {
	if id == "" {
		return fmt.Errorf("identifier cannot be empty")
	}

	if len(id) > 255 {
		return fmt.Errorf("identifier too long (max 255 characters)")
	}

	if !identifierRegex.MatchString(id) {
		return fmt.Errorf("invalid identifier: %s (must be alphanumeric with -_)", id)
	}

	for _, char := range dangerousChars {
		if strings.Contains(id, char) {
			return fmt.Errorf("identifier contains dangerous character: %s", char)
		}
	}

	return nil
}

// ValidatePath validates a file path against an allowlist of permitted
// directories.
func ValidatePath(path string, allowedDirs []string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	if filepath.IsAbs(cleanPath) {
		allowed := false
		for _, allowedDir := range allowedDirs {
			if strings.HasPrefix(cleanPath, filepath.Clean(allowedDir)) {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("path not in allowed directories: %s", cleanPath)
		}
	}

	if strings.Contains(path, "..") {
		return fmt.Errorf("path traversal not allowed: %s", path)
	}

	if strings.Contains(path, "\x00") {
		return fmt.Errorf("null byte in path")
	}

	return nil
}

// ValidateListenAddr validates a host:port listen address.
func ValidateListenAddr(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}
	if host != "" && net.ParseIP(host) == nil {
		// Hostnames are fine; reject anything with shell metacharacters.
		for _, char := range dangerousChars {
			if strings.Contains(host, char) {
				return fmt.Errorf("listen host contains dangerous character: %s", char)
			}
		}
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("invalid port number: %s (must be 1-65535)", port)
	}
	return nil
}

// ValidateBackupVersion validates a user-supplied backup version.
func ValidateBackupVersion(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid backup version: %s (must be a positive integer)", s)
	}
	return n, nil
}

// SanitizeString removes dangerous characters from a string (for
// display purposes).
func SanitizeString(s string) string {
	for _, char := range dangerousChars {
		s = strings.ReplaceAll(s, char, "")
	}
	return s
}
