// Package validation provides input validation utilities to prevent
// command injection, path traversal, and other input-based attacks.
// Every value that ends up on a command line or in a config file passes
// through here first.
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Common validation errors.
var (
	ErrEmptyInput         = errors.New("input cannot be empty")
	ErrInvalidPackageName = errors.New("invalid package name")
	ErrInvalidDatabase    = errors.New("invalid database identifier")
	ErrInvalidDomain      = errors.New("invalid domain name")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidUsername    = errors.New("invalid system user name")
	ErrInvalidMountPoint  = errors.New("invalid mount point")
	ErrInvalidNFSSource   = errors.New("invalid NFS source")
	ErrPathTraversal      = errors.New("path traversal detected")
	ErrInvalidPath        = errors.New("invalid path")
	ErrCommandInjection   = errors.New("potential command injection detected")
)

// Compiled regex patterns for validation (compiled once for performance).
var (
	// packageNameRegex matches valid apt package names.
	// Examples: "apache2", "php8.2-mysql", "g++"
	packageNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._+-]*$`)

	// databaseRegex matches MariaDB schema and user identifiers that
	// are safe to interpolate unquoted into SQL statements.
	// Examples: "nextcloud", "files_db"
	databaseRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

	// domainRegex matches fully qualified domain names.
	// Examples: "cloud.example.com", "files.example.co.uk"
	domainRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)+$`)

	// emailRegex is a deliberately loose match; certbot performs the
	// real validation against the ACME account.
	emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

	// usernameRegex matches POSIX system user names.
	// Examples: "www-data", "ncadmin"
	usernameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_-]*$`)

	// nfsSourceRegex matches "server:/export" NFS sources.
	// Examples: "10.0.0.5:/export/files", "nas.local:/srv/share"
	nfsSourceRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9.-]*:/[a-zA-Z0-9._/-]*$`)

	// shellMetaChars contains shell metacharacters that could enable injection.
	shellMetaChars = []string{";", "|", "&", "$", "`", "(", ")", "{", "}", "<", ">", "\n", "\r", "\\", "'", "\""}
)

// ValidatePackageName validates an apt package name.
func ValidatePackageName(name string) error {
	if name == "" {
		return ErrEmptyInput
	}

	if len(name) > 256 {
		return fmt.Errorf("%w: name too long (max 256 characters)", ErrInvalidPackageName)
	}

	if !packageNameRegex.MatchString(name) {
		return fmt.Errorf("%w: %q contains invalid characters", ErrInvalidPackageName, name)
	}

	// Check for shell metacharacters (defense in depth)
	if containsShellMeta(name) {
		return fmt.Errorf("%w: %q contains shell metacharacters", ErrCommandInjection, name)
	}

	return nil
}

// ValidateDatabaseName validates a MariaDB schema name. The name is
// interpolated into SQL, so the accepted alphabet is strict.
func ValidateDatabaseName(name string) error {
	if name == "" {
		return ErrEmptyInput
	}

	// MariaDB's identifier limit.
	if len(name) > 64 {
		return fmt.Errorf("%w: name too long (max 64 characters)", ErrInvalidDatabase)
	}

	if !databaseRegex.MatchString(name) {
		return fmt.Errorf("%w: %q contains invalid characters", ErrInvalidDatabase, name)
	}

	return nil
}

// ValidateDatabaseUser validates a MariaDB user name.
func ValidateDatabaseUser(name string) error {
	if name == "" {
		return ErrEmptyInput
	}

	if len(name) > 32 {
		return fmt.Errorf("%w: user name too long (max 32 characters)", ErrInvalidDatabase)
	}

	if !databaseRegex.MatchString(name) {
		return fmt.Errorf("%w: %q contains invalid characters", ErrInvalidDatabase, name)
	}

	return nil
}

// ValidateDomain validates a fully qualified domain name for the web
// server and certificate issuance.
func ValidateDomain(domain string) error {
	if domain == "" {
		return ErrEmptyInput
	}

	if len(domain) > 253 {
		return fmt.Errorf("%w: domain too long", ErrInvalidDomain)
	}

	if !domainRegex.MatchString(strings.ToLower(domain)) {
		return fmt.Errorf("%w: %q is not a fully qualified domain name", ErrInvalidDomain, domain)
	}

	if containsShellMeta(domain) {
		return fmt.Errorf("%w: %q contains shell metacharacters", ErrCommandInjection, domain)
	}

	return nil
}

// ValidateEmail validates a contact email for certificate issuance.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmptyInput
	}

	if len(email) > 254 {
		return fmt.Errorf("%w: email too long", ErrInvalidEmail)
	}

	if !emailRegex.MatchString(email) {
		return fmt.Errorf("%w: %q is not a valid address", ErrInvalidEmail, email)
	}

	if containsShellMeta(email) {
		return fmt.Errorf("%w: %q contains shell metacharacters", ErrCommandInjection, email)
	}

	return nil
}

// ValidateUsername validates a POSIX system user name.
func ValidateUsername(name string) error {
	if name == "" {
		return ErrEmptyInput
	}

	if len(name) > 32 {
		return fmt.Errorf("%w: user name too long (max 32 characters)", ErrInvalidUsername)
	}

	if !usernameRegex.MatchString(name) {
		return fmt.Errorf("%w: %q contains invalid characters", ErrInvalidUsername, name)
	}

	return nil
}

// ValidateMountPoint validates an absolute mount point path.
func ValidateMountPoint(path string) error {
	if path == "" {
		return ErrEmptyInput
	}

	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("%w: %q must be absolute", ErrInvalidMountPoint, path)
	}

	if err := ValidatePath(path); err != nil {
		return err
	}

	if containsShellMeta(path) || strings.ContainsAny(path, " \t") {
		return fmt.Errorf("%w: %q contains unsafe characters", ErrInvalidMountPoint, path)
	}

	return nil
}

// ValidateNFSSource validates a "server:/export" NFS source.
func ValidateNFSSource(source string) error {
	if source == "" {
		return ErrEmptyInput
	}

	if !nfsSourceRegex.MatchString(source) {
		return fmt.Errorf("%w: %q must be in 'server:/export' format", ErrInvalidNFSSource, source)
	}

	if containsShellMeta(source) {
		return fmt.Errorf("%w: %q contains shell metacharacters", ErrCommandInjection, source)
	}

	return nil
}

// ValidatePath validates a file path and prevents path traversal attacks.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyInput
	}

	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: path contains null byte", ErrInvalidPath)
	}

	if containsPathTraversal(path) {
		return fmt.Errorf("%w: %q contains traversal sequence", ErrPathTraversal, path)
	}

	return nil
}

// containsShellMeta checks if a string contains shell metacharacters.
func containsShellMeta(s string) bool {
	for _, char := range shellMetaChars {
		if strings.Contains(s, char) {
			return true
		}
	}
	return false
}

// containsPathTraversal checks for common path traversal patterns.
func containsPathTraversal(path string) bool {
	normalized := filepath.Clean(path)

	segments := strings.Split(normalized, string(filepath.Separator))
	for _, seg := range segments {
		if seg == ".." {
			return true
		}
	}

	// URL-encoded traversal attempts.
	if strings.Contains(path, "%2e%2e") || strings.Contains(path, "%2E%2E") {
		return true
	}

	return false
}
