// Package secrets generates and stores the credentials a provisioning
// run creates: the database password and the web application's admin
// password.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MinLength is the minimum plaintext length of a generated credential.
const MinLength = 28

// Credential is a secret value that redacts itself when formatted.
type Credential struct {
	value string
}

// NewCredential wraps a plaintext secret.
func NewCredential(value string) Credential {
	return Credential{value: value}
}

// Value returns the plaintext. Callers print it exactly once, when the
// credential is first created.
func (c Credential) Value() string {
	return c.value
}

// IsZero returns true for an empty credential.
func (c Credential) IsZero() bool {
	return c.value == ""
}

// String redacts the secret so %v and logging never leak it.
func (c Credential) String() string {
	return "[redacted]"
}

// Generator produces random credentials.
type Generator struct {
	length int
}

// NewGenerator creates a Generator. Lengths below MinLength are raised
// to MinLength.
func NewGenerator(length int) *Generator {
	if length < MinLength {
		length = MinLength
	}
	return &Generator{length: length}
}

// Generate returns a fresh credential from the OS entropy source.
// The output is URL-safe base64 with no padding, usable unquoted in
// shell commands and config files.
func (g *Generator) Generate() (Credential, error) {
	// base64 expands 3 bytes to 4 chars; round the byte count up.
	raw := make([]byte, (g.length*3+3)/4)
	if _, err := rand.Read(raw); err != nil {
		return Credential{}, fmt.Errorf("failed to read entropy: %w", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(raw)
	return NewCredential(encoded[:g.length]), nil
}

// Record holds the credentials a run produced.
type Record struct {
	DatabasePassword Credential
	AdminPassword    Credential
	CreatedAt        time.Time
}

// Fingerprint returns a bcrypt hash over both credentials. The journal
// stores it so an operator can match a run to a secrets file without
// the journal holding secret material.
func (r Record) Fingerprint() (string, error) {
	material := r.DatabasePassword.Value() + "\x00" + r.AdminPassword.Value()
	hash, err := bcrypt.GenerateFromPassword([]byte(material), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint credentials: %w", err)
	}
	return string(hash), nil
}

// VerifyFingerprint reports whether a fingerprint matches this record.
func (r Record) VerifyFingerprint(fingerprint string) bool {
	material := r.DatabasePassword.Value() + "\x00" + r.AdminPassword.Value()
	return bcrypt.CompareHashAndPassword([]byte(fingerprint), []byte(material)) == nil
}
