package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DomainTemplate separates template ID hashes from any other hash use.
const DomainTemplate = "tagstamp/template/v1"

// templateIDLength is the number of hex characters kept from the digest.
const templateIDLength = 16

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TemplateID derives a template ID from its creation time, name and salt.
// The same inputs always produce the same ID.
func TemplateID(created time.Time, name, salt string) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"created": created.UnixNano(),
		"name":    name,
		"salt":    salt,
	})
	if err != nil {
		return "", fmt.Errorf("TemplateID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTemplate, canonical)[:templateIDLength], nil
}

// NewTemplateID derives an ID using a random UUIDv7 salt, so two templates
// created with the same name in the same instant still differ.
func NewTemplateID(created time.Time, name string) (string, error) {
	salt, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("NewTemplateID: salt: %w", err)
	}
	return TemplateID(created, name, salt.String())
}

// MustTemplateID is like TemplateID but panics on error.
// Use only in tests or for built-in defaults.
func MustTemplateID(created time.Time, name, salt string) string {
	id, err := TemplateID(created, name, salt)
	if err != nil {
		panic(err)
	}
	return id
}
