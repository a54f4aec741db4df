package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
)

// Provider adapts one gateway's notification format. Each variant owns its signature
// header and payload schema and normalizes into the single internal event shape.
type Provider interface {
	Name() string

	// Verify checks the signature over the raw body; mismatches return ErrSignatureInvalid
	Verify(body []byte, headers map[string]string) error

	// Normalize parses a verified body; malformed payloads return ErrInvalidPayload
	Normalize(body []byte, headers map[string]string) (entity.NormalizedEvent, error)
}

// Registry maps declared provider names to their adapters
type Registry map[string]Provider

// NewRegistry builds a registry from adapters
func NewRegistry(providers ...Provider) Registry {
	r := make(Registry, len(providers))
	for _, p := range providers {
		r[p.Name()] = p
	}
	return r
}

// Lookup returns the adapter of a provider name
func (r Registry) Lookup(name string) (Provider, error) {
	p, ok := r[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownProvider, name)
	}
	return p, nil
}

// Sign computes the hex HMAC-SHA256 of body, the signature format every adapter expects
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// verifyHMAC compares the provided hex signature with the expected one in constant time
func verifyHMAC(secret string, body []byte, provided string) error {
	if secret == "" || provided == "" {
		return errs.ErrSignatureInvalid
	}
	expected, _ := hex.DecodeString(Sign(secret, body))
	got, err := hex.DecodeString(strings.TrimSpace(provided))
	if err != nil || !hmac.Equal(expected, got) {
		return errs.ErrSignatureInvalid
	}
	return nil
}

// bodyDigest identifies a delivery that carries no event id of its own
func bodyDigest(body []byte) string {
	sum := sha256.Sum256(body)
	return "sha256:" + hex.EncodeToString(sum[:])
}
