package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix lets
// the hashing scheme change without colliding with stored hashes.
const (
	DomainModule      = "strictmod/module/v1"
	DomainPolicy      = "strictmod/policy/v1"
	DomainDiagnostics = "strictmod/diagnostics/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ModuleHash is the content hash of a syntax tree. Two modules with the same
// hash analyze identically under the same policy, which is what the verdict
// cache keys on.
func ModuleHash(m *Module) (string, error) {
	canonical, err := MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("ModuleHash: %w", err)
	}
	return hashWithDomain(DomainModule, canonical), nil
}

// PolicyHash is the content hash of a compiled policy, including its stubs.
func PolicyHash(p Policy) (string, error) {
	canonical, err := MarshalCanonical(p)
	if err != nil {
		return "", fmt.Errorf("PolicyHash: %w", err)
	}
	return hashWithDomain(DomainPolicy, canonical), nil
}

// DiagnosticsDigest fingerprints an ordered diagnostic list. Determinism
// tests compare digests across repeated analyses.
func DiagnosticsDigest(diags []Diagnostic) (string, error) {
	if diags == nil {
		diags = []Diagnostic{}
	}
	canonical, err := MarshalCanonical(diags)
	if err != nil {
		return "", fmt.Errorf("DiagnosticsDigest: %w", err)
	}
	return hashWithDomain(DomainDiagnostics, canonical), nil
}

// MustModuleHash is like ModuleHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustModuleHash(m *Module) string {
	h, err := ModuleHash(m)
	if err != nil {
		panic(err)
	}
	return h
}

// MustPolicyHash is like PolicyHash but panics on error.
func MustPolicyHash(p Policy) string {
	h, err := PolicyHash(p)
	if err != nil {
		panic(err)
	}
	return h
}
