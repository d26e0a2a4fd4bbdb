package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
)

const (
	VerifierLength = 128

	// unreserved characters allowed in a code verifier (RFC 7636 §4.1)
	verifierCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"
	stateBytes      = 32
)

// GenerateVerifier returns a random PKCE code verifier of VerifierLength
// characters.
func GenerateVerifier() (string, error) {
	// rejection sampling keeps every character equally likely
	limit := byte(256 - 256%len(verifierCharset))
	out := make([]byte, 0, VerifierLength)
	buf := make([]byte, VerifierLength)

	for len(out) < VerifierLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, verifierCharset[int(b)%len(verifierCharset)])
			if len(out) == VerifierLength {
				break
			}
		}
	}

	return string(out), nil
}

// Challenge derives the S256 code challenge: base64url(sha256(verifier)) without padding.
func Challenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

func GenerateState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
