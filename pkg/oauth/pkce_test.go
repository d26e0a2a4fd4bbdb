package oauth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVerifier(t *testing.T) {
	v1, err := GenerateVerifier()
	require.NoError(t, err)
	v2, err := GenerateVerifier()
	require.NoError(t, err)

	assert.Len(t, v1, VerifierLength)
	assert.NotEqual(t, v1, v2)
	for _, r := range v1 {
		assert.True(t, strings.ContainsRune(verifierCharset, r), "unexpected character %q", r)
	}
}

func TestChallenge_RFC7636Vector(t *testing.T) {
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", Challenge(verifier))
}

func TestGenerateState(t *testing.T) {
	s1, err := GenerateState()
	require.NoError(t, err)
	s2, err := GenerateState()
	require.NoError(t, err)

	assert.NotEqual(t, s1, s2)
	assert.NotContains(t, s1, "=")
	assert.GreaterOrEqual(t, len(s1), 43)
}
