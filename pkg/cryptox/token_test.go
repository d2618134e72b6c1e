package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	tok, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.Len(t, tok, 43) // 32 bytes base64url, no padding

	other, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.NotEqual(t, tok, other)

	_, err = GenerateToken(0)
	require.Error(t, err)
	_, err = GenerateToken(-1)
	require.Error(t, err)
}

func TestFingerprintToken(t *testing.T) {
	fp := FingerprintToken("some-token")
	require.Len(t, fp, 43)
	require.Equal(t, fp, FingerprintToken("some-token"), "fingerprint must be deterministic")
	require.NotEqual(t, fp, FingerprintToken("some-other-token"))
	require.NotContains(t, fp, "some-token")
}
