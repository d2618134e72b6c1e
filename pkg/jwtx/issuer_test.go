package jwtx

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testIssuer(t *testing.T) *Issuer {
	t.Helper()

	iss, err := NewIssuer(IssuerConfig{
		Issuer:        "decorly-auth",
		AccessSecret:  bytes.Repeat([]byte("a"), 32),
		RefreshSecret: bytes.Repeat([]byte("r"), 32),
	})
	require.NoError(t, err)
	return iss
}

func TestNewIssuerValidation(t *testing.T) {
	short := []byte("too-short")
	long := bytes.Repeat([]byte("x"), 32)

	_, err := NewIssuer(IssuerConfig{AccessSecret: short, RefreshSecret: long})
	require.Error(t, err)

	_, err = NewIssuer(IssuerConfig{AccessSecret: long, RefreshSecret: short})
	require.Error(t, err)

	_, err = NewIssuer(IssuerConfig{AccessSecret: long, RefreshSecret: long})
	require.Error(t, err, "identical secrets must be rejected")
}

func TestAccessRoundTrip(t *testing.T) {
	iss := testIssuer(t)

	token, err := iss.IssueAccess("user-1", "admin")
	require.NoError(t, err)

	claims, err := iss.Verify(token, ClassAccess)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "admin", claims.Role)
	require.NotNil(t, claims.IssuedAt)
	require.NotEmpty(t, claims.ID)
}

func TestRefreshRoundTrip(t *testing.T) {
	iss := testIssuer(t)

	token, err := iss.IssueRefresh("user-2")
	require.NoError(t, err)

	claims, err := iss.Verify(token, ClassRefresh)
	require.NoError(t, err)
	require.Equal(t, "user-2", claims.Subject)
	require.Empty(t, claims.Role, "refresh tokens carry no role")
}

func TestVerifyExpired(t *testing.T) {
	iss := testIssuer(t)

	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	iss.Now = func() time.Time { return issued }

	token, err := iss.IssueAccess("user-1", "user")
	require.NoError(t, err)

	// Just inside the lifetime: still valid.
	iss.Now = func() time.Time { return issued.Add(iss.AccessTTL() - time.Second) }
	_, err = iss.Verify(token, ClassAccess)
	require.NoError(t, err)

	// Past the lifetime: ErrExpired, distinct from ErrInvalid.
	iss.Now = func() time.Time { return issued.Add(iss.AccessTTL() + time.Second) }
	_, err = iss.Verify(token, ClassAccess)
	require.ErrorIs(t, err, ErrExpired)
	require.NotErrorIs(t, err, ErrInvalid)
}

func TestCrossClassRejection(t *testing.T) {
	iss := testIssuer(t)

	refresh, err := iss.IssueRefresh("user-1")
	require.NoError(t, err)

	_, err = iss.Verify(refresh, ClassAccess)
	require.ErrorIs(t, err, ErrInvalid, "refresh token must not verify as access")

	access, err := iss.IssueAccess("user-1", "user")
	require.NoError(t, err)

	_, err = iss.Verify(access, ClassRefresh)
	require.ErrorIs(t, err, ErrInvalid, "access token must not verify as refresh")
}

func TestVerifyGarbage(t *testing.T) {
	iss := testIssuer(t)

	for _, tok := range []string{"", "garbage", "a.b.c", "eyJhbGciOiJub25lIn0.e30."} {
		_, err := iss.Verify(tok, ClassAccess)
		require.ErrorIs(t, err, ErrInvalid)
	}
}

func TestVerifyWrongIssuer(t *testing.T) {
	iss := testIssuer(t)

	other, err := NewIssuer(IssuerConfig{
		Issuer:        "someone-else",
		AccessSecret:  bytes.Repeat([]byte("a"), 32),
		RefreshSecret: bytes.Repeat([]byte("r"), 32),
	})
	require.NoError(t, err)

	token, err := other.IssueAccess("user-1", "user")
	require.NoError(t, err)

	_, err = iss.Verify(token, ClassAccess)
	require.ErrorIs(t, err, ErrInvalid)
}
