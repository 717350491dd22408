// ABOUTME: Tests for token storage and unverified identity parsing
// ABOUTME: Uses t.Setenv to isolate the token file under a temp dir

package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTempTokenFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "token")
	t.Setenv("CHATUI_TOKEN_FILE", path)
	t.Setenv("CHATUI_TOKEN", "")
	return path
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return tok
}

func TestTokenPath_EnvOverride(t *testing.T) {
	t.Setenv("CHATUI_TOKEN_FILE", "/custom/token")
	assert.Equal(t, "/custom/token", TokenPath())
}

func TestTokenPath_XDGConfigHome(t *testing.T) {
	t.Setenv("CHATUI_TOKEN_FILE", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "chat-ui", "token"), TokenPath())
}

func TestSaveLoadClearToken(t *testing.T) {
	path := useTempTokenFile(t)

	_, err := LoadToken()
	require.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, SaveToken("tok-abc"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	tok, err := LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", tok, "trailing newline is trimmed on load")

	require.NoError(t, ClearToken())
	_, err = LoadToken()
	require.ErrorIs(t, err, ErrNoToken)

	// Clearing again is fine.
	require.NoError(t, ClearToken())
}

func TestLoadToken_EnvTakesPrecedence(t *testing.T) {
	useTempTokenFile(t)
	require.NoError(t, SaveToken("from-file"))
	t.Setenv("CHATUI_TOKEN", "from-env")

	tok, err := LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "from-env", tok)
}

func TestLoadToken_EmptyFile(t *testing.T) {
	path := useTempTokenFile(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o600))

	_, err := LoadToken()
	require.ErrorIs(t, err, ErrNoToken)
}

func TestParseIdentity_IDClaim(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	tok := signedToken(t, jwt.MapClaims{"id": "u1", "exp": exp.Unix()})

	ident, err := ParseIdentity(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", ident.UserID)
	assert.WithinDuration(t, exp, ident.ExpiresAt, time.Second)
}

func TestParseIdentity_SubFallback(t *testing.T) {
	tok := signedToken(t, jwt.MapClaims{"sub": "u9"})

	ident, err := ParseIdentity(tok)
	require.NoError(t, err)
	assert.Equal(t, "u9", ident.UserID)
}

func TestParseIdentity_Expired(t *testing.T) {
	tok := signedToken(t, jwt.MapClaims{"id": "u1", "exp": time.Now().Add(-time.Minute).Unix()})

	ident, err := ParseIdentity(tok)
	require.ErrorIs(t, err, ErrExpiredToken)
	assert.Equal(t, "u1", ident.UserID, "identity is still reported alongside the expiry error")
}

func TestParseIdentity_MissingUserClaim(t *testing.T) {
	tok := signedToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})

	_, err := ParseIdentity(tok)
	require.ErrorIs(t, err, ErrMissingClaim)
}

func TestParseIdentity_Garbage(t *testing.T) {
	_, err := ParseIdentity("not.a.jwt")
	require.Error(t, err)
}
