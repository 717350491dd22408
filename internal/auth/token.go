// ABOUTME: Token file handling under XDG config dir with env override
// ABOUTME: Identity() reads sub/exp claims without signature verification

package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrNoToken      = errors.New("no token stored")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// tokenFileMode keeps the credential readable by the owner only.
const tokenFileMode = 0o600

// TokenPath returns the path of the token file.
// Priority: CHATUI_TOKEN_FILE env var > XDG_CONFIG_HOME/chat-ui/token > ~/.config/chat-ui/token
func TokenPath() string {
	if envPath := os.Getenv("CHATUI_TOKEN_FILE"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "token" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "chat-ui", "token")
}

// LoadToken returns the stored bearer token. The CHATUI_TOKEN env var
// takes precedence over the token file.
func LoadToken() (string, error) {
	if token := os.Getenv("CHATUI_TOKEN"); token != "" {
		return token, nil
	}

	data, err := os.ReadFile(TokenPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("reading token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// SaveToken writes the bearer token to the token file, creating the
// config directory if needed.
func SaveToken(token string) error {
	path := TokenPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), tokenFileMode); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}

// ClearToken removes the stored token. Missing files are fine.
func ClearToken() error {
	err := os.Remove(TokenPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}

// Identity is what the client learns about itself from the credential.
type Identity struct {
	UserID    string
	ExpiresAt time.Time
}

// ParseIdentity extracts the user ID and expiry from the token's claims
// without verifying the signature. Returns ErrExpiredToken when the
// token's exp claim is in the past.
func ParseIdentity(tokenString string) (Identity, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return Identity{}, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("%w: claims", ErrMissingClaim)
	}

	// The backend issues {id: ...}; fall back to the standard sub claim.
	userID, _ := claims["id"].(string)
	if userID == "" {
		userID, _ = claims["sub"].(string)
	}
	if userID == "" {
		return Identity{}, fmt.Errorf("%w: id", ErrMissingClaim)
	}

	ident := Identity{UserID: userID}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		ident.ExpiresAt = exp.Time
		if time.Now().After(exp.Time) {
			return ident, ErrExpiredToken
		}
	}

	return ident, nil
}
