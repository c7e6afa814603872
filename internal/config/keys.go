package config

import (
	"errors"
	"os"
)

// ErrNoAuthToken is returned when no gateway auth token is configured.
var ErrNoAuthToken = errors.New("no API_AUTH_TOKEN configured")

// GetAuthToken returns the AI gateway auth token (spec §6, "optional
// gateway vars"). It checks the environment variable first, falling
// back to nothing — the core never persists the token to config.yaml.
func GetAuthToken() (string, error) {
	if token := os.Getenv("API_AUTH_TOKEN"); token != "" {
		return token, nil
	}
	return "", ErrNoAuthToken
}

// MaskAuthToken returns a masked version of token for display: the
// first 4 and last 4 characters, with the middle replaced.
func MaskAuthToken(token string) string {
	if token == "" {
		return "(not set)"
	}
	if len(token) <= 10 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// TokenSource reports where the gateway auth token was sourced from.
type TokenSource string

const (
	TokenSourceEnv  TokenSource = "environment"
	TokenSourceNone TokenSource = "none"
)

// GetAuthTokenSource returns where the gateway auth token was sourced
// from. The core only ever reads it from the environment.
func GetAuthTokenSource() TokenSource {
	if os.Getenv("API_AUTH_TOKEN") != "" {
		return TokenSourceEnv
	}
	return TokenSourceNone
}
