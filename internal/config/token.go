package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const tokenAccount = "api_token"

// GetAPIToken returns the bearer token protecting the local HTTP API,
// generating and persisting one on first use.
func GetAPIToken(kc Keychain) (string, error) {
	if tok, err := kc.Get(keychainService, tokenAccount); err == nil && tok != "" {
		return tok, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating API token: %w", err)
	}
	tok := hex.EncodeToString(buf)

	if err := kc.Set(keychainService, tokenAccount, tok); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return tok, nil
}
