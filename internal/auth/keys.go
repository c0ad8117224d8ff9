// Package auth issues and verifies credentials: argon2id passwords, PASETO access
// tokens, opaque refresh tokens and federated ID tokens from Google and Firebase.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// KeyFileName is the file under the metadata directory that holds the token key.
const KeyFileName = "auth.key"

// LoadOrGenerateKey returns the 32-byte PASETO key stored hex-encoded in
// <dir>/auth.key, creating the file with a fresh random key when it is missing.
func LoadOrGenerateKey(dir string) ([]byte, error) {
	path := filepath.Join(dir, KeyFileName)

	//#nosec G304 -- path is derived from the validated metadata directory
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		return decodeKey(strings.TrimSpace(string(raw)))
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read auth key: %w", err)
	}

	key := make([]byte, keyBytesSize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate auth key: %w", err)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create metadata directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key)), 0o600); err != nil {
		return nil, fmt.Errorf("save auth key: %w", err)
	}

	return key, nil
}

func decodeKey(keyHex string) ([]byte, error) {
	if len(keyHex) != keyBytesSize*2 {
		return nil, fmt.Errorf("invalid auth key length: expected %d hex chars, got %d", keyBytesSize*2, len(keyHex))
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid auth key format: %w", err)
	}
	return key, nil
}
