// Package auth verifies the bearer tokens issued to ReadUp users.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// keyLength is the PASETO v4 symmetric key size.
const keyLength = 32

// KeyFileName is the file under the data directory holding the hex key.
const KeyFileName = "auth.key"

// LoadOrGenerateKey reads the hex-encoded key from <dataPath>/auth.key,
// creating a random one on first start.
func LoadOrGenerateKey(dataPath string) ([]byte, error) {
	keyPath := filepath.Join(dataPath, KeyFileName)

	raw, err := os.ReadFile(keyPath) //#nosec G304 -- derived from the configured data path
	switch {
	case err == nil:
		return decodeKey(strings.TrimSpace(string(raw)))
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read auth key: %w", err)
	}

	key := make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate auth key: %w", err)
	}
	if err := os.MkdirAll(dataPath, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(key)), 0o600); err != nil {
		return nil, fmt.Errorf("failed to save auth key: %w", err)
	}
	return key, nil
}

func decodeKey(keyHex string) ([]byte, error) {
	if len(keyHex) != keyLength*2 {
		return nil, fmt.Errorf("invalid auth key length: expected %d hex chars, got %d", keyLength*2, len(keyHex))
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid auth key format: %w", err)
	}
	return key, nil
}
