package providerconfig

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeyCipher encrypts and decrypts upstream provider API keys at rest using
// ChaCha20-Poly1305 AEAD. The key is loaded once at process start; plaintext
// only ever exists transiently inside a provider adapter call.
type KeyCipher struct {
	aead cipher.AEAD
}

// NewKeyCipher builds a KeyCipher from a 64-character hex-encoded 32-byte key.
func NewKeyCipher(hexKey string) (*KeyCipher, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding encryption key: %w", err)
	}
	if len(raw) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", chacha20poly1305.KeySize, len(raw))
	}
	aead, err := chacha20poly1305.New(raw)
	if err != nil {
		return nil, fmt.Errorf("constructing AEAD: %w", err)
	}
	return &KeyCipher{aead: aead}, nil
}

// Encrypt seals plaintext, returning nonce||ciphertext hex-encoded.
func (c *KeyCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (c *KeyCipher) Decrypt(encoded string) (string, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}
	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", errors.New("ciphertext too short")
	}
	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plain, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}
	return string(plain), nil
}
