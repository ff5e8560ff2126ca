package providerconfig

import (
	"crypto/rand"
	"encoding/hex"
	"testing"
)

func testKeyHex(t *testing.T) string {
	t.Helper()
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		t.Fatalf("generating test key: %v", err)
	}
	return hex.EncodeToString(raw)
}

func TestKeyCipherRoundTrip(t *testing.T) {
	c, err := NewKeyCipher(testKeyHex(t))
	if err != nil {
		t.Fatalf("NewKeyCipher: %v", err)
	}

	plaintext := "sk-test-1234567890"
	enc, err := c.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if enc == plaintext {
		t.Fatalf("ciphertext must not equal plaintext")
	}

	dec, err := c.Decrypt(enc)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if dec != plaintext {
		t.Fatalf("Decrypt() = %q, want %q", dec, plaintext)
	}
}

func TestKeyCipherRejectsWrongKey(t *testing.T) {
	c1, _ := NewKeyCipher(testKeyHex(t))
	c2, _ := NewKeyCipher(testKeyHex(t))

	enc, err := c1.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if _, err := c2.Decrypt(enc); err == nil {
		t.Fatalf("expected decryption under a different key to fail")
	}
}

func TestNewKeyCipherRejectsBadKeyLength(t *testing.T) {
	if _, err := NewKeyCipher("deadbeef"); err == nil {
		t.Fatalf("expected error for short key")
	}
}
