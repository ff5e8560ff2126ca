// Package fingerprint canonicalizes chat requests into a stable byte form
// and derives the SHA-256 cache key from it.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Message is one canonical chat message.
type Message struct {
	Role    string
	Content string
}

// Request is the subset of a chat-completion request that determines
// cache equivalence. Pointers distinguish "unset" from the zero value so
// canonicalization can omit unset optionals rather than defaulting them.
type Request struct {
	Model            string
	Messages         []Message
	Temperature      *float64
	TopP             *float64
	MaxTokens        *int
	FrequencyPenalty *float64
	PresencePenalty  *float64
}

// Canonicalize renders r into a stable byte form: NFC-normalized content,
// a fixed field order, fixed-precision floats, and omitted unset optionals.
// It is deterministic: the same logical request always produces the same
// bytes. There is no inverse parser; the output is only hashed.
func Canonicalize(r Request) []byte {
	var b strings.Builder

	b.WriteString("model=")
	b.WriteString(norm.NFC.String(r.Model))
	b.WriteByte('\n')

	b.WriteString("messages=")
	b.WriteByte('[')
	for i, m := range r.Messages {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(norm.NFC.String(m.Role))
		b.WriteByte(':')
		b.WriteString(norm.NFC.String(m.Content))
	}
	b.WriteByte(']')
	b.WriteByte('\n')

	writeOptFloat(&b, "temperature", r.Temperature)
	writeOptFloat(&b, "top_p", r.TopP)
	writeOptInt(&b, "max_tokens", r.MaxTokens)
	writeOptFloat(&b, "frequency_penalty", r.FrequencyPenalty)
	writeOptFloat(&b, "presence_penalty", r.PresencePenalty)

	return []byte(b.String())
}

func writeOptFloat(b *strings.Builder, name string, v *float64) {
	if v == nil {
		return
	}
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(strconv.FormatFloat(*v, 'f', 4, 64))
	b.WriteByte('\n')
}

func writeOptInt(b *strings.Builder, name string, v *int) {
	if v == nil {
		return
	}
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(strconv.Itoa(*v))
	b.WriteByte('\n')
}

// Hash returns the SHA-256 hex digest of the canonical form, scoped by
// tenant so two tenants issuing an identical request never collide.
func Hash(tenantID string, r Request) string {
	canon := Canonicalize(r)
	sum := sha256.Sum256(append([]byte(tenantID+"\n"), canon...))
	return hex.EncodeToString(sum[:])
}

// RedisKey returns the hot-cache key for a tenant+fingerprint pair.
func RedisKey(tenantID, fp string) string {
	return fmt.Sprintf("cache:%s:%s", tenantID, fp)
}
