// Package payments owns the gateway boundary: the HMAC signature codec shared
// by outbound payment links and inbound webhooks, and the reconciler that
// applies verified payment outcomes to orders.
package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// SignField is the parameter carrying the signature itself. It is always
// excluded from the signed material.
const SignField = "sign"

// successVocabulary is the fixed list of markers the gateway uses for a
// successful payment, matched case-insensitively as substrings. Kept as one
// list so the boundary is easy to audit and extend.
var successVocabulary = []string{
	"success",
	"succeeded",
	"paid",
	"completed",
	"approved",
	"успешно",
	"оплачен",
}

// Codec signs and verifies flat string parameter maps with HMAC-SHA256 over a
// canonical string. Signatures are lowercase hex.
type Codec struct {
	secret []byte
}

// NewCodec builds a codec for the shared gateway secret.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, fmt.Errorf("payment signature secret required")
	}
	return &Codec{secret: []byte(secret)}, nil
}

// CanonicalString builds the deterministic signing input: keys sorted
// lexicographically, joined as key:value pairs separated by semicolons. The
// sign field never participates.
func CanonicalString(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		if key == SignField {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+":"+params[key])
	}
	return strings.Join(pairs, ";")
}

// Sign computes the lowercase hex HMAC-SHA256 signature of the params.
func (c *Codec) Sign(params map[string]string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(CanonicalString(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the sign field against the rest of the params. It fails
// closed: a missing codec, missing signature or any mismatch is simply
// "invalid". The comparison is constant-time.
func (c *Codec) Verify(params map[string]string) bool {
	if c == nil || len(c.secret) == 0 {
		return false
	}
	provided := strings.ToLower(strings.TrimSpace(params[SignField]))
	if provided == "" {
		return false
	}
	expected := c.Sign(params)
	return hmac.Equal([]byte(expected), []byte(provided))
}

// IsSuccessful classifies the gateway's status code and free-text description
// against the known success vocabulary.
func IsSuccessful(statusCode, description string) bool {
	for _, haystack := range []string{statusCode, description} {
		needle := strings.ToLower(strings.TrimSpace(haystack))
		if needle == "" {
			continue
		}
		for _, marker := range successVocabulary {
			if strings.Contains(needle, marker) {
				return true
			}
		}
	}
	return false
}
