package config

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ResolveSecret expands env:NAME and file:/path indirections. Anything else
// is returned trimmed as a literal.
func ResolveSecret(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if name, ok := strings.CutPrefix(value, "env:"); ok {
		return os.Getenv(name)
	}
	if path, ok := strings.CutPrefix(value, "file:"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(data))
	}
	return value
}

// MatchToken compares a presented API token against a stored one, which may
// be a literal, "sha256:<hex>" or "bcrypt:<hash>".
func MatchToken(stored, presented string) bool {
	if stored == "" || presented == "" {
		return false
	}
	if digest, ok := strings.CutPrefix(stored, "sha256:"); ok {
		sum := sha256.Sum256([]byte(presented))
		return subtle.ConstantTimeCompare([]byte(strings.ToLower(digest)), []byte(hex.EncodeToString(sum[:]))) == 1
	}
	if hash, ok := strings.CutPrefix(stored, "bcrypt:"); ok {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(presented)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
