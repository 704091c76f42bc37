package config

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestResolveSecret(t *testing.T) {
	t.Setenv("CONTROLLER_TEST_PSK", "s3cr3t")
	dir := t.TempDir()
	path := filepath.Join(dir, "psk.txt")
	if err := os.WriteFile(path, []byte("  file-secret \n"), 0600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  plain  ", "plain"},
		{"env:CONTROLLER_TEST_PSK", "s3cr3t"},
		{"env:CONTROLLER_TEST_MISSING", ""},
		{"file:" + path, "file-secret"},
		{"file:" + filepath.Join(dir, "missing"), ""},
	}
	for _, tc := range tests {
		if got := ResolveSecret(tc.in); got != tc.want {
			t.Fatalf("ResolveSecret(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMatchToken(t *testing.T) {
	sum := sha256.Sum256([]byte("secret-token"))
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-token"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	tests := []struct {
		stored    string
		presented string
		want      bool
	}{
		{"secret-token", "secret-token", true},
		{"secret-token", "other", false},
		{"sha256:" + hex.EncodeToString(sum[:]), "secret-token", true},
		{"sha256:" + hex.EncodeToString(sum[:]), "other", false},
		{"bcrypt:" + string(hash), "secret-token", true},
		{"bcrypt:" + string(hash), "other", false},
		{"", "", false},
		{"secret-token", "", false},
	}
	for _, tc := range tests {
		if got := MatchToken(tc.stored, tc.presented); got != tc.want {
			t.Fatalf("MatchToken(%q,%q)=%v, want %v", tc.stored, tc.presented, got, tc.want)
		}
	}
}
