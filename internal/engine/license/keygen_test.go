package license

import (
	"errors"
	"strings"
	"testing"
)

type MockChecker struct {
	keys map[string]bool
}

func (m *MockChecker) ExistsByKey(key string) (bool, error) {
	if key == "error" {
		return false, errors.New("db error")
	}
	return m.keys[key], nil
}

func TestGenerateKey(t *testing.T) {
	checker := &MockChecker{keys: map[string]bool{}}

	key, err := GenerateKey(DefaultPrefix, checker)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !ValidFormat(DefaultPrefix, key) {
		t.Errorf("Generated key %q does not match its own format", key)
	}

	parts := strings.Split(key, "-")
	if len(parts) != 4 || parts[0] != "BETA" {
		t.Errorf("Expected BETA-XXXX-XXXX-XXXX, got %s", key)
	}
}

func TestGenerateKeyExcludesConfusables(t *testing.T) {
	checker := &MockChecker{keys: map[string]bool{}}

	for i := 0; i < 50; i++ {
		key, err := GenerateKey(DefaultPrefix, checker)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		body := strings.TrimPrefix(key, "BETA-")
		if strings.ContainsAny(body, "OI01") {
			t.Errorf("Key %q contains a confusable character", key)
		}
	}
}

func TestGenerateKeyUnique(t *testing.T) {
	checker := &MockChecker{keys: map[string]bool{}}
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		key, err := GenerateKey(DefaultPrefix, checker)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if seen[key] {
			t.Fatalf("Duplicate key generated: %s", key)
		}
		seen[key] = true
	}
}

func TestNormalizeKey(t *testing.T) {
	if got := NormalizeKey("  beta-abcd-efgh-jklm "); got != "BETA-ABCD-EFGH-JKLM" {
		t.Errorf("Expected normalized key, got %q", got)
	}
}

func TestValidFormat(t *testing.T) {
	cases := []struct {
		key   string
		valid bool
	}{
		{"BETA-ABCD-EFGH-JKLM", true},
		{"BETA-2345-6789-WXYZ", true},
		{"BETA-AAAA", false},            // too short
		{"BETA-ABCD-EFGH", false},       // missing segment
		{"FREE-ABCD-EFGH-JKLM", false},  // wrong prefix
		{"BETA-ABCD-EFGH-JKL", false},   // short segment
		{"BETA-ABCD-EFGH-JKL0", false},  // excluded character
		{"BETA-ABCD-EFGH-JKLI", false},  // excluded character
		{"BETA-ABCD-EFGH-JK!M", false},  // outside alphabet
		{"BETAABCD-EFGH-JKLM-", false},  // mangled separators
		{"", false},
	}

	for _, c := range cases {
		if got := ValidFormat(DefaultPrefix, c.key); got != c.valid {
			t.Errorf("ValidFormat(%q) = %v, want %v", c.key, got, c.valid)
		}
	}
}
