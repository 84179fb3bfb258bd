package license

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// Alphabet excludes O, I, 0 and 1 so keys survive being read over the phone
// or typed from paper.
const (
	keyAlphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	segmentLength = 4
	segmentCount  = 3

	DefaultPrefix = "BETA"
)

type KeyAvailabilityChecker interface {
	ExistsByKey(key string) (bool, error)
}

// GenerateKey produces a fresh PREFIX-XXXX-XXXX-XXXX key, retrying on the
// unlikely collision with an existing one.
func GenerateKey(prefix string, checker KeyAvailabilityChecker) (string, error) {
	maxRetries := 10
	for i := 0; i < maxRetries; i++ {
		key, err := randomKey(prefix)
		if err != nil {
			return "", err
		}

		exists, err := checker.ExistsByKey(key)
		if err != nil {
			return "", err
		}
		if !exists {
			return key, nil
		}
	}

	return "", errors.New("failed to generate unique license key")
}

func randomKey(prefix string) (string, error) {
	segments := make([]string, 0, segmentCount+1)
	segments = append(segments, prefix)
	for i := 0; i < segmentCount; i++ {
		var b strings.Builder
		for j := 0; j < segmentLength; j++ {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(keyAlphabet))))
			if err != nil {
				return "", err
			}
			b.WriteByte(keyAlphabet[n.Int64()])
		}
		segments = append(segments, b.String())
	}
	return strings.Join(segments, "-"), nil
}

// NormalizeKey maps user input to the stored canonical form. Keys are
// case-insensitive on the way in, upper-cased at rest.
func NormalizeKey(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidFormat checks structure and alphabet of an already-normalized key.
// Runs before any store lookup so malformed input never costs a query.
func ValidFormat(prefix, key string) bool {
	parts := strings.Split(key, "-")
	if len(parts) != segmentCount+1 {
		return false
	}
	if parts[0] != prefix {
		return false
	}
	for _, segment := range parts[1:] {
		if len(segment) != segmentLength {
			return false
		}
		for _, c := range segment {
			if !strings.ContainsRune(keyAlphabet, c) {
				return false
			}
		}
	}
	return true
}
