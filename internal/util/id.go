// Package util provides shared utility functions.
package util

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// KeyLength is the full length of a suggestion key (8 hash bytes, hex).
	KeyLength = 16
	// DefaultShortKeyLength is the default number of characters for short keys.
	DefaultShortKeyLength = 8
	// MaxAmbiguousCandidates is the max number of candidates to show in ambiguous error.
	MaxAmbiguousCandidates = 5
)

// Errors returned by key resolution functions.
var (
	ErrAmbiguousKey = errors.New("ambiguous key prefix")
	ErrNotFound     = errors.New("not found")
)

// ShortKey returns a shortened version of a suggestion key.
// If n is 0 or negative, DefaultShortKeyLength (8) is used.
func ShortKey(key string, n int) string {
	if n <= 0 {
		n = DefaultShortKeyLength
	}
	if len(key) <= n {
		return key
	}
	return key[:n]
}

// ResolveKey resolves a key or unique prefix against the known keys.
//
// Resolution rules:
//  1. If keyOrPrefix matches a key exactly, return it.
//  2. If keyOrPrefix is a prefix of exactly one key, return that key.
//  3. If multiple matches, return ErrAmbiguousKey with candidates.
//  4. If no matches, return ErrNotFound.
func ResolveKey(keys []string, keyOrPrefix string) (string, error) {
	if keyOrPrefix == "" {
		return "", fmt.Errorf("suggestion key: %w", ErrNotFound)
	}

	var candidates []string
	for _, k := range keys {
		if k == keyOrPrefix {
			return k, nil
		}
		if strings.HasPrefix(k, keyOrPrefix) {
			candidates = append(candidates, k)
		}
	}

	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("suggestion with prefix %q: %w", keyOrPrefix, ErrNotFound)
	case 1:
		return candidates[0], nil
	default:
		shown := candidates
		if len(shown) > MaxAmbiguousCandidates {
			shown = shown[:MaxAmbiguousCandidates]
		}
		return "", fmt.Errorf("%w: prefix %q matches %d suggestions: %v",
			ErrAmbiguousKey, keyOrPrefix, len(candidates), shown)
	}
}
