package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortKey(t *testing.T) {
	assert.Equal(t, "abcdef12", ShortKey("abcdef1234567890", 0))
	assert.Equal(t, "abcd", ShortKey("abcdef1234567890", 4))
	assert.Equal(t, "abc", ShortKey("abc", 8))
}

func TestResolveKey(t *testing.T) {
	keys := []string{"abcdef1234567890", "abzzzz1234567890", "ffffff1234567890"}

	got, err := ResolveKey(keys, "abcdef1234567890")
	require.NoError(t, err)
	assert.Equal(t, "abcdef1234567890", got)

	got, err = ResolveKey(keys, "ff")
	require.NoError(t, err)
	assert.Equal(t, "ffffff1234567890", got)

	_, err = ResolveKey(keys, "ab")
	assert.ErrorIs(t, err, ErrAmbiguousKey)

	_, err = ResolveKey(keys, "zz")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ResolveKey(keys, "")
	assert.ErrorIs(t, err, ErrNotFound)
}
