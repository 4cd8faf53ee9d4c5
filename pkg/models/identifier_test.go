package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCanonical(t *testing.T) {
	tests := []struct {
		ref     string
		url     string
		version string
	}{
		{"http://example.org/Library/a", "http://example.org/Library/a", ""},
		{"http://example.org/Library/a|1.2.0", "http://example.org/Library/a", "1.2.0"},
		{" http://example.org/Library/a|1.2.0-draft ", "http://example.org/Library/a", "1.2.0-draft"},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			c := ParseCanonical(tt.ref)
			assert.Equal(t, tt.url, c.URL)
			assert.Equal(t, tt.version, c.Version)
			assert.Equal(t, strings.TrimSpace(tt.ref), c.String())
		})
	}

	assert.True(t, SameURL("http://example.org/ValueSet/x|1.0.0", "http://example.org/ValueSet/x|2.0.0"))
	assert.False(t, SameURL("http://example.org/ValueSet/x", "http://example.org/ValueSet/y"))
}

func TestNormalizeID(t *testing.T) {
	t.Run("readable form", func(t *testing.T) {
		id, ok := NormalizeID(&Artifact{ID: "old", URL: "http://example.org/Library/Screening", Version: "1.0.0"})
		assert.True(t, ok)
		assert.Equal(t, "Screening-1.0.0", id)
	})

	t.Run("encoded form round trips", func(t *testing.T) {
		artifact := &Artifact{ID: "old", URL: "http://ex.org/a_b", Version: "1.0.0"}

		id, ok := NormalizeID(artifact)
		require.True(t, ok)
		assert.True(t, strings.HasPrefix(id, CanonicalIDPrefix))
		assert.True(t, IsValidID(id))

		decoded, err := DecodeCanonicalID(id)
		require.NoError(t, err)
		assert.Equal(t, artifact.Canonical(), decoded)
	})

	t.Run("falls back to existing id", func(t *testing.T) {
		long := "http://example.org/" + strings.Repeat("segment/", 10) + strings.Repeat("x_", 40)

		id, ok := NormalizeID(&Artifact{ID: "keep-me", URL: long, Version: "1.0.0"})
		assert.False(t, ok)
		assert.Equal(t, "keep-me", id)
	})

	t.Run("decode rejects foreign ids", func(t *testing.T) {
		_, err := DecodeCanonicalID("Screening-1.0.0")
		assert.ErrorIs(t, err, ErrNotCanonicalID)
	})
}
