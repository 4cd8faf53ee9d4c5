package versioning

import (
	"testing"
	"time"

	"github.com/dukex/curator/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestValidateReleaseVersion(t *testing.T) {
	tests := []struct {
		version string
		valid   bool
	}{
		{"1.0.0", true},
		{"0.2.13", true},
		{"2.0.0-rc.1", true},
		{"", false},
		{"1.0", false},
		{"1.0.0-draft", false},
		{"1.0.0/2", false},
		{`1.0.0\2`, false},
		{"1.0.0|2", false},
		{"v1.0.0", false},
		{"latest", false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			err := ValidateReleaseVersion(tt.version)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidVersion)
			}
		})
	}
}

func TestDraftVersion(t *testing.T) {
	assert.Equal(t, "1.2.3-draft", DraftVersion("1.2.3"))
	assert.Equal(t, "1.2.3-draft", DraftVersion("1.2.3-draft"))
	assert.Equal(t, "1.2.3", StripDraft("1.2.3-draft"))
	assert.True(t, IsDraft("1.2.3-draft"))
	assert.False(t, IsDraft("1.2.3"))
}

func TestLatest(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)

	tests := []struct {
		name      string
		artifacts []*models.Artifact
		want      string
	}{
		{
			name:      "empty",
			artifacts: nil,
		},
		{
			name: "highest semver wins",
			artifacts: []*models.Artifact{
				{ID: "a", Version: "1.10.0"},
				{ID: "b", Version: "1.9.0"},
				{ID: "c", Version: "1.2.0"},
			},
			want: "a",
		},
		{
			name: "non semver sorts lowest",
			artifacts: []*models.Artifact{
				{ID: "a", Version: "20240101", LastModified: newer},
				{ID: "b", Version: "0.0.1", LastModified: older},
			},
			want: "b",
		},
		{
			name: "ties broken by last modified",
			artifacts: []*models.Artifact{
				{ID: "a", Version: "draft", LastModified: older},
				{ID: "b", Version: "other", LastModified: newer},
			},
			want: "b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			latest := Latest(tt.artifacts)
			if tt.want == "" {
				assert.Nil(t, latest)

				return
			}

			assert.Equal(t, tt.want, latest.ID)
		})
	}
}
