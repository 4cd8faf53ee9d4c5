package terminology

import (
	"fmt"
	"testing"
	"time"

	"github.com/dukex/curator/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Redis integration test in short mode")
	}

	ctx := t.Context()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	testcontainers.CleanupContainer(t, container)

	endpoint, err := container.PortEndpoint(ctx, "6379/tcp", "")
	require.NoError(t, err)

	cache, err := NewRedisCacheFromURL(ctx, fmt.Sprintf("redis://%s/0", endpoint), time.Minute)
	require.NoError(t, err)

	defer func() { _ = cache.Close() }()

	key := CacheKey(models.Canonical{URL: "http://example.org/ValueSet/a", Version: "1.0.0"})

	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	expansion := &models.Expansion{
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Contains:  []models.Coding{{System: "http://loinc.org", Code: "1234-5"}},
	}
	require.NoError(t, cache.Set(ctx, key, expansion))

	got, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, expansion, got)
}
