package app

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-core/internal/config"
	"github.com/stemsi/qbank-core/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStorageMemoryUsesConfiguredRetry(t *testing.T) {
	cfg := &config.Config{
		StoreDriver: config.StoreDriverMemory,
		Retry:       config.RetryConfig{Attempts: 5, Backoff: 10 * time.Millisecond, MaxBackoff: 80 * time.Millisecond},
	}

	s, err := OpenStorage(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, validation.RetryPolicy{Attempts: 5, Backoff: 10 * time.Millisecond, MaxBackoff: 80 * time.Millisecond}, s.Deps.Retry)
	assert.Nil(t, s.Pool)
	assert.Nil(t, s.Redis)
	assert.NotNil(t, s.Deps.Feed)
}

func TestOpenStorageRejectsUnknownDriver(t *testing.T) {
	_, err := OpenStorage(context.Background(), &config.Config{StoreDriver: "sqlite"}, zerolog.Nop())
	assert.ErrorContains(t, err, `unknown STORE_DRIVER "sqlite"`)
}
