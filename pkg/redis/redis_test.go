package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidURL(t *testing.T) {
	cfg := Config{URL: "not-a-redis-url"}

	client, err := cfg.New()
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "parse redis url")
}

func TestNewRejectsUnknownScheme(t *testing.T) {
	cfg := Config{URL: "http://localhost:6379"}

	_, err := cfg.New()
	assert.Error(t, err)
}
