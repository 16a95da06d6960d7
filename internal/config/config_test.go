package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseMethods(t *testing.T) {
	m := parseMethods("get, Post ,")
	assert.True(t, m["GET"])
	assert.True(t, m["POST"])
	assert.Len(t, m, 2)
}

func TestLoadRateLimitConfigFloors(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-2")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	// TTL must cover several refill intervals or buckets expire mid-burst.
	assert.GreaterOrEqual(t, cfg.TTL, 5*cfg.RefillInterval)
}

func TestEnvBool(t *testing.T) {
	t.Setenv("SOME_FLAG", "off")
	assert.False(t, envBool("SOME_FLAG", true))
	t.Setenv("SOME_FLAG", "")
	assert.True(t, envBool("SOME_FLAG", true))
}

func TestEnvDur(t *testing.T) {
	t.Setenv("SOME_DUR", "90s")
	assert.Equal(t, 90*time.Second, envDur("SOME_DUR", time.Second))
	t.Setenv("SOME_DUR", "garbage")
	assert.Equal(t, time.Second, envDur("SOME_DUR", time.Second))
}
