package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisRequiresAddress(t *testing.T) {
	for _, cluster := range []bool{false, true} {
		_, err := NewRedis(RedisConfig{ClusterMode: cluster})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no Redis address")
	}
}

func TestNewRedisUnreachable(t *testing.T) {
	_, err := NewRedis(RedisConfig{Addresses: []string{"127.0.0.1:1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}
