package redis_client

import (
	"context"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/leeforge/fresson/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Addr(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected string
	}{
		{"localhost", Config{Host: "localhost", Port: "16379"}, "localhost:16379"},
		{"hostname", Config{Host: "redis.example.com", Port: "6380"}, "redis.example.com:6380"},
		{"IPv4", Config{Host: "192.168.1.100", Port: "6379"}, "192.168.1.100:6379"},
		{"IPv6", Config{Host: "::1", Port: "6379"}, "[::1]:6379"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.Addr())
		})
	}
}

func TestConfig_Enabled(t *testing.T) {
	assert.False(t, (&Config{}).Enabled())
	assert.True(t, (&Config{Host: "redis"}).Enabled())
}

func TestRedisConfigLogFields_RedactsPassword(t *testing.T) {
	fields := redisConfigLogFields(Config{Host: "127.0.0.1", Port: "6379", Password: "super-secret", DB: 2})
	for _, f := range fields {
		assert.NotContains(t, f.String, "super-secret")
	}
	assert.Equal(t, "[REDACTED]", fields[2].String)
	assert.Equal(t, "<empty>", redactedPassword(""))
}

func TestNewRedisUnreachable(t *testing.T) {
	// Reserve a port and close it so nothing listens there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port, _ := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, ln.Close())

	_, err = NewRedis(context.Background(), Config{Host: host, Port: port, DialTimeout: 200 * time.Millisecond}, logging.NewNop())
	assert.Error(t, err)
}

func TestNewRedisIntegration(t *testing.T) {
	addr := strings.TrimSpace(os.Getenv("REDIS_TEST_ADDR"))
	if addr == "" {
		t.Skip("set REDIS_TEST_ADDR to run redis integration tests")
	}
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	client, err := NewRedis(context.Background(), Config{Host: host, Port: port, DialTimeout: time.Second}, logging.NewNop())
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "fresson:test", "1", time.Minute).Err())
	assert.Equal(t, "1", client.Get(context.Background(), "fresson:test").Val())
}
