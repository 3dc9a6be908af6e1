package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsFillGaps(t *testing.T) {
	path := writeConfig(t, "environment: test\noptimizer:\n  single_step: 5\n")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Optimizer.SingleStep)
	assert.Equal(t, "12mo", c.Optimizer.DefaultPeriod)
	assert.Equal(t, 5*time.Minute, c.Optimizer.SweepTimeout)
	assert.Equal(t, "http", c.MarketData.Source)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "windowopt:queue", c.Queue.Prefix)
}

func TestLoad_Validation(t *testing.T) {
	cases := map[string]string{
		"missing environment": "optimizer:\n  single_step: 1\n",
		"bad single step":     "environment: test\noptimizer:\n  single_step: 2\n",
		"bad source":          "environment: test\nmarketdata:\n  source: ftp\n",
		"clickhouse source":   "environment: test\nmarketdata:\n  source: clickhouse\n",
		"kafka no brokers":    "environment: test\nkafka:\n  enabled: true\n",
		"bad period":          "environment: test\noptimizer:\n  default_period: fortnight\n",
		"queue without redis": "environment: test\nqueue:\n  enabled: true\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnv_Overrides(t *testing.T) {
	path := writeConfig(t, "environment: test\n")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("SYMBOLS", "aapl,msft")
	t.Setenv("OPTIMIZER_SINGLE_STEP", "5")
	t.Setenv("REDIS_ADDR", "redis:6379")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, 5, c.Optimizer.SingleStep)
	assert.Equal(t, "redis:6379", c.Redis.Addr)
	assert.Len(t, c.Optimizer.Symbols, 2)
}

func TestLoad_RepoConfig(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "optimization-refresh", c.Kafka.RefreshTopic)
	assert.NotEmpty(t, c.Optimizer.Symbols)
}
