package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":7000"
engine:
  symbols: [LNUX, ABCD]
  allow_new_symbols: false
kafka:
  client: kafka-go
  brokers: ["k1:9092", "k2:9092"]
journal:
  retain: 5000
redis:
  addr: localhost:6379
  snapshot_interval: 500ms
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Listen)
	assert.Equal(t, []string{"LNUX", "ABCD"}, cfg.Engine.Symbols)
	assert.False(t, cfg.Engine.AllowNewSymbols)
	assert.Equal(t, KafkaKafkaGo, cfg.Kafka.Client)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 500*time.Millisecond, cfg.Redis.SnapshotInterval)
	assert.Equal(t, uint64(5000), cfg.Journal.Retain)
	assert.Equal(t, time.Minute, cfg.Journal.RetentionInterval)

	// untouched fields keep defaults
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, int32(2), cfg.Engine.PriceScale)
	assert.Equal(t, "ordermatch.events", cfg.Kafka.Topic)
	assert.Equal(t, 10, cfg.Redis.Depth)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Listen = ""
	cfg.Engine.AllowNewSymbols = false
	cfg.Engine.PriceScale = 20
	cfg.Kafka.Brokers = []string{"k:9092"}
	cfg.Kafka.Client = "franz"
	cfg.Journal.RetentionInterval = 0

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"listen", "no symbols", "price_scale", "unknown client", "retention_interval"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestParseFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := Parse(fs, []string{"-listen", ":1234", "-symbols", "A,B", "-log-level", "debug"})
	require.NoError(t, err)
	assert.Equal(t, ":1234", cfg.Listen)
	assert.Equal(t, []string{"A", "B"}, cfg.Engine.Symbols)
	assert.Equal(t, "debug", cfg.LogLevel)
}
