// Package config loads the server configuration from YAML, with a few
// command line overrides.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

/*
YAML config example:

listen: ":9090"
log_level: info
engine:
  symbols: ["LNUX", "ABCD"]
  allow_new_symbols: false
  price_scale: 2
journal:
  dir: data/journal
  segment_size: 67108864
  retain: 10000000
  retention_interval: 1m
outbox:
  dir: data/outbox
  interval: 250ms
kafka:
  client: sarama
  brokers: ["localhost:9092"]
  topic: ordermatch.events
redis:
  addr: localhost:6379
  snapshot_interval: 1s
  depth: 10
postgres:
  dsn: "host=localhost user=postgres password=postgres dbname=ordermatch sslmode=disable"
*/

type Config struct {
	Listen   string   `yaml:"listen"`
	LogLevel string   `yaml:"log_level"`
	Engine   Engine   `yaml:"engine"`
	Journal  Journal  `yaml:"journal"`
	Outbox   Outbox   `yaml:"outbox"`
	Kafka    Kafka    `yaml:"kafka"`
	Redis    Redis    `yaml:"redis"`
	Postgres Postgres `yaml:"postgres"`
}

type Engine struct {
	Symbols         []string `yaml:"symbols"`
	AllowNewSymbols bool     `yaml:"allow_new_symbols"`
	// PriceScale is the number of decimal places one tick represents.
	PriceScale int32 `yaml:"price_scale"`
}

// Journal retention keeps the newest Retain records; closed segments
// older than that are removed every RetentionInterval. Zero keeps all.
type Journal struct {
	Dir               string        `yaml:"dir"`
	SegmentSize       int64         `yaml:"segment_size"`
	Retain            uint64        `yaml:"retain"`
	RetentionInterval time.Duration `yaml:"retention_interval"`
}

type Outbox struct {
	Dir      string        `yaml:"dir"`
	Interval time.Duration `yaml:"interval"`
}

const (
	KafkaSarama  = "sarama"
	KafkaKafkaGo = "kafka-go"
)

// Kafka is disabled when Brokers is empty.
type Kafka struct {
	Client  string   `yaml:"client"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Redis snapshots are disabled when Addr is empty.
type Redis struct {
	Addr             string        `yaml:"addr"`
	Password         string        `yaml:"password"`
	DB               int           `yaml:"db"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
	Depth            int           `yaml:"depth"`
	TTL              time.Duration `yaml:"ttl"`
}

// The trade store is disabled when DSN is empty.
type Postgres struct {
	DSN string `yaml:"dsn"`
}

func Default() Config {
	return Config{
		Listen:   ":9090",
		LogLevel: "info",
		Engine: Engine{
			AllowNewSymbols: true,
			PriceScale:      2,
		},
		Journal: Journal{
			Dir:               "data/journal",
			SegmentSize:       64 << 20,
			Retain:            10_000_000,
			RetentionInterval: time.Minute,
		},
		Outbox: Outbox{
			Dir:      "data/outbox",
			Interval: 250 * time.Millisecond,
		},
		Kafka: Kafka{
			Client: KafkaSarama,
			Topic:  "ordermatch.events",
		},
		Redis: Redis{
			SnapshotInterval: time.Second,
			Depth:            10,
		},
	}
}

// Load reads path over the defaults. Fields missing from the file
// keep their default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse handles the command line: -config, then flag overrides.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	configFile := fs.String("config", "", "Path to YAML config file")
	listen := fs.String("listen", "", "gRPC listen address")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn or error")
	symbols := fs.String("symbols", "", "Comma-separated list of symbols")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if *configFile != "" {
		var err error
		if cfg, err = Load(*configFile); err != nil {
			return Config{}, err
		}
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *symbols != "" {
		cfg.Engine.Symbols = strings.Split(*symbols, ",")
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var merr *multierror.Error
	if c.Listen == "" {
		merr = multierror.Append(merr, errors.New("listen is required"))
	}
	if len(c.Engine.Symbols) == 0 && !c.Engine.AllowNewSymbols {
		merr = multierror.Append(merr, errors.New("engine: no symbols configured and new symbols not allowed"))
	}
	for _, s := range c.Engine.Symbols {
		if strings.TrimSpace(s) == "" {
			merr = multierror.Append(merr, errors.New("engine: empty symbol"))
			break
		}
	}
	if c.Engine.PriceScale < 0 || c.Engine.PriceScale > 12 {
		merr = multierror.Append(merr, fmt.Errorf("engine: price_scale %d out of range 0..12", c.Engine.PriceScale))
	}
	if c.Journal.Dir == "" {
		merr = multierror.Append(merr, errors.New("journal: dir is required"))
	}
	if c.Journal.Retain > 0 && c.Journal.RetentionInterval <= 0 {
		merr = multierror.Append(merr, errors.New("journal: retention_interval must be positive when retain is set"))
	}
	if c.Outbox.Dir == "" {
		merr = multierror.Append(merr, errors.New("outbox: dir is required"))
	}
	if c.Outbox.Interval <= 0 {
		merr = multierror.Append(merr, errors.New("outbox: interval must be positive"))
	}
	if len(c.Kafka.Brokers) > 0 {
		if c.Kafka.Client != KafkaSarama && c.Kafka.Client != KafkaKafkaGo {
			merr = multierror.Append(merr, fmt.Errorf("kafka: unknown client %q", c.Kafka.Client))
		}
		if c.Kafka.Topic == "" {
			merr = multierror.Append(merr, errors.New("kafka: topic is required"))
		}
	}
	if c.Redis.Addr != "" {
		if c.Redis.SnapshotInterval <= 0 {
			merr = multierror.Append(merr, errors.New("redis: snapshot_interval must be positive"))
		}
		if c.Redis.Depth < 0 {
			merr = multierror.Append(merr, errors.New("redis: depth must not be negative"))
		}
	}
	return merr.ErrorOrNil()
}
