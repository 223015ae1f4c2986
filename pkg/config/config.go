package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"Moatline/pkg/util"
	"Moatline/pkg/validate"
)

type Config struct {
	Environment     string          `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	Server          Server          `yaml:"server"`
	Log             Log             `yaml:"log"`
	Metrics         Metrics         `yaml:"metrics"`
	Kafka           Kafka           `yaml:"kafka"`
	ClickHouse      ClickHouse      `yaml:"clickhouse"`
	Redis           Redis           `yaml:"redis"`
	Cache           Cache           `yaml:"cache"`
	SnapshotService SnapshotService `yaml:"snapshot_service"`
	Analysis        Analysis        `yaml:"analysis"`
}

type Server struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	SlowThreshold   time.Duration `yaml:"slow_threshold" default:"1s"`
	CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
	RateLimit       float64       `yaml:"rate_limit" default:"20" validate:"gte=0"`
	RateBurst       int           `yaml:"rate_burst" default:"40" validate:"gte=0"`
}

type Log struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stdout"`
}

type Metrics struct {
	Enabled bool `yaml:"enabled" default:"true"`
}

type Kafka struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers" default:"[\"localhost:9092\"]" validate:"required_if=Enabled true"`
	RequestTopic string   `yaml:"request_topic" default:"analysis.requests"`
	VerdictTopic string   `yaml:"verdict_topic" default:"analysis.verdicts"`
	DLQTopic     string   `yaml:"dlq_topic" default:"analysis.requests.dlq"`
	Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
	RequiredAcks int      `yaml:"required_acks" default:"-1" validate:"oneof=-1 0 1"`
	Producer     Producer `yaml:"producer"`
	Consumer     Consumer `yaml:"consumer"`
}

type Producer struct {
	MaxAttempts  int           `yaml:"max_attempts" default:"5" validate:"gte=1"`
	BatchSize    int           `yaml:"batch_size" default:"100" validate:"gte=1"`
	Linger       time.Duration `yaml:"linger" default:"10ms"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
}

type Consumer struct {
	Enabled    bool          `yaml:"enabled" default:"true"`
	GroupID    string        `yaml:"group_id" default:"moatline"`
	Workers    int           `yaml:"workers" default:"4" validate:"gte=1,lte=256"`
	BufferSize int           `yaml:"buffer_size" default:"256" validate:"gte=1"`
	RetryMax   int           `yaml:"retry_max" default:"3" validate:"gte=0"`
	BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
	BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
}

type ClickHouse struct {
	Enabled      bool          `yaml:"enabled"`
	Host         string        `yaml:"host" default:"localhost" validate:"required_if=Enabled true"`
	Port         int           `yaml:"port" default:"9000"`
	Database     string        `yaml:"database" default:"moatline"`
	User         string        `yaml:"user" default:"default"`
	Password     string        `yaml:"password"`
	UseHTTP      bool          `yaml:"use_http"`
	AsyncInsert  bool          `yaml:"async_insert"`
	WaitForAsync bool          `yaml:"wait_for_async_insert"`
	DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
	MaxExecTime  time.Duration `yaml:"max_execution_time" default:"60s"`
}

type Redis struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"moatline"`
}

type Cache struct {
	Enabled    bool          `yaml:"enabled" default:"true"`
	TTL        time.Duration `yaml:"ttl" default:"1h"`
	MemorySize int           `yaml:"memory_size" default:"1000" validate:"gte=1"`
	MemoryTTL  time.Duration `yaml:"memory_ttl" default:"1m"`
}

type SnapshotService struct {
	URL     string        `yaml:"url" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout" default:"3s"`
	Retries int           `yaml:"retries" default:"3" validate:"gte=1,lte=10"`
	Backoff time.Duration `yaml:"backoff" default:"100ms"`
}

// Load reads a YAML configuration file over the defaults and validates it.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults and validates the result. Explicit
// zero values in the document are kept.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("SERVER_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
		c.Kafka.Enabled = true
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		host, port, err := net.SplitHostPort(v)
		if err != nil {
			return fmt.Errorf("REDIS_ADDR: %w", err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("REDIS_ADDR port: %w", err)
		}
		c.Redis.Host, c.Redis.Port, c.Redis.Enabled = host, p, true
	}
	if v := getenv("KAFKA_CONSUMER_ENABLED"); v != "" {
		c.Kafka.Consumer.Enabled = util.ParseBoolDefault(v, c.Kafka.Consumer.Enabled)
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := getenv("SNAPSHOT_SERVICE_URL"); v != "" {
		c.SnapshotService.URL = v
	}
	return nil
}

// Validate checks field constraints and that the analysis section builds.
func (c *Config) Validate() error {
	if vs := validate.Struct(c); len(vs) > 0 {
		return fmt.Errorf("%s", validate.Join(vs))
	}
	if _, err := c.Analysis.Build(); err != nil {
		return err
	}
	return nil
}
