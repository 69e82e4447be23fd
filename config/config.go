package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database  DatabaseConfig   `yaml:"database"`
	Kafka     KafkaConfig      `yaml:"kafka"`
	Redis     RedisConfig      `yaml:"redis"`
	Logging   LoggingConfig    `yaml:"logging"`
	FilmTrack FilmTrackConfig  `yaml:"filmtrack"`
	Providers []ProviderConfig `yaml:"providers"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	StatusUpdatedTopic string `yaml:"status_updated_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | text
}

type FilmTrackConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`
	SwaggerPath        string `yaml:"swagger_path"`
	SQLitePath         string `yaml:"sqlite_path"`

	FetchConcurrency int `yaml:"fetch_concurrency"`

	WorkerPollIntervalSeconds int    `yaml:"worker_poll_interval_seconds"`
	WorkerBatchSize           int    `yaml:"worker_batch_size"`
	WorkerConcurrency         int    `yaml:"worker_concurrency"`
	WorkerLeaseSeconds        int    `yaml:"worker_lease_seconds"`
	WorkerHTTPAddr            string `yaml:"worker_http_addr"`

	// Next-check scheduling (optional). Defaults: PROCESSING 30..120 minutes,
	// UNKNOWN 90 minutes, ERROR 30 minutes, DONE 7 days.
	WorkerNextCheckProcessingMinSeconds int `yaml:"worker_next_check_processing_min_seconds"`
	WorkerNextCheckProcessingMaxSeconds int `yaml:"worker_next_check_processing_max_seconds"`
	WorkerNextCheckUnknownSeconds       int `yaml:"worker_next_check_unknown_seconds"`
	WorkerNextCheckErrorSeconds         int `yaml:"worker_next_check_error_seconds"`
	WorkerNextCheckDoneSeconds          int `yaml:"worker_next_check_done_seconds"`
}

// ProviderConfig describes one vendor backend.
type ProviderConfig struct {
	ID                 string `yaml:"id"`
	Kind               string `yaml:"kind"` // "forshop" | "photoprintit" | "fake"
	BaseURL            string `yaml:"base_url"`
	Config             string `yaml:"config"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
