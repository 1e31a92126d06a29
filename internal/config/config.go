// Package config loads service configuration from the environment, with an
// optional .env file for local development. All variables carry the WALLET_
// prefix, e.g. WALLET_DATA_DIR.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// HTTPAddr is the listen address of the HTTP front end.
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// DataDir selects the file-backed account store. Empty means in-memory
	// unless DatabaseURL is set.
	DataDir string `envconfig:"DATA_DIR"`

	// DatabaseURL selects the postgres-backed account store and takes
	// precedence over DataDir.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// StrictRecords makes startup replay each durable record's entry log
	// and reject records whose stored balances diverge.
	StrictRecords bool `envconfig:"STRICT_RECORDS"`

	// KafkaBrokers enables the Kafka transfer-event publisher when
	// non-empty.
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"transfer_completed"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads .env if present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("wallet", &cfg); err != nil {
		return Config{}, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
