package core

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"mapstore/internal/blob"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "MAPSTORE_"

// StorageDriver identifies a database engine.
type StorageDriver string

// Supported engines.
const (
	StorageSQLite   StorageDriver = "sqlite"
	StoragePostgres StorageDriver = "postgres"
)

// Config is the process configuration. Tags are read with EnvPrefix, e.g.
// MAPSTORE_STORAGE_DRIVER or MAPSTORE_BLOB_S3_BUCKET.
type Config struct {
	StorageDriver StorageDriver `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath    string        `env:"SQLITE_PATH" envDefault:"mapstore.db"`
	PostgresDSN   string        `env:"POSTGRES_DSN"`
	Codec         string        `env:"CODEC" envDefault:"cbor"`
	// QuestTable is read for reference-counted cleanup. When EnsureQuestTable
	// is set a minimal table is created if missing.
	QuestTable       string      `env:"QUEST_TABLE" envDefault:"osm_quests"`
	EnsureQuestTable bool        `env:"ENSURE_QUEST_TABLE" envDefault:"true"`
	Blob             blob.Config `envPrefix:"BLOB_"`
	LogLevel         string      `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty        bool        `env:"LOG_PRETTY"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
