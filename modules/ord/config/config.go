package config

import (
	"time"

	"github.com/gaze-network/ord-indexer/internal/postgres"
)

type Config struct {
	// Database is "leveldb" or "postgres".
	Database string          `mapstructure:"database"`
	LevelDB  LevelDBConfig   `mapstructure:"leveldb"`
	Postgres postgres.Config `mapstructure:"postgres"`

	// Datasource is the block source, only "bitcoin-node" for now.
	Datasource        string        `mapstructure:"datasource"`
	IndexRunes        bool          `mapstructure:"index_runes"`
	IndexInscriptions bool          `mapstructure:"index_inscriptions"`
	PollingInterval   time.Duration `mapstructure:"polling_interval"`
	MaxRetries        uint64        `mapstructure:"max_retries"`
	// CacheSize is the number of output entries kept in memory.
	CacheSize int `mapstructure:"cache_size"`
	// UndoRetention is how many blocks can be rolled back. 0 keeps every undo record.
	UndoRetention int64    `mapstructure:"undo_retention"`
	APIHandlers   []string `mapstructure:"api_handlers"`
}

type LevelDBConfig struct {
	Path string `mapstructure:"path"`
}
