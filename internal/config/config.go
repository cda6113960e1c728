package config

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common"
	ordconfig "github.com/gaze-network/ord-indexer/modules/ord/config"
	"github.com/gaze-network/ord-indexer/pkg/logger"
	"github.com/gaze-network/ord-indexer/pkg/logger/slogx"
	"github.com/gaze-network/ord-indexer/pkg/middleware/requestlogger"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	isInit bool
	mu     sync.Mutex
	config = &Config{
		Logger: logger.Config{
			Output: "TEXT",
		},
		Network: common.NetworkMainnet,
		BitcoinNode: BitcoinNodeClient{
			User: "user",
			Pass: "pass",
		},
		HTTPServer: HTTPServerConfig{
			Port: 8080,
		},
		Modules: Modules{
			Ord: ordconfig.Config{
				Database:          "leveldb",
				LevelDB:           ordconfig.LevelDBConfig{Path: "./data/ord"},
				Datasource:        "bitcoin-node",
				IndexRunes:        true,
				IndexInscriptions: true,
				PollingInterval:   15 * time.Second,
				CacheSize:         100_000,
				UndoRetention:     100,
				APIHandlers:       []string{"http"},
			},
		},
	}
)

type Config struct {
	Logger      logger.Config     `mapstructure:"logger"`
	BitcoinNode BitcoinNodeClient `mapstructure:"bitcoin_node"`
	Network     common.Network    `mapstructure:"network"`
	HTTPServer  HTTPServerConfig  `mapstructure:"http_server"`
	APIOnly     bool              `mapstructure:"api_only"`
	Modules     Modules           `mapstructure:"modules"`
}

type BitcoinNodeClient struct {
	Host       string `mapstructure:"host"`
	User       string `mapstructure:"user"`
	Pass       string `mapstructure:"pass"`
	DisableTLS bool   `mapstructure:"disable_tls"`
}

type HTTPServerConfig struct {
	Port int `mapstructure:"port"`
	// BehindProxy makes the client ip come from X-Forwarded-For.
	BehindProxy bool                 `mapstructure:"behind_proxy"`
	Logger      requestlogger.Config `mapstructure:"logger"`
}

type Modules struct {
	Ord ordconfig.Config `mapstructure:"ord"`
}

// Parse reads configFile, or config.yaml from the usual places when configFile is empty.
// Environment variables override the file, e.g. BITCOIN_NODE_HOST for bitcoin_node.host.
func Parse(configFile ...string) Config {
	mu.Lock()
	defer mu.Unlock()
	return parse(configFile...)
}

// Load returns the parsed configuration, parsing it with the defaults if Parse was never called.
func Load() Config {
	mu.Lock()
	defer mu.Unlock()
	if isInit {
		return *config
	}
	return parse()
}

// BindPFlag binds a viper key to a command line flag, so the flag wins over the file.
func BindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		logger.Panic("Something went wrong, failed to bind flag for config", slog.String("package", "config"), slogx.Error(err))
	}
}

func parse(configFile ...string) Config {
	ctx := logger.WithContext(context.Background(), slog.String("package", "config"))

	if len(configFile) > 0 && configFile[0] != "" {
		viper.SetConfigFile(configFile[0])
	} else {
		viper.AddConfigPath("./")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/ord-indexer")
		viper.SetConfigName("config")
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		var errNotfound viper.ConfigFileNotFoundError
		if errors.As(err, &errNotfound) {
			logger.WarnContext(ctx, "Config file not found, use default config value", slogx.Error(err))
		} else {
			logger.PanicContext(ctx, "Invalid config file", slogx.Error(err))
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		logger.PanicContext(ctx, "Something went wrong, failed to unmarshal config", slogx.Error(err))
	}

	isInit = true
	return *config
}
