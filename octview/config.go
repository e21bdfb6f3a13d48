package octview

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the TOML-decoded configuration for an octview process.
type Config struct {
	Log   LogConfig
	Kafka KafkaConfig

	Cache  CacheConfig
	Store  StoreConfig
	Server ServerConfig
}

// CacheConfig tunes the process-wide tile payload cache.
type CacheConfig struct {
	// Size of the tile payload cache in MB.  The payload cache uses an
	// approximate-LRU eviction over this byte budget; the budget is a tuning
	// parameter, not part of any API contract.
	MBytes int `toml:"cache_mbytes"`

	// Number of concurrent tile fetch workers.
	FetchWorkers int `toml:"fetch_workers"`
}

// StoreConfig locates the local tile store.
type StoreConfig struct {
	Engine string // currently only "badger"
	Path   string
}

// ServerConfig configures the tile HTTP server.
type ServerConfig struct {
	HTTPAddress string   `toml:"http_address"`
	CorsDomains []string `toml:"cors_domains"`
}

const (
	DefaultCacheMBytes  = 512
	DefaultFetchWorkers = 8
	DefaultWebAddress   = "localhost:8000"
)

// LoadConfig reads a TOML configuration file and fills in defaults for
// unspecified tuning values.
func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("no configuration file provided")
	}
	var c Config
	if _, err := toml.DecodeFile(filename, &c); err != nil {
		return nil, fmt.Errorf("could not decode TOML config %q: %v", filename, err)
	}
	if c.Cache.MBytes == 0 {
		c.Cache.MBytes = DefaultCacheMBytes
	}
	if c.Cache.FetchWorkers == 0 {
		c.Cache.FetchWorkers = DefaultFetchWorkers
	}
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = DefaultWebAddress
	}
	return &c, nil
}

// Initialize applies the configuration to process-wide state: logging and
// the optional kafka activity relay.
func (c *Config) Initialize() error {
	c.Log.SetLogger()
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}
	return c.Kafka.Initialize(hostname)
}
