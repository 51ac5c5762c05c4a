package config

import (
	"strings"
	"time"
)

// StoreBackend selects the durable key-value backend for tokens and cached user info.
type StoreBackend string

const (
	// StoreBackendFile keeps keys in a local JSON file shared by the console and admin CLI.
	StoreBackendFile StoreBackend = "file"
	// StoreBackendRedis keeps keys in Redis under a prefix.
	StoreBackendRedis StoreBackend = "redis"
	// StoreBackendMemory keeps keys in process memory (tests, throwaway sessions).
	StoreBackendMemory StoreBackend = "memory"
)

// StoreConfig contains durable token store configuration.
type StoreConfig struct {
	Backend   StoreBackend `env:"BACKEND"    envDefault:"file"`
	Path      string       `env:"PATH"       envDefault:".aquaops/session.json"`
	KeyPrefix string       `env:"KEY_PREFIX" envDefault:"aquaops:session:"`

	// TTL expires Redis keys; zero keeps them until logout.
	TTL time.Duration `env:"TTL" envDefault:"0s"`
}

// Sanitize applies guardrails to store configuration values.
func (s *StoreConfig) Sanitize() {
	switch StoreBackend(strings.ToLower(strings.TrimSpace(string(s.Backend)))) {
	case StoreBackendRedis:
		s.Backend = StoreBackendRedis
	case StoreBackendMemory:
		s.Backend = StoreBackendMemory
	default:
		s.Backend = StoreBackendFile
	}
	s.Path = strings.TrimSpace(s.Path)
	if s.Path == "" {
		s.Path = ".aquaops/session.json"
	}
	if s.TTL < 0 {
		s.TTL = 0
	}
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}
