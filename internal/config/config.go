package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Graph         GraphConfig         `mapstructure:"graph"`
	Vector        VectorConfig        `mapstructure:"vector"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Log           LogConfig           `mapstructure:"log"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Server        ServerConfig        `mapstructure:"server"`
}

type GraphConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type VectorConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	// EmbedURL points at an OpenAI-compatible embeddings API. Semantic
	// search needs both the vector store and an embedder; without EmbedURL
	// semantic queries degrade to fuzzy matching.
	EmbedURL    string `mapstructure:"embed_url"`
	EmbedAPIKey string `mapstructure:"embed_api_key"`
	EmbedModel  string `mapstructure:"embed_model"`
}

type CacheConfig struct {
	MaxEntries int           `mapstructure:"max_entries"`
	TTL        time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ObservabilityConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	Environment  string  `mapstructure:"environment"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.Graph.URI == "" {
		warnings = append(warnings, "graph.uri is empty, graph store connections will fail")
	}
	if c.Vector.Enabled && c.Vector.Host == "" {
		warnings = append(warnings, "vector backend is enabled but vector.host is empty")
	}
	if c.Vector.Enabled && c.Vector.EmbedURL == "" {
		warnings = append(warnings, "vector backend is enabled but vector.embed_url is empty, semantic search will degrade to fuzzy")
	}
	if c.Cache.MaxEntries < 0 {
		warnings = append(warnings, fmt.Sprintf("cache.max_entries %d is negative", c.Cache.MaxEntries))
	}
	if c.Cache.TTL < 0 {
		warnings = append(warnings, fmt.Sprintf("cache.ttl %s is negative", c.Cache.TTL))
	}
	if c.Observability.SampleRate < 0 || c.Observability.SampleRate > 1.0 {
		warnings = append(warnings, fmt.Sprintf("observability.sample_rate %.2f is outside [0.0, 1.0]", c.Observability.SampleRate))
	}

	return warnings
}

// Load reads configuration from an optional file and the environment.
// Environment variables use the ATLAS_ prefix, e.g. ATLAS_GRAPH_URI.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("graph.uri", "bolt://localhost:7687")
	v.SetDefault("graph.username", "neo4j")
	v.SetDefault("graph.password", "")

	v.SetDefault("vector.enabled", false)
	v.SetDefault("vector.host", "localhost")
	v.SetDefault("vector.port", 6334)
	v.SetDefault("vector.collection", "atlas_nodes")
	v.SetDefault("vector.embed_url", "")
	v.SetDefault("vector.embed_api_key", "")
	v.SetDefault("vector.embed_model", "text-embedding-3-small")

	v.SetDefault("cache.max_entries", 16)
	v.SetDefault("cache.ttl", 30*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("observability.otlp_endpoint", "")
	v.SetDefault("observability.sample_rate", 1.0)
	v.SetDefault("observability.environment", "development")

	v.SetDefault("server.addr", ":8080")
}
