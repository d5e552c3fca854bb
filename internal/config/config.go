// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package config

import (
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
)

// Config is the top-level Murmur configuration.
type Config struct {
	Server     ServerConfig              `mapstructure:"server"`
	Storage    StorageConfig             `mapstructure:"storage"`
	Providers  map[string]ProviderConfig `mapstructure:"providers"`
	Models     ModelsConfig              `mapstructure:"models"`
	Clustering ClusteringConfig          `mapstructure:"clustering"`
	Search     SearchConfig              `mapstructure:"search"`
}

// ServerConfig controls the local HTTP API listener.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// StorageConfig selects the storage backend and its location.
type StorageConfig struct {
	Backend          string `mapstructure:"backend"`
	DataDir          string `mapstructure:"data_dir"`
	VectorDimensions int    `mapstructure:"vector_dimensions"`
}

// ProviderConfig holds credentials and endpoint for a model provider.
type ProviderConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

// ModelsConfig selects which provider/model serves each concern.
type ModelsConfig struct {
	Embedding  string `mapstructure:"embedding"`
	Enrichment string `mapstructure:"enrichment"`
}

// ClusteringConfig carries topic clustering tunables.
type ClusteringConfig struct {
	Count     int `mapstructure:"count"`
	Threshold int `mapstructure:"threshold"`
}

// SearchConfig carries search fusion tunables.
type SearchConfig struct {
	Mode           string  `mapstructure:"mode"`
	SemanticWeight float64 `mapstructure:"semantic_weight"`
	KeywordWeight  float64 `mapstructure:"keyword_weight"`
	MinScore       float64 `mapstructure:"min_score"`
	MaxResults     int     `mapstructure:"max_results"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix MURMUR_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.listen", "127.0.0.1:8787")
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.vector_dimensions", 1536)
	v.SetDefault("models.embedding", "openai/text-embedding-3-small")
	v.SetDefault("models.enrichment", "openai/gpt-4.1-mini")
	v.SetDefault("clustering.count", 5)
	v.SetDefault("clustering.threshold", 10)
	v.SetDefault("search.mode", "hybrid")
	v.SetDefault("search.semantic_weight", 0.6)
	v.SetDefault("search.keyword_weight", 0.4)
	v.SetDefault("search.min_score", 0.1)
	v.SetDefault("search.max_results", 50)

	// Environment
	v.SetEnvPrefix("MURMUR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, murmurerr.Errorf(murmurerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, murmurerr.Errorf(murmurerr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, murmurerr.Errorf(murmurerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It returns every
// validation error found, not just the first.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateModels()...)
	errs = append(errs, c.validateClustering()...)
	errs = append(errs, c.validateSearch()...)

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, murmurerr.Errorf(murmurerr.CodeConfigValidateInvalidValue, "config: server.listen must not be empty"))
		return errs
	}

	_, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		errs = append(errs, murmurerr.Errorf(murmurerr.CodeConfigValidateInvalidValue,
			"config: server.listen must be a valid host:port address, got %q: %w",
			c.Server.Listen, err,
		))
		return errs
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, murmurerr.Errorf(murmurerr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be a number, got %q", portStr))
	} else if port < 1 || port > 65535 {
		errs = append(errs, murmurerr.Errorf(murmurerr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be between 1 and 65535, got %d", port))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"sqlite": true, "memory": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, murmurerr.Errorf(murmurerr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be one of [sqlite, memory], got %q",
			c.Storage.Backend,
		))
	}

	if c.Storage.VectorDimensions < 1 {
		errs = append(errs, murmurerr.Errorf(murmurerr.CodeConfigValidateInvalidValue,
			"config: storage.vector_dimensions must be positive, got %d",
			c.Storage.VectorDimensions,
		))
	}

	return errs
}

func (c *Config) validateModels() []error {
	var errs []error

	for key, value := range map[string]string{
		"models.embedding":  c.Models.Embedding,
		"models.enrichment": c.Models.Enrichment,
	} {
		if value == "" {
			errs = append(errs, murmurerr.Errorf(murmurerr.CodeConfigValidateInvalidValue,
				"config: %s must not be empty", key))
			continue
		}
		if !strings.Contains(value, "/") {
			errs = append(errs, murmurerr.Errorf(murmurerr.CodeConfigValidateInvalidValue,
				"config: %s must be in \"provider/model\" format, got %q", key, value))
			continue
		}
		// Only cross-reference providers when the providers section exists.
		// A nil map means defaults only (e.g. fresh install), which is valid.
		if c.Providers != nil {
			providerName := ProviderFromModel(value)
			if _, ok := c.Providers[providerName]; !ok {
				errs = append(errs, murmurerr.Errorf(murmurerr.CodeConfigValidateInvalidValue,
					"config: %s %q references provider %q which is not configured",
					key, value, providerName))
			}
		}
	}

	return errs
}

func (c *Config) validateClustering() []error {
	var errs []error

	if c.Clustering.Count < 1 {
		errs = append(errs, murmurerr.Errorf(murmurerr.CodeConfigValidateInvalidValue,
			"config: clustering.count must be positive, got %d", c.Clustering.Count))
	}
	if c.Clustering.Threshold < 1 {
		errs = append(errs, murmurerr.Errorf(murmurerr.CodeConfigValidateInvalidValue,
			"config: clustering.threshold must be positive, got %d", c.Clustering.Threshold))
	}

	return errs
}

func (c *Config) validateSearch() []error {
	var errs []error

	validModes := map[string]bool{"hybrid": true, "keyword": true, "semantic": true}
	if !validModes[c.Search.Mode] {
		errs = append(errs, murmurerr.Errorf(murmurerr.CodeConfigValidateInvalidValue,
			"config: search.mode must be one of [hybrid, keyword, semantic], got %q",
			c.Search.Mode,
		))
	}

	for key, w := range map[string]float64{
		"search.semantic_weight": c.Search.SemanticWeight,
		"search.keyword_weight":  c.Search.KeywordWeight,
	} {
		if w < 0 || w > 1 {
			errs = append(errs, murmurerr.Errorf(murmurerr.CodeConfigValidateInvalidValue,
				"config: %s must be in [0, 1], got %g", key, w))
		}
	}
	if c.Search.MinScore < 0 || c.Search.MinScore > 1 {
		errs = append(errs, murmurerr.Errorf(murmurerr.CodeConfigValidateInvalidValue,
			"config: search.min_score must be in [0, 1], got %g", c.Search.MinScore))
	}
	if c.Search.MaxResults < 1 {
		errs = append(errs, murmurerr.Errorf(murmurerr.CodeConfigValidateInvalidValue,
			"config: search.max_results must be positive, got %d", c.Search.MaxResults))
	}

	return errs
}

// ProviderFromModel extracts the provider name from a "provider/model" string.
func ProviderFromModel(model string) string {
	if i := strings.IndexByte(model, '/'); i >= 0 {
		return model[:i]
	}
	return model
}

// ModelFromRef extracts the model name from a "provider/model" string.
func ModelFromRef(model string) string {
	if i := strings.IndexByte(model, '/'); i >= 0 {
		return model[i+1:]
	}
	return model
}
