package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the optional configuration file. Flags given on the command
// line take precedence over its values.
type Config struct {
	Modem ModemConfig `yaml:"modem"`
	Cache CacheConfig `yaml:"cache"`
}

type ModemConfig struct {
	Address            string        `yaml:"address"`
	Port               int           `yaml:"port"`
	TLS                bool          `yaml:"tls"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	Timeout            time.Duration `yaml:"timeout"`
}

type CacheConfig struct {
	Path string        `yaml:"path"`
	TTL  time.Duration `yaml:"ttl"`
}

func DefaultConfig() Config {
	return Config{
		Modem: ModemConfig{
			Port:    80,
			Timeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			TTL: 30 * time.Second,
		},
	}
}

func loadConfig(filename string) (Config, error) {
	if filename == "" {
		return DefaultConfig(), nil
	}

	f, err := os.Open(filename)
	if err != nil {
		return Config{}, fmt.Errorf("error reading config file: %w", err)
	}
	defer f.Close()

	c := DefaultConfig()
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	// fields missing from the file keep their defaults
	if err := decoder.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("error parsing config file: %w", err)
	}
	return c, nil
}
