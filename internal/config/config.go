// Package config loads the gateway's configuration: defaults, then an
// optional .env-style overlay, then an optional JSON file validated
// against a JSON Schema. Later sources win.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/galileosky/mercury-gateway/pkg/log"
)

// NATSConfig is the optional NATS publish sink's configuration. The
// sink is disabled unless Address is set.
type NATSConfig struct {
	Address       string `json:"address"`
	Subject       string `json:"subject"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	CredsFilePath string `json:"creds-file-path"`
}

// AvroConfig is the optional Avro archive sink's configuration.
// Disabled unless Enabled is true.
type AvroConfig struct {
	Enabled        bool   `json:"enabled"`
	Dir            string `json:"dir"`
	RotateInterval string `json:"rotate-interval"`
}

// Config holds every tunable the gateway reads at startup.
type Config struct {
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Timeout int    `json:"timeout"`
	Debug   bool   `json:"debug"`

	JSONLPath string     `json:"sink_jsonl_path"`
	NATS      NATSConfig `json:"sink_nats"`
	Avro      AvroConfig `json:"sink_avro"`

	MetricsAddr string `json:"metrics_addr"`

	FlushInterval string `json:"maintenance_flush_interval"`
	StatsInterval string `json:"maintenance_stats_interval"`
}

// Default returns the documented defaults before any .env or JSON
// overlay is applied.
func Default() Config {
	return Config{
		Host:          "0.0.0.0",
		Port:          12347,
		Timeout:       60,
		Debug:         true,
		JSONLPath:     "./var/parsed_data.jsonl",
		MetricsAddr:   ":9308",
		FlushInterval: "30s",
		StatsInterval: "1m",
	}
}

// Load builds a Config starting from Default, applying envFile (if it
// exists — a missing .env is not an error) via godotenv, then
// jsonConfigPath (if non-empty) validated against Schema. Any schema
// validation failure is fatal: fail fast at startup rather than run
// with a config nobody vetted.
func Load(envFile, jsonConfigPath string) Config {
	cfg := Default()

	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			log.Fatalf("config: loading %s: %v", envFile, err)
		}
	}
	applyEnv(&cfg)

	if jsonConfigPath != "" {
		raw, err := os.ReadFile(jsonConfigPath)
		if err != nil {
			log.Fatalf("config: reading %s: %v", jsonConfigPath, err)
		}
		if err := Validate(Schema, raw); err != nil {
			log.Fatalf("config: %s failed schema validation: %v", jsonConfigPath, err)
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			log.Fatalf("config: decoding %s: %v", jsonConfigPath, err)
		}
	}

	return cfg
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("HOST"); ok {
		cfg.Host = v
	}
	if v, ok := os.LookupEnv("PORT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		} else {
			log.Warnf("config: ignoring invalid PORT=%q", v)
		}
	}
	if v, ok := os.LookupEnv("TIMEOUT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Timeout = n
		} else {
			log.Warnf("config: ignoring invalid TIMEOUT=%q", v)
		}
	}
	if v, ok := os.LookupEnv("DEBUG"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = b
		} else {
			log.Warnf("config: ignoring invalid DEBUG=%q", v)
		}
	}
}
