// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package config loads engine configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/strongdm/snapstore/hashing"
)

// Config captures all runtime configuration for an Engine. Values are
// sourced from environment variables so they can be injected locally
// via a .env file or via platform secrets.
type Config struct {
	Root          string
	HashAlgorithm hashing.Algorithm
	StagingDir    string
}

const (
	defaultRoot          = "./snapstore-data"
	defaultHashAlgorithm = "blake3"
)

// Load reads configuration from environment variables and validates
// it. Missing or invalid settings are returned as an error so startup
// fails fast rather than producing confusing runtime errors.
func Load() (Config, error) {
	_ = godotenv.Load(".env", "../.env", "../../.env")

	algoStr := strings.ToLower(firstNonEmpty(os.Getenv("SNAPSTORE_HASH_ALGORITHM"), defaultHashAlgorithm))
	algo, err := parseAlgorithm(algoStr)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Root:          firstNonEmpty(os.Getenv("SNAPSTORE_ROOT"), defaultRoot),
		HashAlgorithm: algo,
		StagingDir:    strings.TrimSpace(os.Getenv("SNAPSTORE_STAGING_DIR")),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Root) == "" {
		return fmt.Errorf("missing required env var: SNAPSTORE_ROOT")
	}
	return nil
}

func parseAlgorithm(s string) (hashing.Algorithm, error) {
	switch s {
	case "blake3":
		return hashing.BLAKE3, nil
	case "sha256":
		return hashing.SHA256, nil
	default:
		return "", fmt.Errorf("invalid SNAPSTORE_HASH_ALGORITHM: %q (want blake3 or sha256)", s)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
