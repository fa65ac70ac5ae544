// Copyright (c) 2025 The liblotto developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config holds the pool's fixed configuration: the credit asset
// identity, the purchase ratio, and the per-bet price and fee, plus the
// ambient data-dir and logging settings. Values are fixed for a pool's
// lifetime once it is constructed.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all liblotto configuration values.
type Config struct {
	DataDir       string // base directory for ledger and pool databases
	CreditName    string // human-readable credit asset name
	CreditSymbol  string // short credit asset symbol
	PurchaseRatio uint64 // credit units minted per payment unit
	BetPrice      uint64 // per-bet stake in credit units
	BetFee        uint64 // per-bet fee in credit units
	LogLevel      string // "debug", "info", "warn", or "error"
	LogFile       string // log file path; empty for stderr only
}

// DefaultConfig returns the default configuration. The numeric defaults
// match the canonical low-stakes deployment: 1000 credit per payment
// unit, 1000 credit stake and 100 credit fee per bet.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		DataDir:       filepath.Join(home, ".liblotto"),
		CreditName:    "Lotto Credit",
		CreditSymbol:  "LOTTO",
		PurchaseRatio: 1000,
		BetPrice:      1000,
		BetFee:        100,
		LogLevel:      "info",
		LogFile:       "",
	}
}

// LoadConfig reads a configuration file of key=value lines. Blank lines
// and lines starting with '#' are ignored. Keys not present keep their
// default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			return cfg, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNo, line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if err := cfg.set(key, value); err != nil {
			return cfg, fmt.Errorf("%w: line %d: %v", ErrInvalidConfigLine, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	return cfg, nil
}

// set assigns a single key=value pair onto the config.
func (c *Config) set(key, value string) error {
	switch key {
	case "datadir":
		c.DataDir = value
	case "credit_name":
		c.CreditName = value
	case "credit_symbol":
		c.CreditSymbol = value
	case "purchase_ratio":
		return setUint(&c.PurchaseRatio, key, value)
	case "bet_price":
		return setUint(&c.BetPrice, key, value)
	case "bet_fee":
		return setUint(&c.BetFee, key, value)
	case "loglevel":
		c.LogLevel = value
	case "logfile":
		c.LogFile = value
	default:
		// Unknown keys are ignored so older binaries tolerate configs
		// written by newer ones.
	}
	return nil
}

// ConfigPath returns the default config file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "liblotto.conf")
}

// setUint parses value as an unsigned integer into dst.
func setUint(dst *uint64, key, value string) error {
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

// SaveConfig writes the configuration as key=value lines, creating the
// parent directory if needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# liblotto configuration\n")
	fmt.Fprintf(&b, "datadir=%s\n", cfg.DataDir)
	fmt.Fprintf(&b, "credit_name=%s\n", cfg.CreditName)
	fmt.Fprintf(&b, "credit_symbol=%s\n", cfg.CreditSymbol)
	fmt.Fprintf(&b, "purchase_ratio=%d\n", cfg.PurchaseRatio)
	fmt.Fprintf(&b, "bet_price=%d\n", cfg.BetPrice)
	fmt.Fprintf(&b, "bet_fee=%d\n", cfg.BetFee)
	fmt.Fprintf(&b, "loglevel=%s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "logfile=%s\n", cfg.LogFile)

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
