// Copyright (c) 2025 The liblotto developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "strings"

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within
// acceptable ranges and returns the first error encountered, or nil if
// valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if cfg.CreditSymbol == "" {
		return ErrEmptyCreditSymbol
	}

	if cfg.PurchaseRatio == 0 {
		return ErrZeroPurchaseRatio
	}

	if cfg.BetPrice == 0 {
		return ErrZeroBetPrice
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	return nil
}
