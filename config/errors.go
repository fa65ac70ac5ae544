// Copyright (c) 2025 The liblotto developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrEmptyCreditSymbol indicates the credit asset symbol is empty.
	ErrEmptyCreditSymbol = errors.New("config: credit symbol must not be empty")

	// ErrZeroPurchaseRatio indicates the purchase ratio is zero.
	ErrZeroPurchaseRatio = errors.New("config: purchase ratio must be greater than zero")

	// ErrZeroBetPrice indicates the bet price is zero.
	ErrZeroBetPrice = errors.New("config: bet price must be greater than zero")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigLine indicates a line in the config file is malformed.
	ErrInvalidConfigLine = errors.New("config: invalid configuration line")
)
