// Biblio - University Library Management Core
// Copyright 2026 The Biblio Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campuslib/biblio

// Package config provides layered configuration for Biblio using Koanf v2.
//
// Precedence: environment variables > optional YAML config file > built-in
// defaults. Lending policy (loan period, penalty rate, reservation period,
// per-student loan cap) is configuration, not code, so a deployment can tune
// it without rebuilding.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	Policy   PolicyConfig   `koanf:"policy"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DatabaseConfig configures the embedded DuckDB store.
type DatabaseConfig struct {
	// Path is the database file location. ":memory:" creates an
	// in-process transient database (used by tests).
	Path string `koanf:"path"`

	// MaxMemory caps DuckDB memory usage, e.g. "512MB".
	MaxMemory string `koanf:"max_memory"`

	// Threads limits DuckDB worker threads. 0 = runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// ServerConfig configures the local HTTP facade that a presentation shell
// (desktop frontend) talks to.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// PolicyConfig holds the lending policy constants.
type PolicyConfig struct {
	// LoanDays is the loan period; the due date is borrow time plus this
	// many days.
	LoanDays int `koanf:"loan_days"`

	// PenaltyPerDay is the late fee in currency units per whole day late.
	PenaltyPerDay int64 `koanf:"penalty_per_day"`

	// ReservationDays is how long a pending reservation stays valid.
	ReservationDays int `koanf:"reservation_days"`

	// MaxLoansPerStudent caps a student's simultaneous open loans.
	MaxLoansPerStudent int `koanf:"max_loans_per_student"`
}

// LoanPeriod returns the loan duration.
func (p PolicyConfig) LoanPeriod() time.Duration {
	return time.Duration(p.LoanDays) * 24 * time.Hour
}

// ReservationPeriod returns the reservation validity duration.
func (p PolicyConfig) ReservationPeriod() time.Duration {
	return time.Duration(p.ReservationDays) * 24 * time.Hour
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Validate checks the configuration for values that would break the store
// or the ledgers at runtime.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Policy.LoanDays <= 0 {
		return fmt.Errorf("policy.loan_days must be positive, got %d", c.Policy.LoanDays)
	}
	if c.Policy.PenaltyPerDay < 0 {
		return fmt.Errorf("policy.penalty_per_day must not be negative, got %d", c.Policy.PenaltyPerDay)
	}
	if c.Policy.ReservationDays <= 0 {
		return fmt.Errorf("policy.reservation_days must be positive, got %d", c.Policy.ReservationDays)
	}
	if c.Policy.MaxLoansPerStudent <= 0 {
		return fmt.Errorf("policy.max_loans_per_student must be positive, got %d", c.Policy.MaxLoansPerStudent)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
