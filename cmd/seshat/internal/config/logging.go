package config

import (
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrMissingLoggingFileConfig = errors.New("config.Logging: missing value parameters in logging block")
	ErrInvalidLoggingSink       = errors.New("config.Logging: invalid sink")
	ErrInvalidLoggingFileConfig = errors.New("config.LoggingFileConfig: invalid parameters")
	ErrInvalidLoggingLevel      = errors.New("config.Logging: invalid level")
	ErrOutOfRange               = errors.New("config: error out of range")
)

type Logging struct {
	Sink       string             `hcl:"sink,optional" json:"sink"`                 // Logging sink, either "stdio" or "file"
	Level      string             `hcl:"level,optional" json:"level,omitempty"`     // Log level, if set supercedes the level in flags
	Parameters *LoggingFileConfig `hcl:"parameters,block" json:"parameters,omitempty"`
	Filters    []LogFilter        `hcl:"filter,block" json:"filters,omitempty"`
}

const (
	LogSinkStdio = "stdio"
	LogSinkFile  = "file"
)

func (l *Logging) Valid() error {
	var errs []error

	switch l.Sink {
	case LogSinkStdio:
		// no validation needed
	case LogSinkFile:
		if l.Parameters == nil {
			errs = append(errs, ErrMissingLoggingFileConfig)
		}

		if err := l.Parameters.Valid(); err != nil {
			errs = append(errs, err)
		}
	default:
		errs = append(errs, fmt.Errorf("%w: sink %s is unknown to me", ErrInvalidLoggingSink, l.Sink))
	}

	if l.Level != "" {
		var level slog.Level
		if err := (&level).UnmarshalText([]byte(l.Level)); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidLoggingLevel, l.Level, err))
		}
	}

	for _, lf := range l.Filters {
		if err := lf.Valid(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) != 0 {
		return errors.Join(errs...)
	}

	return nil
}

func (Logging) Default() *Logging {
	return &Logging{
		Sink: "stdio",
	}
}

type LoggingFileConfig struct {
	Filename     string `hcl:"file" json:"file"`
	MaxBackups   int    `hcl:"max_backups,optional" json:"maxBackups"`
	MaxBytes     int64  `hcl:"max_bytes,optional" json:"maxBytes"`
	MaxAge       int    `hcl:"max_age,optional" json:"maxAge"`
	Compress     bool   `hcl:"compress,optional" json:"compress"`
	UseLocalTime bool   `hcl:"use_local_time,optional" json:"useLocalTime"`
}

func (lfc *LoggingFileConfig) Valid() error {
	if lfc == nil {
		return fmt.Errorf("logging file config is nil, why are you calling this?")
	}

	var errs []error

	if lfc.Zero() {
		errs = append(errs, ErrMissingValue)
	}

	if lfc.Filename == "" {
		errs = append(errs, fmt.Errorf("%w: filename", ErrMissingValue))
	}

	if lfc.MaxBackups < 0 {
		errs = append(errs, fmt.Errorf("%w: max backup count %d is not greater than or equal to zero", ErrOutOfRange, lfc.MaxBackups))
	}

	if lfc.MaxAge < 0 {
		errs = append(errs, fmt.Errorf("%w: max age %d is not greater than or equal to zero", ErrOutOfRange, lfc.MaxAge))
	}

	if len(errs) != 0 {
		errs = append([]error{ErrInvalidLoggingFileConfig}, errs...)
		return errors.Join(errs...)
	}

	return nil
}

func (lfc LoggingFileConfig) Zero() bool {
	for _, cond := range []bool{
		lfc.Filename != "",
		lfc.MaxBackups != 0,
		lfc.MaxBytes != 0,
		lfc.MaxAge != 0,
		lfc.Compress,
		lfc.UseLocalTime,
	} {
		if cond {
			return false
		}
	}

	return true
}

func (LoggingFileConfig) Default() *LoggingFileConfig {
	return &LoggingFileConfig{
		Filename:     "./var/seshat.log",
		MaxBackups:   3,
		MaxBytes:     104857600, // 100 Mi
		MaxAge:       7,         // 7 days
		Compress:     true,
		UseLocalTime: false,
	}
}

// LogFilter names a CEL expression that suppresses matching log records.
// Compilation happens at startup; see lib/expressions.
type LogFilter struct {
	Name       string `hcl:"name" json:"name"`
	Expression string `hcl:"expression" json:"expression"`
}

func (lf LogFilter) Valid() error {
	var errs []error

	if lf.Name == "" {
		errs = append(errs, fmt.Errorf("%w: log filter has no name", ErrMissingValue))
	}

	if lf.Expression == "" {
		errs = append(errs, fmt.Errorf("%w: log filter has no expression", ErrMissingValue))
	}

	if len(errs) != 0 {
		return fmt.Errorf("log filter %q is not valid: %w", lf.Name, errors.Join(errs...))
	}

	return nil
}
