// =============================================================================
// XML Invoice Converter - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing application
// configuration. Configuration comes from three layers, later layers winning:
//
//   1. Built-in defaults
//   2. The YAML configuration file (config.yaml)
//   3. Environment variables (INVOICECONV_* — a .env file is honoured)
//
// The processing limits defined here are the only shared resource between
// concurrently processed documents. They are loaded once per process and are
// read-only afterwards.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the full application configuration.
type Config struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is the directory scanned for XML invoice files.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir is the directory where generated XLSX files are placed.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// ArchiveDir is the directory where processed XML files are moved.
	// Files are only moved here after successful processing.
	// Default: "./archive"
	ArchiveDir string `yaml:"archive_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is the path to the usage log (one line per processed document).
	// Default: "./logs/app_usage.log"
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of application logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// Timezone is the IANA timezone used for usage-log timestamps.
	// Default: "Europe/Rome"
	Timezone string `yaml:"timezone"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat defines the format for output file names.
	// Placeholders:
	//   {name}      - Input file name without extension
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	// Default: "{name}_{timestamp}.xlsx"
	OutputNameFormat string `yaml:"output_name_format"`

	// =========================================================================
	// PROCESSING LIMITS
	// =========================================================================

	// Limits holds the hard caps enforced by the security validator and the
	// extractor. Every document is processed under these limits.
	Limits Limits `yaml:"limits"`

	// DecimalSeparator selects the numeric locale of the source documents.
	// Valid values: "point", "comma". Ambiguous values are rejected, never
	// guessed.
	// Default: "point"
	DecimalSeparator string `yaml:"decimal_separator" validate:"oneof=point comma"`

	// =========================================================================
	// FEATURE FLAGS
	// =========================================================================

	// PropagationEnabled carries the last non-empty drawing/order/DDT value
	// forward across consecutive empty lines within one document.
	// Default: true
	PropagationEnabled bool `yaml:"propagation_enabled"`

	// GroupingEnabled collapses lines sharing the same reference key tuple
	// into one summed row.
	// Default: false
	GroupingEnabled bool `yaml:"grouping_enabled"`

	// =========================================================================
	// BATCH SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of documents processed concurrently.
	// Set to 1 for sequential processing.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency" validate:"gte=1"`

	// ContinueOnError determines whether batch processing continues when one
	// document fails.
	// Default: true
	ContinueOnError bool `yaml:"continue_on_error"`
}

// Limits holds the per-document processing caps.
type Limits struct {
	// MaxFileSizeMB is the maximum input file size in megabytes.
	// Larger files are rejected with file_too_large.
	// Default: 10
	MaxFileSizeMB int `yaml:"max_file_size_mb" validate:"gte=1"`

	// MaxLines is the maximum number of line items per document.
	// Documents exceeding it are rejected with too_many_lines, never truncated.
	// Default: 5000
	MaxLines int `yaml:"max_lines" validate:"gte=1"`

	// MaxXMLDepth is the maximum XML element nesting depth.
	// Deeper documents are rejected with excessive_nesting.
	// Default: 32
	MaxXMLDepth int `yaml:"max_xml_depth" validate:"gte=1"`

	// TimeoutSeconds is the wall-clock budget for processing one document.
	// Default: 30
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"gte=1"`
}

// MaxFileSizeBytes returns the file size cap in bytes.
func (l Limits) MaxFileSizeBytes() int64 {
	return int64(l.MaxFileSizeMB) * 1024 * 1024
}

// Timeout returns the processing budget as a duration.
func (l Limits) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration file, applies defaults and environment
// overrides, and validates the result. The YAML file is unmarshalled over
// the defaults, so keys absent from the file keep their default values.
func Load(configPath string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Missing config file is fine: defaults plus env overrides apply.
	} else {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Default returns the built-in configuration. Useful for tests and scripts.
func Default() *Config {
	return &Config{
		InputDir:         "./input",
		OutputDir:        "./output",
		ArchiveDir:       "./archive",
		LogFile:          "./logs/app_usage.log",
		LogLevel:         "info",
		Timezone:         "Europe/Rome",
		OutputNameFormat: "{name}_{timestamp}.xlsx",
		DecimalSeparator: "point",
		Limits: Limits{
			MaxFileSizeMB:  10,
			MaxLines:       5000,
			MaxXMLDepth:    32,
			TimeoutSeconds: 30,
		},
		PropagationEnabled: true,
		GroupingEnabled:    false,
		MaxConcurrency:     4,
		ContinueOnError:    true,
	}
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// Location resolves the configured timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// applyEnvOverrides overlays INVOICECONV_* environment variables onto the
// configuration. A .env file in the working directory is loaded first, if
// present; real environment variables win over .env entries.
func applyEnvOverrides(config *Config) {
	_ = godotenv.Load()

	if v, ok := envInt("INVOICECONV_MAX_FILE_SIZE_MB"); ok {
		config.Limits.MaxFileSizeMB = v
	}
	if v, ok := envInt("INVOICECONV_MAX_LINES"); ok {
		config.Limits.MaxLines = v
	}
	if v, ok := envInt("INVOICECONV_MAX_XML_DEPTH"); ok {
		config.Limits.MaxXMLDepth = v
	}
	if v, ok := envInt("INVOICECONV_TIMEOUT_SECONDS"); ok {
		config.Limits.TimeoutSeconds = v
	}
	if v := os.Getenv("INVOICECONV_LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}
}

func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
