// Package config handles configuration loading for the AS2 extraction tools.
//
// Configuration is loaded from a YAML file with support for environment
// variable expansion (${VAR} or $VAR syntax). This allows secrets such as
// PKCS#12 passwords and HSM PINs to be injected at runtime.
//
// # Configuration Sections
//
//   - keystore: Decryption key source (file, pkcs12, or pkcs11)
//   - extraction: Limits applied while unwrapping messages
//   - logging: Log level and output format
//   - metrics: Prometheus metrics settings
//
// # Example Configuration
//
//	keystore:
//	  mode: pkcs12
//	  pkcs12:
//	    dir: /etc/as2/keys
//	    password: ${AS2_KEY_PASSWORD}
//
//	extraction:
//	  maxDecompressedSize: 67108864
//
//	logging:
//	  level: debug
//	  format: json
//
// See [Load] for loading configuration from a file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure
type Config struct {
	Keystore   KeystoreConfig   `yaml:"keystore"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// KeystoreConfig holds decryption key management settings
type KeystoreConfig struct {
	// Mode determines where decryption keys are loaded from
	// - "file": PEM key and certificate files
	// - "pkcs12": password protected PKCS#12 bundles
	// - "pkcs11": PKCS#11 token (HSM/smart card)
	Mode string `yaml:"mode"`

	// DefaultPartner is used when a message carries no AS2-To header
	DefaultPartner string `yaml:"defaultPartner"`

	File   FileKeyConfig `yaml:"file"`
	PKCS12 PKCS12Config  `yaml:"pkcs12"`
	PKCS11 PKCS11Config  `yaml:"pkcs11"`

	// How long loaded keys stay cached, 0 keeps them until Close
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// FileKeyConfig holds PEM file key settings
type FileKeyConfig struct {
	// Directory containing {partner}.key and {partner}.crt
	KeyDir string `yaml:"keyDir"`
}

// PKCS12Config holds PKCS#12 bundle settings
type PKCS12Config struct {
	// Directory containing {partner}.p12
	Dir      string `yaml:"dir"`
	Password string `yaml:"password"`
}

// PKCS11Config holds PKCS#11 HSM settings
type PKCS11Config struct {
	// Path to the PKCS#11 library (.so/.dylib/.dll)
	ModulePath string `yaml:"modulePath"`
	// Slot ID or label to use
	SlotID    uint   `yaml:"slotId"`
	SlotLabel string `yaml:"slotLabel"`
	// PIN for authentication (can be env var reference like ${HSM_PIN})
	PIN string `yaml:"pin"`
	// Key labels for partner keys (pattern: as2-{partner-id}-decryption)
	KeyLabelPattern string `yaml:"keyLabelPattern"`
}

// ExtractionConfig holds payload extraction settings
type ExtractionConfig struct {
	// Upper bound for decompressed content in bytes
	MaxDecompressedSize int64 `yaml:"maxDecompressedSize"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes configuration from YAML, expanding environment variables
// and applying defaults
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Keystore.Mode == "" {
		c.Keystore.Mode = "file"
	}
	if c.Keystore.File.KeyDir == "" {
		c.Keystore.File.KeyDir = "./keys"
	}
	if c.Keystore.PKCS12.Dir == "" {
		c.Keystore.PKCS12.Dir = "./keys"
	}
	if c.Keystore.PKCS11.KeyLabelPattern == "" {
		c.Keystore.PKCS11.KeyLabelPattern = "as2-{partner-id}-decryption"
	}
	if c.Extraction.MaxDecompressedSize == 0 {
		c.Extraction.MaxDecompressedSize = 256 << 20
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "as2"
	}
}

func (c *Config) validate() error {
	switch c.Keystore.Mode {
	case "file", "pkcs12", "pkcs11":
		// Valid modes
	default:
		return fmt.Errorf("keystore.mode must be 'file', 'pkcs12', or 'pkcs11', got '%s'", c.Keystore.Mode)
	}

	if c.Keystore.Mode == "pkcs11" && c.Keystore.PKCS11.ModulePath == "" {
		return fmt.Errorf("keystore.pkcs11.modulePath is required when mode is 'pkcs11'")
	}

	if c.Keystore.CacheTTL < 0 {
		return fmt.Errorf("keystore.cacheTTL must not be negative")
	}

	if c.Extraction.MaxDecompressedSize < 0 {
		return fmt.Errorf("extraction.maxDecompressedSize must not be negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got '%s'", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be 'text' or 'json', got '%s'", c.Logging.Format)
	}

	return nil
}
