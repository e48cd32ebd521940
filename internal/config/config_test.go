package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("AS2_TEST_PASSWORD", "s3cret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
keystore:
  mode: pkcs12
  defaultPartner: acme
  cacheTTL: 5m
  pkcs12:
    dir: /etc/as2/keys
    password: ${AS2_TEST_PASSWORD}
extraction:
  maxDecompressedSize: 1048576
logging:
  level: debug
  format: json
metrics:
  enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pkcs12", cfg.Keystore.Mode)
	assert.Equal(t, "acme", cfg.Keystore.DefaultPartner)
	assert.Equal(t, 5*time.Minute, cfg.Keystore.CacheTTL)
	assert.Equal(t, "/etc/as2/keys", cfg.Keystore.PKCS12.Dir)
	assert.Equal(t, "s3cret", cfg.Keystore.PKCS12.Password)
	assert.Equal(t, int64(1048576), cfg.Extraction.MaxDecompressedSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "as2", cfg.Metrics.Namespace)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "file", cfg.Keystore.Mode)
	assert.Equal(t, "./keys", cfg.Keystore.File.KeyDir)
	assert.Equal(t, "as2-{partner-id}-decryption", cfg.Keystore.PKCS11.KeyLabelPattern)
	assert.Equal(t, int64(256<<20), cfg.Extraction.MaxDecompressedSize)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "keystore: [unterminated"},
		{"unknown mode", "keystore:\n  mode: prf\n"},
		{"pkcs11 without module", "keystore:\n  mode: pkcs11\n"},
		{"negative cache ttl", "keystore:\n  cacheTTL: -1s\n"},
		{"negative limit", "extraction:\n  maxDecompressedSize: -1\n"},
		{"bad level", "logging:\n  level: trace\n"},
		{"bad format", "logging:\n  format: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParse_PKCS11(t *testing.T) {
	cfg, err := Parse([]byte("keystore:\n  mode: pkcs11\n  pkcs11:\n    modulePath: /usr/lib/softhsm/libsofthsm2.so\n    slotLabel: as2\n"))
	require.NoError(t, err)
	assert.Equal(t, "/usr/lib/softhsm/libsofthsm2.so", cfg.Keystore.PKCS11.ModulePath)
	assert.Equal(t, "as2", cfg.Keystore.PKCS11.SlotLabel)
}
