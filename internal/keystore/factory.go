// Package keystore provides the factory for creating key providers
package keystore

import (
	"fmt"

	"github.com/sirosfoundation/go-as2/internal/config"
)

// NewProvider creates a KeyProvider based on the configuration
func NewProvider(cfg *config.KeystoreConfig) (KeyProvider, error) {
	switch cfg.Mode {
	case "pkcs11":
		return newPKCS11Provider(cfg)
	case "pkcs12":
		return NewPKCS12Provider(cfg.PKCS12.Dir, cfg.PKCS12.Password, cfg.CacheTTL)
	case "file":
		return newFileProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown keystore mode: %s", cfg.Mode)
	}
}

func newPKCS11Provider(cfg *config.KeystoreConfig) (KeyProvider, error) {
	p11cfg := &PKCS11Config{
		ModulePath:      cfg.PKCS11.ModulePath,
		SlotLabel:       cfg.PKCS11.SlotLabel,
		PIN:             cfg.PKCS11.PIN,
		KeyLabelPattern: cfg.PKCS11.KeyLabelPattern,
		CacheTTL:        cfg.CacheTTL,
	}
	if cfg.PKCS11.SlotID > 0 {
		slotID := cfg.PKCS11.SlotID
		p11cfg.SlotID = &slotID
	}
	return NewPKCS11Provider(p11cfg)
}

func newFileProvider(cfg *config.KeystoreConfig) (KeyProvider, error) {
	keyDir := cfg.File.KeyDir
	if keyDir == "" {
		keyDir = "./keys"
	}
	return NewFileProvider(keyDir, cfg.CacheTTL)
}
