//go:build pkcs11

// Package keystore provides the PKCS#11 key provider implementation
package keystore

import (
	"context"
	"crypto/x509"
	"fmt"
	"strings"
	"time"

	"github.com/ThalesGroup/crypto11"
	"github.com/sirosfoundation/go-as2/pkg/security"
)

// PKCS11Provider implements KeyProvider using a PKCS#11 token (HSM/smart card)
type PKCS11Provider struct {
	ctx             *crypto11.Context
	keyLabelPattern string
	cache           *keyCache
}

// PKCS11Config holds configuration for the PKCS#11 provider
type PKCS11Config struct {
	// ModulePath is the path to the PKCS#11 library (.so/.dylib/.dll)
	ModulePath string

	// SlotID is the slot number to use (optional if SlotLabel is provided)
	SlotID *uint

	// SlotLabel is the token label to search for (optional if SlotID is provided)
	SlotLabel string

	// PIN is the user PIN for authentication
	PIN string

	// KeyLabelPattern is the pattern for key and certificate labels
	// Use {partner-id} as placeholder, e.g., "as2-{partner-id}-decryption"
	KeyLabelPattern string

	// CacheTTL bounds how long key handles are cached
	CacheTTL time.Duration
}

// NewPKCS11Provider creates a new PKCS#11 key provider
func NewPKCS11Provider(cfg *PKCS11Config) (*PKCS11Provider, error) {
	config := &crypto11.Config{
		Path: cfg.ModulePath,
		Pin:  cfg.PIN,
	}

	if cfg.SlotID != nil {
		slotID := int(*cfg.SlotID)
		config.SlotNumber = &slotID
	}
	if cfg.SlotLabel != "" {
		config.TokenLabel = cfg.SlotLabel
	}

	ctx, err := crypto11.Configure(config)
	if err != nil {
		return nil, fmt.Errorf("configuring PKCS#11: %w", err)
	}

	pattern := cfg.KeyLabelPattern
	if pattern == "" {
		pattern = "as2-{partner-id}-decryption"
	}

	return &PKCS11Provider{
		ctx:             ctx,
		keyLabelPattern: pattern,
		cache:           newKeyCache(cfg.CacheTTL),
	}, nil
}

// GetDecryptionKey returns the key pair for the specified partner
func (p *PKCS11Provider) GetDecryptionKey(ctx context.Context, partnerID string) (*security.DecryptionKey, error) {
	if err := validatePartnerID(partnerID); err != nil {
		return nil, err
	}

	if key, ok := p.cache.get(partnerID); ok {
		return key, nil
	}

	key, err := p.loadKey(p.keyLabel(partnerID))
	if err != nil {
		return nil, err
	}

	p.cache.put(partnerID, key)
	return key, nil
}

// GetCertificate returns the certificate for the specified partner
func (p *PKCS11Provider) GetCertificate(ctx context.Context, partnerID string) (*x509.Certificate, error) {
	if err := validatePartnerID(partnerID); err != nil {
		return nil, err
	}

	cert, err := p.ctx.FindCertificate(nil, []byte(p.keyLabel(partnerID)), nil)
	if err != nil {
		return nil, fmt.Errorf("finding certificate: %w", err)
	}
	if cert == nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, partnerID)
	}
	return cert, nil
}

// ListKeys returns the identities of the paired certificates on the token,
// named by certificate common name
func (p *PKCS11Provider) ListKeys(ctx context.Context) ([]KeyInfo, error) {
	pairs, err := p.ctx.FindAllPairedCertificates()
	if err != nil {
		return nil, fmt.Errorf("listing certificates: %w", err)
	}

	var keys []KeyInfo
	for _, pair := range pairs {
		leaf := pair.Leaf
		if leaf == nil {
			if len(pair.Certificate) == 0 {
				continue
			}
			if leaf, err = x509.ParseCertificate(pair.Certificate[0]); err != nil {
				continue
			}
		}
		keys = append(keys, newKeyInfo(leaf.Subject.CommonName, leaf))
	}

	return keys, nil
}

// Close releases PKCS#11 resources
func (p *PKCS11Provider) Close() error {
	p.cache.clear()
	return p.ctx.Close()
}

func (p *PKCS11Provider) keyLabel(partnerID string) string {
	return strings.ReplaceAll(p.keyLabelPattern, "{partner-id}", partnerID)
}

func (p *PKCS11Provider) loadKey(label string) (*security.DecryptionKey, error) {
	key, err := p.ctx.FindKeyPair(nil, []byte(label))
	if err != nil {
		return nil, fmt.Errorf("finding key pair: %w", err)
	}
	if key == nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, label)
	}

	cert, err := p.ctx.FindCertificate(nil, []byte(label), nil)
	if err != nil {
		return nil, fmt.Errorf("finding certificate: %w", err)
	}
	if cert == nil {
		return nil, fmt.Errorf("%w: certificate %s", ErrKeyNotFound, label)
	}

	return security.NewDecryptionKey(cert, key)
}
