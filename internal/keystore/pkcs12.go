// Package keystore provides the PKCS#12 key provider implementation
package keystore

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirosfoundation/go-as2/pkg/security"
	"golang.org/x/crypto/pkcs12"
)

// PKCS12Provider implements KeyProvider using password protected PKCS#12
// bundles, as exported by most AS2 partner tooling
//
// Bundles are expected at: {dir}/{partnerID}.p12
type PKCS12Provider struct {
	dir      string
	password string
	cache    *keyCache
}

// NewPKCS12Provider creates a new PKCS#12 key provider. All bundles in dir
// share password.
func NewPKCS12Provider(dir, password string, ttl time.Duration) (*PKCS12Provider, error) {
	if err := checkDir(dir); err != nil {
		return nil, err
	}

	return &PKCS12Provider{
		dir:      dir,
		password: password,
		cache:    newKeyCache(ttl),
	}, nil
}

// GetDecryptionKey returns the key pair for the specified partner
func (p *PKCS12Provider) GetDecryptionKey(ctx context.Context, partnerID string) (*security.DecryptionKey, error) {
	if err := validatePartnerID(partnerID); err != nil {
		return nil, err
	}

	if key, ok := p.cache.get(partnerID); ok {
		return key, nil
	}

	key, err := p.loadKey(partnerID)
	if err != nil {
		return nil, err
	}

	p.cache.put(partnerID, key)
	return key, nil
}

// GetCertificate returns the certificate for the specified partner
func (p *PKCS12Provider) GetCertificate(ctx context.Context, partnerID string) (*x509.Certificate, error) {
	key, err := p.GetDecryptionKey(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	return key.Certificate, nil
}

// ListKeys returns every bundle in the directory that opens with the
// configured password
func (p *PKCS12Provider) ListKeys(ctx context.Context) ([]KeyInfo, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("reading key directory: %w", err)
	}

	var keys []KeyInfo
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".p12" {
			continue
		}
		partnerID := strings.TrimSuffix(entry.Name(), ".p12")

		key, err := p.GetDecryptionKey(ctx, partnerID)
		if err != nil {
			continue
		}
		keys = append(keys, newKeyInfo(partnerID, key.Certificate))
	}

	return keys, nil
}

// Close releases resources
func (p *PKCS12Provider) Close() error {
	p.cache.clear()
	return nil
}

func (p *PKCS12Provider) loadKey(partnerID string) (*security.DecryptionKey, error) {
	data, err := os.ReadFile(filepath.Join(p.dir, partnerID+".p12"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, partnerID)
		}
		return nil, fmt.Errorf("reading PKCS#12 file: %w", err)
	}

	key, cert, err := pkcs12.Decode(data, p.password)
	if err != nil {
		return nil, fmt.Errorf("decoding PKCS#12 file: %w", err)
	}

	return security.NewDecryptionKey(cert, key)
}
