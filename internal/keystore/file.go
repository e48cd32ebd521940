// Package keystore provides the file-based key provider implementation
package keystore

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirosfoundation/go-as2/pkg/security"
)

// FileProvider implements KeyProvider using PEM files on disk
//
// Key files are expected at: {keyDir}/{partnerID}.key
// Certificate files at: {keyDir}/{partnerID}.crt
type FileProvider struct {
	keyDir string
	cache  *keyCache
}

// NewFileProvider creates a new file-based key provider. Loaded keys are
// cached for ttl, or until Close when ttl is zero.
func NewFileProvider(keyDir string, ttl time.Duration) (*FileProvider, error) {
	if err := checkDir(keyDir); err != nil {
		return nil, err
	}

	return &FileProvider{
		keyDir: keyDir,
		cache:  newKeyCache(ttl),
	}, nil
}

// GetDecryptionKey returns the key pair for the specified partner
func (p *FileProvider) GetDecryptionKey(ctx context.Context, partnerID string) (*security.DecryptionKey, error) {
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
func (p *FileProvider) GetCertificate(ctx context.Context, partnerID string) (*x509.Certificate, error) {
	if err := validatePartnerID(partnerID); err != nil {
		return nil, err
	}
	return loadCertificate(filepath.Join(p.keyDir, partnerID+".crt"))
}

// ListKeys returns every partner with both a key and a certificate file
func (p *FileProvider) ListKeys(ctx context.Context) ([]KeyInfo, error) {
	entries, err := os.ReadDir(p.keyDir)
	if err != nil {
		return nil, fmt.Errorf("reading key directory: %w", err)
	}

	var keys []KeyInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != ".key" {
			continue
		}
		partnerID := strings.TrimSuffix(name, ".key")

		cert, err := loadCertificate(filepath.Join(p.keyDir, partnerID+".crt"))
		if err != nil {
			continue // Skip keys without certificates
		}

		keys = append(keys, newKeyInfo(partnerID, cert))
	}

	return keys, nil
}

// Close releases resources
func (p *FileProvider) Close() error {
	p.cache.clear()
	return nil
}

func (p *FileProvider) loadKey(partnerID string) (*security.DecryptionKey, error) {
	keyPath := filepath.Join(p.keyDir, partnerID+".key")
	certPath := filepath.Join(p.keyDir, partnerID+".crt")

	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, partnerID)
		}
		return nil, fmt.Errorf("reading key file: %w", err)
	}

	key, err := parsePrivateKey(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	cert, err := loadCertificate(certPath)
	if err != nil {
		return nil, fmt.Errorf("loading certificate: %w", err)
	}

	return security.NewDecryptionKey(cert, key)
}

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("checking key directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("key directory is not a directory: %s", dir)
	}
	return nil
}

func parsePrivateKey(pemData []byte) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		return x509.ParsePKCS8PrivateKey(block.Bytes)
	default:
		return nil, fmt.Errorf("unsupported key type: %s", block.Type)
	}
}

func loadCertificate(path string) (*x509.Certificate, error) {
	certPEM, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, filepath.Base(path))
		}
		return nil, fmt.Errorf("reading certificate file: %w", err)
	}

	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	return x509.ParseCertificate(block.Bytes)
}
