// Package keystore provides decryption key management for AS2 receivers
//
// This package defines a unified interface for looking up the private key
// that opens enveloped messages addressed to a local AS2 identity. It can be
// implemented by different backends:
//
//   - File-based: PEM key and certificate files
//   - PKCS#12: password protected bundles
//   - PKCS#11: Keys stored in hardware security modules (HSM) or smart cards
//
// The abstraction allows the extraction tools to decrypt messages without
// knowing the underlying key storage mechanism.
package keystore

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirosfoundation/go-as2/pkg/security"
)

// Common errors
var (
	ErrKeyNotFound      = errors.New("decryption key not found")
	ErrInvalidPartnerID = errors.New("invalid partner ID")
)

// KeyProvider provides decryption keys for local AS2 identities
//
// Implementations must be safe for concurrent use.
type KeyProvider interface {
	// GetDecryptionKey returns the key pair for the given AS2 identity,
	// usually the AS2-To value of a received message.
	GetDecryptionKey(ctx context.Context, partnerID string) (*security.DecryptionKey, error)

	// GetCertificate returns the X.509 certificate for the identity.
	GetCertificate(ctx context.Context, partnerID string) (*x509.Certificate, error)

	// ListKeys returns all identities the provider holds keys for.
	ListKeys(ctx context.Context) ([]KeyInfo, error)

	// Close releases any resources held by the provider.
	Close() error
}

// KeyInfo describes a decryption key
type KeyInfo struct {
	// PartnerID is the AS2 identity the key belongs to
	PartnerID string

	// Algorithm is the key algorithm (e.g., "RSA", "EC")
	Algorithm string

	// KeySize is the key size in bits (e.g., 2048 for RSA, 256 for P-256)
	KeySize int

	// NotBefore is when the associated certificate becomes valid
	NotBefore time.Time

	// NotAfter is when the associated certificate expires
	NotAfter time.Time

	// CertificateSubject is the subject DN of the certificate
	CertificateSubject string
}

func newKeyInfo(partnerID string, cert *x509.Certificate) KeyInfo {
	return KeyInfo{
		PartnerID:          partnerID,
		Algorithm:          keyAlgorithmName(cert.PublicKey),
		KeySize:            keySize(cert.PublicKey),
		NotBefore:          cert.NotBefore,
		NotAfter:           cert.NotAfter,
		CertificateSubject: cert.Subject.String(),
	}
}

// NormalizePartnerID trims whitespace and the optional quotes AS2 allows
// around identities containing spaces
func NormalizePartnerID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) >= 2 && id[0] == '"' && id[len(id)-1] == '"' {
		id = id[1 : len(id)-1]
	}
	return id
}

// validatePartnerID rejects identities that cannot safely name a key file
// or token object
func validatePartnerID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPartnerID)
	}
	if strings.ContainsAny(id, "/\\\x00") || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidPartnerID, id)
	}
	return nil
}

func keyAlgorithmName(pub crypto.PublicKey) string {
	switch pub.(type) {
	case *ecdsa.PublicKey:
		return "EC"
	case *rsa.PublicKey:
		return "RSA"
	default:
		return "Unknown"
	}
}

func keySize(pub crypto.PublicKey) int {
	switch k := pub.(type) {
	case *ecdsa.PublicKey:
		return k.Curve.Params().BitSize
	case *rsa.PublicKey:
		return k.N.BitLen()
	default:
		return 0
	}
}
