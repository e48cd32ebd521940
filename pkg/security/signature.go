package security

import (
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"

	cms "github.com/github/smimesign/ietf-cms"
)

// ErrNoSigner is returned when a verified signature yields no signer chain
var ErrNoSigner = errors.New("signature has no verified signer")

// SignDetached returns a DER encoded detached CMS signature over content,
// embedding cert.
func SignDetached(content []byte, cert *x509.Certificate, key crypto.Signer) ([]byte, error) {
	if cert == nil || key == nil {
		return nil, fmt.Errorf("certificate and key are required")
	}

	der, err := cms.SignDetached(content, []*x509.Certificate{cert}, key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign content: %w", err)
	}
	return der, nil
}

// VerifyDetached verifies a detached CMS signature over content and
// returns the signer certificate. Chains are built to roots; a nil pool
// uses the system roots.
func VerifyDetached(content, signature []byte, roots *x509.CertPool) (*x509.Certificate, error) {
	sd, err := cms.ParseSignedData(signature)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signature: %w", err)
	}

	opts := x509.VerifyOptions{
		Roots:     roots,
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}

	chains, err := sd.VerifyDetached(content, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to verify signature: %w", err)
	}

	for _, signerChains := range chains {
		for _, chain := range signerChains {
			if len(chain) > 0 {
				return chain[0], nil
			}
		}
	}
	return nil, ErrNoSigner
}
