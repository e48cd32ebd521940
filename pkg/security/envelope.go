// Package security implements CMS enveloped data and detached signatures for AS2
package security

import (
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"
	"sync"

	"github.com/smallstep/pkcs7"
)

var (
	// ErrNoDecryptionKey is returned when decryption is attempted without a key
	ErrNoDecryptionKey = errors.New("no decryption key")
	// ErrKeyMismatch is returned when a private key does not belong to its certificate
	ErrKeyMismatch = errors.New("private key does not match certificate")
	// ErrNoRecipients is returned when encryption is attempted without recipients
	ErrNoRecipients = errors.New("no recipient certificates")
)

// Content encryption algorithms accepted by EncryptWithAlgorithm
const (
	AlgorithmDESCBC    = pkcs7.EncryptionAlgorithmDESCBC
	AlgorithmAES128CBC = pkcs7.EncryptionAlgorithmAES128CBC
	AlgorithmAES256CBC = pkcs7.EncryptionAlgorithmAES256CBC
	AlgorithmAES128GCM = pkcs7.EncryptionAlgorithmAES128GCM
	AlgorithmAES256GCM = pkcs7.EncryptionAlgorithmAES256GCM
)

// DecryptionKey is a recipient private key together with the certificate
// that identifies it in the RecipientInfos of an enveloped message.
//
// The key is owned by the caller and only read during decryption.
type DecryptionKey struct {
	Certificate *x509.Certificate
	PrivateKey  crypto.Decrypter
}

// NewDecryptionKey pairs a certificate with its private key. The key must
// implement crypto.Decrypter and match the certificate's public key.
func NewDecryptionKey(cert *x509.Certificate, key crypto.PrivateKey) (*DecryptionKey, error) {
	if cert == nil {
		return nil, fmt.Errorf("certificate is required")
	}
	decrypter, ok := key.(crypto.Decrypter)
	if !ok {
		return nil, fmt.Errorf("private key of type %T cannot decrypt", key)
	}

	pub, ok := decrypter.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !pub.Equal(cert.PublicKey) {
		return nil, ErrKeyMismatch
	}

	return &DecryptionKey{
		Certificate: cert,
		PrivateKey:  decrypter,
	}, nil
}

// Decrypt decrypts a BER or DER encoded CMS EnvelopedData structure and
// returns the enclosed content.
func Decrypt(data []byte, key *DecryptionKey) ([]byte, error) {
	if key == nil || key.PrivateKey == nil || key.Certificate == nil {
		return nil, ErrNoDecryptionKey
	}

	p7, err := pkcs7.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse enveloped data: %w", err)
	}

	content, err := p7.Decrypt(key.Certificate, key.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt enveloped data: %w", err)
	}

	return content, nil
}

// pkcs7 selects the content cipher through a package variable.
var encryptMu sync.Mutex

// Encrypt encrypts content for recipients with AES-128-CBC.
func Encrypt(content []byte, recipients ...*x509.Certificate) ([]byte, error) {
	return EncryptWithAlgorithm(content, AlgorithmAES128CBC, recipients...)
}

// EncryptWithAlgorithm encrypts content for recipients with the given
// content encryption algorithm and returns DER encoded EnvelopedData.
func EncryptWithAlgorithm(content []byte, algorithm int, recipients ...*x509.Certificate) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	encryptMu.Lock()
	defer encryptMu.Unlock()

	previous := pkcs7.ContentEncryptionAlgorithm
	pkcs7.ContentEncryptionAlgorithm = algorithm
	defer func() { pkcs7.ContentEncryptionAlgorithm = previous }()

	der, err := pkcs7.Encrypt(content, recipients)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt content: %w", err)
	}
	return der, nil
}
