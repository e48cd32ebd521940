// Package entity implements the AS2 MIME entity model
package entity

import (
	"bytes"
	"crypto/x509"

	"github.com/emersion/go-message"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirosfoundation/go-as2/pkg/compression"
	"github.com/sirosfoundation/go-as2/pkg/mime"
	"github.com/sirosfoundation/go-as2/pkg/protocol"
	"github.com/sirosfoundation/go-as2/pkg/security"
)

// Entity is one node of a parsed AS2 entity tree. The set of
// implementations is closed: *EDIPayload, *MultipartSigned,
// *EnvelopedData, *CompressedData and *Opaque.
type Entity interface {
	mime.HeaderHolder

	// ContentType returns the raw Content-Type header value, or "" if the
	// entity has none.
	ContentType() string

	isEntity()
}

type base struct {
	header message.Header
}

// Header returns a copy of the entity's header block.
func (b *base) Header() *message.Header {
	h := message.Header{Header: b.header.Header.Copy()}
	return &h
}

func (b *base) ContentType() string {
	return b.header.Get(mime.HeaderContentType)
}

func (*base) isEntity() {}

// Format identifies the EDI standard of a payload
type Format int

const (
	// FormatEDIFACT is UN/EDIFACT
	FormatEDIFACT Format = iota + 1
	// FormatX12 is ANSI ASC X12
	FormatX12
	// FormatConsent is any format agreed between trading partners
	FormatConsent
)

func (f Format) String() string {
	switch f {
	case FormatEDIFACT:
		return "EDIFACT"
	case FormatX12:
		return "X12"
	case FormatConsent:
		return "consent"
	default:
		return "unknown"
	}
}

// EDIPayload is the terminal entity: a decoded EDI interchange
type EDIPayload struct {
	base
	mediaType string
	content   []byte
}

// MediaType returns the lower-cased EDI media type
func (e *EDIPayload) MediaType() string {
	return e.mediaType
}

// Format returns the EDI standard implied by the media type
func (e *EDIPayload) Format() Format {
	switch e.mediaType {
	case mime.MediaTypeEDIFACT:
		return FormatEDIFACT
	case mime.MediaTypeEDIX12:
		return FormatX12
	default:
		return FormatConsent
	}
}

// Content returns a copy of the decoded interchange
func (e *EDIPayload) Content() []byte {
	return bytes.Clone(e.content)
}

// Text returns the decoded interchange as a string
func (e *EDIPayload) Text() string {
	return string(e.content)
}

// MultipartSigned is a multipart/signed entity carrying one signed data
// entity and its detached signature
type MultipartSigned struct {
	base
	signed        Entity
	signedBytes   []byte
	signature     []byte
	signatureType string
}

// SignedDataEntity returns the enclosed signed entity, or nil if the
// signed part could not be attached
func (m *MultipartSigned) SignedDataEntity() Entity {
	return m.signed
}

// SignedBytes returns the canonical bytes of the signed part, headers
// included, as covered by the signature
func (m *MultipartSigned) SignedBytes() []byte {
	return bytes.Clone(m.signedBytes)
}

// Signature returns the decoded detached signature
func (m *MultipartSigned) Signature() []byte {
	return bytes.Clone(m.signature)
}

// SignatureContentType returns the Content-Type of the signature part
func (m *MultipartSigned) SignatureContentType() string {
	return m.signatureType
}

// Verify checks the detached signature over the signed part against roots
// and returns the signer certificate
func (m *MultipartSigned) Verify(roots *x509.CertPool) (*x509.Certificate, error) {
	signer, err := security.VerifyDetached(m.signedBytes, m.signature, roots)
	if err != nil {
		return nil, protocol.Wrap(protocol.ErrSignature, err, "multipart/signed entity")
	}
	return signer, nil
}

// EnvelopedData is an application/pkcs7-mime enveloped-data entity
type EnvelopedData struct {
	base
	data []byte
}

// Data returns a copy of the CMS EnvelopedData bytes
func (e *EnvelopedData) Data() []byte {
	return bytes.Clone(e.data)
}

// Decrypt decrypts the enveloped content with key and parses the result
// into the enclosed entity
func (e *EnvelopedData) Decrypt(key *security.DecryptionKey) (Entity, error) {
	if key == nil {
		return nil, protocol.Errorf(protocol.ErrMissingPrivateKey, "enveloped data entity")
	}

	plaintext, err := security.Decrypt(e.data, key)
	if err != nil {
		return nil, protocol.Wrap(protocol.ErrDecryption, err, "enveloped data entity")
	}

	return Parse(plaintext)
}

// CompressedData is an application/pkcs7-mime compressed-data entity
type CompressedData struct {
	base
	data []byte
}

// Data returns a copy of the CMS CompressedData bytes
func (c *CompressedData) Data() []byte {
	return bytes.Clone(c.data)
}

// Decompress expands the compressed content with d and parses the result
// into the enclosed entity. A nil d uses the default zlib provider.
func (c *CompressedData) Decompress(d compression.Decompressor) (Entity, error) {
	if d == nil {
		d = compression.NewZlibProvider()
	}

	content, err := d.Decompress(c.data)
	if err != nil {
		return nil, protocol.Wrap(protocol.ErrDecompression, err, "compressed data entity")
	}

	return Parse(content)
}

// Opaque is any entity outside the AS2 payload types
type Opaque struct {
	base
	content []byte
}

// Content returns a copy of the decoded body
func (o *Opaque) Content() []byte {
	return bytes.Clone(o.content)
}

// DetectedType sniffs the media type of the body
func (o *Opaque) DetectedType() string {
	return mimetype.Detect(o.content).String()
}
