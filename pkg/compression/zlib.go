// Package compression implements CMS CompressedData with zlib per RFC 3274
package compression

import (
	"bytes"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"io"

	cmsprotocol "github.com/github/smimesign/ietf-cms/protocol"
	"github.com/klauspost/compress/zlib"
)

// DefaultMaxDecompressedSize bounds the expanded size of one compressed entity
const DefaultMaxDecompressedSize int64 = 256 << 20

var (
	// OIDCompressedData is id-ct-compressedData
	OIDCompressedData = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 1, 9}
	// OIDZlibCompress is id-alg-zlibCompress
	OIDZlibCompress = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 3, 8}
	// OIDData is id-data
	OIDData = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}
)

var (
	// ErrNotCompressedData is returned when the ContentInfo holds another content type
	ErrNotCompressedData = errors.New("content is not CMS compressed data")
	// ErrUnsupportedAlgorithm is returned for compression algorithms other than zlib
	ErrUnsupportedAlgorithm = errors.New("unsupported compression algorithm")
	// ErrNoContent is returned when the compressed data carries no encapsulated content
	ErrNoContent = errors.New("compressed data has no encapsulated content")
	// ErrSizeLimit is returned when the expanded content exceeds the provider limit
	ErrSizeLimit = errors.New("decompressed content exceeds size limit")
)

// Decompressor expands a CMS CompressedData structure into its content.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// CompressedData ::= SEQUENCE {
//   version CMSVersion,
//   compressionAlgorithm CompressionAlgorithmIdentifier,
//   encapContentInfo EncapsulatedContentInfo }
type compressedData struct {
	Version              int
	CompressionAlgorithm pkix.AlgorithmIdentifier
	EncapContentInfo     encapsulatedContentInfo
}

type encapsulatedContentInfo struct {
	EContentType asn1.ObjectIdentifier
	EContent     asn1.RawValue `asn1:"explicit,optional,tag:0"`
}

type contentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"explicit,tag:0"`
}

// ZlibProvider compresses and decompresses CMS CompressedData using zlib
type ZlibProvider struct {
	level   int
	maxSize int64
}

// NewZlibProvider creates a provider with default level and size limit
func NewZlibProvider() *ZlibProvider {
	return &ZlibProvider{
		level:   zlib.DefaultCompression,
		maxSize: DefaultMaxDecompressedSize,
	}
}

// NewZlibProviderWithLimit creates a provider that refuses to expand
// content beyond maxSize bytes
func NewZlibProviderWithLimit(maxSize int64) *ZlibProvider {
	p := NewZlibProvider()
	if maxSize > 0 {
		p.maxSize = maxSize
	}
	return p
}

// Compress wraps content in a DER encoded CMS CompressedData ContentInfo
func (p *ZlibProvider) Compress(content []byte) ([]byte, error) {
	var buf bytes.Buffer

	writer, err := zlib.NewWriterLevel(&buf, p.level)
	if err != nil {
		return nil, fmt.Errorf("failed to create zlib writer: %w", err)
	}
	if _, err := writer.Write(content); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zlib writer: %w", err)
	}

	octets, err := asn1.Marshal(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to encode compressed content: %w", err)
	}

	cd := compressedData{
		Version:              0,
		CompressionAlgorithm: pkix.AlgorithmIdentifier{Algorithm: OIDZlibCompress},
		EncapContentInfo: encapsulatedContentInfo{
			EContentType: OIDData,
			EContent:     explicitTag0(octets),
		},
	}
	inner, err := asn1.Marshal(cd)
	if err != nil {
		return nil, fmt.Errorf("failed to encode compressed data: %w", err)
	}

	der, err := asn1.Marshal(contentInfo{
		ContentType: OIDCompressedData,
		Content:     explicitTag0(inner),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode content info: %w", err)
	}
	return der, nil
}

// Decompress parses a BER or DER CMS CompressedData ContentInfo and
// returns the expanded content
func (p *ZlibProvider) Decompress(data []byte) ([]byte, error) {
	ci, err := cmsprotocol.ParseContentInfo(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse content info: %w", err)
	}
	if !ci.ContentType.Equal(OIDCompressedData) {
		return nil, fmt.Errorf("%w: content type %s", ErrNotCompressedData, ci.ContentType)
	}

	var cd compressedData
	rest, err := asn1.Unmarshal(ci.Content.Bytes, &cd)
	if err != nil {
		return nil, fmt.Errorf("failed to parse compressed data: %w", err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("trailing data after compressed data")
	}
	if !cd.CompressionAlgorithm.Algorithm.Equal(OIDZlibCompress) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, cd.CompressionAlgorithm.Algorithm)
	}
	if len(cd.EncapContentInfo.EContent.Bytes) == 0 {
		return nil, ErrNoContent
	}

	var octets asn1.RawValue
	if _, err := asn1.Unmarshal(cd.EncapContentInfo.EContent.Bytes, &octets); err != nil {
		return nil, fmt.Errorf("failed to parse encapsulated content: %w", err)
	}
	compressed, err := octetString(octets)
	if err != nil {
		return nil, err
	}

	return p.inflate(compressed)
}

func (p *ZlibProvider) inflate(compressed []byte) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("failed to create zlib reader: %w", err)
	}
	defer reader.Close()

	limit := p.maxSize
	if limit <= 0 {
		limit = DefaultMaxDecompressedSize
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(reader, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read compressed data: %w", err)
	}
	if n > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrSizeLimit, limit)
	}

	return buf.Bytes(), nil
}

// octetString flattens a primitive or constructed OCTET STRING.
func octetString(rv asn1.RawValue) ([]byte, error) {
	if rv.Class != asn1.ClassUniversal || rv.Tag != asn1.TagOctetString {
		return nil, fmt.Errorf("encapsulated content is not an octet string")
	}
	if !rv.IsCompound {
		return rv.Bytes, nil
	}

	var out []byte
	rest := rv.Bytes
	for len(rest) > 0 {
		var chunk asn1.RawValue
		var err error
		rest, err = asn1.Unmarshal(rest, &chunk)
		if err != nil {
			return nil, fmt.Errorf("failed to parse octet string segment: %w", err)
		}
		b, err := octetString(chunk)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

func explicitTag0(inner []byte) asn1.RawValue {
	return asn1.RawValue{
		Class:      asn1.ClassContextSpecific,
		Tag:        0,
		IsCompound: true,
		Bytes:      inner,
	}
}
