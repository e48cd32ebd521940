package compression

import (
	"bytes"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZlibProvider_CompressDecompress(t *testing.T) {
	provider := NewZlibProvider()

	repeated := "UNH+1+ORDERS:D:96A:UN'BGM+220+128576+9'DTM+137:20020830:102'"
	testData := []byte("Content-Type: application/edifact\r\n\r\n" + repeated + repeated + repeated + repeated)

	compressed, err := provider.Compress(testData)
	require.NoError(t, err)
	assert.NotEmpty(t, compressed)

	decompressed, err := provider.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, testData, decompressed)
}

func TestZlibProvider_ContentInfoStructure(t *testing.T) {
	compressed, err := NewZlibProvider().Compress([]byte("UNB+..."))
	require.NoError(t, err)

	var ci contentInfo
	rest, err := asn1.Unmarshal(compressed, &ci)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.True(t, ci.ContentType.Equal(OIDCompressedData))

	var cd compressedData
	_, err = asn1.Unmarshal(ci.Content.Bytes, &cd)
	require.NoError(t, err)
	assert.Equal(t, 0, cd.Version)
	assert.True(t, cd.CompressionAlgorithm.Algorithm.Equal(OIDZlibCompress))
	assert.True(t, cd.EncapContentInfo.EContentType.Equal(OIDData))
}

func TestZlibProvider_EmptyData(t *testing.T) {
	provider := NewZlibProvider()

	compressed, err := provider.Compress([]byte{})
	require.NoError(t, err)
	assert.NotEmpty(t, compressed)

	decompressed, err := provider.Decompress(compressed)
	require.NoError(t, err)
	assert.Empty(t, decompressed)
}

func TestZlibProvider_LargeData(t *testing.T) {
	provider := NewZlibProvider()

	largeData := bytes.Repeat([]byte("LIN+1++4000862141404:SRS'"), 40000)

	compressed, err := provider.Compress(largeData)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(largeData)/10, "repeated segments should compress well")

	decompressed, err := provider.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, largeData, decompressed)
}

func TestZlibProvider_SizeLimit(t *testing.T) {
	data := bytes.Repeat([]byte("A"), 4096)
	compressed, err := NewZlibProvider().Compress(data)
	require.NoError(t, err)

	_, err = NewZlibProviderWithLimit(1024).Decompress(compressed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSizeLimit))

	decompressed, err := NewZlibProviderWithLimit(4096).Decompress(compressed)
	require.NoError(t, err)
	assert.Len(t, decompressed, 4096)
}

func TestZlibProvider_ConstructedOctetString(t *testing.T) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write([]byte("ISA*00*          *00*          *ZZ*SENDER"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	stream := buf.Bytes()

	seg1, err := asn1.Marshal(stream[:5])
	require.NoError(t, err)
	seg2, err := asn1.Marshal(stream[5:])
	require.NoError(t, err)
	constructed, err := asn1.Marshal(asn1.RawValue{
		Class:      asn1.ClassUniversal,
		Tag:        asn1.TagOctetString,
		IsCompound: true,
		Bytes:      append(seg1, seg2...),
	})
	require.NoError(t, err)

	der := buildContentInfo(t, OIDCompressedData, OIDZlibCompress, constructed)

	decompressed, err := NewZlibProvider().Decompress(der)
	require.NoError(t, err)
	assert.Equal(t, "ISA*00*          *00*          *ZZ*SENDER", string(decompressed))
}

func TestZlibProvider_WrongContentType(t *testing.T) {
	octets, err := asn1.Marshal([]byte("x"))
	require.NoError(t, err)
	der := buildContentInfo(t, OIDData, OIDZlibCompress, octets)

	_, err = NewZlibProvider().Decompress(der)
	assert.True(t, errors.Is(err, ErrNotCompressedData))
}

func TestZlibProvider_UnsupportedAlgorithm(t *testing.T) {
	octets, err := asn1.Marshal([]byte("x"))
	require.NoError(t, err)
	der := buildContentInfo(t, OIDCompressedData, asn1.ObjectIdentifier{1, 2, 3, 4}, octets)

	_, err = NewZlibProvider().Decompress(der)
	assert.True(t, errors.Is(err, ErrUnsupportedAlgorithm))
}

func TestZlibProvider_InvalidData(t *testing.T) {
	provider := NewZlibProvider()

	_, err := provider.Decompress([]byte("this is not a CMS structure"))
	assert.Error(t, err)

	octets, err := asn1.Marshal([]byte("not zlib"))
	require.NoError(t, err)
	_, err = provider.Decompress(buildContentInfo(t, OIDCompressedData, OIDZlibCompress, octets))
	assert.Error(t, err)
}

func buildContentInfo(t *testing.T, contentType, algorithm asn1.ObjectIdentifier, eContent []byte) []byte {
	t.Helper()

	inner, err := asn1.Marshal(compressedData{
		CompressionAlgorithm: pkix.AlgorithmIdentifier{Algorithm: algorithm},
		EncapContentInfo: encapsulatedContentInfo{
			EContentType: OIDData,
			EContent:     explicitTag0(eContent),
		},
	})
	require.NoError(t, err)

	der, err := asn1.Marshal(contentInfo{ContentType: contentType, Content: explicitTag0(inner)})
	require.NoError(t, err)
	return der
}
