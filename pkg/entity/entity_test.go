package entity

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirosfoundation/go-as2/internal/testpki"
	"github.com/sirosfoundation/go-as2/pkg/compression"
	"github.com/sirosfoundation/go-as2/pkg/mime"
	"github.com/sirosfoundation/go-as2/pkg/protocol"
	"github.com/sirosfoundation/go-as2/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEDIFACT = "UNB+UNOA:1+SENDER+RECEIVER+020830:1300+1'UNH+1+ORDERS:D:96A:UN'UNZ+1+1'"

func mustEncodeEDI(t *testing.T, mediaType, content string) []byte {
	t.Helper()
	part, err := EncodeEDI(mediaType, []byte(content))
	require.NoError(t, err)
	return part
}

func TestParse_EDIPayload(t *testing.T) {
	ent, err := Parse(mustEncodeEDI(t, mime.MediaTypeEDIFACT, testEDIFACT))
	require.NoError(t, err)

	edi, ok := ent.(*EDIPayload)
	require.True(t, ok)
	assert.Equal(t, mime.MediaTypeEDIFACT, edi.MediaType())
	assert.Equal(t, FormatEDIFACT, edi.Format())
	assert.Equal(t, testEDIFACT, edi.Text())
	assert.Equal(t, []byte(testEDIFACT), edi.Content())
	assert.Equal(t, "application/edifact", edi.ContentType())
}

func TestParse_EDIFormats(t *testing.T) {
	tests := []struct {
		mediaType string
		format    Format
	}{
		{mime.MediaTypeEDIFACT, FormatEDIFACT},
		{mime.MediaTypeEDIX12, FormatX12},
		{mime.MediaTypeEDIConsent, FormatConsent},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			ent, err := Parse(mustEncodeEDI(t, tt.mediaType, "ISA*00*"))
			require.NoError(t, err)
			edi, ok := ent.(*EDIPayload)
			require.True(t, ok)
			assert.Equal(t, tt.format, edi.Format())
		})
	}
}

func TestParse_Base64EDI(t *testing.T) {
	raw := "Content-Type: application/EDI-X12\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		"SVNBKjAwKg==\r\n"

	ent, err := Parse([]byte(raw))
	require.NoError(t, err)
	edi, ok := ent.(*EDIPayload)
	require.True(t, ok)
	assert.Equal(t, "ISA*00*", edi.Text())
	assert.Equal(t, mime.MediaTypeEDIX12, edi.MediaType())
}

func TestParse_Opaque(t *testing.T) {
	raw := "Content-Type: application/xml\r\n\r\n<?xml version=\"1.0\"?><Order/>"

	ent, err := Parse([]byte(raw))
	require.NoError(t, err)
	opaque, ok := ent.(*Opaque)
	require.True(t, ok)
	assert.Contains(t, opaque.DetectedType(), "xml")
	assert.Equal(t, "application/xml", opaque.ContentType())
}

func TestParse_MissingContentType(t *testing.T) {
	ent, err := Parse([]byte("X-Test: 1\r\n\r\nbody"))
	require.NoError(t, err)
	_, ok := ent.(*Opaque)
	assert.True(t, ok)
	assert.Empty(t, ent.ContentType())
}

func TestParse_UnknownSMIMEType(t *testing.T) {
	raw := "Content-Type: application/pkcs7-mime; smime-type=signed-data\r\n\r\nabc"

	ent, err := Parse([]byte(raw))
	require.NoError(t, err)
	_, ok := ent.(*Opaque)
	assert.True(t, ok)
}

func TestParse_MultipartSigned(t *testing.T) {
	sender := testpki.NewIdentity(t, "sender.example.com")
	part := mustEncodeEDI(t, mime.MediaTypeEDIFACT, testEDIFACT)

	signed, err := EncodeSigned(part, SignWith(sender.Certificate, sender.PrivateKey))
	require.NoError(t, err)

	ent, err := Parse(signed)
	require.NoError(t, err)
	ms, ok := ent.(*MultipartSigned)
	require.True(t, ok)

	inner, ok := ms.SignedDataEntity().(*EDIPayload)
	require.True(t, ok)
	assert.Equal(t, testEDIFACT, inner.Text())
	assert.Equal(t, part, ms.SignedBytes())
	assert.Contains(t, ms.SignatureContentType(), mime.MediaTypePKCS7Signature)
	assert.NotEmpty(t, ms.Signature())

	signer, err := ms.Verify(sender.Pool())
	require.NoError(t, err)
	assert.Equal(t, sender.Certificate.Raw, signer.Raw)
}

func TestParse_MultipartSignedTampered(t *testing.T) {
	sender := testpki.NewIdentity(t, "sender.example.com")
	part := mustEncodeEDI(t, mime.MediaTypeEDIFACT, testEDIFACT)

	signed, err := EncodeSigned(part, SignWith(sender.Certificate, sender.PrivateKey))
	require.NoError(t, err)
	tampered := bytes.Replace(signed, []byte("RECEIVER"), []byte("INTRUDER"), 1)

	ent, err := Parse(tampered)
	require.NoError(t, err)
	ms, ok := ent.(*MultipartSigned)
	require.True(t, ok)

	_, err = ms.Verify(sender.Pool())
	assert.True(t, errors.Is(err, protocol.ErrSignature))
}

func TestParse_MultipartSignedMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no boundary parameter", "Content-Type: multipart/signed\r\n\r\n--x\r\nbody\r\n--x--\r\n"},
		{"no delimiter", "Content-Type: multipart/signed; boundary=x\r\n\r\nbody only\r\n"},
		{"no signature part", "Content-Type: multipart/signed; boundary=x\r\n\r\n--x\r\nContent-Type: application/edifact\r\n\r\nUNB\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			require.Error(t, err)
			assert.True(t, errors.Is(err, protocol.ErrProtocolFormat))
		})
	}
}

func TestEnvelopedData_Decrypt(t *testing.T) {
	receiver := testpki.NewIdentity(t, "receiver.example.com")
	part := mustEncodeEDI(t, mime.MediaTypeEDIX12, "ISA*00*")

	der, err := security.Encrypt(part, receiver.Certificate)
	require.NoError(t, err)
	raw, err := EncodePKCS7Mime(mime.SMIMETypeEnvelopedData, der)
	require.NoError(t, err)

	ent, err := Parse(raw)
	require.NoError(t, err)
	enveloped, ok := ent.(*EnvelopedData)
	require.True(t, ok)
	assert.Equal(t, der, enveloped.Data())

	_, err = enveloped.Decrypt(nil)
	assert.True(t, errors.Is(err, protocol.ErrMissingPrivateKey))

	key, err := security.NewDecryptionKey(receiver.Certificate, receiver.PrivateKey)
	require.NoError(t, err)
	inner, err := enveloped.Decrypt(key)
	require.NoError(t, err)
	edi, ok := inner.(*EDIPayload)
	require.True(t, ok)
	assert.Equal(t, "ISA*00*", edi.Text())
}

func TestCompressedData_Decompress(t *testing.T) {
	part := mustEncodeEDI(t, mime.MediaTypeEDIFACT, "UNB+...")
	der, err := compression.NewZlibProvider().Compress(part)
	require.NoError(t, err)
	raw, err := EncodePKCS7Mime(mime.SMIMETypeCompressedData, der)
	require.NoError(t, err)

	ent, err := Parse(raw)
	require.NoError(t, err)
	compressed, ok := ent.(*CompressedData)
	require.True(t, ok)

	inner, err := compressed.Decompress(nil)
	require.NoError(t, err)
	edi, ok := inner.(*EDIPayload)
	require.True(t, ok)
	assert.Equal(t, "UNB+...", edi.Text())
}

func TestCompressedData_DecompressFailure(t *testing.T) {
	raw, err := EncodePKCS7Mime(mime.SMIMETypeCompressedData, []byte("garbage"))
	require.NoError(t, err)

	ent, err := Parse(raw)
	require.NoError(t, err)
	compressed, ok := ent.(*CompressedData)
	require.True(t, ok)

	_, err = compressed.Decompress(compression.NewZlibProvider())
	require.Error(t, err)
	assert.True(t, errors.Is(err, protocol.ErrDecompression))
}

func TestEntityHeaderIsCopy(t *testing.T) {
	ent, err := Parse(mustEncodeEDI(t, mime.MediaTypeEDIFACT, testEDIFACT))
	require.NoError(t, err)

	ent.Header().Set(mime.HeaderContentType, "text/plain")
	assert.Equal(t, "application/edifact", ent.ContentType())
}

func TestReadMessage(t *testing.T) {
	raw := "AS2-From: sender\r\n" +
		"AS2-To: receiver\r\n" +
		"Content-Type: application/edifact\r\n" +
		"\r\n" +
		testEDIFACT

	msg, err := ReadMessage(strings.NewReader(raw))
	require.NoError(t, err)

	from, ok := mime.GetHeader(msg, "AS2-From")
	assert.True(t, ok)
	assert.Equal(t, "sender", from)

	edi, r := GetEntity[*EDIPayload](msg)
	require.Equal(t, Found, r)
	assert.Equal(t, testEDIFACT, edi.Text())

	_, r = GetEntity[*MultipartSigned](msg)
	assert.Equal(t, WrongVariant, r)
}

func TestReadMessage_NoContentType(t *testing.T) {
	msg, err := ReadMessage(strings.NewReader("AS2-From: sender\r\n\r\n" + testEDIFACT))
	require.NoError(t, err)

	assert.Nil(t, msg.Entity())
	_, r := GetEntity[*EDIPayload](msg)
	assert.Equal(t, Absent, r)
}

func TestGetEntity_NilMessage(t *testing.T) {
	_, r := GetEntity[*EDIPayload](nil)
	assert.Equal(t, Absent, r)
	assert.Equal(t, "absent", r.String())
}

func TestFromHTTPRequest(t *testing.T) {
	part := mustEncodeEDI(t, mime.MediaTypeEDIFACT, testEDIFACT)
	ent, err := Parse(part)
	require.NoError(t, err)

	body := bytes.SplitN(part, []byte("\r\n\r\n"), 2)[1]
	req := httptest.NewRequest(http.MethodPost, "/as2", bytes.NewReader(body))
	req.Header.Set("Content-Type", ent.ContentType())
	req.Header.Set("AS2-Version", "1.2")

	msg, err := FromHTTPRequest(req)
	require.NoError(t, err)

	version, ok := mime.GetHeader(msg, "AS2-Version")
	assert.True(t, ok)
	assert.Equal(t, "1.2", version)

	edi, r := GetEntity[*EDIPayload](msg)
	require.Equal(t, Found, r)
	assert.Equal(t, testEDIFACT, edi.Text())
}

func TestSetHeader_EntityIsImmutable(t *testing.T) {
	ent, err := Parse(mustEncodeEDI(t, mime.MediaTypeEDIFACT, testEDIFACT))
	require.NoError(t, err)

	ct := "text/plain"
	mime.SetHeader(ent, mime.HeaderContentType, &ct)
	assert.Equal(t, mime.MediaTypeEDIFACT, ent.ContentType())

	msg, err := ReadMessage(strings.NewReader("AS2-To: receiver\r\n\r\n"))
	require.NoError(t, err)
	to := "other"
	mime.SetHeader(msg, "AS2-To", &to)
	value, _ := mime.GetHeader(msg, "AS2-To")
	assert.Equal(t, "other", value)
}

func TestFromHTTPRequest_RepeatedHeadersKeepOrder(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/as2", strings.NewReader(testEDIFACT))
	req.Header.Add("Content-Type", mime.MediaTypeEDIFACT)
	req.Header.Add("Content-Type", "text/plain")
	req.Header.Add("AS2-To", "first")
	req.Header.Add("AS2-To", "second")

	msg, err := FromHTTPRequest(req)
	require.NoError(t, err)

	to, ok := mime.GetHeader(msg, "AS2-To")
	require.True(t, ok)
	assert.Equal(t, "first", to)

	ct, ok := mime.GetHeader(msg, mime.HeaderContentType)
	require.True(t, ok)
	assert.Equal(t, mime.MediaTypeEDIFACT, ct)
	assert.Equal(t, []string{"first", "second"}, msg.Header().Values("AS2-To"))

	edi, r := GetEntity[*EDIPayload](msg)
	require.Equal(t, Found, r)
	assert.Equal(t, testEDIFACT, edi.Text())
}

func TestCanonicalize(t *testing.T) {
	assert.Equal(t, []byte("a\r\nb\r\nc"), Canonicalize([]byte("a\nb\r\nc")))
	assert.Equal(t, []byte("\r\n"), Canonicalize([]byte("\n")))
}

func TestEncodeEDI_RejectsNonEDI(t *testing.T) {
	_, err := EncodeEDI("application/xml", []byte("<a/>"))
	assert.Error(t, err)

	_, err = EncodePKCS7Mime("signed-data", []byte{1})
	assert.Error(t, err)
}
