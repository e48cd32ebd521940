package entity

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"fmt"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/textproto"
	"github.com/google/uuid"
	"github.com/sirosfoundation/go-as2/pkg/mime"
	"github.com/sirosfoundation/go-as2/pkg/security"
)

// SignFunc produces a detached signature over the canonical signed part
type SignFunc func(content []byte) ([]byte, error)

// SignWith returns a SignFunc creating CMS detached signatures with key
func SignWith(cert *x509.Certificate, key crypto.Signer) SignFunc {
	return func(content []byte) ([]byte, error) {
		return security.SignDetached(content, cert, key)
	}
}

// EncodeEDI encodes an EDI interchange as a MIME entity with binary
// transfer encoding
func EncodeEDI(mediaType string, content []byte) ([]byte, error) {
	if !mime.IsEDI(mediaType) {
		return nil, fmt.Errorf("not an EDI media type: %s", mediaType)
	}

	var h message.Header
	h.SetContentType(strings.ToLower(mediaType), nil)
	h.Set(mime.HeaderContentTransferEncoding, "binary")

	return encodePart(h, content)
}

// EncodePKCS7Mime encodes CMS bytes as an application/pkcs7-mime entity of
// the given smime-type with base64 transfer encoding
func EncodePKCS7Mime(smimeType string, der []byte) ([]byte, error) {
	var filename string
	switch smimeType {
	case mime.SMIMETypeEnvelopedData:
		filename = "smime.p7m"
	case mime.SMIMETypeCompressedData:
		filename = "smime.p7z"
	default:
		return nil, fmt.Errorf("unsupported smime-type: %s", smimeType)
	}

	var h message.Header
	h.SetContentType(mime.MediaTypePKCS7Mime, map[string]string{
		mime.ParamSMIMEType: smimeType,
		"name":              filename,
	})
	h.Set(mime.HeaderContentTransferEncoding, "base64")
	h.SetContentDisposition("attachment", map[string]string{"filename": filename})

	return encodePart(h, der)
}

// EncodeSigned wraps part in a multipart/signed entity. Bare LF line
// endings in part are converted to CRLF before sign is called, so the
// signature covers exactly the bytes a receiver reads back.
func EncodeSigned(part []byte, sign SignFunc) ([]byte, error) {
	canonical := Canonicalize(part)

	signature, err := sign(canonical)
	if err != nil {
		return nil, fmt.Errorf("failed to sign part: %w", err)
	}

	var sigHeader message.Header
	sigHeader.SetContentType(mime.MediaTypePKCS7Signature, map[string]string{"name": "smime.p7s"})
	sigHeader.Set(mime.HeaderContentTransferEncoding, "base64")
	sigHeader.SetContentDisposition("attachment", map[string]string{"filename": "smime.p7s"})

	sigPart, err := encodePart(sigHeader, signature)
	if err != nil {
		return nil, err
	}

	boundary := generateBoundary()

	var h message.Header
	h.Set("MIME-Version", "1.0")
	h.SetContentType(mime.MediaTypeMultipartSigned, map[string]string{
		mime.ParamProtocol: mime.MediaTypePKCS7Signature,
		mime.ParamMicalg:   "sha-256",
		mime.ParamBoundary: boundary,
	})

	var buf bytes.Buffer
	if err := textproto.WriteHeader(&buf, h.Header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	buf.WriteString("This is an S/MIME signed message\r\n\r\n")
	buf.WriteString("--" + boundary + "\r\n")
	buf.Write(canonical)
	buf.WriteString("\r\n--" + boundary + "\r\n")
	buf.Write(bytes.TrimRight(sigPart, "\r\n"))
	buf.WriteString("\r\n--" + boundary + "--\r\n")

	return buf.Bytes(), nil
}

// Canonicalize converts bare LF line endings to CRLF
func Canonicalize(b []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(b))
	for i, c := range b {
		if c == '\n' && (i == 0 || b[i-1] != '\r') {
			buf.WriteByte('\r')
		}
		buf.WriteByte(c)
	}
	return buf.Bytes()
}

func encodePart(h message.Header, body []byte) ([]byte, error) {
	var buf bytes.Buffer

	w, err := message.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create entity writer: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to write entity body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close entity writer: %w", err)
	}

	return buf.Bytes(), nil
}

// generateBoundary generates a MIME boundary string
func generateBoundary() string {
	return fmt.Sprintf("----=_Part_%s", strings.ReplaceAll(uuid.New().String(), "-", ""))
}
