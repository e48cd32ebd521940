// Package mime implements content type, header and boundary handling for AS2
package mime

import (
	"errors"
	"fmt"
	"mime"
	"strings"
)

const (
	// MediaTypeEDIFACT is the MIME type for UN/EDIFACT interchanges
	MediaTypeEDIFACT = "application/edifact"
	// MediaTypeEDIX12 is the MIME type for ANSI X12 interchanges
	MediaTypeEDIX12 = "application/edi-x12"
	// MediaTypeEDIConsent is the MIME type for EDI formats agreed between partners
	MediaTypeEDIConsent = "application/edi-consent"
	// MediaTypeMultipartSigned is the MIME type for detached S/MIME signatures
	MediaTypeMultipartSigned = "multipart/signed"
	// MediaTypePKCS7Mime is the MIME type for enveloped and compressed S/MIME bodies
	MediaTypePKCS7Mime = "application/pkcs7-mime"
	// MediaTypeXPKCS7Mime is the legacy alias of MediaTypePKCS7Mime
	MediaTypeXPKCS7Mime = "application/x-pkcs7-mime"
	// MediaTypePKCS7Signature is the MIME type for detached CMS signatures
	MediaTypePKCS7Signature = "application/pkcs7-signature"
	// MediaTypeOctetStream is the fallback MIME type for unknown content
	MediaTypeOctetStream = "application/octet-stream"
)

const (
	// SMIMETypeEnvelopedData marks a CMS EnvelopedData body
	SMIMETypeEnvelopedData = "enveloped-data"
	// SMIMETypeCompressedData marks a CMS CompressedData body
	SMIMETypeCompressedData = "compressed-data"
)

// Header and parameter names used for payload selection
const (
	HeaderContentType             = "Content-Type"
	HeaderContentTransferEncoding = "Content-Transfer-Encoding"
	HeaderContentDisposition      = "Content-Disposition"
	ParamSMIMEType                = "smime-type"
	ParamBoundary                 = "boundary"
	ParamProtocol                 = "protocol"
	ParamMicalg                   = "micalg"
)

// ContentType is a parsed Content-Type value: a lower-cased media type plus
// its parameters keyed by lower-cased name.
type ContentType struct {
	MediaType string
	Params    map[string]string
}

// ParseContentType parses a Content-Type header value.
func ParseContentType(value string) (ContentType, error) {
	if strings.TrimSpace(value) == "" {
		return ContentType{}, fmt.Errorf("empty content type")
	}

	mediaType, params, err := mime.ParseMediaType(value)
	// A malformed parameter still yields the media type; keep what parsed.
	if err != nil && !errors.Is(err, mime.ErrInvalidMediaParameter) {
		return ContentType{}, fmt.Errorf("failed to parse content type %q: %w", value, err)
	}
	if params == nil {
		params = map[string]string{}
	}

	return ContentType{
		MediaType: strings.ToLower(mediaType),
		Params:    params,
	}, nil
}

// Param returns the named parameter, matched case-insensitively.
func (ct ContentType) Param(name string) string {
	return ct.Params[strings.ToLower(name)]
}

// SMIMEType returns the lower-cased smime-type parameter.
func (ct ContentType) SMIMEType() string {
	return strings.ToLower(strings.TrimSpace(ct.Param(ParamSMIMEType)))
}

// String formats the descriptor back into a header value.
func (ct ContentType) String() string {
	return mime.FormatMediaType(ct.MediaType, ct.Params)
}

// IsEDI reports whether mediaType is one of the EDI payload types.
func IsEDI(mediaType string) bool {
	switch strings.ToLower(mediaType) {
	case MediaTypeEDIFACT, MediaTypeEDIX12, MediaTypeEDIConsent:
		return true
	default:
		return false
	}
}

// IsPKCS7Mime reports whether mediaType carries an S/MIME body.
func IsPKCS7Mime(mediaType string) bool {
	switch strings.ToLower(mediaType) {
	case MediaTypePKCS7Mime, MediaTypeXPKCS7Mime:
		return true
	default:
		return false
	}
}
