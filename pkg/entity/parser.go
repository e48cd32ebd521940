package entity

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/textproto"
	"github.com/sirosfoundation/go-as2/pkg/mime"
	"github.com/sirosfoundation/go-as2/pkg/protocol"
)

// maxSignedDepth bounds multipart/signed nesting within one parse.
const maxSignedDepth = 8

// Parse parses a raw MIME entity, header block included, into its typed
// entity tree.
func Parse(raw []byte) (Entity, error) {
	return parse(raw, 0)
}

func parse(raw []byte, depth int) (Entity, error) {
	header, body, err := splitEntity(raw)
	if err != nil {
		return nil, err
	}
	return build(header, body, depth)
}

// splitEntity separates the header block of raw from its body.
func splitEntity(raw []byte) (message.Header, []byte, error) {
	br := bufio.NewReader(bytes.NewReader(raw))

	h, err := textproto.ReadHeader(br)
	if err != nil {
		return message.Header{}, nil, protocol.Wrap(protocol.ErrProtocolFormat, err, "failed to read entity header")
	}

	body, err := io.ReadAll(br)
	if err != nil {
		return message.Header{}, nil, protocol.Wrap(protocol.ErrProtocolFormat, err, "failed to read entity body")
	}

	return message.Header{Header: h}, body, nil
}

// build maps a header block and raw body to the entity variant selected by
// the Content-Type.
func build(header message.Header, body []byte, depth int) (Entity, error) {
	b := base{header: header}

	value := header.Get(mime.HeaderContentType)
	if value == "" {
		return &Opaque{base: b, content: body}, nil
	}
	ct, err := mime.ParseContentType(value)
	if err != nil {
		return &Opaque{base: b, content: body}, nil
	}

	switch {
	case mime.IsEDI(ct.MediaType):
		content, err := decodeBody(header, body)
		if err != nil {
			return nil, err
		}
		return &EDIPayload{base: b, mediaType: ct.MediaType, content: content}, nil

	case ct.MediaType == mime.MediaTypeMultipartSigned:
		return parseMultipartSigned(b, ct, body, depth)

	case mime.IsPKCS7Mime(ct.MediaType):
		data, err := decodeBody(header, body)
		if err != nil {
			return nil, err
		}
		switch ct.SMIMEType() {
		case mime.SMIMETypeEnvelopedData:
			return &EnvelopedData{base: b, data: data}, nil
		case mime.SMIMETypeCompressedData:
			return &CompressedData{base: b, data: data}, nil
		default:
			return &Opaque{base: b, content: data}, nil
		}

	default:
		content, err := decodeBody(header, body)
		if err != nil {
			// Undecodable unknown content is still kept for diagnostics.
			content = body
		}
		return &Opaque{base: b, content: content}, nil
	}
}

func parseMultipartSigned(b base, ct mime.ContentType, body []byte, depth int) (Entity, error) {
	if depth >= maxSignedDepth {
		return nil, protocol.Errorf(protocol.ErrProtocolFormat, "multipart/signed nested deeper than %d levels", maxSignedDepth)
	}

	boundary := ct.Param(mime.ParamBoundary)
	if boundary == "" {
		return nil, protocol.Errorf(protocol.ErrProtocolFormat, "multipart/signed entity has no boundary")
	}

	br := bufio.NewReader(bytes.NewReader(body))
	if err := mime.SkipPreamble(br, boundary); err != nil {
		return nil, err
	}

	signedPart, err := mime.ReadBodyPart(br, boundary)
	if err != nil {
		return nil, err
	}
	signaturePart, err := mime.ReadBodyPart(br, boundary)
	if err != nil {
		return nil, err
	}

	signed, err := parse([]byte(signedPart), depth+1)
	if err != nil {
		return nil, err
	}

	sigHeader, sigBody, err := splitEntity([]byte(signaturePart))
	if err != nil {
		return nil, err
	}
	signature, err := decodeBody(sigHeader, sigBody)
	if err != nil {
		return nil, err
	}

	return &MultipartSigned{
		base:          b,
		signed:        signed,
		signedBytes:   []byte(signedPart),
		signature:     signature,
		signatureType: sigHeader.Get(mime.HeaderContentType),
	}, nil
}

// decodeBody undoes the Content-Transfer-Encoding of body.
func decodeBody(header message.Header, body []byte) ([]byte, error) {
	h := message.Header{Header: header.Header.Copy()}

	e, err := message.New(h, bytes.NewReader(body))
	if err != nil {
		return nil, protocol.Wrap(protocol.ErrProtocolFormat, err,
			"unsupported transfer encoding %q", strings.TrimSpace(header.Get(mime.HeaderContentTransferEncoding)))
	}

	decoded, err := io.ReadAll(e.Body)
	if err != nil {
		return nil, protocol.Wrap(protocol.ErrProtocolFormat, err, "failed to decode entity body")
	}
	return decoded, nil
}
