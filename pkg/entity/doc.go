// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package entity models the MIME entity tree of an inbound AS2 message.

# Entity Variants

Every entity is exactly one of a closed set of variants:

	*EDIPayload       - terminal EDI interchange (EDIFACT, X12 or consent)
	*MultipartSigned  - multipart/signed wrapping one signed data entity
	*EnvelopedData    - application/pkcs7-mime; smime-type=enveloped-data
	*CompressedData   - application/pkcs7-mime; smime-type=compressed-data
	*Opaque           - anything else, kept for diagnostics

Dispatch over the variants with a type switch:

	switch e := ent.(type) {
	case *entity.EDIPayload:
	case *entity.MultipartSigned:
	case *entity.EnvelopedData:
	case *entity.CompressedData:
	case *entity.Opaque:
	}

Entities are immutable: accessors return copies of headers and content.

# Parsing

A Message is the received header block plus its parsed top-level entity:

	msg, err := entity.ReadMessage(r)
	msg, err := entity.FromHTTPRequest(req)

Encrypted and compressed nodes produce their inner entity on demand:

	inner, err := enveloped.Decrypt(key)
	inner, err := compressed.Decompress(compression.NewZlibProvider())

# Retrieval

GetEntity distinguishes a missing entity from one of another variant:

	signed, r := entity.GetEntity[*entity.MultipartSigned](msg)
	switch r {
	case entity.Found:
	case entity.WrongVariant:
	case entity.Absent:
	}

# Encoding

The Encode functions build wire-format entities, innermost first:

	part, _ := entity.EncodeEDI(mime.MediaTypeEDIFACT, interchange)
	signed, _ := entity.EncodeSigned(part, entity.SignWith(cert, key))
	der, _ := security.Encrypt(signed, partnerCert)
	body, _ := entity.EncodePKCS7Mime(mime.SMIMETypeEnvelopedData, der)
*/
package entity
