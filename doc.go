// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package goas2 recovers EDI documents from received EDIINT AS2 messages.

# Overview

AS2 (Applicability Statement 2) transports EDI interchanges over HTTP.
Senders protect the interchange with S/MIME: a detached signature,
CMS compression, CMS encryption, or a combination of them. go-as2 parses
the received MIME structure and strips those layers to recover exactly
one EDI payload, or fails with an error that names the offending layer.

# Specifications Implemented

  - RFC 4130: MIME-Based Secure Peer-to-Peer Business Data Interchange Using HTTP (AS2)
  - RFC 1767: MIME Encapsulation of EDI Objects
  - RFC 8551: S/MIME Version 4.0 Message Specification
  - RFC 1847: Security Multiparts for MIME (multipart/signed)
  - RFC 5652: Cryptographic Message Syntax (EnvelopedData, SignedData)
  - RFC 3274: Compressed Data Content Type for CMS

# Package Structure

The library is organized into the following packages:

	github.com/sirosfoundation/go-as2/pkg/as2         - Payload extraction engine
	github.com/sirosfoundation/go-as2/pkg/entity      - MIME entity model, parser and encoder
	github.com/sirosfoundation/go-as2/pkg/mime        - Content types, headers and boundary scanning
	github.com/sirosfoundation/go-as2/pkg/security    - CMS encryption and detached signatures
	github.com/sirosfoundation/go-as2/pkg/compression - CMS CompressedData (zlib)
	github.com/sirosfoundation/go-as2/pkg/protocol    - Extraction error kinds

# Quick Start

To extract the payload of a received message:

	import (
	    "github.com/sirosfoundation/go-as2/pkg/as2"
	    "github.com/sirosfoundation/go-as2/pkg/entity"
	    "github.com/sirosfoundation/go-as2/pkg/security"
	)

	msg, err := entity.FromHTTPRequest(r)
	if err != nil {
	    return err
	}

	key, err := security.NewDecryptionKey(cert, privateKey)
	if err != nil {
	    return err
	}

	payload, err := as2.ExtractEDIPayload(msg, key)
	if err != nil {
	    // permanent rejection, see protocol error kinds
	    return err
	}
	process(payload.Content())

# Legal Layer Combinations

Encryption wraps plain, signed or compressed content. Signing wraps plain
or compressed content. Compression wraps plain or signed content. Any
other nesting, such as encrypted content inside encrypted content, is
rejected with protocol.ErrUnsupportedNestedType.

# Command Line

The as2-extract command extracts payloads from stored message files:

	as2-extract -config as2.yaml -out ./payloads messages/*.msg

# License

BSD-2-Clause License
*/
package goas2
