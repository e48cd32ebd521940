// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package mime handles the MIME plumbing of inbound AS2 messages.

It provides the three low-level pieces the entity parser and the unwrap
engine are built on: content type descriptors, header and parameter
access, and the multipart boundary scanner.

# Content Types

AS2 payload selection is driven by the Content-Type header and, for
S/MIME bodies, by its smime-type parameter:

	Content-Type: application/pkcs7-mime; smime-type=enveloped-data; name=smime.p7m
	Content-Type: application/pkcs7-mime; smime-type=compressed-data; name=smime.p7z
	Content-Type: multipart/signed; protocol="application/pkcs7-signature"; micalg=sha-256; boundary="----=_Part_1"
	Content-Type: application/edifact

Parse a header value into a descriptor:

	ct, err := mime.ParseContentType(value)
	if mime.IsEDI(ct.MediaType) {
	    // plain EDI interchange
	}

# Headers

Messages and entities expose an emersion/go-message header block. The
accessors read and replace single header values and look up structured
parameters case-insensitively:

	value, ok := mime.GetHeader(msg, "AS2-From")
	smimeType, ok := mime.GetParameter(msg, "Content-Type", "smime-type")

# Boundary Scanning

ReadBodyPart returns the text of one body part, stopping at the next
open or close delimiter. The CRLF preceding a delimiter belongs to the
delimiter and is not part of the returned text:

	r := bufio.NewReader(strings.NewReader("A\r\nB\r\n--boundary--\r\n"))
	part, err := mime.ReadBodyPart(r, "boundary") // "A\r\nB"

# References

  - AS2: https://datatracker.ietf.org/doc/html/rfc4130
  - MIME Multipart: https://datatracker.ietf.org/doc/html/rfc2046
  - S/MIME 3.2: https://datatracker.ietf.org/doc/html/rfc5751
*/
package mime
