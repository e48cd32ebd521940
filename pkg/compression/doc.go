// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package compression provides CMS CompressedData handling for AS2.

AS2 compresses payloads with the S/MIME compressed-data content type
(RFC 3274), which wraps zlib output in a CMS ContentInfo:

	Content-Type: application/pkcs7-mime; smime-type=compressed-data; name=smime.p7z

# Compression

Compress a MIME entity before signing or encrypting it:

	provider := compression.NewZlibProvider()
	der, err := provider.Compress(entityBytes)

Expand a received compressed-data body:

	entityBytes, err := provider.Decompress(der)

Senders commonly emit BER with indefinite lengths and constructed octet
strings; both are accepted on input. Output is DER.

# Limits

Decompression stops once the expanded content exceeds the provider's
limit (DefaultMaxDecompressedSize unless configured), so a small
compressed body cannot expand without bound:

	provider := compression.NewZlibProviderWithLimit(16 << 20)

# References

  - Compressed Data Content Type for CMS: https://datatracker.ietf.org/doc/html/rfc3274
  - ZLIB RFC 1950: https://datatracker.ietf.org/doc/html/rfc1950
*/
package compression
