// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package as2 extracts the EDI payload from a received AS2 message.

An AS2 sender may sign, compress and encrypt an EDI interchange in a
number of legal combinations. The extractor strips those layers one at a
time and returns the single innermost EDI entity.

# Extraction

	msg, err := entity.ReadMessage(r)
	if err != nil {
	    return err
	}
	payload, err := as2.ExtractEDIPayload(msg, key)

A configured extractor adds logging, metrics and a decompression limit:

	x := as2.NewExtractor(
	    as2.WithLogger(logger),
	    as2.WithMetrics(as2.NewMetrics("as2", prometheus.DefaultRegisterer)),
	    as2.WithMaxDecompressedSize(64<<20),
	)
	payload, err := x.Extract(msg, key)

The key is only needed for encrypted messages; pass nil otherwise.

# Nesting Rules

Each layer may only enclose certain other layers:

	message               EDI, signed, compressed, enveloped
	enveloped             EDI, signed, compressed
	compressed            EDI, signed
	signed                EDI, compressed
	signed in compressed  EDI, compressed

Any other shape fails with protocol.ErrUnsupportedNestedType, as does a
message with more than 16 signed and compressed layers.

Signatures are not verified during extraction. Use
(*entity.MultipartSigned).Verify for that.

# Errors

Every failure is a *protocol.Error. Match its kind with errors.Is:

	if errors.Is(err, protocol.ErrMissingPrivateKey) {
	    // look up the partner key and retry
	}
*/
package as2
