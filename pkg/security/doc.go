// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package security implements the S/MIME cryptography used by AS2.

AS2 protects payloads with CMS (PKCS#7) structures carried in MIME
bodies. This package wraps the CMS libraries behind the two operations
the extraction pipeline needs, plus the matching outbound operations.

# Encryption

Inbound enveloped-data bodies are decrypted with the recipient's private
key. The certificate selects the RecipientInfo addressed to this key:

	key, err := security.NewDecryptionKey(cert, privateKey)
	plaintext, err := security.Decrypt(envelopedDER, key)

Outbound content is encrypted for one or more partner certificates:

	envelopedDER, err := security.Encrypt(entityBytes, partnerCert)

Encryption uses AES-128-CBC content encryption and RSA key transport
unless EncryptWithAlgorithm selects another content cipher.

# Signatures

multipart/signed bodies carry a detached application/pkcs7-signature:

	signature, err := security.SignDetached(signedPart, cert, privateKey)
	signer, err := security.VerifyDetached(signedPart, signature, roots)

Signature verification is never performed implicitly by payload
extraction; callers decide whether and when to verify.

# References

  - CMS: https://datatracker.ietf.org/doc/html/rfc5652
  - S/MIME 3.2 Message Specification: https://datatracker.ietf.org/doc/html/rfc5751
  - AS2: https://datatracker.ietf.org/doc/html/rfc4130
*/
package security
