// Package sealer encrypts small records with an AEAD.
//
// Sealed output is self-describing: a one-byte algorithm tag, the nonce,
// then the ciphertext. A Sealer picks AES-GCM when the CPU accelerates AES
// and ChaCha20-Poly1305 otherwise, but opens records sealed with either.
package sealer
