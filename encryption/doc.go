// Package encryption seals offline records at rest with AES-256-GCM or
// ChaCha20-Poly1305.
//
// Keys are derived from a passphrase with SHA-256. Callers bind each
// payload to its storage key through the associated data:
//
//	c, err := encryption.New(passphrase, encryption.WithAlgorithm(encryption.AlgorithmChaCha20))
//	sealed, err := encryption.SealString(c, payload, []byte(key))
//	payload, err = encryption.OpenString(c, sealed, []byte(key))
package encryption
