package encryption

import (
	"fmt"
)

// Cipher seals and opens byte payloads with an authenticated cipher.
// Associated data is authenticated but not encrypted, so a ciphertext
// sealed for one key cannot be opened under another.
type Cipher interface {
	Algorithm() Algorithm
	Seal(plaintext, associatedData []byte) ([]byte, error)
	Open(ciphertext, associatedData []byte) ([]byte, error)
}

// Algorithm represents supported encryption algorithms.
type Algorithm string

const (
	// AlgorithmAESGCM is AES-256-GCM (default, widely supported).
	AlgorithmAESGCM Algorithm = "aes-256-gcm"

	// AlgorithmChaCha20 is ChaCha20-Poly1305 (fast on CPUs without AES-NI).
	AlgorithmChaCha20 Algorithm = "chacha20-poly1305"
)

// Option configures the cipher.
type Option func(*options)

type options struct {
	algorithm Algorithm
}

// WithAlgorithm selects the encryption algorithm (default: AES-256-GCM).
func WithAlgorithm(alg Algorithm) Option {
	return func(o *options) { o.algorithm = alg }
}

// New creates a Cipher from a passphrase. The passphrase is hashed to the
// key length the algorithm requires.
func New(passphrase string, opts ...Option) (Cipher, error) {
	o := &options{algorithm: AlgorithmAESGCM}
	for _, opt := range opts {
		opt(o)
	}

	switch o.algorithm {
	case AlgorithmChaCha20:
		return NewChaCha20(passphrase)
	case AlgorithmAESGCM, "":
		return NewAESGCM(passphrase)
	default:
		return nil, fmt.Errorf("unsupported algorithm %q", o.algorithm)
	}
}
