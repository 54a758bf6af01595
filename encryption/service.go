package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrCiphertextTooShort is returned when a payload cannot hold a nonce.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// AEAD is a Cipher backed by any crypto/cipher.AEAD. The nonce is
// prepended to the sealed payload.
type AEAD struct {
	alg  Algorithm
	aead cipher.AEAD
}

// NewAESGCM creates an AES-256-GCM cipher.
// The passphrase is hashed with SHA-256 to produce a 32-byte key.
func NewAESGCM(passphrase string) (*AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return &AEAD{alg: AlgorithmAESGCM, aead: gcm}, nil
}

// NewChaCha20 creates a ChaCha20-Poly1305 cipher.
// The passphrase is hashed with SHA-256 to produce a 32-byte key.
func NewChaCha20(passphrase string) (*AEAD, error) {
	aead, err := chacha20poly1305.New(deriveKey(passphrase))
	if err != nil {
		return nil, fmt.Errorf("create chacha20: %w", err)
	}
	return &AEAD{alg: AlgorithmChaCha20, aead: aead}, nil
}

func deriveKey(passphrase string) []byte {
	sum := sha256.Sum256([]byte(passphrase))
	return sum[:]
}

// Algorithm names the underlying cipher.
func (a *AEAD) Algorithm() Algorithm { return a.alg }

// Seal encrypts plaintext, returning nonce||ciphertext.
func (a *AEAD) Seal(plaintext, associatedData []byte) ([]byte, error) {
	nonce := make([]byte, a.aead.NonceSize(), a.aead.NonceSize()+len(plaintext)+a.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return a.aead.Seal(nonce, nonce, plaintext, associatedData), nil
}

// Open decrypts a payload produced by Seal.
func (a *AEAD) Open(ciphertext, associatedData []byte) ([]byte, error) {
	nonceSize := a.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrCiphertextTooShort
	}

	nonce, data := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := a.aead.Open(nil, nonce, data, associatedData)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

// SealString seals plaintext and returns it base64-encoded.
func SealString(c Cipher, plaintext, associatedData []byte) (string, error) {
	sealed, err := c.Seal(plaintext, associatedData)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// OpenString decodes and opens a payload produced by SealString.
func OpenString(c Cipher, encoded string, associatedData []byte) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return c.Open(data, associatedData)
}
