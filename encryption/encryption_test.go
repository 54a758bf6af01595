package encryption

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	for _, alg := range []Algorithm{AlgorithmAESGCM, AlgorithmChaCha20} {
		t.Run(string(alg), func(t *testing.T) {
			c, err := New("my-secret-key", WithAlgorithm(alg))
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if c.Algorithm() != alg {
				t.Errorf("Algorithm() = %s, want %s", c.Algorithm(), alg)
			}

			tests := []struct {
				name      string
				plaintext []byte
			}{
				{"empty", []byte{}},
				{"json", []byte(`{"subject":"hello","to":["a@example.com"]}`)},
				{"unicode", []byte("こんにちは世界")},
			}
			for _, tc := range tests {
				t.Run(tc.name, func(t *testing.T) {
					sealed, err := c.Seal(tc.plaintext, []byte("queue:1"))
					if err != nil {
						t.Fatalf("Seal failed: %v", err)
					}
					opened, err := c.Open(sealed, []byte("queue:1"))
					if err != nil {
						t.Fatalf("Open failed: %v", err)
					}
					if !bytes.Equal(opened, tc.plaintext) {
						t.Errorf("got %q, want %q", opened, tc.plaintext)
					}
				})
			}
		})
	}
}

func TestSealIsRandomized(t *testing.T) {
	c, _ := NewAESGCM("k")
	a, _ := c.Seal([]byte("same"), nil)
	b, _ := c.Seal([]byte("same"), nil)
	if bytes.Equal(a, b) {
		t.Error("expected distinct ciphertexts for the same plaintext")
	}
}

func TestOpenRejectsWrongAssociatedData(t *testing.T) {
	c, _ := NewChaCha20("k")
	sealed, err := SealString(c, []byte("payload"), []byte("cache:mail"))
	if err != nil {
		t.Fatalf("SealString failed: %v", err)
	}
	if _, err := OpenString(c, sealed, []byte("cache:calendar")); err == nil {
		t.Error("expected failure when the record is moved to another key")
	}
	got, err := OpenString(c, sealed, []byte("cache:mail"))
	if err != nil || string(got) != "payload" {
		t.Errorf("OpenString = %q, %v", got, err)
	}
}

func TestOpenRejectsWrongKey(t *testing.T) {
	a, _ := NewAESGCM("key-a")
	b, _ := NewAESGCM("key-b")
	sealed, _ := a.Seal([]byte("secret"), nil)
	if _, err := b.Open(sealed, nil); err == nil {
		t.Error("expected failure with wrong key")
	}
}

func TestOpenErrors(t *testing.T) {
	c, _ := NewAESGCM("k")
	if _, err := c.Open([]byte("x"), nil); err != ErrCiphertextTooShort {
		t.Errorf("expected ErrCiphertextTooShort, got %v", err)
	}
	if _, err := OpenString(c, "not base64!!", nil); err == nil {
		t.Error("expected decode error")
	}
}

func TestNewUnsupportedAlgorithm(t *testing.T) {
	if _, err := New("k", WithAlgorithm("rot13")); err == nil {
		t.Error("expected error for unsupported algorithm")
	}
}
