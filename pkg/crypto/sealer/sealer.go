package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/sys/cpu"
)

// KeySize is the key length a Sealer takes.
const KeySize = 32

// Algorithm tags written as the first byte of sealed data.
const (
	AlgAESGCM   byte = 0xA1
	AlgChaCha20 byte = 0xC2
)

var (
	// ErrInvalidKey is returned for keys that are not KeySize bytes.
	ErrInvalidKey = errors.New("sealer: key must be 32 bytes")

	// ErrMalformed is returned when sealed data is truncated or carries an
	// unknown algorithm tag.
	ErrMalformed = errors.New("sealer: malformed sealed data")

	// ErrOpen is returned when authentication fails.
	ErrOpen = errors.New("sealer: message authentication failed")
)

// Sealer seals and opens records under one key.
type Sealer struct {
	alg   byte
	aeads map[byte]cipher.AEAD
}

// New returns a Sealer for key, choosing the algorithm for this CPU.
func New(key []byte) (*Sealer, error) {
	alg := AlgChaCha20
	if cpu.X86.HasAES || cpu.ARM64.HasAES {
		alg = AlgAESGCM
	}
	return NewWithAlgorithm(key, alg)
}

// NewWithAlgorithm returns a Sealer that seals with alg.
func NewWithAlgorithm(key []byte, alg byte) (*Sealer, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	chacha, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	s := &Sealer{
		alg:   alg,
		aeads: map[byte]cipher.AEAD{AlgAESGCM: gcm, AlgChaCha20: chacha},
	}
	if _, ok := s.aeads[alg]; !ok {
		return nil, fmt.Errorf("sealer: unknown algorithm 0x%02x", alg)
	}
	return s, nil
}

// FromSecret derives a key from secret with HKDF-SHA256, using info to
// separate keys for different purposes.
func FromSecret(secret []byte, info string) (*Sealer, error) {
	if len(secret) == 0 {
		return nil, errors.New("sealer: empty secret")
	}
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key); err != nil {
		return nil, err
	}
	return New(key)
}

// Algorithm returns the tag Seal writes.
func (s *Sealer) Algorithm() byte {
	return s.alg
}

// Seal encrypts plaintext bound to aad.
func (s *Sealer) Seal(plaintext, aad []byte) ([]byte, error) {
	aead := s.aeads[s.alg]
	ns := aead.NonceSize()

	out := make([]byte, 1+ns, 1+ns+len(plaintext)+aead.Overhead())
	out[0] = s.alg
	if _, err := io.ReadFull(rand.Reader, out[1:]); err != nil {
		return nil, fmt.Errorf("sealer: read nonce: %w", err)
	}
	return aead.Seal(out, out[1:1+ns], plaintext, aad), nil
}

// Open decrypts data produced by Seal under the same key and aad.
func (s *Sealer) Open(data, aad []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrMalformed
	}
	aead, ok := s.aeads[data[0]]
	if !ok {
		return nil, ErrMalformed
	}
	ns := aead.NonceSize()
	if len(data) < 1+ns+aead.Overhead() {
		return nil, ErrMalformed
	}

	plaintext, err := aead.Open(nil, data[1:1+ns], data[1+ns:], aad)
	if err != nil {
		return nil, ErrOpen
	}
	return plaintext, nil
}

// IsSealed reports whether data starts with a known algorithm tag.
func IsSealed(data []byte) bool {
	return len(data) > 0 && (data[0] == AlgAESGCM || data[0] == AlgChaCha20)
}
