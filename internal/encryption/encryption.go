package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	keySize   = 32
	argonTime = 3
	argonMem  = 64 * 1024
	argonPar  = 4
)

// keySalt is fixed so the same secret always yields the same key across
// restarts and replicas. Links issued by one process must decrypt in another.
var keySalt = []byte("magiclink/encryption/v1")

var errMalformed = errors.New("malformed ciphertext")

// DeriveKey derives a 32-byte AES-256 key from a passphrase and salt using Argon2id.
func DeriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMem, argonPar, keySize)
}

// Box encrypts short strings with AES-256-GCM. Output format is
// hex(nonce) ":" hex(ciphertext), which is safe to carry in a URL.
type Box struct {
	gcm cipher.AEAD
}

// New derives the key from secret and returns a ready Box.
func New(secret string) (*Box, error) {
	if secret == "" {
		return nil, fmt.Errorf("encryption secret is empty")
	}
	return NewWithKey(DeriveKey(secret, keySalt))
}

// NewWithKey builds a Box from a raw 32-byte key.
func NewWithKey(key []byte) (*Box, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("key length = %d, want %d", len(key), keySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &Box{gcm: gcm}, nil
}

func (b *Box) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, b.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	ciphertext := b.gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. It never returns partial output: any malformed
// or tampered input is an error.
func (b *Box) Decrypt(ciphertext string) (string, error) {
	ivHex, dataHex, ok := strings.Cut(ciphertext, ":")
	if !ok {
		return "", errMalformed
	}
	nonce, err := hex.DecodeString(ivHex)
	if err != nil {
		return "", fmt.Errorf("decode nonce: %w", err)
	}
	if len(nonce) != b.gcm.NonceSize() {
		return "", fmt.Errorf("nonce length = %d: %w", len(nonce), errMalformed)
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	plaintext, err := b.gcm.Open(nil, nonce, data, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}
