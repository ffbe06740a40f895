package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"strings"
)

// sealedPrefix marks values written by a Sealer. Values without it are
// returned untouched by Open so stores written before SECRETS_KEY was set
// stay readable.
const sealedPrefix = "sealed:v1:"

var newGCM = cipher.NewGCM

var nonceSource io.Reader = rand.Reader

var errKeyLength = errors.New("SECRETS_KEY must be 32 bytes or base64-encoded 32 bytes")

func ParseKey(raw string) ([]byte, error) {
	if raw == "" {
		return nil, errors.New("SECRETS_KEY is required")
	}
	if len(raw) == 32 {
		return []byte(raw), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, errKeyLength
	}
	if len(decoded) != 32 {
		return nil, errKeyLength
	}
	return decoded, nil
}

// Sealer encrypts provider credentials with AES-GCM.
type Sealer struct {
	aead cipher.AEAD
}

func NewSealer(key []byte) (*Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := newGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// Seal leaves the empty string alone so "not configured" stays detectable.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(nonceSource, nonce); err != nil {
		return "", err
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *Sealer) Open(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", err
	}
	size := s.aead.NonceSize()
	if len(data) < size {
		return "", errors.New("invalid sealed secret")
	}
	plain, err := s.aead.Open(nil, data[:size], data[size:], nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
