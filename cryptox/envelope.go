package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	envelopeVersion1 = 1
	// KeySize is the required key length for Seal and Open (AES-256).
	KeySize   = 32
	nonceSize = 12
	tagSize   = 16
)

var (
	// ErrAuthenticationFailure is returned when an envelope does not verify
	// under the given key: wrong key, tampered ciphertext, or a corrupted envelope.
	ErrAuthenticationFailure = errors.New("envelope authentication failed")
	// ErrInvalidKey is returned for keys that are not KeySize bytes.
	ErrInvalidKey = errors.New("envelope key must be 32 bytes")
)

// Envelope is the serializable output of Seal. Nonce is fresh for every call.
type Envelope struct {
	Version    int    `json:"v"`
	Nonce      []byte `json:"n"`
	Ciphertext []byte `json:"c"`
	Tag        []byte `json:"t"`
}

// Seal JSON-encodes v and encrypts it with AES-256-GCM under key.
func Seal(v any, key []byte) (*Envelope, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cryptox: encode payload: %w", err)
	}
	defer zero(plaintext)

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("cryptox: read nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, additionalData(envelopeVersion1))
	split := len(sealed) - tagSize

	return &Envelope{
		Version:    envelopeVersion1,
		Nonce:      nonce,
		Ciphertext: sealed[:split:split],
		Tag:        sealed[split:],
	}, nil
}

// Open verifies env under key and decodes the plaintext into out. On any
// verification failure it returns ErrAuthenticationFailure and leaves out untouched.
func Open(env *Envelope, key []byte, out any) error {
	aead, err := newAEAD(key)
	if err != nil {
		return err
	}
	if env == nil || env.Version != envelopeVersion1 || len(env.Nonce) != nonceSize || len(env.Tag) != tagSize {
		return ErrAuthenticationFailure
	}

	sealed := make([]byte, 0, len(env.Ciphertext)+tagSize)
	sealed = append(sealed, env.Ciphertext...)
	sealed = append(sealed, env.Tag...)

	plaintext, err := aead.Open(nil, env.Nonce, sealed, additionalData(env.Version))
	if err != nil {
		return ErrAuthenticationFailure
	}
	defer zero(plaintext)

	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("cryptox: decode payload: %w", err)
	}
	return nil
}

// Marshal returns the wire form of env.
func (env *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(env)
}

// ParseEnvelope decodes the wire form produced by Marshal. Malformed input is
// reported as ErrAuthenticationFailure.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrAuthenticationFailure
	}
	return &env, nil
}

// SealBytes is Seal followed by Marshal.
func SealBytes(v any, key []byte) ([]byte, error) {
	env, err := Seal(v, key)
	if err != nil {
		return nil, err
	}
	return env.Marshal()
}

// OpenBytes is ParseEnvelope followed by Open.
func OpenBytes(data []byte, key []byte, out any) error {
	env, err := ParseEnvelope(data)
	if err != nil {
		return err
	}
	return Open(env, key, out)
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func additionalData(version int) []byte {
	return []byte{'c', 'g', 'e', byte(version)}
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
