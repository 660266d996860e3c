package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Codec encrypts values before they reach the configuration store.
// Both directions map the empty string to itself so cleared values stay cleared.
type Codec interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

const keyInfo = "zimbra-connector secrets v1"

// AEADCodec seals values with XChaCha20-Poly1305. Ciphertexts are
// base64(nonce || sealed) so they can live in text columns.
type AEADCodec struct {
	key []byte
}

var _ Codec = (*AEADCodec)(nil)

// NewAEADCodec derives the encryption key from the master secret with HKDF-SHA256.
func NewAEADCodec(master []byte) (*AEADCodec, error) {
	if len(master) == 0 {
		return nil, errors.New("[NewAEADCodec] master secret is required")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(keyInfo)), key); err != nil {
		return nil, errors.Wrap(err, "[NewAEADCodec] deriving key")
	}
	return &AEADCodec{key: key}, nil
}

func (c *AEADCodec) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", errors.Wrap(err, "[AEADCodec.Encrypt] cipher")
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.Wrap(err, "[AEADCodec.Encrypt] nonce")
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *AEADCodec) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.Wrap(err, "[AEADCodec.Decrypt] decoding")
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", errors.Wrap(err, "[AEADCodec.Decrypt] cipher")
	}
	if len(raw) < aead.NonceSize() {
		return "", errors.New("[AEADCodec.Decrypt] ciphertext too short")
	}
	plain, err := aead.Open(nil, raw[:aead.NonceSize()], raw[aead.NonceSize():], nil)
	if err != nil {
		return "", errors.Wrap(err, "[AEADCodec.Decrypt] opening")
	}
	return string(plain), nil
}
