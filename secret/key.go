package secret

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/99designs/keyring"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	serviceName = "zimbra-connector"
	masterKeyID = "master-key"
)

// LoadKey returns the master secret. An explicit value (SECRET_KEY) wins;
// otherwise the key is read from the OS keyring, and generated and stored
// there on first use.
func LoadKey(explicit, keyringDir string) ([]byte, error) {
	if explicit != "" {
		return []byte(explicit), nil
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KeychainBackend,
			keyring.WinCredBackend,
			keyring.FileBackend,
		},
		FileDir:                  keyringDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(serviceName),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening keyring")
	}

	item, err := ring.Get(masterKeyID)
	if err == nil {
		return item.Data, nil
	}
	if !errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, errors.Wrap(err, "reading master key")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, errors.Wrap(err, "generating master key")
	}
	key := []byte(hex.EncodeToString(raw))
	if err := ring.Set(keyring.Item{Key: masterKeyID, Data: key, Label: "Zimbra connector master key"}); err != nil {
		return nil, errors.Wrap(err, "storing master key")
	}
	log.Info().Msg("generated a new master key in the keyring")
	return key, nil
}
