package crypto

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// identityFileMode keeps the on-disk private key readable by the node
// process only.
const identityFileMode = 0o600

// LoadOrGenerateIdentity returns the node's long-term identity key pair,
// reading it from the given path if present, or generating a fresh one and
// persisting it otherwise. The returned KeyPair is owned by the caller;
// there is no process-wide singleton.
func LoadOrGenerateIdentity(path string) (*KeyPair, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		secret, decErr := DecodeKey(data, FormatBinary)
		ZeroBytes(data)
		if decErr != nil {
			return nil, fmt.Errorf("identity file %s is corrupt: %w", path, decErr)
		}
		kp, kpErr := FromSecretKey(secret)
		ZeroBytes(secret[:])
		if kpErr != nil {
			return nil, fmt.Errorf("identity file %s holds an unusable key: %w", path, kpErr)
		}
		logrus.WithFields(logrus.Fields{
			"path":       path,
			"public_key": shortKey(kp.Public),
		}).Debug("Loaded node identity")
		return kp, nil

	case os.IsNotExist(err):
		kp, genErr := GenerateKeyPair()
		if genErr != nil {
			return nil, fmt.Errorf("failed to generate identity: %w", genErr)
		}
		encoded, encErr := EncodeKey(kp.Private, FormatBinary)
		if encErr != nil {
			return nil, encErr
		}
		writeErr := os.WriteFile(path, encoded, identityFileMode)
		ZeroBytes(encoded)
		if writeErr != nil {
			return nil, fmt.Errorf("failed to persist identity to %s: %w", path, writeErr)
		}
		logrus.WithFields(logrus.Fields{
			"path":       path,
			"public_key": shortKey(kp.Public),
		}).Info("Generated new node identity")
		return kp, nil

	default:
		return nil, fmt.Errorf("failed to read identity file %s: %w", path, err)
	}
}

// shortKey renders an abbreviated public key for log output.
func shortKey(key [KeySize]byte) string {
	return fmt.Sprintf("%x", key[:8])
}
