package quota

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Checker decides whether a user may run another request. The real
// implementation lives with the usage/billing subsystem; the core only
// consumes the verdict.
type Checker interface {
	CheckQuota(ctx context.Context, userId string, org string) (bool, error)
}

type allowAllChecker struct{}

func NewAllowAllChecker() Checker {
	return allowAllChecker{}
}

func (allowAllChecker) CheckQuota(ctx context.Context, userId string, org string) (bool, error) {
	return true, nil
}

// Decrypt opens a base64-encoded AES-GCM sealed secret with a key derived
// from the passphrase. Model credentials are stored in this form.
func Decrypt(secret string, key string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("error decoding secret %w", err)
	}
	derived := sha256.Sum256([]byte(key))
	block, err := aes.NewCipher(derived[:])
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize() {
		return "", fmt.Errorf("secret too short")
	}
	nonce, sealed := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("error decrypting secret %w", err)
	}
	return string(plain), nil
}

// Encrypt is the counterpart used by deployment tooling and tests.
func Encrypt(plain string, key string) (string, error) {
	derived := sha256.Sum256([]byte(key))
	block, err := aes.NewCipher(derived[:])
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}
