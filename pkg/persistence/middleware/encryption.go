package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/ports"
)

const envelopeKey = "__encrypted__"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.SessionStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts every stored answer
// using AES-GCM. Journey metadata only holds identifiers and stays in clear text.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Session(sessionID string) ports.AnswerStore {
	return &encryptedAnswers{AnswerStore: m.next.Session(sessionID), mw: m}
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *encryptionMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *encryptionMiddleware) Snapshot(ctx context.Context, sessionID string) (*ports.SessionSnapshot, error) {
	snap, err := m.next.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	out := &ports.SessionSnapshot{
		Metadata: snap.Metadata,
		Bags:     make(map[string]domain.JourneyData, len(snap.Bags)),
	}
	for dataKey, bag := range snap.Bags {
		plain := make(domain.JourneyData, len(bag))
		for key, value := range bag {
			if plain[key], err = m.open(value); err != nil {
				return nil, fmt.Errorf("failed to decrypt %s/%s: %w", dataKey, key, err)
			}
		}
		out.Bags[dataKey] = plain
	}
	return out, nil
}

// seal serializes and encrypts a value into an opaque envelope.
func (m *encryptionMiddleware) seal(value any) (map[string]any, error) {
	plainText, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt value: %w", err)
	}

	return map[string]any{
		envelopeKey: base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}

// open decrypts an envelope produced by seal.
func (m *encryptionMiddleware) open(stored any) (any, error) {
	envelope, ok := domain.AsPageData(stored)
	if !ok {
		return nil, errors.New("value is missing encrypted data envelope")
	}
	// Fail secure: a store configured for encryption never serves plain values.
	encoded, ok := envelope[envelopeKey].(string)
	if !ok {
		return nil, errors.New("value is missing encrypted data envelope")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, err
	}

	var value any
	if err := json.Unmarshal(plainText, &value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted value: %w", err)
	}
	return value, nil
}

// encryptedAnswers seals values on Set and opens them on Get.
// Metadata calls pass through the embedded store.
type encryptedAnswers struct {
	ports.AnswerStore
	mw *encryptionMiddleware
}

func (a *encryptedAnswers) Get(ctx context.Context, dataKey, key string) (any, bool, error) {
	stored, ok, err := a.AnswerStore.Get(ctx, dataKey, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	value, err := a.mw.open(stored)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decrypt answer %s: %w", key, err)
	}
	return value, true, nil
}

func (a *encryptedAnswers) Set(ctx context.Context, dataKey, key string, value any) error {
	envelope, err := a.mw.seal(value)
	if err != nil {
		return err
	}
	return a.AnswerStore.Set(ctx, dataKey, key, envelope)
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}
