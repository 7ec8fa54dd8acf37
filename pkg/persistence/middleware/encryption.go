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
	"time"

	"github.com/aretw0/transito/pkg/domain"
	"github.com/aretw0/transito/pkg/ports"
)

// EnvelopeKey is the single context field an encrypted snapshot is stored under.
const EnvelopeKey = "__encrypted__"

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
	passthrough
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts actor contexts using AES-GCM.
//
// Only the context is sealed: id, state and timestamps stay readable so the wrapped
// adapter can still enforce identity and compare-and-swap. The envelope is a single
// string field, which flattened adapters bound to a schema cannot store.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, fmt.Errorf("%w: active key must be 32 bytes (AES-256)", domain.ErrConfiguration)
	}
	return func(next ports.Adapter) ports.Adapter {
		return &encryptionMiddleware{passthrough: passthrough{next: next}, config: config}
	}, nil
}

func (m *encryptionMiddleware) Create(ctx context.Context, id, state string, data map[string]any) (*domain.Snapshot, error) {
	envelope, plain, err := m.seal(data)
	if err != nil {
		return nil, err
	}
	snap, err := m.next.Create(ctx, id, state, envelope)
	if err != nil {
		return nil, err
	}
	snap.Context = plain
	return snap, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, snapshot *domain.Snapshot, prevUpdatedAt time.Time) (*domain.Snapshot, error) {
	envelope, plain, err := m.seal(snapshot.Context)
	if err != nil {
		return nil, err
	}
	sealed := snapshot.Clone()
	sealed.Context = envelope
	stored, err := m.next.Save(ctx, sealed, prevUpdatedAt)
	if err != nil {
		return nil, err
	}
	stored.Context = plain
	return stored, nil
}

func (m *encryptionMiddleware) Load(ctx context.Context, id string) (*domain.Snapshot, error) {
	snap, err := m.next.Load(ctx, id)
	if err != nil || snap == nil {
		return snap, err
	}

	encryptedStr, ok := snap.Context[EnvelopeKey].(string)
	if !ok {
		// Plain snapshots are refused rather than passed through.
		return nil, fmt.Errorf("actor %q is missing encrypted data envelope", id)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encryptedStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}
	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt actor %q: %w", id, err)
	}

	data, err := decodeContext(plainText)
	if err != nil {
		return nil, err
	}
	snap.Context = data
	return snap, nil
}

// seal encrypts data into an envelope context. It also returns data as Load will decode
// it from the envelope.
func (m *encryptionMiddleware) seal(data map[string]any) (envelope, plain map[string]any, err error) {
	plainText, err := json.Marshal(domain.CloneContext(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal context: %w", err)
	}
	plain, err = decodeContext(plainText)
	if err != nil {
		return nil, nil, err
	}
	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encrypt context: %w", err)
	}
	return map[string]any{EnvelopeKey: base64.StdEncoding.EncodeToString(ciphertext)}, plain, nil
}

func decodeContext(plainText []byte) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(plainText, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted context: %w", err)
	}
	return domain.CloneContext(data), nil
}

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
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
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
