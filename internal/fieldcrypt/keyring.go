package fieldcrypt

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/hkdf"

	id "lexgate/pkg/domain"
	dErrors "lexgate/pkg/domain-errors"
	"lexgate/pkg/platform/sentinel"
)

// wrapInfo is the HKDF info label for deriving per-firm key-wrapping keys.
// Changing it invalidates every wrapped key at rest.
const wrapInfo = "lexgate.fieldcrypt.wrap.v1"

// Store persists key metadata and wrapped key material, keyed by
// (firm, purpose, key). Implementations return sentinel.ErrNotFound for
// missing keys and sentinel.ErrConflict when a second Active key would be
// created for the same (firm, purpose).
type Store interface {
	Insert(ctx context.Context, meta KeyMetadata, wrappedKey []byte) error
	Get(ctx context.Context, firmID id.FirmID, keyID id.KeyID) (KeyMetadata, []byte, error)
	Active(ctx context.Context, firmID id.FirmID, purpose Purpose) (KeyMetadata, []byte, error)
	// Rotate atomically deprecates the current Active key (if any) and
	// inserts the successor as Active.
	Rotate(ctx context.Context, deprecated *KeyMetadata, successor KeyMetadata, wrappedKey []byte) error
	UpdateStatus(ctx context.Context, firmID id.FirmID, keyID id.KeyID, status KeyStatus) error
	ListByFirm(ctx context.Context, firmID id.FirmID) ([]KeyMetadata, error)
}

// Keyring is the firm-scoped key lifecycle service. Active keys are
// read-mostly and cached; rotation is the only mutation and invalidates the
// cache entry atomically with the store switch.
type Keyring struct {
	store            Store
	master           []byte
	rotationInterval time.Duration
	logger           *slog.Logger

	mu    sync.RWMutex
	cache map[cacheKey]cachedKey
}

type cacheKey struct {
	firm    id.FirmID
	purpose Purpose
}

type cachedKey struct {
	meta KeyMetadata
	key  []byte
}

// Option configures a Keyring.
type Option func(*Keyring)

// WithRotationInterval overrides the default 90-day rotation schedule.
func WithRotationInterval(d time.Duration) Option {
	return func(k *Keyring) { k.rotationInterval = d }
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(k *Keyring) { k.logger = logger }
}

// NewKeyring constructs the key lifecycle service. master is the platform
// master key used to wrap firm data keys at rest; it must be 32 bytes.
func NewKeyring(store Store, master []byte, opts ...Option) (*Keyring, error) {
	if store == nil {
		return nil, errors.New("key store is required")
	}
	if len(master) != keySize {
		return nil, dErrors.Newf(dErrors.CodeEncryptionFailure,
			"master key must be %d bytes, got %d", keySize, len(master))
	}

	k := &Keyring{
		store:            store,
		master:           master,
		rotationInterval: DefaultRotationInterval,
		logger:           slog.New(slog.DiscardHandler),
		cache:            make(map[cacheKey]cachedKey),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

// ActiveKey returns the firm's current Active key for the purpose,
// generating one on first use.
func (k *Keyring) ActiveKey(ctx context.Context, firmID id.FirmID, purpose Purpose) (KeyMetadata, []byte, error) {
	ck := cacheKey{firm: firmID, purpose: purpose}

	k.mu.RLock()
	if cached, ok := k.cache[ck]; ok {
		k.mu.RUnlock()
		return cached.meta, cached.key, nil
	}
	k.mu.RUnlock()

	meta, wrapped, err := k.store.Active(ctx, firmID, purpose)
	if errors.Is(err, sentinel.ErrNotFound) {
		return k.generate(ctx, firmID, purpose)
	}
	if err != nil {
		return KeyMetadata{}, nil, dErrors.Wrap(err, dErrors.CodeEncryptionFailure, "load active key")
	}

	key, err := k.unwrap(firmID, meta.KeyID, wrapped)
	if err != nil {
		return KeyMetadata{}, nil, err
	}

	k.mu.Lock()
	k.cache[ck] = cachedKey{meta: meta, key: key}
	k.mu.Unlock()

	return meta, key, nil
}

// KeyByID loads a specific key for decrypting previously-written fields.
// Deprecated keys still decrypt; Revoked keys never do.
func (k *Keyring) KeyByID(ctx context.Context, firmID id.FirmID, keyID id.KeyID) (KeyMetadata, []byte, error) {
	meta, wrapped, err := k.store.Get(ctx, firmID, keyID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return KeyMetadata{}, nil, dErrors.Newf(dErrors.CodeEncryptionFailure,
			"key %s not configured for firm %s", keyID, firmID)
	}
	if err != nil {
		return KeyMetadata{}, nil, dErrors.Wrap(err, dErrors.CodeEncryptionFailure, "load key")
	}
	if !meta.CanDecrypt() {
		return KeyMetadata{}, nil, dErrors.Newf(dErrors.CodeEncryptionFailure,
			"key %s is revoked", keyID)
	}

	key, err := k.unwrap(firmID, meta.KeyID, wrapped)
	if err != nil {
		return KeyMetadata{}, nil, err
	}
	return meta, key, nil
}

// Rotate deprecates the firm's current Active key and installs a fresh
// successor. The old key remains valid for decryption; only new writes use
// the successor.
func (k *Keyring) Rotate(ctx context.Context, firmID id.FirmID, purpose Purpose) (KeyMetadata, error) {
	current, _, err := k.store.Active(ctx, firmID, purpose)
	var deprecated *KeyMetadata
	switch {
	case err == nil:
		current.Status = KeyStatusDeprecated
		deprecated = &current
	case errors.Is(err, sentinel.ErrNotFound):
		// First rotation on a firm with no key yet just generates one.
	default:
		return KeyMetadata{}, dErrors.Wrap(err, dErrors.CodeEncryptionFailure, "load active key")
	}

	meta, raw, wrapped, err := k.mint(firmID, purpose)
	if err != nil {
		return KeyMetadata{}, err
	}

	if err := k.store.Rotate(ctx, deprecated, meta, wrapped); err != nil {
		return KeyMetadata{}, dErrors.Wrap(err, dErrors.CodeEncryptionFailure, "commit rotation")
	}

	k.mu.Lock()
	k.cache[cacheKey{firm: firmID, purpose: purpose}] = cachedKey{meta: meta, key: raw}
	k.mu.Unlock()

	k.logger.InfoContext(ctx, "key rotated",
		"firm_id", firmID.String(),
		"purpose", string(purpose),
		"new_key_id", meta.KeyID.String(),
	)
	return meta, nil
}

// Revoke destroys a key by administrative action. Fields encrypted under it
// become permanently unreadable, so callers confirm no reachable ciphertext
// depends on it first.
func (k *Keyring) Revoke(ctx context.Context, firmID id.FirmID, keyID id.KeyID) error {
	meta, _, err := k.store.Get(ctx, firmID, keyID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeNotFound, "key %s not found", keyID)
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load key")
	}
	if err := meta.Transition(KeyStatusRevoked); err != nil {
		return err
	}
	if err := k.store.UpdateStatus(ctx, firmID, keyID, KeyStatusRevoked); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "revoke key")
	}

	k.mu.Lock()
	for ck, cached := range k.cache {
		if cached.meta.KeyID == keyID {
			delete(k.cache, ck)
		}
	}
	k.mu.Unlock()
	return nil
}

// DueForRotation lists the firm's keys past their rotation deadline.
func (k *Keyring) DueForRotation(ctx context.Context, firmID id.FirmID, now time.Time) ([]KeyMetadata, error) {
	keys, err := k.store.ListByFirm(ctx, firmID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list firm keys")
	}
	var due []KeyMetadata
	for _, meta := range keys {
		if meta.Status == KeyStatusActive && meta.NeedsRotation(now) {
			due = append(due, meta)
		}
	}
	return due, nil
}

// generate creates the firm's first key for a purpose.
func (k *Keyring) generate(ctx context.Context, firmID id.FirmID, purpose Purpose) (KeyMetadata, []byte, error) {
	meta, raw, wrapped, err := k.mint(firmID, purpose)
	if err != nil {
		return KeyMetadata{}, nil, err
	}
	if err := k.store.Insert(ctx, meta, wrapped); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost a race with a concurrent first write; use the winner.
			return k.ActiveKey(ctx, firmID, purpose)
		}
		return KeyMetadata{}, nil, dErrors.Wrap(err, dErrors.CodeEncryptionFailure, "persist key")
	}

	k.mu.Lock()
	k.cache[cacheKey{firm: firmID, purpose: purpose}] = cachedKey{meta: meta, key: raw}
	k.mu.Unlock()

	return meta, raw, nil
}

// mint creates fresh key material and metadata without touching the store.
func (k *Keyring) mint(firmID id.FirmID, purpose Purpose) (KeyMetadata, []byte, []byte, error) {
	raw := make([]byte, keySize)
	if _, err := rand.Read(raw); err != nil {
		return KeyMetadata{}, nil, nil, dErrors.Wrap(err, dErrors.CodeEncryptionFailure,
			"cryptographic provider unavailable")
	}

	now := time.Now().UTC()
	meta := KeyMetadata{
		KeyID:       id.NewKeyID(),
		FirmID:      firmID,
		Purpose:     purpose,
		Algorithm:   AlgorithmAESGCM,
		Status:      KeyStatusActive,
		CreatedAt:   now,
		RotationDue: now.Add(k.rotationInterval),
	}

	wrapped, err := k.wrap(firmID, meta.KeyID, raw)
	if err != nil {
		return KeyMetadata{}, nil, nil, err
	}
	return meta, raw, wrapped, nil
}

// wrappingKey derives the firm-scoped wrapping key from the platform master
// key. HKDF keeps firm key material cryptographically separated even though
// one master key protects the whole fleet.
func (k *Keyring) wrappingKey(firmID id.FirmID) ([]byte, error) {
	reader := hkdf.New(sha256.New, k.master, []byte(firmID.String()), []byte(wrapInfo))
	derived := make([]byte, keySize)
	if _, err := io.ReadFull(reader, derived); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeEncryptionFailure, "derive wrapping key")
	}
	return derived, nil
}

// wrap seals raw key material under the firm's wrapping key. The blob layout
// is iv || ciphertext || tag.
func (k *Keyring) wrap(firmID id.FirmID, keyID id.KeyID, raw []byte) ([]byte, error) {
	wk, err := k.wrappingKey(firmID)
	if err != nil {
		return nil, err
	}
	field, err := Encrypt(raw, wk, keyID)
	if err != nil {
		return nil, err
	}
	blob := make([]byte, 0, ivSize+len(field.Ciphertext)+tagSize)
	blob = append(blob, field.IV...)
	blob = append(blob, field.Ciphertext...)
	blob = append(blob, field.AuthTag...)
	return blob, nil
}

// unwrap opens a wrapped key blob. A failed tag check here means stored key
// material was tampered with, which is an integrity violation, not a missing
// key.
func (k *Keyring) unwrap(firmID id.FirmID, keyID id.KeyID, blob []byte) ([]byte, error) {
	if len(blob) < ivSize+tagSize {
		return nil, dErrors.New(dErrors.CodeIntegrityViolation, "wrapped key blob truncated")
	}
	wk, err := k.wrappingKey(firmID)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(wk)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeEncryptionFailure, "create cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeEncryptionFailure, "create GCM")
	}

	raw, err := gcm.Open(nil, blob[:ivSize], blob[ivSize:], nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeIntegrityViolation,
			"wrapped key failed authentication for key "+keyID.String())
	}
	return raw, nil
}
