package fieldcrypt

import (
	"context"

	id "lexgate/pkg/domain"
	dErrors "lexgate/pkg/domain-errors"
)

// Service combines the keyring with the field cipher: callers hand over
// plaintext and a purpose, never key material.
type Service struct {
	keyring *Keyring
}

// NewService creates the field encryption service.
func NewService(keyring *Keyring) *Service {
	return &Service{keyring: keyring}
}

// EncryptField seals plaintext under the firm's active key for the purpose,
// generating the key on first use.
func (s *Service) EncryptField(ctx context.Context, firmID id.FirmID, purpose Purpose, plaintext []byte) (EncryptedField, error) {
	meta, key, err := s.keyring.ActiveKey(ctx, firmID, purpose)
	if err != nil {
		return EncryptedField{}, err
	}
	return Encrypt(plaintext, key, meta.KeyID)
}

// DecryptField opens a sealed field with whichever keyring key produced it.
// Deprecated and rotating keys still decrypt; revoked keys do not.
func (s *Service) DecryptField(ctx context.Context, firmID id.FirmID, field EncryptedField) ([]byte, error) {
	meta, key, err := s.keyring.KeyByID(ctx, firmID, field.KeyID)
	if err != nil {
		return nil, err
	}
	if !meta.CanDecrypt() {
		return nil, dErrors.Newf(dErrors.CodeEncryptionFailure,
			"key %s is %s and cannot decrypt", meta.KeyID, meta.Status)
	}
	return Decrypt(field, key)
}
