// Package fieldcrypt performs authenticated encryption of classified fields
// and manages the per-firm key lifecycle.
//
// All field encryption is AES-256-GCM. The 96-bit IV is generated fresh per
// call; reusing an IV under the same key breaks GCM's authentication
// guarantee, so nothing in this package ever accepts a caller-supplied IV.
package fieldcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"

	id "lexgate/pkg/domain"
	dErrors "lexgate/pkg/domain-errors"
)

const (
	// AlgorithmAESGCM is the only algorithm this service produces.
	AlgorithmAESGCM = "AES-256-GCM"

	keySize = 32 // AES-256
	ivSize  = 12 // 96-bit GCM nonce
	tagSize = 16 // 128-bit auth tag
)

// EncryptedField is a sealed sensitive attribute. It is never mutated in
// place: re-encryption produces a new EncryptedField with a new IV.
type EncryptedField struct {
	Ciphertext []byte   `json:"ciphertext"`
	IV         []byte   `json:"iv"`
	AuthTag    []byte   `json:"auth_tag"`
	Algorithm  string   `json:"algorithm"`
	KeyID      id.KeyID `json:"key_id"`
}

// Encrypt seals plaintext under key, tagging the result with keyID so the
// right key can be located for decryption after rotation.
func Encrypt(plaintext, key []byte, keyID id.KeyID) (EncryptedField, error) {
	if len(key) != keySize {
		return EncryptedField{}, dErrors.Newf(dErrors.CodeEncryptionFailure,
			"key must be %d bytes, got %d", keySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return EncryptedField{}, dErrors.Wrap(err, dErrors.CodeEncryptionFailure, "create cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return EncryptedField{}, dErrors.Wrap(err, dErrors.CodeEncryptionFailure, "create GCM")
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		// Entropy exhaustion is fatal, not retried.
		return EncryptedField{}, dErrors.Wrap(err, dErrors.CodeEncryptionFailure, "generate IV")
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)

	// gcm.Seal appends the tag; the wire format keeps it separate.
	split := len(sealed) - tagSize
	return EncryptedField{
		Ciphertext: sealed[:split],
		IV:         iv,
		AuthTag:    sealed[split:],
		Algorithm:  AlgorithmAESGCM,
		KeyID:      keyID,
	}, nil
}

// Decrypt opens an EncryptedField. Any auth-tag mismatch (tampering, bit
// flip, wrong key) surfaces as CodeIntegrityViolation; callers must log and
// alert it, never swallow it.
func Decrypt(field EncryptedField, key []byte) ([]byte, error) {
	if len(key) != keySize {
		return nil, dErrors.Newf(dErrors.CodeEncryptionFailure,
			"key must be %d bytes, got %d", keySize, len(key))
	}
	if field.Algorithm != AlgorithmAESGCM {
		return nil, dErrors.Newf(dErrors.CodeEncryptionFailure,
			"unsupported algorithm %q", field.Algorithm)
	}
	if len(field.IV) != ivSize {
		return nil, dErrors.New(dErrors.CodeIntegrityViolation, "malformed IV")
	}
	if len(field.AuthTag) != tagSize {
		return nil, dErrors.New(dErrors.CodeIntegrityViolation, "malformed auth tag")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeEncryptionFailure, "create cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeEncryptionFailure, "create GCM")
	}

	sealed := make([]byte, 0, len(field.Ciphertext)+tagSize)
	sealed = append(sealed, field.Ciphertext...)
	sealed = append(sealed, field.AuthTag...)

	plaintext, err := gcm.Open(nil, field.IV, sealed, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeIntegrityViolation, "auth tag verification failed")
	}
	if plaintext == nil {
		// gcm.Open hands back nil for an empty plaintext; keep the
		// round-trip symmetric for callers comparing byte slices.
		plaintext = []byte{}
	}
	return plaintext, nil
}

// ExportKey serializes raw key bytes through a length-prefixed encoding for
// storage and transfer between services.
func ExportKey(key []byte) []byte {
	out := make([]byte, 4+len(key))
	binary.BigEndian.PutUint32(out[:4], uint32(len(key)))
	copy(out[4:], key)
	return out
}

// ImportKey parses a length-prefixed key export, rejecting any byte length
// other than 32 for AES-256.
func ImportKey(encoded []byte) ([]byte, error) {
	if len(encoded) < 4 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "key export truncated")
	}
	declared := binary.BigEndian.Uint32(encoded[:4])
	if int(declared) != len(encoded)-4 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "key export length prefix mismatch")
	}
	if declared != keySize {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput,
			"AES-256 key must be %d bytes, got %d", keySize, declared)
	}
	key := make([]byte, keySize)
	copy(key, encoded[4:])
	return key, nil
}
