package fieldcrypt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "lexgate/pkg/domain"
	dErrors "lexgate/pkg/domain-errors"
)

type KeyringSuite struct {
	suite.Suite
	ctx     context.Context
	store   *InMemoryStore
	keyring *Keyring
	firmID  id.FirmID
}

func TestKeyringSuite(t *testing.T) {
	suite.Run(t, new(KeyringSuite))
}

func (s *KeyringSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
	master := make([]byte, 32)
	copy(master, []byte("0123456789abcdef0123456789abcdef"))
	keyring, err := NewKeyring(s.store, master)
	s.Require().NoError(err)
	s.keyring = keyring
	s.firmID = id.NewFirmID()
}

func (s *KeyringSuite) TestActiveKey_GeneratesOnFirstUse() {
	meta, key, err := s.keyring.ActiveKey(s.ctx, s.firmID, PurposeMessageContent)
	s.Require().NoError(err)
	s.Equal(KeyStatusActive, meta.Status)
	s.Equal(s.firmID, meta.FirmID)
	s.Equal(AlgorithmAESGCM, meta.Algorithm)
	s.Len(key, 32)
	s.Equal(meta.CreatedAt.Add(DefaultRotationInterval), meta.RotationDue)

	// Second call returns the same key, not a new one.
	again, key2, err := s.keyring.ActiveKey(s.ctx, s.firmID, PurposeMessageContent)
	s.Require().NoError(err)
	s.Equal(meta.KeyID, again.KeyID)
	s.Equal(key, key2)
}

func (s *KeyringSuite) TestActiveKey_PurposesAreIsolated() {
	content, _, err := s.keyring.ActiveKey(s.ctx, s.firmID, PurposeMessageContent)
	s.Require().NoError(err)
	identity, _, err := s.keyring.ActiveKey(s.ctx, s.firmID, PurposeUserIdentity)
	s.Require().NoError(err)
	s.NotEqual(content.KeyID, identity.KeyID)
}

func (s *KeyringSuite) TestRotate_OldKeyStillDecrypts() {
	oldMeta, oldKey, err := s.keyring.ActiveKey(s.ctx, s.firmID, PurposeMessageContent)
	s.Require().NoError(err)

	field, err := Encrypt([]byte("pre-rotation secret"), oldKey, oldMeta.KeyID)
	s.Require().NoError(err)

	newMeta, err := s.keyring.Rotate(s.ctx, s.firmID, PurposeMessageContent)
	s.Require().NoError(err)
	s.NotEqual(oldMeta.KeyID, newMeta.KeyID)
	s.Equal(KeyStatusActive, newMeta.Status)

	// The deprecated key is still reachable for decryption.
	fetched, fetchedKey, err := s.keyring.KeyByID(s.ctx, s.firmID, oldMeta.KeyID)
	s.Require().NoError(err)
	s.Equal(KeyStatusDeprecated, fetched.Status)

	plaintext, err := Decrypt(field, fetchedKey)
	s.Require().NoError(err)
	s.Equal([]byte("pre-rotation secret"), plaintext)

	// New writes land under the successor.
	activeMeta, _, err := s.keyring.ActiveKey(s.ctx, s.firmID, PurposeMessageContent)
	s.Require().NoError(err)
	s.Equal(newMeta.KeyID, activeMeta.KeyID)
}

func (s *KeyringSuite) TestRevoke_KeyNoLongerDecrypts() {
	meta, _, err := s.keyring.ActiveKey(s.ctx, s.firmID, PurposeMessageContent)
	s.Require().NoError(err)

	s.Require().NoError(s.keyring.Revoke(s.ctx, s.firmID, meta.KeyID))

	_, _, err = s.keyring.KeyByID(s.ctx, s.firmID, meta.KeyID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeEncryptionFailure))
}

func (s *KeyringSuite) TestKeyByID_UnknownKey() {
	_, _, err := s.keyring.KeyByID(s.ctx, s.firmID, id.NewKeyID())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeEncryptionFailure))
}

func (s *KeyringSuite) TestDueForRotation() {
	store := NewInMemoryStore()
	master := make([]byte, 32)
	keyring, err := NewKeyring(store, master, WithRotationInterval(time.Hour))
	s.Require().NoError(err)

	meta, _, err := keyring.ActiveKey(s.ctx, s.firmID, PurposeMessageContent)
	s.Require().NoError(err)

	due, err := keyring.DueForRotation(s.ctx, s.firmID, meta.CreatedAt.Add(30*time.Minute))
	s.Require().NoError(err)
	s.Empty(due)

	due, err = keyring.DueForRotation(s.ctx, s.firmID, meta.CreatedAt.Add(2*time.Hour))
	s.Require().NoError(err)
	s.Require().Len(due, 1)
	s.Equal(meta.KeyID, due[0].KeyID)
}

func (s *KeyringSuite) TestFirmsAreIsolated() {
	otherFirm := id.NewFirmID()

	meta, _, err := s.keyring.ActiveKey(s.ctx, s.firmID, PurposeMessageContent)
	s.Require().NoError(err)

	// The other firm cannot reach this firm's key.
	_, _, err = s.keyring.KeyByID(s.ctx, otherFirm, meta.KeyID)
	s.Require().Error(err)
}

func TestKeyMetadata_NeedsRotation(t *testing.T) {
	now := time.Now()
	meta := KeyMetadata{RotationDue: now.Add(time.Hour)}
	if meta.NeedsRotation(now) {
		t.Fatal("key should not need rotation before the deadline")
	}
	if !meta.NeedsRotation(now.Add(time.Hour)) {
		t.Fatal("key should need rotation at the deadline")
	}
}

func TestKeyStatus_Transitions(t *testing.T) {
	meta := KeyMetadata{Status: KeyStatusDeprecated}
	if err := meta.Transition(KeyStatusActive); err == nil {
		t.Fatal("deprecated keys must not reactivate")
	}
	if err := meta.Transition(KeyStatusRevoked); err != nil {
		t.Fatalf("deprecated -> revoked should be allowed: %v", err)
	}
	if err := meta.Transition(KeyStatusDeprecated); err == nil {
		t.Fatal("revoked is terminal")
	}
}
