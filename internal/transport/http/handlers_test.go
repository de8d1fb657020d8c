package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"lexgate/internal/alert"
	"lexgate/internal/audit"
	"lexgate/internal/classify"
	"lexgate/internal/conversation"
	"lexgate/internal/coordinator"
	"lexgate/internal/fieldcrypt"
	"lexgate/internal/index"
	"lexgate/internal/jwttoken"
	"lexgate/internal/platform/logger"
	id "lexgate/pkg/domain"
	"lexgate/pkg/requestcontext"
)

type TransportSuite struct {
	suite.Suite

	router     http.Handler
	tokens     *jwttoken.Service
	ident      jwttoken.Identity
	token      string
	ledger     *audit.Ledger
	alertStore *alert.InMemoryStore
	idxStore   *index.InMemoryStore
	runtime    *conversation.Runtime
	projector  *index.Projector
}

func (s *TransportSuite) SetupTest() {
	log := logger.Nop()

	auditStore := audit.NewInMemoryStore()
	alertStore := alert.NewInMemoryStore()
	engine := alert.NewEngine(alert.DefaultEngineConfig(), alertStore, alert.NewInMemoryWindow(15*time.Minute))
	ledger := audit.NewLedger(auditStore, audit.WithObserver(engine))

	master := bytes.Repeat([]byte{0x42}, 32)
	keyring, err := fieldcrypt.NewKeyring(fieldcrypt.NewInMemoryStore(), master)
	s.Require().NoError(err)

	runtime := conversation.NewRuntime(conversation.NewInMemoryStore(), log)
	idxStore := index.NewInMemoryStore()
	projector := index.NewProjector(index.DefaultProjectorConfig(), idxStore, log)

	coord := coordinator.New(
		classify.NewEngine(),
		fieldcrypt.NewService(keyring),
		runtime,
		ledger,
		projector,
		log,
	)

	tokens := jwttoken.NewService([]byte("transport-test-key"), "lexgate")
	handler := NewHandler(coord, ledger, alert.NewService(alertStore, log), keyring, idxStore, log)

	s.router = NewRouter(handler, tokens)
	s.tokens = tokens
	s.ident = jwttoken.Identity{
		FirmID:    id.NewFirmID(),
		UserID:    id.NewUserID(),
		SessionID: id.NewSessionID(),
	}
	s.token, err = tokens.Issue(s.ident, time.Hour)
	s.Require().NoError(err)
	s.ledger = ledger
	s.alertStore = alertStore
	s.idxStore = idxStore
	s.runtime = runtime
	s.projector = projector
}

func (s *TransportSuite) TearDownTest() {
	s.projector.Close()
	s.runtime.Close()
}

func (s *TransportSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	return s.doAs(method, path, body, s.token)
}

func (s *TransportSuite) doAs(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *TransportSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(v))
}

func (s *TransportSuite) startConversation() ConversationResponse {
	rec := s.do(http.MethodPost, "/v1/conversations", nil)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var resp ConversationResponse
	s.decode(rec, &resp)
	return resp
}

func (s *TransportSuite) TestRequiresBearerToken() {
	rec := s.doAs(http.MethodPost, "/v1/conversations", nil, "")
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *TransportSuite) TestRejectedTokenIsAudited() {
	forged := jwttoken.NewService([]byte("some-other-key"), "lexgate")
	badToken, err := forged.Issue(s.ident, time.Hour)
	s.Require().NoError(err)

	rec := s.doAs(http.MethodPost, "/v1/conversations", nil, badToken)
	s.Equal(http.StatusUnauthorized, rec.Code)

	entries, err := s.ledger.List(context.Background(), s.ident.FirmID, audit.Filter{
		Action: audit.ActionUserAuthenticated,
	})
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.False(entries[0].Success)
	s.Equal(s.ident.UserID, entries[0].UserID)
}

func (s *TransportSuite) TestRepeatedAuthFailuresRaiseAlert() {
	forged := jwttoken.NewService([]byte("some-other-key"), "lexgate")
	badToken, err := forged.Issue(s.ident, time.Hour)
	s.Require().NoError(err)

	for range 5 {
		rec := s.doAs(http.MethodGet, "/v1/conversations", nil, badToken)
		s.Require().Equal(http.StatusUnauthorized, rec.Code)
	}

	rec := s.do(http.MethodGet, "/v1/alerts?type=failed_authentication", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp struct {
		Alerts []alert.Alert `json:"alerts"`
	}
	s.decode(rec, &resp)
	s.Require().Len(resp.Alerts, 1)
	s.Equal(alert.TypeFailedAuthentication, resp.Alerts[0].Type)
	s.Equal(alert.SeverityMedium, resp.Alerts[0].Severity)
}

func (s *TransportSuite) TestStartAndGetConversation() {
	created := s.startConversation()
	s.Equal(conversation.StatusCreated, created.Status)
	s.Equal(conversation.PhaseGreeting, created.Phase)

	rec := s.do(http.MethodGet, "/v1/conversations/"+created.ConversationID.String(), nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var got ConversationResponse
	s.decode(rec, &got)
	s.Equal(created.ConversationID, got.ConversationID)
}

func (s *TransportSuite) TestGetUnknownConversation() {
	rec := s.do(http.MethodGet, "/v1/conversations/"+id.NewConversationID().String(), nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *TransportSuite) TestMalformedConversationID() {
	rec := s.do(http.MethodGet, "/v1/conversations/not-a-uuid", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *TransportSuite) TestPostMessageClassifiesContent() {
	conv := s.startConversation()

	rec := s.do(http.MethodPost, "/v1/conversations/"+conv.ConversationID.String()+"/messages", PostMessageRequest{
		Sender: "client",
		Text:   "My SSN is 123-45-6789 and my diagnosis is a herniated disc",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var resp MessageResponse
	s.decode(rec, &resp)
	s.True(resp.Class.ContainsPHI)
	s.Equal(classify.LevelRestricted, resp.Class.Level)
	s.Equal(conversation.StatusActive, resp.Status)
	s.False(resp.MessageID.IsNil())
}

func (s *TransportSuite) TestConversationViewOmitsContent() {
	conv := s.startConversation()
	plaintext := "my phone number is 555-867-5309"

	rec := s.do(http.MethodPost, "/v1/conversations/"+conv.ConversationID.String()+"/messages", PostMessageRequest{
		Sender: "client",
		Text:   plaintext,
	})
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.do(http.MethodGet, "/v1/conversations/"+conv.ConversationID.String(), nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.NotContains(rec.Body.String(), plaintext)

	var got ConversationResponse
	s.decode(rec, &got)
	s.Require().Len(got.Messages, 1)
	s.Equal(conversation.SenderClient, got.Messages[0].Sender)
}

func (s *TransportSuite) TestPostMessageValidation() {
	conv := s.startConversation()
	path := "/v1/conversations/" + conv.ConversationID.String() + "/messages"

	rec := s.do(http.MethodPost, path, PostMessageRequest{Sender: "client", Text: "   "})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, path, PostMessageRequest{Sender: "intruder", Text: "hello"})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *TransportSuite) TestExportReturnsDecryptedMessages() {
	conv := s.startConversation()
	text := "I was rear-ended on Route 9 last Tuesday"

	rec := s.do(http.MethodPost, "/v1/conversations/"+conv.ConversationID.String()+"/messages", PostMessageRequest{
		Sender: "client",
		Text:   text,
	})
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPost, "/v1/conversations/"+conv.ConversationID.String()+"/export", ExportRequest{Format: "json"})
	s.Require().Equal(http.StatusOK, rec.Code)

	var export coordinator.Export
	s.decode(rec, &export)
	s.Require().Len(export.Messages, 1)
	s.Equal(text, export.Messages[0].Text)
}

func (s *TransportSuite) TestRecordIdentityEndpoint() {
	conv := s.startConversation()
	base := "/v1/conversations/" + conv.ConversationID.String()

	rec := s.do(http.MethodPost, base+"/identity", IdentityRequest{Identity: "Dana Whitfield"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.NotContains(rec.Body.String(), "Dana Whitfield")

	var resp ConversationResponse
	s.decode(rec, &resp)
	s.Require().NotNil(resp.IdentityClass)
	s.True(resp.IdentityClass.ContainsPII)
	s.Equal(classify.LevelConfidential, resp.IdentityClass.Level)

	rec = s.do(http.MethodPost, base+"/identity", IdentityRequest{Identity: "   "})
	s.Equal(http.StatusBadRequest, rec.Code)

	// The export path is the only way the identity leaves in plaintext.
	rec = s.do(http.MethodPost, base+"/export", ExportRequest{})
	s.Require().Equal(http.StatusOK, rec.Code)

	var export coordinator.Export
	s.decode(rec, &export)
	s.Equal("Dana Whitfield", export.ClientIdentity)

	entries, err := s.ledger.List(context.Background(), s.ident.FirmID, audit.Filter{
		Action: audit.ActionIdentityRecorded,
	})
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
}

func (s *TransportSuite) TestListConversationsServedFromIndex() {
	conv := s.startConversation()

	// The projection is applied by a detached worker; poll until it lands.
	s.Eventually(func() bool {
		_, err := s.idxStore.Get(context.Background(), s.ident.FirmID, conv.ConversationID)
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)

	rec := s.do(http.MethodGet, "/v1/conversations", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp struct {
		Conversations []index.Projection `json:"conversations"`
	}
	s.decode(rec, &resp)
	s.Require().Len(resp.Conversations, 1)
	s.Equal(conv.ConversationID, resp.Conversations[0].ConversationID)
}

func (s *TransportSuite) TestLifecycleEndpoints() {
	conv := s.startConversation()
	base := "/v1/conversations/" + conv.ConversationID.String()

	rec := s.do(http.MethodPost, base+"/messages", PostMessageRequest{Sender: "client", Text: "hello"})
	s.Require().Equal(http.StatusCreated, rec.Code)

	staff := id.NewUserID()
	rec = s.do(http.MethodPost, base+"/assignment", AssignRequest{UserID: staff.String()})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var assigned ConversationResponse
	s.decode(rec, &assigned)
	s.Equal(staff, assigned.AssignedTo)

	rec = s.do(http.MethodPost, base+"/phase", PhaseRequest{Phase: "information_gathering"})
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, base+"/status", StatusRequest{Status: "completed"})
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodDelete, base, nil)
	s.Require().Equal(http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, base, nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *TransportSuite) TestInvalidStatusTransition() {
	conv := s.startConversation()

	rec := s.do(http.MethodPost, "/v1/conversations/"+conv.ConversationID.String()+"/status", StatusRequest{
		Status: "completed",
	})
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *TransportSuite) TestAuditEndpoints() {
	conv := s.startConversation()

	rec := s.do(http.MethodGet, "/v1/audit/entries?action=conversation_created", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var listed struct {
		Entries []AuditEntryResponse `json:"entries"`
	}
	s.decode(rec, &listed)
	s.Require().Len(listed.Entries, 1)
	s.Equal(conv.ConversationID.String(), listed.Entries[0].ResourceID)

	rec = s.do(http.MethodGet, "/v1/audit/entries/"+listed.Entries[0].AuditID.String(), nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/v1/audit/entries?action=bogus_action", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *TransportSuite) TestVerifyChainEndpoint() {
	conv := s.startConversation()
	for i := range 3 {
		rec := s.do(http.MethodPost, "/v1/conversations/"+conv.ConversationID.String()+"/messages", PostMessageRequest{
			Sender: "client",
			Text:   fmt.Sprintf("message %d", i),
		})
		s.Require().Equal(http.StatusCreated, rec.Code)
	}

	rec := s.do(http.MethodPost, "/v1/audit/verify", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp VerifyResponse
	s.decode(rec, &resp)
	s.True(resp.Intact)
	s.Empty(resp.Findings)
}

// rewritingAuditStore hands VerifyChain a chain whose oldest entry was
// altered after the fact.
type rewritingAuditStore struct {
	*audit.InMemoryStore
}

func (s *rewritingAuditStore) Chain(ctx context.Context, firmID id.FirmID) ([]audit.Entry, error) {
	entries, err := s.InMemoryStore.Chain(ctx, firmID)
	if len(entries) > 0 {
		entries[0].ResourceID = "rewritten"
	}
	return entries, err
}

func TestVerifyChainDamageRaisesCriticalAlert(t *testing.T) {
	log := logger.Nop()
	store := &rewritingAuditStore{InMemoryStore: audit.NewInMemoryStore()}
	alertStore := alert.NewInMemoryStore()
	engine := alert.NewEngine(alert.DefaultEngineConfig(), alertStore,
		alert.NewInMemoryWindow(15*time.Minute), alert.WithEngineLogger(log))
	ledger := audit.NewLedger(store, audit.WithLedgerLogger(log), audit.WithObserver(engine))

	firmID := id.NewFirmID()
	ctx := requestcontext.WithFirmID(context.Background(), firmID)
	_, err := ledger.Append(ctx, audit.Record{
		Action:       audit.ActionConversationCreated,
		ResourceType: "conversation",
		ResourceID:   "c-1",
		Success:      true,
	})
	require.NoError(t, err)

	h := NewHandler(nil, ledger, alert.NewService(alertStore, log), nil, nil, log)

	req := httptest.NewRequest(http.MethodPost, "/v1/audit/verify", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.HandleVerifyChain(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp VerifyResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.False(t, resp.Intact)
	require.Len(t, resp.Findings, 1)

	// The damage is appended to the chain itself, and the observer raises
	// the critical alert from that entry.
	entries, err := ledger.List(ctx, firmID, audit.Filter{Action: audit.ActionIntegrityViolation})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	alerts, err := alertStore.List(ctx, firmID, alert.Filter{Type: alert.TypeIntegrityViolation})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, alert.SeverityCritical, alerts[0].Severity)
	require.Equal(t, []id.AuditID{entries[0].AuditID}, alerts[0].RelatedAuditIDs)
}

func (s *TransportSuite) TestAlertInvestigationWorkflow() {
	seeded := alert.Alert{
		AlertID:   id.NewAlertID(),
		FirmID:    s.ident.FirmID,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
		Type:      alert.TypeAnomalousAccess,
		Severity:  alert.SeverityHigh,
		Status:    alert.StatusOpen,
	}
	s.Require().NoError(s.alertStore.Insert(context.Background(), seeded))

	base := "/v1/alerts/" + seeded.AlertID.String()

	rec := s.do(http.MethodPost, base+"/status", AlertStatusRequest{Status: "investigating"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, base+"/status", AlertStatusRequest{Status: "resolved"})
	s.Require().Equal(http.StatusOK, rec.Code)

	// Resolved is terminal.
	rec = s.do(http.MethodPost, base+"/status", AlertStatusRequest{Status: "open"})
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *TransportSuite) TestKeyRotationEndpoint() {
	conv := s.startConversation()
	text := "pre-rotation message"
	rec := s.do(http.MethodPost, "/v1/conversations/"+conv.ConversationID.String()+"/messages", PostMessageRequest{
		Sender: "client",
		Text:   text,
	})
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPost, "/v1/keys/rotate", RotateKeyRequest{Purpose: "message_content"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var meta fieldcrypt.KeyMetadata
	s.decode(rec, &meta)
	s.Equal(fieldcrypt.KeyStatusActive, meta.Status)

	entries, err := s.ledger.List(context.Background(), s.ident.FirmID, audit.Filter{
		Action: audit.ActionKeyRotated,
	})
	s.Require().NoError(err)
	s.Require().Len(entries, 1)

	// Content written under the previous key must still decrypt.
	rec = s.do(http.MethodPost, "/v1/conversations/"+conv.ConversationID.String()+"/export", ExportRequest{})
	s.Require().Equal(http.StatusOK, rec.Code)

	var export coordinator.Export
	s.decode(rec, &export)
	s.Require().Len(export.Messages, 1)
	s.Equal(text, export.Messages[0].Text)
}

func (s *TransportSuite) TestHealthz() {
	rec := s.doAs(http.MethodGet, "/healthz", nil, "")
	s.Equal(http.StatusOK, rec.Code)
}

func TestTransportSuite(t *testing.T) {
	suite.Run(t, new(TransportSuite))
}
