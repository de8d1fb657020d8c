package alert

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"lexgate/internal/audit"
	"lexgate/internal/classify"
	"lexgate/internal/platform/logger"
	id "lexgate/pkg/domain"
)

type EngineSuite struct {
	suite.Suite
	store  *InMemoryStore
	engine *Engine
	firmID id.FirmID
	ctx    context.Context
}

func (s *EngineSuite) SetupTest() {
	s.store = NewInMemoryStore()
	cfg := DefaultEngineConfig()
	s.engine = NewEngine(cfg, s.store, NewInMemoryWindow(cfg.FailedAuthWindow),
		WithEngineLogger(logger.Nop()))
	s.firmID = id.NewFirmID()
	s.ctx = context.Background()
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) entry(action audit.Action) audit.Entry {
	return audit.Entry{
		AuditID:      id.NewAuditID(),
		Timestamp:    time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
		FirmID:       s.firmID,
		UserID:       id.NewUserID(),
		Action:       action,
		ResourceType: "conversation",
		ResourceID:   "c-1",
		AccessMethod: "api",
		Success:      true,
	}
}

func (s *EngineSuite) alerts() []Alert {
	out, err := s.store.List(s.ctx, s.firmID, Filter{})
	s.Require().NoError(err)
	return out
}

func (s *EngineSuite) TestBenignEntryRaisesNothing() {
	s.engine.EntryAppended(s.ctx, s.entry(audit.ActionMessageAdded))
	s.Empty(s.alerts())
}

func (s *EngineSuite) TestHighRiskEntryRaisesAnomalousAccess() {
	e := s.entry(audit.ActionDataExported)
	e.Timestamp = time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	e.Class = classify.Classification{ContainsPHI: true, Level: classify.LevelRestricted}
	e.RiskScore = 80

	s.engine.EntryAppended(s.ctx, e)

	alerts := s.alerts()
	s.Require().Len(alerts, 1)
	s.Equal(TypeAnomalousAccess, alerts[0].Type)
	s.Equal(SeverityHigh, alerts[0].Severity)
	s.Equal(StatusOpen, alerts[0].Status)
	s.Equal([]string{"conversation/c-1"}, alerts[0].AffectedResources)
	s.Equal([]id.AuditID{e.AuditID}, alerts[0].RelatedAuditIDs)
}

func (s *EngineSuite) TestRiskBelowThresholdStaysQuiet() {
	e := s.entry(audit.ActionDataExported)
	e.RiskScore = 79

	s.engine.EntryAppended(s.ctx, e)
	s.Empty(s.alerts())
}

func (s *EngineSuite) TestFifthFailedLoginRaisesOneAlert() {
	userID := id.NewUserID()
	base := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		e := s.entry(audit.ActionUserAuthenticated)
		e.UserID = userID
		e.Success = false
		e.Timestamp = base.Add(time.Duration(i) * time.Minute)
		s.engine.EntryAppended(s.ctx, e)
	}

	alerts := s.alerts()
	s.Require().Len(alerts, 1, "the fifth failure alerts, the sixth is part of the same burst")
	s.Equal(TypeFailedAuthentication, alerts[0].Type)
	s.Equal(SeverityMedium, alerts[0].Severity)
	s.Equal(userID, alerts[0].UserID)
}

func (s *EngineSuite) TestFailuresOutsideWindowDoNotAccumulate() {
	userID := id.NewUserID()
	base := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	// Four failures, a quiet half hour, then four more. Neither burst
	// reaches five inside one window.
	for i := 0; i < 4; i++ {
		e := s.entry(audit.ActionUserAuthenticated)
		e.UserID = userID
		e.Success = false
		e.Timestamp = base.Add(time.Duration(i) * time.Minute)
		s.engine.EntryAppended(s.ctx, e)
	}
	for i := 0; i < 4; i++ {
		e := s.entry(audit.ActionUserAuthenticated)
		e.UserID = userID
		e.Success = false
		e.Timestamp = base.Add(30*time.Minute + time.Duration(i)*time.Minute)
		s.engine.EntryAppended(s.ctx, e)
	}

	s.Empty(s.alerts())
}

func (s *EngineSuite) TestFailedLoginsCountPerUser() {
	base := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	// Three failures each for two users never crosses the threshold.
	for _, userID := range []id.UserID{id.NewUserID(), id.NewUserID()} {
		for i := 0; i < 3; i++ {
			e := s.entry(audit.ActionUserAuthenticated)
			e.UserID = userID
			e.Success = false
			e.Timestamp = base.Add(time.Duration(i) * time.Second)
			s.engine.EntryAppended(s.ctx, e)
		}
	}

	s.Empty(s.alerts())
}

func (s *EngineSuite) TestLargeExportRaisesMassExport() {
	e := s.entry(audit.ActionDataExported)
	e.Metadata = audit.ExportMetadata{ResourceCount: 60, Format: "csv"}

	s.engine.EntryAppended(s.ctx, e)

	alerts := s.alerts()
	s.Require().Len(alerts, 1)
	s.Equal(TypeMassExport, alerts[0].Type)
	s.Equal(SeverityHigh, alerts[0].Severity)
}

func (s *EngineSuite) TestExportAtThresholdStaysQuiet() {
	e := s.entry(audit.ActionDataExported)
	e.Metadata = audit.ExportMetadata{ResourceCount: 50, Format: "csv"}

	s.engine.EntryAppended(s.ctx, e)
	s.Empty(s.alerts())
}

func (s *EngineSuite) TestIntegrityViolationAlwaysCritical() {
	e := s.entry(audit.ActionIntegrityViolation)
	e.RiskScore = 0

	s.engine.EntryAppended(s.ctx, e)

	alerts := s.alerts()
	s.Require().Len(alerts, 1)
	s.Equal(TypeIntegrityViolation, alerts[0].Type)
	s.Equal(SeverityCritical, alerts[0].Severity)
}

func (s *EngineSuite) TestPersistFailureDoesNotPanicOrPropagate() {
	failing := &failingStore{}
	cfg := DefaultEngineConfig()
	engine := NewEngine(cfg, failing, NewInMemoryWindow(cfg.FailedAuthWindow),
		WithEngineLogger(logger.Nop()))

	e := s.entry(audit.ActionIntegrityViolation)
	engine.EntryAppended(s.ctx, e)

	s.Equal(2, failing.inserts, "one retry after the initial failure")
}

type failingStore struct {
	InMemoryStore
	inserts int
}

func (f *failingStore) Insert(context.Context, Alert) error {
	f.inserts++
	return context.DeadlineExceeded
}
