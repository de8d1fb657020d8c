package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lexgate/internal/classify"
)

func TestRiskScore(t *testing.T) {
	business := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	night := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	lateEvening := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)

	phi := classify.Classification{
		ContainsPII: true, ContainsPHI: true, ContainsMedicalInfo: true,
		Level: classify.LevelRestricted,
	}
	pii := classify.Classification{ContainsPII: true, Level: classify.LevelConfidential}
	plain := classify.Classification{Level: classify.LevelPublic}

	tests := []struct {
		name    string
		action  Action
		class   classify.Classification
		ts      time.Time
		success bool
		want    int
	}{
		{"plain read in business hours", ActionMessageAdded, plain, business, true, 0},
		{"phi content", ActionMessageAdded, phi, business, true, 40},
		{"pii content", ActionMessageAdded, pii, business, true, 25},
		{"confidential without flags", ActionMessageAdded, classify.Classification{Level: classify.LevelConfidential}, business, true, 15},
		{"off hours early morning", ActionMessageAdded, plain, night, true, 20},
		{"off hours late evening", ActionMessageAdded, plain, lateEvening, true, 20},
		{"export action", ActionDataExported, plain, business, true, 20},
		{"deletion action", ActionConversationDeleted, plain, business, true, 20},
		{"configuration change", ActionConfigurationChanged, plain, business, true, 20},
		{"access denied", ActionAccessDenied, plain, business, true, 15},
		{"failed operation", ActionMessageAdded, plain, business, false, 10},
		{"phi export at night", ActionDataExported, phi, night, true, 80},
		{"failed phi export at night", ActionDataExported, phi, night, false, 90},
		{"denied phi access at night failing", ActionAccessDenied, phi, night, false, 85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, riskScore(tt.action, tt.class, tt.ts, tt.success))
		})
	}
}

func TestRiskScoreCap(t *testing.T) {
	// Denied export of PHI at night that also failed would sum past the
	// cap if the individual action bonuses stacked further; force the cap
	// with the densest combination the rubric allows.
	phi := classify.Classification{ContainsPHI: true, Level: classify.LevelRestricted}
	night := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)

	score := riskScore(ActionDataExported, phi, night, false)
	assert.LessOrEqual(t, score, maxRiskScore)
}

func TestRiskScoreBoundaryHours(t *testing.T) {
	plain := classify.Classification{Level: classify.LevelPublic}

	sixAM := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	tenPM := time.Date(2026, 3, 10, 22, 59, 0, 0, time.UTC)
	assert.Equal(t, 0, riskScore(ActionMessageAdded, plain, sixAM, true), "06:00 is inside business hours")
	assert.Equal(t, 0, riskScore(ActionMessageAdded, plain, tenPM, true), "22:59 is inside business hours")

	fiveFiftyNine := time.Date(2026, 3, 10, 5, 59, 0, 0, time.UTC)
	assert.Equal(t, 20, riskScore(ActionMessageAdded, plain, fiveFiftyNine, true))
}
