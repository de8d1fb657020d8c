package audit

import (
	"time"

	"lexgate/internal/classify"
)

const maxRiskScore = 100

// Off-hours boundaries, local wall clock of the entry timestamp.
const (
	offHoursBefore = 6
	offHoursAfter  = 22
)

// riskScore derives an entry's risk from its classification, timing, action
// and outcome. The contributions are additive and the total is capped.
//
// The sensitivity contribution is tiered, not stacked: PHI dominates, then
// PII or medical content, then a plain Confidential label.
func riskScore(action Action, class classify.Classification, ts time.Time, success bool) int {
	score := 0

	switch {
	case class.ContainsPHI:
		score += 40
	case class.ContainsPII || class.ContainsMedicalInfo:
		score += 25
	case class.Level == classify.LevelConfidential:
		score += 15
	}

	if h := ts.Hour(); h < offHoursBefore || h > offHoursAfter {
		score += 20
	}

	if highImpactActions[action] {
		score += 20
	}
	if action == ActionAccessDenied {
		score += 15
	}
	if !success {
		score += 10
	}

	if score > maxRiskScore {
		score = maxRiskScore
	}
	return score
}
