package audit

import (
	"context"
	"errors"
	"fmt"

	id "lexgate/pkg/domain"
	dErrors "lexgate/pkg/domain-errors"
	"lexgate/pkg/platform/sentinel"
)

// FindingKind classifies an integrity finding.
type FindingKind string

const (
	FindingHashMismatch FindingKind = "hash_mismatch"
	FindingBrokenLink   FindingKind = "broken_link"
	FindingBadGenesis   FindingKind = "bad_genesis"
)

// Finding describes one detected integrity violation.
type Finding struct {
	Kind    FindingKind
	AuditID id.AuditID
	Detail  string
}

// VerifyEntry recomputes one entry's hash against its stored value, then
// confirms the next entry in the chain still links back to it. A hash
// mismatch means the row was altered after it was written; a broken
// successor link means the chain was spliced around it.
func (l *Ledger) VerifyEntry(ctx context.Context, firmID id.FirmID, auditID id.AuditID) error {
	e, err := l.store.Get(ctx, firmID, auditID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "audit entry not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "load audit entry")
	}
	if err := verifyHash(e); err != nil {
		return err
	}

	next, err := l.store.Successor(ctx, firmID, auditID)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		// Chain tail; no successor to verify.
		return nil
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "load successor audit entry")
	}
	if next.PreviousHash != e.AuditHash {
		verifyFailures.WithLabelValues(string(FindingBrokenLink)).Inc()
		return dErrors.Newf(dErrors.CodeIntegrityViolation,
			"audit entry %s is not linked by its successor %s", e.AuditID, next.AuditID)
	}
	return nil
}

// VerifyChain walks a firm's entire chain oldest-first and reports every
// violation found: recomputed-hash mismatches, broken previous-hash links,
// and a non-empty previous hash on the first entry. An empty chain is valid.
//
// When violations exist the returned error carries CodeIntegrityViolation;
// the findings slice is returned in both cases so callers can report
// partial damage.
func (l *Ledger) VerifyChain(ctx context.Context, firmID id.FirmID) ([]Finding, error) {
	entries, err := l.store.Chain(ctx, firmID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load audit chain")
	}

	var findings []Finding
	prevHash := ""
	for i, e := range entries {
		if err := verifyHash(e); err != nil {
			verifyFailures.WithLabelValues(string(FindingHashMismatch)).Inc()
			findings = append(findings, Finding{
				Kind:    FindingHashMismatch,
				AuditID: e.AuditID,
				Detail:  "stored hash does not match recomputed hash",
			})
		}
		switch {
		case i == 0 && e.PreviousHash != "":
			verifyFailures.WithLabelValues(string(FindingBadGenesis)).Inc()
			findings = append(findings, Finding{
				Kind:    FindingBadGenesis,
				AuditID: e.AuditID,
				Detail:  "first entry carries a previous hash",
			})
		case i > 0 && e.PreviousHash != prevHash:
			verifyFailures.WithLabelValues(string(FindingBrokenLink)).Inc()
			findings = append(findings, Finding{
				Kind:    FindingBrokenLink,
				AuditID: e.AuditID,
				Detail:  fmt.Sprintf("previous hash does not link to entry %s", entries[i-1].AuditID),
			})
		}
		prevHash = e.AuditHash
	}

	if len(findings) > 0 {
		return findings, dErrors.Newf(dErrors.CodeIntegrityViolation,
			"audit chain verification found %d violation(s)", len(findings))
	}
	return nil, nil
}

func verifyHash(e Entry) error {
	recomputed, err := ComputeHash(e)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "recompute audit hash")
	}
	if recomputed != e.AuditHash {
		return dErrors.Newf(dErrors.CodeIntegrityViolation,
			"audit entry %s hash mismatch", e.AuditID)
	}
	return nil
}
