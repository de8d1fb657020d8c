package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"lexgate/internal/classify"
	id "lexgate/pkg/domain"
	"lexgate/pkg/platform/sentinel"
)

// PostgresStore persists audit entries. The table has no UPDATE or DELETE
// path in this codebase; append order is fixed by a bigserial sequence
// column, which also makes the tail lookup an index scan.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed audit store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const entryColumns = `
	audit_id, created_at, firm_id, user_id, session_id, action,
	resource_type, resource_id, contains_pii, contains_phi,
	contains_medical_info, classification_level, access_method, success,
	risk_score, metadata, audit_hash, previous_hash
`

func (s *PostgresStore) Append(ctx context.Context, e Entry) error {
	metadata, err := EncodeMetadata(e.Metadata)
	if err != nil {
		return fmt.Errorf("encode audit metadata: %w", err)
	}

	query := `
		INSERT INTO audit_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(e.AuditID),
		e.Timestamp,
		uuid.UUID(e.FirmID),
		nullableID(uuid.UUID(e.UserID)),
		nullableID(uuid.UUID(e.SessionID)),
		string(e.Action),
		e.ResourceType,
		e.ResourceID,
		e.Class.ContainsPII,
		e.Class.ContainsPHI,
		e.Class.ContainsMedicalInfo,
		string(e.Class.Level),
		e.AccessMethod,
		e.Success,
		e.RiskScore,
		metadata,
		e.AuditHash,
		nullableString(e.PreviousHash),
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, firmID id.FirmID, auditID id.AuditID) (Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM audit_entries WHERE firm_id = $1 AND audit_id = $2`
	return scanEntry(s.db.QueryRowContext(ctx, query, uuid.UUID(firmID), uuid.UUID(auditID)))
}

func (s *PostgresStore) Tail(ctx context.Context, firmID id.FirmID) (Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM audit_entries WHERE firm_id = $1 ORDER BY seq DESC LIMIT 1`
	return scanEntry(s.db.QueryRowContext(ctx, query, uuid.UUID(firmID)))
}

func (s *PostgresStore) Successor(ctx context.Context, firmID id.FirmID, auditID id.AuditID) (Entry, error) {
	query := `
		SELECT ` + entryColumns + ` FROM audit_entries
		WHERE firm_id = $1
		  AND seq > (SELECT seq FROM audit_entries WHERE firm_id = $1 AND audit_id = $2)
		ORDER BY seq LIMIT 1
	`
	return scanEntry(s.db.QueryRowContext(ctx, query, uuid.UUID(firmID), uuid.UUID(auditID)))
}

func (s *PostgresStore) List(ctx context.Context, firmID id.FirmID, f Filter) ([]Entry, error) {
	var (
		conds = []string{"firm_id = $1"}
		args  = []any{uuid.UUID(firmID)}
	)
	if f.Action != "" {
		args = append(args, string(f.Action))
		conds = append(conds, fmt.Sprintf("action = $%d", len(args)))
	}
	if !f.UserID.IsNil() {
		args = append(args, uuid.UUID(f.UserID))
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	query := `SELECT ` + entryColumns + ` FROM audit_entries WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY seq DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return s.queryEntries(ctx, query, args...)
}

func (s *PostgresStore) Chain(ctx context.Context, firmID id.FirmID) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM audit_entries WHERE firm_id = $1 ORDER BY seq`
	return s.queryEntries(ctx, query, uuid.UUID(firmID))
}

func (s *PostgresStore) queryEntries(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntryRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row *sql.Row) (Entry, error) {
	e, err := scanEntryRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, sentinel.ErrNotFound
	}
	return e, err
}

func scanEntryRow(row rowScanner) (Entry, error) {
	var (
		e         Entry
		auditID   uuid.UUID
		firmID    uuid.UUID
		userID    uuid.NullUUID
		sessionID uuid.NullUUID
		action    string
		level     string
		metadata  []byte
		prevHash  sql.NullString
	)
	err := row.Scan(
		&auditID, &e.Timestamp, &firmID, &userID, &sessionID, &action,
		&e.ResourceType, &e.ResourceID, &e.Class.ContainsPII, &e.Class.ContainsPHI,
		&e.Class.ContainsMedicalInfo, &level, &e.AccessMethod, &e.Success,
		&e.RiskScore, &metadata, &e.AuditHash, &prevHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, err
	}
	if err != nil {
		return Entry{}, fmt.Errorf("scan audit entry: %w", err)
	}

	e.AuditID = id.AuditID(auditID)
	e.FirmID = id.FirmID(firmID)
	if userID.Valid {
		e.UserID = id.UserID(userID.UUID)
	}
	if sessionID.Valid {
		e.SessionID = id.SessionID(sessionID.UUID)
	}
	e.Action = Action(action)
	e.Class.Level = classify.Level(level)
	e.Class.RequiresEncryption = e.Class.ContainsPII || e.Class.ContainsMedicalInfo
	e.PreviousHash = prevHash.String

	e.Metadata, err = DecodeMetadata(metadata)
	if err != nil {
		return Entry{}, fmt.Errorf("decode audit metadata: %w", err)
	}
	return e, nil
}

func nullableID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
