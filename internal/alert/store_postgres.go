package alert

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	id "lexgate/pkg/domain"
	"lexgate/pkg/platform/sentinel"
)

// PostgresStore persists alerts in the security_alerts table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed alert store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const alertColumns = `
	alert_id, firm_id, created_at, updated_at, alert_type, severity,
	status, affected_resources, related_audit_ids, user_id, description
`

func (s *PostgresStore) Insert(ctx context.Context, a Alert) error {
	affected, err := json.Marshal(emptyIfNil(a.AffectedResources))
	if err != nil {
		return fmt.Errorf("encode affected resources: %w", err)
	}
	related, err := json.Marshal(emptyIfNil(a.RelatedAuditIDs))
	if err != nil {
		return fmt.Errorf("encode related audit ids: %w", err)
	}

	query := `
		INSERT INTO security_alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(a.AlertID),
		uuid.UUID(a.FirmID),
		a.CreatedAt,
		a.UpdatedAt,
		string(a.Type),
		string(a.Severity),
		string(a.Status),
		affected,
		related,
		nullableID(uuid.UUID(a.UserID)),
		a.Description,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, firmID id.FirmID, alertID id.AlertID) (Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM security_alerts WHERE firm_id = $1 AND alert_id = $2`
	a, err := scanAlert(s.db.QueryRowContext(ctx, query, uuid.UUID(firmID), uuid.UUID(alertID)))
	if errors.Is(err, sql.ErrNoRows) {
		return Alert{}, sentinel.ErrNotFound
	}
	return a, err
}

func (s *PostgresStore) List(ctx context.Context, firmID id.FirmID, f Filter) ([]Alert, error) {
	var (
		conds = []string{"firm_id = $1"}
		args  = []any{uuid.UUID(firmID)}
	)
	if f.Type != "" {
		args = append(args, string(f.Type))
		conds = append(conds, fmt.Sprintf("alert_type = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + alertColumns + ` FROM security_alerts WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, firmID id.FirmID, alertID id.AlertID, status Status, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE security_alerts SET status = $3, updated_at = $4 WHERE firm_id = $1 AND alert_id = $2`,
		uuid.UUID(firmID), uuid.UUID(alertID), string(status), at,
	)
	if err != nil {
		return fmt.Errorf("update alert status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (Alert, error) {
	var (
		a        Alert
		alertID  uuid.UUID
		firmID   uuid.UUID
		affected []byte
		related  []byte
		userID   uuid.NullUUID
		typ      string
		severity string
		status   string
	)
	err := row.Scan(&alertID, &firmID, &a.CreatedAt, &a.UpdatedAt, &typ,
		&severity, &status, &affected, &related, &userID, &a.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return Alert{}, err
	}
	if err != nil {
		return Alert{}, fmt.Errorf("scan alert: %w", err)
	}
	if err := json.Unmarshal(affected, &a.AffectedResources); err != nil {
		return Alert{}, fmt.Errorf("decode affected resources: %w", err)
	}
	if err := json.Unmarshal(related, &a.RelatedAuditIDs); err != nil {
		return Alert{}, fmt.Errorf("decode related audit ids: %w", err)
	}

	a.AlertID = id.AlertID(alertID)
	a.FirmID = id.FirmID(firmID)
	if userID.Valid {
		a.UserID = id.UserID(userID.UUID)
	}
	a.Type = Type(typ)
	a.Severity = Severity(severity)
	a.Status = Status(status)
	return a, nil
}

func nullableID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}

// emptyIfNil keeps jsonb columns as [] instead of null for absent slices.
func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
