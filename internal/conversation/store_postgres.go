package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	id "lexgate/pkg/domain"
	"lexgate/pkg/platform/sentinel"
)

// PostgresStore persists conversation records. Messages travel as one
// jsonb document; the runtime is the only writer, so the document is
// replaced wholesale and Update guards Version to catch contract breaks.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed conversation store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `
	conversation_id, firm_id, created_at, updated_at, status, phase,
	assigned_to, client_identity, messages, version
`

func (s *PostgresStore) Insert(ctx context.Context, rec Record) error {
	messages, err := json.Marshal(rec.Messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}
	identity, err := encodeIdentity(rec.ClientIdentity)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO conversations (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(rec.ConversationID),
		uuid.UUID(rec.FirmID),
		rec.CreatedAt,
		rec.UpdatedAt,
		string(rec.Status),
		string(rec.Phase),
		nullableID(uuid.UUID(rec.AssignedTo)),
		identity,
		messages,
		rec.Version,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, firmID id.FirmID, convID id.ConversationID) (Record, error) {
	query := `SELECT ` + recordColumns + ` FROM conversations WHERE firm_id = $1 AND conversation_id = $2`
	row := s.db.QueryRowContext(ctx, query, uuid.UUID(firmID), uuid.UUID(convID))
	return scanRecord(row)
}

func (s *PostgresStore) Update(ctx context.Context, rec Record) error {
	messages, err := json.Marshal(rec.Messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}
	identity, err := encodeIdentity(rec.ClientIdentity)
	if err != nil {
		return err
	}

	query := `
		UPDATE conversations
		SET updated_at = $1, status = $2, phase = $3, assigned_to = $4,
			client_identity = $5, messages = $6, version = $7
		WHERE firm_id = $8 AND conversation_id = $9 AND version = $10
	`
	res, err := s.db.ExecContext(ctx, query,
		rec.UpdatedAt,
		string(rec.Status),
		string(rec.Phase),
		nullableID(uuid.UUID(rec.AssignedTo)),
		identity,
		messages,
		rec.Version,
		uuid.UUID(rec.FirmID),
		uuid.UUID(rec.ConversationID),
		rec.Version-1,
	)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	if affected == 0 {
		// Either the row is gone or the stored version moved on.
		if _, err := s.Get(ctx, rec.FirmID, rec.ConversationID); errors.Is(err, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, firmID id.FirmID, convID id.ConversationID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE firm_id = $1 AND conversation_id = $2`,
		uuid.UUID(firmID), uuid.UUID(convID),
	)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByFirm(ctx context.Context, firmID id.FirmID, limit int) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM conversations WHERE firm_id = $1 ORDER BY created_at DESC`
	args := []any{uuid.UUID(firmID)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec        Record
		convID     uuid.UUID
		firmID     uuid.UUID
		status     string
		phase      string
		assignedTo uuid.NullUUID
		identity   []byte
		messages   []byte
	)
	err := row.Scan(
		&convID, &firmID, &rec.CreatedAt, &rec.UpdatedAt,
		&status, &phase, &assignedTo, &identity, &messages, &rec.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("scan conversation: %w", err)
	}

	rec.ConversationID = id.ConversationID(convID)
	rec.FirmID = id.FirmID(firmID)
	rec.Status = Status(status)
	rec.Phase = Phase(phase)
	if assignedTo.Valid {
		rec.AssignedTo = id.UserID(assignedTo.UUID)
	}
	if len(identity) > 0 {
		var ident ClientIdentity
		if err := json.Unmarshal(identity, &ident); err != nil {
			return Record{}, fmt.Errorf("decode client identity: %w", err)
		}
		rec.ClientIdentity = &ident
	}
	if err := json.Unmarshal(messages, &rec.Messages); err != nil {
		return Record{}, fmt.Errorf("decode messages: %w", err)
	}
	return rec, nil
}

// encodeIdentity renders the identity document for its jsonb column,
// keeping the column NULL while no identity has been recorded.
func encodeIdentity(ident *ClientIdentity) ([]byte, error) {
	if ident == nil {
		return nil, nil
	}
	out, err := json.Marshal(ident)
	if err != nil {
		return nil, fmt.Errorf("encode client identity: %w", err)
	}
	return out, nil
}

func nullableID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
