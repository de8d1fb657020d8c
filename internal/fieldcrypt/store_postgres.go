package fieldcrypt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	id "lexgate/pkg/domain"
	"lexgate/pkg/platform/sentinel"
)

// PostgresStore persists key metadata and wrapped key material. The
// firm_keys table carries a partial unique index on (firm_id, purpose) WHERE
// status = 'active', so the database itself enforces the one-active-key
// invariant.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed key store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, meta KeyMetadata, wrappedKey []byte) error {
	query := `
		INSERT INTO firm_keys (firm_id, purpose, key_id, algorithm, status, created_at, rotation_due, wrapped_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(meta.FirmID),
		string(meta.Purpose),
		uuid.UUID(meta.KeyID),
		meta.Algorithm,
		string(meta.Status),
		meta.CreatedAt,
		meta.RotationDue,
		wrappedKey,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert firm key: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, firmID id.FirmID, keyID id.KeyID) (KeyMetadata, []byte, error) {
	query := `
		SELECT firm_id, purpose, key_id, algorithm, status, created_at, rotation_due, wrapped_key
		FROM firm_keys
		WHERE firm_id = $1 AND key_id = $2
	`
	return scanKey(s.db.QueryRowContext(ctx, query, uuid.UUID(firmID), uuid.UUID(keyID)))
}

func (s *PostgresStore) Active(ctx context.Context, firmID id.FirmID, purpose Purpose) (KeyMetadata, []byte, error) {
	query := `
		SELECT firm_id, purpose, key_id, algorithm, status, created_at, rotation_due, wrapped_key
		FROM firm_keys
		WHERE firm_id = $1 AND purpose = $2 AND status = 'active'
	`
	return scanKey(s.db.QueryRowContext(ctx, query, uuid.UUID(firmID), string(purpose)))
}

// Rotate deprecates the old Active key and installs the successor in one
// transaction so no window exists with zero or two active keys.
func (s *PostgresStore) Rotate(ctx context.Context, deprecated *KeyMetadata, successor KeyMetadata, wrappedKey []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rotation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if deprecated != nil {
		res, err := tx.ExecContext(ctx,
			`UPDATE firm_keys SET status = 'deprecated' WHERE firm_id = $1 AND key_id = $2 AND status = 'active'`,
			uuid.UUID(deprecated.FirmID), uuid.UUID(deprecated.KeyID),
		)
		if err != nil {
			return fmt.Errorf("deprecate key: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return sentinel.ErrInvalidState
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO firm_keys (firm_id, purpose, key_id, algorithm, status, created_at, rotation_due, wrapped_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(successor.FirmID),
		string(successor.Purpose),
		uuid.UUID(successor.KeyID),
		successor.Algorithm,
		string(successor.Status),
		successor.CreatedAt,
		successor.RotationDue,
		wrappedKey,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert successor key: %w", err)
	}

	return tx.Commit()
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, firmID id.FirmID, keyID id.KeyID, status KeyStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE firm_keys SET status = $3 WHERE firm_id = $1 AND key_id = $2`,
		uuid.UUID(firmID), uuid.UUID(keyID), string(status),
	)
	if err != nil {
		return fmt.Errorf("update key status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByFirm(ctx context.Context, firmID id.FirmID) ([]KeyMetadata, error) {
	query := `
		SELECT firm_id, purpose, key_id, algorithm, status, created_at, rotation_due
		FROM firm_keys
		WHERE firm_id = $1
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(firmID))
	if err != nil {
		return nil, fmt.Errorf("list firm keys: %w", err)
	}
	defer rows.Close()

	var out []KeyMetadata
	for rows.Next() {
		var (
			meta    KeyMetadata
			firm    uuid.UUID
			key     uuid.UUID
			purpose string
			status  string
		)
		if err := rows.Scan(&firm, &purpose, &key, &meta.Algorithm, &status, &meta.CreatedAt, &meta.RotationDue); err != nil {
			return nil, fmt.Errorf("scan firm key: %w", err)
		}
		meta.FirmID = id.FirmID(firm)
		meta.KeyID = id.KeyID(key)
		meta.Purpose = Purpose(purpose)
		meta.Status = KeyStatus(status)
		out = append(out, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate firm keys: %w", err)
	}
	return out, nil
}

func scanKey(row *sql.Row) (KeyMetadata, []byte, error) {
	var (
		meta    KeyMetadata
		firm    uuid.UUID
		key     uuid.UUID
		purpose string
		status  string
		wrapped []byte
	)
	err := row.Scan(&firm, &purpose, &key, &meta.Algorithm, &status, &meta.CreatedAt, &meta.RotationDue, &wrapped)
	if errors.Is(err, sql.ErrNoRows) {
		return KeyMetadata{}, nil, sentinel.ErrNotFound
	}
	if err != nil {
		return KeyMetadata{}, nil, fmt.Errorf("scan firm key: %w", err)
	}
	meta.FirmID = id.FirmID(firm)
	meta.KeyID = id.KeyID(key)
	meta.Purpose = Purpose(purpose)
	meta.Status = KeyStatus(status)
	return meta, wrapped, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
