package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"petcert/pkg/domain"
	"petcert/pkg/platform/sentinel"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so the same queries run
// standalone or inside the issuance transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresRecords reads medical records from the shared schema and owns the
// single write this core performs: the immutable flag. Pets, practitioners
// and organizations are managed by other subsystems and reach this core via
// the Directory ports, not through this store.
type PostgresRecords struct {
	db dbtx
}

func NewPostgresRecords(db *sql.DB) *PostgresRecords {
	return &PostgresRecords{db: db}
}

// NewPostgresRecordsTx binds the store to an open transaction.
func NewPostgresRecordsTx(tx *sql.Tx) *PostgresRecords {
	return &PostgresRecords{db: tx}
}

const recordsSchema = `
CREATE TABLE IF NOT EXISTS medical_records (
    id          UUID PRIMARY KEY,
    pet_id      UUID NOT NULL,
    type        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    performed_by UUID NOT NULL,
    signed      BOOLEAN NOT NULL DEFAULT FALSE,
    immutable   BOOLEAN NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_medical_records_pet ON medical_records (pet_id);
`

// Migrate creates the records table when the surrounding system has not
// provisioned it (local development, integration tests).
func (s *PostgresRecords) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, recordsSchema); err != nil {
		return fmt.Errorf("migrate medical_records: %w", err)
	}
	return nil
}

func (s *PostgresRecords) FindRecord(ctx context.Context, id domain.RecordID) (*MedicalRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, pet_id, type, description, performed_by, signed, immutable, created_at
		FROM medical_records WHERE id = $1`, uuid.UUID(id))
	return scanRecord(row)
}

func (s *PostgresRecords) ListSignedByPet(ctx context.Context, petID domain.PetID) ([]*MedicalRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pet_id, type, description, performed_by, signed, immutable, created_at
		FROM medical_records WHERE pet_id = $1 AND signed ORDER BY created_at`, uuid.UUID(petID))
	if err != nil {
		return nil, fmt.Errorf("list signed records: %w", err)
	}
	defer rows.Close()

	var records []*MedicalRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// MarkImmutable flips the one-way immutable flag; flipping an
// already-immutable record is a no-op.
func (s *PostgresRecords) MarkImmutable(ctx context.Context, id domain.RecordID) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE medical_records SET immutable = TRUE WHERE id = $1`, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("mark record immutable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark record immutable: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// InsertRecord seeds a record row; used by tests and local development.
func (s *PostgresRecords) InsertRecord(ctx context.Context, record MedicalRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO medical_records (id, pet_id, type, description, performed_by, signed, immutable, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(record.ID), uuid.UUID(record.PetID), string(record.Type), record.Description,
		uuid.UUID(record.PerformedBy), record.Signed, record.Immutable, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*MedicalRecord, error) {
	var (
		record      MedicalRecord
		id          uuid.UUID
		petID       uuid.UUID
		recordType  string
		performedBy uuid.UUID
		createdAt   time.Time
	)
	err := row.Scan(&id, &petID, &recordType, &record.Description, &performedBy,
		&record.Signed, &record.Immutable, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan record: %w", err)
	}
	record.ID = domain.RecordID(id)
	record.PetID = domain.PetID(petID)
	record.Type = RecordType(recordType)
	record.PerformedBy = domain.PractitionerID(performedBy)
	record.CreatedAt = createdAt
	return &record, nil
}
