package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"petcert/internal/certificate/models"
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

// PostgresStore persists certificates. The two UNIQUE constraints in the
// schema are the authoritative race-breakers for certificate numbers and the
// one-certificate-per-record rule.
type PostgresStore struct {
	db dbtx
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx binds the store to an open transaction.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{db: tx}
}

const certificatesSchema = `
CREATE TABLE IF NOT EXISTS certificates (
    id                      UUID PRIMARY KEY,
    number                  TEXT NOT NULL,
    pet_id                  UUID NOT NULL,
    record_id               UUID NOT NULL,
    practitioner_id         UUID NOT NULL,
    organization_id         UUID NOT NULL,
    payload                 TEXT NOT NULL,
    digest                  BYTEA NOT NULL,
    practitioner_signature  BYTEA NOT NULL,
    organization_signature  BYTEA NOT NULL,
    created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT certificates_number_key UNIQUE (number),
    CONSTRAINT certificates_record_id_key UNIQUE (record_id)
);
CREATE INDEX IF NOT EXISTS idx_certificates_pet ON certificates (pet_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, certificatesSchema); err != nil {
		return fmt.Errorf("migrate certificates: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, certificate *models.Certificate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO certificates (id, number, pet_id, record_id, practitioner_id, organization_id,
			payload, digest, practitioner_signature, organization_signature, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.UUID(certificate.ID), certificate.Number,
		uuid.UUID(certificate.PetID), uuid.UUID(certificate.RecordID),
		uuid.UUID(certificate.PractitionerID), uuid.UUID(certificate.OrganizationID),
		certificate.Payload, certificate.Digest,
		certificate.PractitionerSignature, certificate.OrganizationSignature,
		certificate.CreatedAt)
	if err != nil {
		if conflictErr := translateUniqueViolation(err); conflictErr != nil {
			return conflictErr
		}
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

// translateUniqueViolation maps a 23505 to the constraint-specific conflict
// error, or returns nil when err is not a unique violation.
func translateUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	switch pgErr.ConstraintName {
	case "certificates_number_key":
		return ErrDuplicateNumber
	case "certificates_record_id_key":
		return ErrDuplicateRecord
	default:
		return fmt.Errorf("certificate unique violation %q: %w", pgErr.ConstraintName, sentinel.ErrConflict)
	}
}

const certificateColumns = `id, number, pet_id, record_id, practitioner_id, organization_id,
	payload, digest, practitioner_signature, organization_signature, created_at`

func (s *PostgresStore) FindByID(ctx context.Context, id domain.CertificateID) (*models.Certificate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE id = $1`, uuid.UUID(id))
	return scanCertificate(row)
}

func (s *PostgresStore) FindByRecord(ctx context.Context, recordID domain.RecordID) (*models.Certificate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE record_id = $1`, uuid.UUID(recordID))
	return scanCertificate(row)
}

func (s *PostgresStore) FindByNumber(ctx context.Context, number string) (*models.Certificate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE number = $1`, number)
	return scanCertificate(row)
}

func (s *PostgresStore) ListByPet(ctx context.Context, petID domain.PetID) ([]*models.Certificate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE pet_id = $1 ORDER BY created_at`,
		uuid.UUID(petID))
	if err != nil {
		return nil, fmt.Errorf("list certificates by pet: %w", err)
	}
	defer rows.Close()

	var certificates []*models.Certificate
	for rows.Next() {
		certificate, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		certificates = append(certificates, certificate)
	}
	return certificates, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCertificate(row rowScanner) (*models.Certificate, error) {
	var (
		certificate    models.Certificate
		id             uuid.UUID
		petID          uuid.UUID
		recordID       uuid.UUID
		practitionerID uuid.UUID
		organizationID uuid.UUID
		createdAt      time.Time
	)
	err := row.Scan(&id, &certificate.Number, &petID, &recordID, &practitionerID, &organizationID,
		&certificate.Payload, &certificate.Digest,
		&certificate.PractitionerSignature, &certificate.OrganizationSignature, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan certificate: %w", err)
	}
	certificate.ID = domain.CertificateID(id)
	certificate.PetID = domain.PetID(petID)
	certificate.RecordID = domain.RecordID(recordID)
	certificate.PractitionerID = domain.PractitionerID(practitionerID)
	certificate.OrganizationID = domain.OrganizationID(organizationID)
	certificate.CreatedAt = createdAt
	return &certificate, nil
}
