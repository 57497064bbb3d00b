package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petcert/internal/certificate/models"
	"petcert/internal/registry"
	"petcert/pkg/domain"
	"petcert/pkg/platform/sentinel"
)

func newCertificate(number string) *models.Certificate {
	return &models.Certificate{
		ID:                    domain.CertificateID(uuid.New()),
		Number:                number,
		PetID:                 domain.PetID(uuid.New()),
		RecordID:              domain.RecordID(uuid.New()),
		PractitionerID:        domain.PractitionerID(uuid.New()),
		OrganizationID:        domain.OrganizationID(uuid.New()),
		Payload:               `{"version":1}`,
		Digest:                []byte{0x01, 0x02},
		PractitionerSignature: []byte{0x03},
		OrganizationSignature: []byte{0x04},
		CreatedAt:             time.Now().UTC(),
	}
}

func TestMemoryStore_UniqueNumber(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first := newCertificate("UK-GB-000001")
	require.NoError(t, s.Create(ctx, first))

	second := newCertificate("UK-GB-000001")
	err := s.Create(ctx, second)
	require.ErrorIs(t, err, ErrDuplicateNumber)
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestMemoryStore_UniqueRecord(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first := newCertificate("UK-GB-000001")
	require.NoError(t, s.Create(ctx, first))

	second := newCertificate("UK-GB-000002")
	second.RecordID = first.RecordID
	err := s.Create(ctx, second)
	require.ErrorIs(t, err, ErrDuplicateRecord)
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestMemoryStore_Lookups(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	certificate := newCertificate("UK-GB-000123")
	require.NoError(t, s.Create(ctx, certificate))

	byID, err := s.FindByID(ctx, certificate.ID)
	require.NoError(t, err)
	assert.Equal(t, certificate.Number, byID.Number)

	byRecord, err := s.FindByRecord(ctx, certificate.RecordID)
	require.NoError(t, err)
	assert.Equal(t, certificate.ID, byRecord.ID)

	byNumber, err := s.FindByNumber(ctx, "UK-GB-000123")
	require.NoError(t, err)
	assert.Equal(t, certificate.ID, byNumber.ID)

	_, err = s.FindByID(ctx, domain.CertificateID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryStore_ListByPetOrdersByCreation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	petID := domain.PetID(uuid.New())

	newest := newCertificate("UK-GB-000002")
	newest.PetID = petID
	newest.CreatedAt = time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)
	oldest := newCertificate("UK-GB-000001")
	oldest.PetID = petID
	oldest.CreatedAt = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	other := newCertificate("UK-GB-000003")

	require.NoError(t, s.Create(ctx, newest))
	require.NoError(t, s.Create(ctx, oldest))
	require.NoError(t, s.Create(ctx, other))

	certificates, err := s.ListByPet(ctx, petID)
	require.NoError(t, err)
	require.Len(t, certificates, 2)
	assert.Equal(t, "UK-GB-000001", certificates[0].Number)
	assert.Equal(t, "UK-GB-000002", certificates[1].Number)
}

func TestMemoryTxRunner_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	certs := NewMemoryStore()
	directory := registry.NewMemoryDirectory()

	record := registry.MedicalRecord{
		ID:     domain.RecordID(uuid.New()),
		PetID:  domain.PetID(uuid.New()),
		Type:   registry.RecordTypeVaccination,
		Signed: true,
	}
	directory.PutRecord(record)

	certificate := newCertificate("UK-GB-000123")
	certificate.RecordID = record.ID

	runner := NewMemoryTxRunner(certs, directory)
	err := runner.RunInTx(ctx, func(certs Store, records registry.RecordMarker) error {
		if err := certs.Create(ctx, certificate); err != nil {
			return err
		}
		return records.MarkImmutable(ctx, record.ID)
	})
	require.NoError(t, err)

	stored, err := certs.FindByID(ctx, certificate.ID)
	require.NoError(t, err)
	assert.Equal(t, "UK-GB-000123", stored.Number)

	marked, err := directory.FindRecord(ctx, record.ID)
	require.NoError(t, err)
	assert.True(t, marked.Immutable)
}

func TestMemoryTxRunner_NoPartialStateOnFailure(t *testing.T) {
	ctx := context.Background()
	certs := NewMemoryStore()
	directory := registry.NewMemoryDirectory()

	record := registry.MedicalRecord{
		ID:     domain.RecordID(uuid.New()),
		PetID:  domain.PetID(uuid.New()),
		Type:   registry.RecordTypeVaccination,
		Signed: true,
	}
	directory.PutRecord(record)

	certificate := newCertificate("UK-GB-000123")
	certificate.RecordID = record.ID
	boom := errors.New("downstream failure")

	runner := NewMemoryTxRunner(certs, directory)
	err := runner.RunInTx(ctx, func(certs Store, records registry.RecordMarker) error {
		if err := certs.Create(ctx, certificate); err != nil {
			return err
		}
		if err := records.MarkImmutable(ctx, record.ID); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = certs.FindByID(ctx, certificate.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound, "failed transaction must not persist the certificate")

	untouched, err := directory.FindRecord(ctx, record.ID)
	require.NoError(t, err)
	assert.False(t, untouched.Immutable, "failed transaction must not flip the immutable flag")
}

func TestMemoryTxRunner_StagedWritesVisibleInsideTx(t *testing.T) {
	ctx := context.Background()
	certs := NewMemoryStore()
	directory := registry.NewMemoryDirectory()

	certificate := newCertificate("UK-GB-000123")

	runner := NewMemoryTxRunner(certs, directory)
	err := runner.RunInTx(ctx, func(tx Store, _ registry.RecordMarker) error {
		if err := tx.Create(ctx, certificate); err != nil {
			return err
		}
		staged, err := tx.FindByRecord(ctx, certificate.RecordID)
		if err != nil {
			return err
		}
		assert.Equal(t, certificate.ID, staged.ID)

		duplicate := newCertificate("UK-GB-000123")
		return tx.Create(ctx, duplicate)
	})
	require.ErrorIs(t, err, ErrDuplicateNumber)

	_, err = certs.FindByID(ctx, certificate.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
