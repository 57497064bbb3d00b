package registry

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petcert/pkg/domain"
	"petcert/pkg/platform/sentinel"
)

func TestMemoryDirectory_MarkImmutable(t *testing.T) {
	ctx := context.Background()
	dir := NewMemoryDirectory()
	recordID := domain.RecordID(uuid.New())
	dir.PutRecord(MedicalRecord{
		ID:     recordID,
		PetID:  domain.PetID(uuid.New()),
		Type:   RecordTypeVaccination,
		Signed: true,
	})

	require.NoError(t, dir.MarkImmutable(ctx, recordID))

	record, err := dir.FindRecord(ctx, recordID)
	require.NoError(t, err)
	assert.True(t, record.Immutable)

	t.Run("idempotent", func(t *testing.T) {
		require.NoError(t, dir.MarkImmutable(ctx, recordID))
		record, err := dir.FindRecord(ctx, recordID)
		require.NoError(t, err)
		assert.True(t, record.Immutable)
	})

	t.Run("unknown record", func(t *testing.T) {
		err := dir.MarkImmutable(ctx, domain.RecordID(uuid.New()))
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestMemoryDirectory_ListSignedByPet(t *testing.T) {
	ctx := context.Background()
	dir := NewMemoryDirectory()
	petID := domain.PetID(uuid.New())

	older := MedicalRecord{
		ID: domain.RecordID(uuid.New()), PetID: petID,
		Type: RecordTypeVaccination, Signed: true,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	newer := MedicalRecord{
		ID: domain.RecordID(uuid.New()), PetID: petID,
		Type: RecordTypeCheckup, Signed: true,
		CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	unsigned := MedicalRecord{
		ID: domain.RecordID(uuid.New()), PetID: petID,
		Type: RecordTypeTreatment, Signed: false,
	}
	otherPet := MedicalRecord{
		ID: domain.RecordID(uuid.New()), PetID: domain.PetID(uuid.New()),
		Type: RecordTypeVaccination, Signed: true,
	}
	for _, r := range []MedicalRecord{newer, older, unsigned, otherPet} {
		dir.PutRecord(r)
	}

	records, err := dir.ListSignedByPet(ctx, petID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, older.ID, records[0].ID)
	assert.Equal(t, newer.ID, records[1].ID)
}

func TestParseRecordType(t *testing.T) {
	parsed, err := ParseRecordType("vaccination")
	require.NoError(t, err)
	assert.Equal(t, RecordTypeVaccination, parsed)

	_, err = ParseRecordType("horoscope")
	assert.Error(t, err)
}
