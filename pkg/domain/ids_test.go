package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petcert/pkg/domain"
	dErrors "petcert/pkg/domain-errors"
)

func TestParsePetID(t *testing.T) {
	raw := uuid.NewString()
	id, err := domain.ParsePetID(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, id.String())
	assert.False(t, id.IsZero())
}

func TestParse_Rejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"not a uuid", "abc-123"},
		{"nil uuid", "00000000-0000-0000-0000-000000000000"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := domain.ParseRecordID(tc.raw)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest), "got %v", err)
		})
	}
}

func TestTypedIDsAreDistinct(t *testing.T) {
	id := uuid.New()
	petID := domain.PetID(id)
	recordID := domain.RecordID(id)
	assert.Equal(t, petID.String(), recordID.String(), "same underlying UUID renders identically")

	var zero domain.CertificateID
	assert.True(t, zero.IsZero())
}
