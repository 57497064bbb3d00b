package tempaccess

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petcert/internal/registry"
	"petcert/internal/sessiontoken"
	"petcert/pkg/domain"
	dErrors "petcert/pkg/domain-errors"
	"petcert/pkg/requestcontext"
)

const testSigningKey = "temp-access-test-signing-key"

type world struct {
	service   *Service
	directory *registry.MemoryDirectory
	petA      registry.Pet
	petB      registry.Pet
	ownerA    domain.UserID
}

func newWorld(t *testing.T) *world {
	t.Helper()

	w := &world{directory: registry.NewMemoryDirectory()}
	clinicID := domain.OrganizationID(uuid.New())
	w.ownerA = domain.UserID(uuid.New())
	w.petA = registry.Pet{
		ID:       domain.PetID(uuid.New()),
		OwnerID:  w.ownerA,
		ClinicID: clinicID,
		Name:     "Bramble",
		Species:  "dog",
	}
	w.petB = registry.Pet{
		ID:       domain.PetID(uuid.New()),
		OwnerID:  domain.UserID(uuid.New()),
		ClinicID: clinicID,
		Name:     "Pickle",
		Species:  "cat",
	}
	w.directory.PutPet(w.petA)
	w.directory.PutPet(w.petB)

	for i, pet := range []registry.Pet{w.petA, w.petB} {
		w.directory.PutRecord(registry.MedicalRecord{
			ID:          domain.RecordID(uuid.New()),
			PetID:       pet.ID,
			Type:        registry.RecordTypeVaccination,
			Description: "signed record",
			PerformedBy: domain.PractitionerID(uuid.New()),
			Signed:      true,
			CreatedAt:   time.Date(2026, 5, 1+i, 0, 0, 0, 0, time.UTC),
		})
		w.directory.PutRecord(registry.MedicalRecord{
			ID:          domain.RecordID(uuid.New()),
			PetID:       pet.ID,
			Type:        registry.RecordTypeCheckup,
			Description: "unsigned record",
			PerformedBy: domain.PractitionerID(uuid.New()),
			Signed:      false,
			CreatedAt:   time.Date(2026, 5, 1+i, 0, 0, 0, 0, time.UTC),
		})
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w.service = NewService(testSigningKey, "petcert-test", 72*time.Hour,
		w.directory, w.directory, w.directory, nil, logger)
	return w
}

func (w *world) ownerContext() context.Context {
	ctx := requestcontext.WithUserID(context.Background(), w.ownerA)
	return requestcontext.WithActorRole(ctx, requestcontext.RoleOwner)
}

func TestIssueToken_AndListRecords(t *testing.T) {
	w := newWorld(t)

	token, expiresAt, err := w.service.IssueToken(w.ownerContext(), w.petA.ID, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	petID, err := w.service.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, w.petA.ID, petID)

	records, err := w.service.ListRecords(context.Background(), token)
	require.NoError(t, err)
	require.Len(t, records, 1, "only signed records are shared")
	assert.Equal(t, "vaccination", records[0].Type)
	assert.Equal(t, "signed record", records[0].Description)
}

func TestIssueToken_ScopeNeverWidens(t *testing.T) {
	w := newWorld(t)

	// Owner of pet A cannot mint a token for pet B.
	_, _, err := w.service.IssueToken(w.ownerContext(), w.petB.ID, time.Hour)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden), "got %v", err)

	// A token for pet A returns pet A's records only.
	token, _, err := w.service.IssueToken(w.ownerContext(), w.petA.ID, time.Hour)
	require.NoError(t, err)
	records, err := w.service.ListRecords(context.Background(), token)
	require.NoError(t, err)
	for _, record := range records {
		assert.NotEqual(t, w.petB.ID.String(), record.ID)
	}
	require.Len(t, records, 1)
}

func TestIssueToken_ClampsDuration(t *testing.T) {
	w := newWorld(t)

	_, expiresAt, err := w.service.IssueToken(w.ownerContext(), w.petA.ID, 1000*time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(72*time.Hour), expiresAt, 5*time.Second)

	_, _, err = w.service.IssueToken(w.ownerContext(), w.petA.ID, 0)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest), "got %v", err)
}

func TestValidate_Expiry(t *testing.T) {
	w := newWorld(t)
	issuedAt := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(w.ownerContext(), issuedAt)

	token, _, err := w.service.IssueToken(ctx, w.petA.ID, time.Hour)
	require.NoError(t, err)

	// Valid anywhere inside the window.
	for _, offset := range []time.Duration{time.Second, 30 * time.Minute, 59 * time.Minute} {
		w.service.now = func() time.Time { return issuedAt.Add(offset) }
		petID, err := w.service.Validate(token)
		require.NoError(t, err, "offset %v", offset)
		assert.Equal(t, w.petA.ID, petID)
	}

	// Expired after the window.
	w.service.now = func() time.Time { return issuedAt.Add(61 * time.Minute) }
	_, err = w.service.Validate(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTokenExpired), "got %v", err)

	// Not yet valid before nbf.
	w.service.now = func() time.Time { return issuedAt.Add(-time.Minute) }
	_, err = w.service.Validate(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTokenInvalid), "got %v", err)
}

func TestValidate_RejectsForeignTokens(t *testing.T) {
	w := newWorld(t)

	t.Run("garbage", func(t *testing.T) {
		_, err := w.service.Validate("not-a-jwt")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTokenInvalid), "got %v", err)
	})

	t.Run("session token with same key is not a record-access token", func(t *testing.T) {
		sessions := sessiontoken.NewService(testSigningKey, "petcert-test")
		sessionToken, err := sessions.Generate(w.ownerA, requestcontext.RoleOwner, time.Hour)
		require.NoError(t, err)

		_, err = w.service.Validate(sessionToken)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTokenInvalid), "got %v", err)
	})

	t.Run("token signed with a different key", func(t *testing.T) {
		other := NewService("another-signing-key", "petcert-test", time.Hour,
			w.directory, w.directory, w.directory, nil,
			slog.New(slog.NewTextHandler(io.Discard, nil)))
		token, _, err := other.IssueToken(w.ownerContext(), w.petA.ID, time.Hour)
		require.NoError(t, err)

		_, err = w.service.Validate(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTokenInvalid), "got %v", err)
	})
}
