package registry

import (
	"context"

	"petcert/pkg/domain"
)

// Pets looks up pets by id.
type Pets interface {
	FindPet(ctx context.Context, id domain.PetID) (*Pet, error)
}

// Records reads medical records. MarkImmutable is the single mutation this
// core performs on collaborator state; it is idempotent and one-way.
type Records interface {
	FindRecord(ctx context.Context, id domain.RecordID) (*MedicalRecord, error)
	ListSignedByPet(ctx context.Context, petID domain.PetID) ([]*MedicalRecord, error)
	MarkImmutable(ctx context.Context, id domain.RecordID) error
}

// RecordMarker is the transactional slice of Records used inside the
// issuance transaction.
type RecordMarker interface {
	MarkImmutable(ctx context.Context, id domain.RecordID) error
}

// Practitioners looks up practitioners by id or by their login account.
type Practitioners interface {
	FindPractitioner(ctx context.Context, id domain.PractitionerID) (*Practitioner, error)
	FindPractitionerByUser(ctx context.Context, userID domain.UserID) (*Practitioner, error)
}

// Organizations looks up issuing organizations by id.
type Organizations interface {
	FindOrganization(ctx context.Context, id domain.OrganizationID) (*Organization, error)
}

// Directory bundles all collaborator lookups for wiring convenience.
type Directory interface {
	Pets
	Records
	Practitioners
	Organizations
}
