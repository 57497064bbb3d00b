// Package domain defines the typed identifiers shared across the certificate
// core. Wrapping uuid.UUID in distinct named types lets the compiler catch a
// pet id being passed where a record id belongs.
package domain

import (
	"github.com/google/uuid"

	dErrors "petcert/pkg/domain-errors"
)

type (
	// UserID identifies an authenticated account (owner or practitioner login).
	UserID uuid.UUID
	// PetID identifies a pet.
	PetID uuid.UUID
	// RecordID identifies a medical record.
	RecordID uuid.UUID
	// PractitionerID identifies a veterinary practitioner.
	PractitionerID uuid.UUID
	// OrganizationID identifies an issuing organization (clinic).
	OrganizationID uuid.UUID
	// CertificateID identifies an issued certificate.
	CertificateID uuid.UUID
)

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id PetID) String() string          { return uuid.UUID(id).String() }
func (id RecordID) String() string       { return uuid.UUID(id).String() }
func (id PractitionerID) String() string { return uuid.UUID(id).String() }
func (id OrganizationID) String() string { return uuid.UUID(id).String() }
func (id CertificateID) String() string  { return uuid.UUID(id).String() }

// IsZero reports whether the id is the nil UUID.
func (id UserID) IsZero() bool         { return uuid.UUID(id) == uuid.Nil }
func (id PetID) IsZero() bool          { return uuid.UUID(id) == uuid.Nil }
func (id RecordID) IsZero() bool       { return uuid.UUID(id) == uuid.Nil }
func (id PractitionerID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id OrganizationID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id CertificateID) IsZero() bool  { return uuid.UUID(id) == uuid.Nil }

// parseUUID enforces the shared invariant: ids must be valid, non-empty,
// non-nil UUIDs. Parsing happens at trust boundaries (HTTP, tokens) so the
// rest of the code can rely on well-formed ids.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, kind+" id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, kind+" id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, kind+" id must not be the nil UUID")
	}
	return parsed, nil
}

func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user")
	return UserID(parsed), err
}

func ParsePetID(raw string) (PetID, error) {
	parsed, err := parseUUID(raw, "pet")
	return PetID(parsed), err
}

func ParseRecordID(raw string) (RecordID, error) {
	parsed, err := parseUUID(raw, "record")
	return RecordID(parsed), err
}

func ParsePractitionerID(raw string) (PractitionerID, error) {
	parsed, err := parseUUID(raw, "practitioner")
	return PractitionerID(parsed), err
}

func ParseOrganizationID(raw string) (OrganizationID, error) {
	parsed, err := parseUUID(raw, "organization")
	return OrganizationID(parsed), err
}

func ParseCertificateID(raw string) (CertificateID, error) {
	parsed, err := parseUUID(raw, "certificate")
	return CertificateID(parsed), err
}
