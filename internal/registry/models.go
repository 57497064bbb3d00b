// Package registry exposes the external collaborator entities the certificate
// core reads: pets, medical records, practitioners and organizations.
// Registration and profile management happen elsewhere; this core only looks
// entities up and flips exactly one field (a record's immutable flag).
package registry

import (
	"time"

	"petcert/pkg/domain"
	dErrors "petcert/pkg/domain-errors"
)

// RecordType is the closed set of medical record types.
type RecordType string

const (
	RecordTypeVaccination RecordType = "vaccination"
	RecordTypeCheckup     RecordType = "general_checkup"
	RecordTypeTreatment   RecordType = "treatment"
	RecordTypeSurgery     RecordType = "surgery"
)

// ParseRecordType rejects values outside the closed set.
func ParseRecordType(raw string) (RecordType, error) {
	switch RecordType(raw) {
	case RecordTypeVaccination, RecordTypeCheckup, RecordTypeTreatment, RecordTypeSurgery:
		return RecordType(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeBadRequest, "unknown record type: "+raw)
	}
}

// Pet is the animal a certificate is issued for.
type Pet struct {
	ID              domain.PetID
	OwnerID         domain.UserID
	ClinicID        domain.OrganizationID
	Name            string
	Species         string
	Breed           string
	MicrochipNumber string
	DateOfBirth     time.Time
}

// MedicalRecord is the originating entity behind a certificate. The core
// reads Type, Signed and Immutable and only ever writes Immutable.
type MedicalRecord struct {
	ID          domain.RecordID
	PetID       domain.PetID
	Type        RecordType
	Description string
	PerformedBy domain.PractitionerID
	Signed      bool
	Immutable   bool
	CreatedAt   time.Time
}

// Practitioner is a veterinarian allowed to sign certificates for the pets of
// their clinic.
type Practitioner struct {
	ID            domain.PractitionerID
	UserID        domain.UserID
	ClinicID      domain.OrganizationID
	FullName      string
	LicenseNumber string
}

// Organization is the clinic that co-signs certificates.
type Organization struct {
	ID                 domain.OrganizationID
	Name               string
	RegistrationNumber string
	Country            string
}
