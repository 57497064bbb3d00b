package registry

import (
	"time"

	"github.com/google/uuid"

	"petcert/pkg/domain"
)

// Demo fixture ids, stable so local clients can script against them.
var (
	DemoOwnerID        = domain.UserID(uuid.MustParse("11111111-1111-4111-8111-111111111111"))
	DemoVetUserID      = domain.UserID(uuid.MustParse("22222222-2222-4222-8222-222222222222"))
	DemoPetID          = domain.PetID(uuid.MustParse("33333333-3333-4333-8333-333333333333"))
	DemoRecordID       = domain.RecordID(uuid.MustParse("44444444-4444-4444-8444-444444444444"))
	DemoPractitionerID = domain.PractitionerID(uuid.MustParse("55555555-5555-4555-8555-555555555555"))
	DemoClinicID       = domain.OrganizationID(uuid.MustParse("66666666-6666-4666-8666-666666666666"))
)

// SeedDemo loads a minimal fixture set: one clinic, one vet, one pet with a
// signed vaccination record, ready for a certificate to be issued.
func SeedDemo(d *MemoryDirectory) {
	d.PutOrganization(Organization{
		ID:                 DemoClinicID,
		Name:               "Riverside Veterinary Clinic",
		RegistrationNumber: "RVC-2041",
		Country:            "GB",
	})
	d.PutPractitioner(Practitioner{
		ID:            DemoPractitionerID,
		UserID:        DemoVetUserID,
		ClinicID:      DemoClinicID,
		FullName:      "Dr. Imogen Hale",
		LicenseNumber: "RCVS-701233",
	})
	d.PutPet(Pet{
		ID:              DemoPetID,
		OwnerID:         DemoOwnerID,
		ClinicID:        DemoClinicID,
		Name:            "Bramble",
		Species:         "dog",
		Breed:           "border collie",
		MicrochipNumber: "985141002367481",
		DateOfBirth:     time.Date(2021, 4, 12, 0, 0, 0, 0, time.UTC),
	})
	d.PutRecord(MedicalRecord{
		ID:          DemoRecordID,
		PetID:       DemoPetID,
		Type:        RecordTypeVaccination,
		Description: "Rabies vaccination, batch RB-2209",
		PerformedBy: DemoPractitionerID,
		Signed:      true,
		CreatedAt:   time.Date(2026, 5, 3, 9, 30, 0, 0, time.UTC),
	})
}
