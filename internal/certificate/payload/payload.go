// Package payload builds the canonical document that gets hashed and signed.
// The field set and order are fixed; two builds from the same inputs produce
// byte-identical output, which is what makes the digest reproducible.
package payload

import (
	"encoding/json"
	"fmt"
	"time"

	"petcert/internal/registry"
	dErrors "petcert/pkg/domain-errors"
)

// Version identifies the payload schema for downstream verifiers.
const Version = 1

// Document is the canonical payload. encoding/json emits struct fields in
// declaration order, so the serialized form is stable by construction. No
// secrets, no wall-clock reads: IssuedAt is the explicitly passed timestamp.
type Document struct {
	Version           int             `json:"version"`
	CertificateNumber string          `json:"certificate_number"`
	Pet               PetFields       `json:"pet"`
	Record            RecordFields    `json:"record"`
	Practitioner      SignerFields    `json:"practitioner"`
	Organization      IssuerOrgFields `json:"organization"`
	IssuedAt          string          `json:"issued_at"`
}

type PetFields struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Species         string `json:"species"`
	Breed           string `json:"breed"`
	MicrochipNumber string `json:"microchip_number"`
	DateOfBirth     string `json:"date_of_birth"`
}

type RecordFields struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	RecordedAt  string `json:"recorded_at"`
}

type SignerFields struct {
	ID            string `json:"id"`
	FullName      string `json:"full_name"`
	LicenseNumber string `json:"license_number"`
}

type IssuerOrgFields struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	RegistrationNumber string `json:"registration_number"`
	Country            string `json:"country"`
}

// Build assembles and serializes the canonical payload. Missing required
// fields mean an upstream precondition check was skipped; that is a contract
// violation surfaced as an internal error, not user input validation.
func Build(
	pet *registry.Pet,
	record *registry.MedicalRecord,
	practitioner *registry.Practitioner,
	organization *registry.Organization,
	certificateNumber string,
	issuedAt time.Time,
) (string, error) {
	if err := requireFields(pet, record, practitioner, organization, certificateNumber, issuedAt); err != nil {
		return "", err
	}

	doc := Document{
		Version:           Version,
		CertificateNumber: certificateNumber,
		Pet: PetFields{
			ID:              pet.ID.String(),
			Name:            pet.Name,
			Species:         pet.Species,
			Breed:           pet.Breed,
			MicrochipNumber: pet.MicrochipNumber,
			DateOfBirth:     pet.DateOfBirth.UTC().Format("2006-01-02"),
		},
		Record: RecordFields{
			ID:          record.ID.String(),
			Type:        string(record.Type),
			Description: record.Description,
			RecordedAt:  record.CreatedAt.UTC().Format(time.RFC3339),
		},
		Practitioner: SignerFields{
			ID:            practitioner.ID.String(),
			FullName:      practitioner.FullName,
			LicenseNumber: practitioner.LicenseNumber,
		},
		Organization: IssuerOrgFields{
			ID:                 organization.ID.String(),
			Name:               organization.Name,
			RegistrationNumber: organization.RegistrationNumber,
			Country:            organization.Country,
		},
		IssuedAt: issuedAt.UTC().Format(time.RFC3339),
	}

	serialized, err := json.Marshal(doc)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "serialize canonical payload")
	}
	return string(serialized), nil
}

// Parse decodes a canonical payload string back into its document form, used
// by offline QR verification.
func Parse(raw string) (*Document, error) {
	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeQrDecode, "malformed canonical payload")
	}
	return &doc, nil
}

func requireFields(
	pet *registry.Pet,
	record *registry.MedicalRecord,
	practitioner *registry.Practitioner,
	organization *registry.Organization,
	certificateNumber string,
	issuedAt time.Time,
) error {
	missing := func(what string) error {
		return dErrors.New(dErrors.CodeInternal,
			fmt.Sprintf("payload build: %s missing, upstream precondition skipped", what))
	}
	switch {
	case pet == nil || pet.ID.IsZero():
		return missing("pet")
	case record == nil || record.ID.IsZero():
		return missing("record")
	case practitioner == nil || practitioner.ID.IsZero():
		return missing("practitioner")
	case organization == nil || organization.ID.IsZero():
		return missing("organization")
	case certificateNumber == "":
		return missing("certificate number")
	case issuedAt.IsZero():
		return missing("issue timestamp")
	}
	return nil
}
