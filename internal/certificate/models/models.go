// Package models holds the certificate aggregate and its read views.
package models

import (
	"encoding/base64"
	"encoding/hex"
	"regexp"
	"time"

	"petcert/pkg/domain"
	dErrors "petcert/pkg/domain-errors"
)

// certificateNumberPattern matches externally assigned numbers such as
// "UK-GB-000123": issuing country, region code, six digits.
var certificateNumberPattern = regexp.MustCompile(`^[A-Z]{2}-[A-Z]{2}-[0-9]{6}$`)

// ValidateCertificateNumber checks the syntactic shape of an externally
// assigned certificate number. Uniqueness is checked separately.
func ValidateCertificateNumber(number string) error {
	if !certificateNumberPattern.MatchString(number) {
		return dErrors.New(dErrors.CodeBadRequest,
			"certificate number must match CC-RR-NNNNNN (e.g. UK-GB-000123)")
	}
	return nil
}

// Certificate is append-only: no field changes after creation. The digest is
// SHA-256 over Payload and each signature covers the digest.
type Certificate struct {
	ID             domain.CertificateID
	Number         string
	PetID          domain.PetID
	RecordID       domain.RecordID
	PractitionerID domain.PractitionerID
	OrganizationID domain.OrganizationID

	Payload               string
	Digest                []byte
	PractitionerSignature []byte
	OrganizationSignature []byte

	CreatedAt time.Time
}

// CertificateView is the read representation returned to callers.
type CertificateView struct {
	ID     string `json:"id"`
	Number string `json:"certificate_number"`

	Pet          PetSummary          `json:"pet"`
	Record       RecordSummary       `json:"record"`
	Practitioner PractitionerSummary `json:"practitioner"`
	Organization OrganizationSummary `json:"organization"`

	Payload               string    `json:"payload"`
	Digest                string    `json:"digest"`
	PractitionerSignature string    `json:"practitioner_signature"`
	OrganizationSignature string    `json:"organization_signature"`
	CreatedAt             time.Time `json:"created_at"`
}

type PetSummary struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Species         string `json:"species"`
	MicrochipNumber string `json:"microchip_number"`
}

type RecordSummary struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type PractitionerSummary struct {
	ID            string `json:"id"`
	FullName      string `json:"full_name"`
	LicenseNumber string `json:"license_number"`
}

type OrganizationSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

// EncodeDigest renders the digest the way views and QR bundles carry it.
func EncodeDigest(digest []byte) string {
	return hex.EncodeToString(digest)
}

// EncodeSignature renders a signature the way views and QR bundles carry it.
func EncodeSignature(signature []byte) string {
	return base64.StdEncoding.EncodeToString(signature)
}
