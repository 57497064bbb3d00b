package service

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/hex"

	"petcert/internal/certificate/models"
	"petcert/internal/certificate/payload"
	"petcert/internal/keystore"
	"petcert/internal/qr"
	"petcert/internal/registry"
	"petcert/internal/sigcrypto"
	"petcert/pkg/domain"
	dErrors "petcert/pkg/domain-errors"
	"petcert/pkg/requestcontext"
)

// FindByID returns one certificate view. The caller must be the pet's owner,
// staff at the pet's clinic, or an admin.
func (s *Service) FindByID(ctx context.Context, id domain.CertificateID) (*models.CertificateView, error) {
	certificate, err := s.certs.FindByID(ctx, id)
	if err != nil {
		return nil, translateLookup(err, "certificate")
	}
	pet, err := s.directory.FindPet(ctx, certificate.PetID)
	if err != nil {
		return nil, translateLookup(err, "pet")
	}
	if err := s.authorizeRead(ctx, pet); err != nil {
		return nil, err
	}
	return s.loadView(ctx, certificate, pet)
}

// ListByPet returns all certificates for a pet, oldest first.
func (s *Service) ListByPet(ctx context.Context, petID domain.PetID) ([]*models.CertificateView, error) {
	pet, err := s.directory.FindPet(ctx, petID)
	if err != nil {
		return nil, translateLookup(err, "pet")
	}
	if err := s.authorizeRead(ctx, pet); err != nil {
		return nil, err
	}

	certificates, err := s.certs.ListByPet(ctx, petID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list certificates")
	}
	views := make([]*models.CertificateView, 0, len(certificates))
	for _, certificate := range certificates {
		view, err := s.loadView(ctx, certificate, pet)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// QrData returns the encoded QR string for a certificate. Certificates are
// immutable, so cached encodings never go stale.
func (s *Service) QrData(ctx context.Context, id domain.CertificateID) (string, error) {
	ctx, span := s.tracer.Start(ctx, "certificate.qr_data")
	defer span.End()

	certificate, err := s.certs.FindByID(ctx, id)
	if err != nil {
		return "", translateLookup(err, "certificate")
	}
	pet, err := s.directory.FindPet(ctx, certificate.PetID)
	if err != nil {
		return "", translateLookup(err, "pet")
	}
	if err := s.authorizeRead(ctx, pet); err != nil {
		return "", err
	}

	if encoded, ok := s.qrCache.Get(ctx, id); ok {
		return encoded, nil
	}

	encoded, err := qr.Encode(qr.Bundle{
		Payload:               certificate.Payload,
		Digest:                models.EncodeDigest(certificate.Digest),
		PractitionerSignature: models.EncodeSignature(certificate.PractitionerSignature),
		OrganizationSignature: models.EncodeSignature(certificate.OrganizationSignature),
	})
	if err != nil {
		return "", err
	}
	s.metrics.IncQrEncodings()
	s.qrCache.Set(ctx, id, encoded)
	return encoded, nil
}

// VerificationResult reports what an offline verifier would conclude from a
// scanned QR string.
type VerificationResult struct {
	CertificateNumber          string `json:"certificate_number"`
	PetID                      string `json:"pet_id"`
	DigestValid                bool   `json:"digest_valid"`
	PractitionerSignatureValid bool   `json:"practitioner_signature_valid"`
	OrganizationSignatureValid bool   `json:"organization_signature_valid"`
	Valid                      bool   `json:"valid"`
}

// VerifyQr decodes a QR string and checks the digest and both signatures
// against the stored public keys. A syntactically valid bundle that fails
// verification is a successful call with Valid=false, not an error.
func (s *Service) VerifyQr(ctx context.Context, data string) (*VerificationResult, error) {
	ctx, span := s.tracer.Start(ctx, "certificate.verify_qr")
	defer span.End()

	bundle, err := qr.Decode(data)
	if err != nil {
		return nil, err
	}
	doc, err := payload.Parse(bundle.Payload)
	if err != nil {
		return nil, err
	}

	practitionerID, err := domain.ParsePractitionerID(doc.Practitioner.ID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeQrDecode, "payload carries an invalid practitioner id")
	}
	organizationID, err := domain.ParseOrganizationID(doc.Organization.ID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeQrDecode, "payload carries an invalid organization id")
	}

	claimedDigest, err := hex.DecodeString(bundle.Digest)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeQrDecode, "digest is not valid hex")
	}
	practitionerSig, err := base64.StdEncoding.DecodeString(bundle.PractitionerSignature)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeQrDecode, "practitioner signature is not valid base64")
	}
	organizationSig, err := base64.StdEncoding.DecodeString(bundle.OrganizationSignature)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeQrDecode, "organization signature is not valid base64")
	}

	practitionerKey, err := s.loadPublicKey(keystore.PractitionerRef(practitionerID))
	if err != nil {
		return nil, err
	}
	organizationKey, err := s.loadPublicKey(keystore.OrganizationRef(organizationID))
	if err != nil {
		return nil, err
	}

	digest := sigcrypto.Digest([]byte(bundle.Payload))
	result := &VerificationResult{
		CertificateNumber:          doc.CertificateNumber,
		PetID:                      doc.Pet.ID,
		DigestValid:                bytes.Equal(digest, claimedDigest),
		PractitionerSignatureValid: sigcrypto.Verify(digest, practitionerSig, practitionerKey),
		OrganizationSignatureValid: sigcrypto.Verify(digest, organizationSig, organizationKey),
	}
	result.Valid = result.DigestValid && result.PractitionerSignatureValid && result.OrganizationSignatureValid
	return result, nil
}

func (s *Service) loadPublicKey(ref keystore.EntityRef) (*rsa.PublicKey, error) {
	key, err := s.keys.PublicKey(ref)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCrypto, "public key unavailable")
	}
	return key, nil
}

// authorizeRead grants access to the pet's owner, practitioners at the pet's
// clinic and admins.
func (s *Service) authorizeRead(ctx context.Context, pet *registry.Pet) error {
	userID := requestcontext.UserID(ctx)
	switch requestcontext.ActorRole(ctx) {
	case requestcontext.RoleAdmin:
		return nil
	case requestcontext.RoleOwner:
		if pet.OwnerID == userID {
			return nil
		}
	case requestcontext.RolePractitioner:
		practitioner, err := s.directory.FindPractitionerByUser(ctx, userID)
		if err == nil && practitioner.ClinicID == pet.ClinicID {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeForbidden, "not authorized for this pet")
}

// loadView assembles the read view from the certificate row and its
// collaborator entities.
func (s *Service) loadView(ctx context.Context, certificate *models.Certificate, pet *registry.Pet) (*models.CertificateView, error) {
	record, err := s.directory.FindRecord(ctx, certificate.RecordID)
	if err != nil {
		return nil, translateLookup(err, "medical record")
	}
	practitioner, err := s.directory.FindPractitioner(ctx, certificate.PractitionerID)
	if err != nil {
		return nil, translateLookup(err, "practitioner")
	}
	organization, err := s.directory.FindOrganization(ctx, certificate.OrganizationID)
	if err != nil {
		return nil, translateLookup(err, "organization")
	}
	view := s.buildView(certificate, pet, record, practitioner, organization)
	return view, nil
}

func (s *Service) buildView(
	certificate *models.Certificate,
	pet *registry.Pet,
	record *registry.MedicalRecord,
	practitioner *registry.Practitioner,
	organization *registry.Organization,
) *models.CertificateView {
	return &models.CertificateView{
		ID:     certificate.ID.String(),
		Number: certificate.Number,
		Pet: models.PetSummary{
			ID:              pet.ID.String(),
			Name:            pet.Name,
			Species:         pet.Species,
			MicrochipNumber: pet.MicrochipNumber,
		},
		Record: models.RecordSummary{
			ID:   record.ID.String(),
			Type: string(record.Type),
		},
		Practitioner: models.PractitionerSummary{
			ID:            practitioner.ID.String(),
			FullName:      practitioner.FullName,
			LicenseNumber: practitioner.LicenseNumber,
		},
		Organization: models.OrganizationSummary{
			ID:      organization.ID.String(),
			Name:    organization.Name,
			Country: organization.Country,
		},
		Payload:               certificate.Payload,
		Digest:                models.EncodeDigest(certificate.Digest),
		PractitionerSignature: models.EncodeSignature(certificate.PractitionerSignature),
		OrganizationSignature: models.EncodeSignature(certificate.OrganizationSignature),
		CreatedAt:             certificate.CreatedAt,
	}
}
