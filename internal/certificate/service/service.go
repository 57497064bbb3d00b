// Package service orchestrates certificate issuance and the read paths over
// issued certificates.
package service

import (
	"context"
	"crypto/rsa"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"petcert/internal/certificate/models"
	"petcert/internal/certificate/payload"
	"petcert/internal/certificate/store"
	"petcert/internal/events"
	"petcert/internal/keystore"
	"petcert/internal/platform/metrics"
	"petcert/internal/qr"
	"petcert/internal/registry"
	"petcert/internal/sigcrypto"
	"petcert/pkg/domain"
	dErrors "petcert/pkg/domain-errors"
	"petcert/pkg/platform/sentinel"
	"petcert/pkg/requestcontext"
)

// Precondition reason codes carried on precondition failures.
const (
	ReasonRecordWrongType        = "record_wrong_type"
	ReasonRecordNotSigned        = "record_not_signed"
	ReasonRecordAlreadyCertified = "record_already_certified"
	ReasonNumberTaken            = "certificate_number_taken"
)

// TxRunner executes fn inside one atomic unit. The certificate insert and the
// record immutability flip either both commit or neither does.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(certs store.Store, records registry.RecordMarker) error) error
}

// KeyProvider is the slice of the keystore this service needs.
type KeyProvider interface {
	PublicKey(ref keystore.EntityRef) (*rsa.PublicKey, error)
	DecryptPrivateKey(ref keystore.EntityRef, passphrase []byte) (*rsa.PrivateKey, error)
}

// Service implements issuance and certificate reads.
type Service struct {
	directory registry.Directory
	certs     store.Store
	keys      KeyProvider
	tx        TxRunner
	publisher events.Publisher
	qrCache   *qr.Cache
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

func NewService(
	directory registry.Directory,
	certs store.Store,
	keys KeyProvider,
	tx TxRunner,
	publisher events.Publisher,
	qrCache *qr.Cache,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Service{
		directory: directory,
		certs:     certs,
		keys:      keys,
		tx:        tx,
		publisher: publisher,
		qrCache:   qrCache,
		metrics:   m,
		logger:    logger,
		tracer:    otel.Tracer("petcert/certificate"),
	}
}

// IssueRequest carries the issuance inputs. Passphrases are held only for the
// duration of the call and are never logged.
type IssueRequest struct {
	CertificateNumber      string
	RecordID               domain.RecordID
	PractitionerPassphrase []byte
	OrganizationPassphrase []byte
}

// Issue runs the issuance state machine: preconditions, canonical payload,
// digest, dual signature, then the atomic persist + immutability flip, then a
// best-effort issued event.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (*models.CertificateView, error) {
	ctx, span := s.tracer.Start(ctx, "certificate.issue")
	defer span.End()

	view, err := s.issue(ctx, req)
	if err != nil {
		s.metrics.IncIssueFailure(string(dErrors.CodeOf(err)))
		return nil, err
	}
	s.metrics.IncCertificatesIssued()
	span.SetAttributes(attribute.String("certificate.number", req.CertificateNumber))
	return view, nil
}

func (s *Service) issue(ctx context.Context, req IssueRequest) (*models.CertificateView, error) {
	if err := models.ValidateCertificateNumber(req.CertificateNumber); err != nil {
		return nil, err
	}

	record, err := s.directory.FindRecord(ctx, req.RecordID)
	if err != nil {
		return nil, translateLookup(err, "medical record")
	}
	pet, err := s.directory.FindPet(ctx, record.PetID)
	if err != nil {
		return nil, translateLookup(err, "pet")
	}
	practitioner, err := s.requirePractitioner(ctx, pet)
	if err != nil {
		return nil, err
	}
	organization, err := s.directory.FindOrganization(ctx, pet.ClinicID)
	if err != nil {
		return nil, translateLookup(err, "organization")
	}

	if err := s.checkPreconditions(ctx, record, req.CertificateNumber); err != nil {
		return nil, err
	}

	issuedAt := requestcontext.Now(ctx).UTC()
	canonical, err := payload.Build(pet, record, practitioner, organization, req.CertificateNumber, issuedAt)
	if err != nil {
		return nil, err
	}
	digest := sigcrypto.Digest([]byte(canonical))

	practitionerSig, err := s.signAs(keystore.PractitionerRef(practitioner.ID), req.PractitionerPassphrase, digest)
	if err != nil {
		return nil, s.normalizeCryptoFailure(ctx, err, record.ID)
	}
	organizationSig, err := s.signAs(keystore.OrganizationRef(organization.ID), req.OrganizationPassphrase, digest)
	if err != nil {
		return nil, s.normalizeCryptoFailure(ctx, err, record.ID)
	}

	certificate := &models.Certificate{
		ID:                    domain.CertificateID(uuid.New()),
		Number:                req.CertificateNumber,
		PetID:                 pet.ID,
		RecordID:              record.ID,
		PractitionerID:        practitioner.ID,
		OrganizationID:        organization.ID,
		Payload:               canonical,
		Digest:                digest,
		PractitionerSignature: practitionerSig,
		OrganizationSignature: organizationSig,
		CreatedAt:             issuedAt,
	}

	err = s.tx.RunInTx(ctx, func(certs store.Store, records registry.RecordMarker) error {
		if err := certs.Create(ctx, certificate); err != nil {
			return err
		}
		return records.MarkImmutable(ctx, record.ID)
	})
	if err != nil {
		return nil, translateWriteFailure(err)
	}

	s.logger.InfoContext(ctx, "certificate issued",
		"certificate_id", certificate.ID.String(),
		"certificate_number", certificate.Number,
		"record_id", record.ID.String(),
		"request_id", requestcontext.RequestID(ctx))

	s.publishIssued(ctx, certificate, pet)

	return s.buildView(certificate, pet, record, practitioner, organization), nil
}

// requirePractitioner resolves the acting practitioner and checks clinic
// affiliation with the pet.
func (s *Service) requirePractitioner(ctx context.Context, pet *registry.Pet) (*registry.Practitioner, error) {
	if requestcontext.ActorRole(ctx) != requestcontext.RolePractitioner {
		return nil, dErrors.New(dErrors.CodeForbidden, "only practitioners may issue certificates")
	}
	practitioner, err := s.directory.FindPractitionerByUser(ctx, requestcontext.UserID(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeForbidden, "no practitioner profile for this account")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "resolve practitioner")
	}
	if practitioner.ClinicID != pet.ClinicID {
		return nil, dErrors.New(dErrors.CodeForbidden, "practitioner is not affiliated with the pet's clinic")
	}
	return practitioner, nil
}

// checkPreconditions fails on the first violated rule. Business-state rules
// surface as precondition failures with a reason code; duplicate-existence
// pre-checks surface as conflicts, the same class the storage constraint
// produces when the pre-check races.
func (s *Service) checkPreconditions(ctx context.Context, record *registry.MedicalRecord, number string) error {
	if record.Type != registry.RecordTypeVaccination {
		return dErrors.NewWithReason(dErrors.CodePreconditionFailed, ReasonRecordWrongType,
			"travel certificates require a vaccination record, got "+string(record.Type))
	}
	if !record.Signed {
		return dErrors.NewWithReason(dErrors.CodePreconditionFailed, ReasonRecordNotSigned,
			"record has not been signed by a practitioner")
	}
	if _, err := s.certs.FindByRecord(ctx, record.ID); err == nil {
		return dErrors.NewWithReason(dErrors.CodeConflict, ReasonRecordAlreadyCertified,
			"record already has a certificate")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "check existing certificate for record")
	}
	if record.Immutable {
		return dErrors.NewWithReason(dErrors.CodePreconditionFailed, ReasonRecordAlreadyCertified,
			"record is locked by an earlier certification")
	}
	if _, err := s.certs.FindByNumber(ctx, number); err == nil {
		return dErrors.NewWithReason(dErrors.CodeConflict, ReasonNumberTaken,
			"certificate number is already in use")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "check existing certificate number")
	}
	return nil
}

// signAs decrypts the entity's private key, signs the digest and wipes the
// key before returning on every path.
func (s *Service) signAs(ref keystore.EntityRef, passphrase []byte, digest []byte) ([]byte, error) {
	key, err := s.keys.DecryptPrivateKey(ref, passphrase)
	if err != nil {
		return nil, err
	}
	defer keystore.ZeroKey(key)
	return sigcrypto.Sign(digest, key)
}

// normalizeCryptoFailure collapses all signing-path failures into one crypto
// error so the response never reveals which passphrase or artifact failed.
// The log line carries the record id for correlation, nothing secret.
func (s *Service) normalizeCryptoFailure(ctx context.Context, err error, recordID domain.RecordID) error {
	s.logger.WarnContext(ctx, "certificate signing failed",
		"record_id", recordID.String(),
		"request_id", requestcontext.RequestID(ctx),
		"error", err)
	return dErrors.New(dErrors.CodeCrypto, "signing key unavailable or passphrase rejected")
}

func (s *Service) publishIssued(ctx context.Context, certificate *models.Certificate, pet *registry.Pet) {
	event := events.CertificateIssued{
		CertificateID:         certificate.ID.String(),
		CertificateNumber:     certificate.Number,
		PetID:                 pet.ID.String(),
		OwnerID:               pet.OwnerID.String(),
		IssuingPractitionerID: certificate.PractitionerID.String(),
		IssuingOrganizationID: certificate.OrganizationID.String(),
		IssuedAt:              certificate.CreatedAt,
	}
	if err := s.publisher.PublishCertificateIssued(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "certificate issued event not published",
			"certificate_id", certificate.ID.String(),
			"error", err)
	}
}

func translateLookup(err error, what string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, what+" not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "lookup "+what)
}

// translateWriteFailure maps store conflicts from the race-losing insert to
// domain conflicts.
func translateWriteFailure(err error) error {
	switch {
	case errors.Is(err, store.ErrDuplicateRecord):
		return dErrors.WrapWithReason(err, dErrors.CodeConflict, ReasonRecordAlreadyCertified,
			"record already has a certificate")
	case errors.Is(err, store.ErrDuplicateNumber):
		return dErrors.WrapWithReason(err, dErrors.CodeConflict, ReasonNumberTaken,
			"certificate number is already in use")
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "persist certificate")
	}
}
