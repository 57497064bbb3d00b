// Package tempaccess issues and validates temporary record-access tokens:
// stateless, time-boxed bearer tokens scoped to a single pet's signed medical
// records. Tokens are never stored server-side; expiry is the only way one
// stops working.
package tempaccess

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"petcert/internal/platform/metrics"
	"petcert/internal/registry"
	"petcert/pkg/domain"
	dErrors "petcert/pkg/domain-errors"
	"petcert/pkg/platform/sentinel"
	"petcert/pkg/requestcontext"
)

// tokenTypeTempAccess distinguishes these tokens from session tokens; a
// session token can never be replayed here and vice versa.
const tokenTypeTempAccess = "temp_record_access"

const subjectPrefix = "pet:"

// Claims carried by a temporary record-access token.
type Claims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Service mints and validates temporary access tokens and serves the record
// read path they unlock.
type Service struct {
	signingKey []byte
	issuer     string
	maxTTL     time.Duration
	pets       registry.Pets
	records    registry.Records
	staff      registry.Practitioners
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer

	// now is swapped in tests to pin validation time.
	now func() time.Time
}

func NewService(
	signingKey, issuer string,
	maxTTL time.Duration,
	pets registry.Pets,
	records registry.Records,
	staff registry.Practitioners,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		maxTTL:     maxTTL,
		pets:       pets,
		records:    records,
		staff:      staff,
		metrics:    m,
		logger:     logger,
		tracer:     otel.Tracer("petcert/tempaccess"),
		now:        time.Now,
	}
}

// IssueToken mints a token granting read access to one pet's signed records.
// The caller must be the pet's owner, staff at the pet's clinic, or an admin.
// Durations above the configured maximum are clamped.
func (s *Service) IssueToken(ctx context.Context, petID domain.PetID, duration time.Duration) (string, time.Time, error) {
	ctx, span := s.tracer.Start(ctx, "tempaccess.issue_token")
	defer span.End()

	if duration <= 0 {
		return "", time.Time{}, dErrors.New(dErrors.CodeBadRequest, "duration must be positive")
	}
	if duration > s.maxTTL {
		duration = s.maxTTL
	}

	pet, err := s.pets.FindPet(ctx, petID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", time.Time{}, dErrors.New(dErrors.CodeNotFound, "pet not found")
		}
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "lookup pet")
	}
	if err := s.authorizeIssue(ctx, pet); err != nil {
		return "", time.Time{}, err
	}

	issuedAt := requestcontext.Now(ctx).UTC()
	expiresAt := issuedAt.Add(duration)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		TokenType: tokenTypeTempAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectPrefix + petID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "sign access token")
	}

	s.metrics.IncAccessTokensIssued()
	s.logger.InfoContext(ctx, "temporary access token issued",
		"pet_id", petID.String(),
		"expires_at", expiresAt.Format(time.RFC3339),
		"request_id", requestcontext.RequestID(ctx))
	return signed, expiresAt, nil
}

// Validate checks signature, token type and the [nbf, exp] window and returns
// the pet id the token is scoped to. Pure function over the token and clock.
func (s *Service) Validate(tokenString string) (domain.PetID, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.PetID{}, dErrors.New(dErrors.CodeTokenExpired, "access token has expired")
		}
		return domain.PetID{}, dErrors.New(dErrors.CodeTokenInvalid, "invalid access token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.PetID{}, dErrors.New(dErrors.CodeTokenInvalid, "invalid access token")
	}
	if claims.TokenType != tokenTypeTempAccess {
		return domain.PetID{}, dErrors.New(dErrors.CodeTokenInvalid, "token is not a record-access token")
	}
	if !strings.HasPrefix(claims.Subject, subjectPrefix) {
		return domain.PetID{}, dErrors.New(dErrors.CodeTokenInvalid, "malformed token subject")
	}
	petID, err := domain.ParsePetID(strings.TrimPrefix(claims.Subject, subjectPrefix))
	if err != nil {
		return domain.PetID{}, dErrors.New(dErrors.CodeTokenInvalid, "malformed token subject")
	}
	return petID, nil
}

// RecordView is the read shape returned to token holders.
type RecordView struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	PerformedBy string    `json:"performed_by"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// ListRecords validates the token and returns the signed records of the pet
// embedded in it. The token decides the pet; callers cannot widen the scope.
func (s *Service) ListRecords(ctx context.Context, tokenString string) ([]RecordView, error) {
	ctx, span := s.tracer.Start(ctx, "tempaccess.list_records")
	defer span.End()

	petID, err := s.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	records, err := s.records.ListSignedByPet(ctx, petID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list signed records")
	}
	views := make([]RecordView, 0, len(records))
	for _, record := range records {
		views = append(views, RecordView{
			ID:          record.ID.String(),
			Type:        string(record.Type),
			Description: record.Description,
			PerformedBy: record.PerformedBy.String(),
			RecordedAt:  record.CreatedAt,
		})
	}
	return views, nil
}

func (s *Service) authorizeIssue(ctx context.Context, pet *registry.Pet) error {
	userID := requestcontext.UserID(ctx)
	switch requestcontext.ActorRole(ctx) {
	case requestcontext.RoleAdmin:
		return nil
	case requestcontext.RoleOwner:
		if pet.OwnerID == userID {
			return nil
		}
	case requestcontext.RolePractitioner:
		practitioner, err := s.staff.FindPractitionerByUser(ctx, userID)
		if err == nil && practitioner.ClinicID == pet.ClinicID {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeForbidden, "not authorized for this pet")
}
