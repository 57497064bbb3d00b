// Package sessiontoken validates and mints ordinary session JWTs. The account
// subsystem that issues them during login lives outside this service; the
// certificate core only needs to validate them, plus mint them in tests and
// local development.
package sessiontoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"petcert/internal/platform/middleware"
	"petcert/pkg/domain"
	dErrors "petcert/pkg/domain-errors"
	"petcert/pkg/requestcontext"
)

// tokenTypeSession tags session tokens so a temporary record-access token can
// never be replayed as a session and vice versa.
const tokenTypeSession = "session"

// Claims carried by a session token.
type Claims struct {
	TokenType string `json:"token_type"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Service signs and validates session tokens with a shared HMAC key.
type Service struct {
	signingKey []byte
	issuer     string
}

func NewService(signingKey, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer}
}

// Generate mints a session token. Exposed for tests and local development;
// production logins happen in the account subsystem with the same key.
func (s *Service) Generate(userID domain.UserID, role requestcontext.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		TokenType: tokenTypeSession,
		Role:      string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateSession implements middleware.SessionValidator.
func (s *Service) ValidateSession(tokenString string) (*middleware.SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "session has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}
	if claims.TokenType != tokenTypeSession {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token is not a session token")
	}

	userID, err := domain.ParseUserID(claims.Subject)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session subject")
	}

	return &middleware.SessionClaims{
		UserID: userID,
		Role:   requestcontext.Role(claims.Role),
	}, nil
}
