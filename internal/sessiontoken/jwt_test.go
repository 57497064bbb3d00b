package sessiontoken_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petcert/internal/sessiontoken"
	"petcert/pkg/domain"
	"petcert/pkg/requestcontext"
)

func TestGenerateAndValidate(t *testing.T) {
	service := sessiontoken.NewService("session-test-key", "petcert-test")
	userID := domain.UserID(uuid.New())

	token, err := service.Generate(userID, requestcontext.RolePractitioner, time.Hour)
	require.NoError(t, err)

	claims, err := service.ValidateSession(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, requestcontext.RolePractitioner, claims.Role)
}

func TestValidateSession_Rejections(t *testing.T) {
	service := sessiontoken.NewService("session-test-key", "petcert-test")

	t.Run("garbage", func(t *testing.T) {
		_, err := service.ValidateSession("not-a-jwt")
		require.Error(t, err)
	})

	t.Run("wrong key", func(t *testing.T) {
		other := sessiontoken.NewService("a-different-key", "petcert-test")
		token, err := other.Generate(domain.UserID(uuid.New()), requestcontext.RoleOwner, time.Hour)
		require.NoError(t, err)

		_, err = service.ValidateSession(token)
		require.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := service.Generate(domain.UserID(uuid.New()), requestcontext.RoleOwner, -time.Minute)
		require.NoError(t, err)

		_, err = service.ValidateSession(token)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expired")
	})
}
