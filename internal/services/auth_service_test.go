package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/locojk/GNG-5300-Group-Backend/internal/auth"
	"github.com/locojk/GNG-5300-Group-Backend/internal/database/memstore"
	"github.com/locojk/GNG-5300-Group-Backend/internal/models"
	"github.com/locojk/GNG-5300-Group-Backend/internal/repository"
	"github.com/locojk/GNG-5300-Group-Backend/pkg/utils"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "Passw0rd!"

type captureMailer struct {
	to    string
	token string
	sent  int
}

func (m *captureMailer) SendPasswordReset(_ context.Context, to, token string) error {
	m.to = to
	m.token = token
	m.sent++
	return nil
}

type authFixture struct {
	service *AuthService
	users   *repository.UserRepository
	tokens  *auth.TokenManager
	mail    *captureMailer
}

func newAuthFixture(t *testing.T, refresh RefreshStore) authFixture {
	t.Helper()
	store := memstore.NewStore(memstore.NewDatabase(), nil)
	users := repository.NewUserRepository(store, nil)
	tokens := auth.NewTokenManager("test-secret", time.Hour, 24*time.Hour)
	mail := &captureMailer{}
	service := NewAuthService(users, tokens, AuthServiceOptions{Refresh: refresh, Mailer: mail})
	return authFixture{service: service, users: users, tokens: tokens, mail: mail}
}

func TestRegisterStoresHashedPassword(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()

	id, err := f.service.Register(ctx, RegisterInput{Username: "alice", Email: "Alice@Example.com", Password: testPassword})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	user, err := f.users.GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Expected stored user, got %v", err)
	}
	if user.ID != id {
		t.Errorf("Expected id %s, got %s", id.Hex(), user.ID.Hex())
	}
	if user.PasswordHash == testPassword {
		t.Fatalf("Expected password to be hashed")
	}
	if !utils.CheckPassword(testPassword, user.PasswordHash) {
		t.Errorf("Expected stored hash to verify")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()

	first, err := f.service.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: testPassword})
	require.NoError(t, err)

	_, err = f.service.Register(ctx, RegisterInput{Username: "alice2", Email: "alice@example.com", Password: testPassword})
	require.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = f.service.Register(ctx, RegisterInput{Username: "alice", Email: "second@example.com", Password: testPassword})
	require.ErrorIs(t, err, ErrDuplicateUsername)

	user, err := f.users.GetByID(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

func TestRegisterValidation(t *testing.T) {
	f := newAuthFixture(t, nil)
	tests := []struct {
		name  string
		input RegisterInput
		field string
	}{
		{"missing username", RegisterInput{Email: "a@example.com", Password: testPassword}, "username"},
		{"bad email", RegisterInput{Username: "a", Email: "nope", Password: testPassword}, "email"},
		{"short password", RegisterInput{Username: "a", Email: "a@example.com", Password: "Ab1"}, "password"},
		{"no digit", RegisterInput{Username: "a", Email: "a@example.com", Password: "Password"}, "password"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.Register(context.Background(), tc.input)
			var verr *models.ValidationError
			require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()
	id, err := f.service.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: testPassword})
	require.NoError(t, err)

	res, err := f.service.Login(ctx, "alice@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, id.Hex(), res.UserID)
	assert.Equal(t, "alice", res.Username)

	claims, err := f.tokens.VerifyAccessToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, id.Hex(), claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)

	user, err := f.users.GetByID(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, user.LastLogin)
}

func TestLoginFailures(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()
	id, err := f.service.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: testPassword})
	require.NoError(t, err)

	_, err = f.service.Login(ctx, "nobody@example.com", testPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.service.Login(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user, err := f.users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, user.FailedLoginAttempts)

	require.NoError(t, f.users.UpdateStatus(ctx, id, models.UserStatusBanned))
	_, err = f.service.Login(ctx, "alice@example.com", testPassword)
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestRefreshRotatesTokens(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newAuthFixture(t, auth.NewRedisRefreshStore(client))
	ctx := context.Background()
	_, err := f.service.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: testPassword})
	require.NoError(t, err)

	login, err := f.service.Login(ctx, "alice@example.com", testPassword)
	require.NoError(t, err)

	rotated, err := f.service.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	_, err = f.service.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrRefreshTokenRevoked)

	require.NoError(t, f.service.Logout(ctx, rotated.RefreshToken))
	_, err = f.service.Refresh(ctx, rotated.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrRefreshTokenRevoked)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()
	_, err := f.service.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: testPassword})
	require.NoError(t, err)
	login, err := f.service.Login(ctx, "alice@example.com", testPassword)
	require.NoError(t, err)

	_, err = f.service.Refresh(ctx, login.Token)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()
	_, err := f.service.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: testPassword})
	require.NoError(t, err)

	require.NoError(t, f.service.RequestPasswordReset(ctx, "nobody@example.com"))
	assert.Equal(t, 0, f.mail.sent)

	require.NoError(t, f.service.RequestPasswordReset(ctx, "alice@example.com"))
	require.Equal(t, 1, f.mail.sent)
	assert.Equal(t, "alice@example.com", f.mail.to)

	stored, err := f.users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, f.mail.token, stored.ResetTokenHash)

	require.NoError(t, f.service.ResetPassword(ctx, f.mail.token, "NewPassw0rd"))
	_, err = f.service.Login(ctx, "alice@example.com", "NewPassw0rd")
	require.NoError(t, err)

	err = f.service.ResetPassword(ctx, f.mail.token, "OtherPassw0rd")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestPasswordResetExpired(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()
	_, err := f.service.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: testPassword})
	require.NoError(t, err)

	f.service.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	require.NoError(t, f.service.RequestPasswordReset(ctx, "alice@example.com"))

	err = f.service.ResetPassword(ctx, f.mail.token, "NewPassw0rd")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}
