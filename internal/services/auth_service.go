package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/locojk/GNG-5300-Group-Backend/internal/audit"
	"github.com/locojk/GNG-5300-Group-Backend/internal/auth"
	"github.com/locojk/GNG-5300-Group-Backend/internal/mailer"
	"github.com/locojk/GNG-5300-Group-Backend/internal/models"
	"github.com/locojk/GNG-5300-Group-Backend/internal/observability"
	"github.com/locojk/GNG-5300-Group-Backend/internal/repository"
	"github.com/locojk/GNG-5300-Group-Backend/pkg/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type authUserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id primitive.ObjectID) error
	RecordFailedLogin(ctx context.Context, id primitive.ObjectID) error
	SetPasswordResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expiry time.Time) error
	ConsumePasswordResetToken(ctx context.Context, tokenHash, passwordHash string) (primitive.ObjectID, error)
}

// RefreshStore tracks issued refresh tokens by jti so they can be rotated and
// revoked. Without one, refresh tokens are accepted until they expire.
type RefreshStore interface {
	Save(ctx context.Context, jti, userID string, ttl time.Duration) error
	Consume(ctx context.Context, jti string) (string, error)
	Revoke(ctx context.Context, jti string) error
}

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type AuthService struct {
	users    authUserStore
	tokens   *auth.TokenManager
	refresh  RefreshStore
	mailer   mailer.Mailer
	audit    *audit.Recorder
	logger   *slog.Logger
	resetTTL time.Duration
	now      func() time.Time
}

type AuthServiceOptions struct {
	Refresh  RefreshStore
	Mailer   mailer.Mailer
	Audit    *audit.Recorder
	Logger   *slog.Logger
	ResetTTL time.Duration
}

func NewAuthService(users authUserStore, tokens *auth.TokenManager, opts AuthServiceOptions) *AuthService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	resetTTL := opts.ResetTTL
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}
	m := opts.Mailer
	if m == nil {
		m = mailer.NewLogMailer(logger, "")
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		refresh:  opts.Refresh,
		mailer:   m,
		audit:    opts.Audit,
		logger:   logger,
		resetTTL: resetTTL,
		now:      time.Now,
	}
}

// Register validates the input, stores the user with a bcrypt hash and
// returns the new id.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (primitive.ObjectID, error) {
	if err := models.ValidateUsername(input.Username); err != nil {
		return primitive.NilObjectID, err
	}
	email, err := models.NormalizeEmail(input.Email)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if err := models.ValidateNewPassword("password", input.Password); err != nil {
		return primitive.NilObjectID, err
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:     strings.TrimSpace(input.Username),
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailTaken):
			return primitive.NilObjectID, ErrDuplicateEmail
		case errors.Is(err, repository.ErrUsernameTaken):
			return primitive.NilObjectID, ErrDuplicateUsername
		}
		return primitive.NilObjectID, err
	}

	s.audit.Record(ctx, user.ID.Hex(), "register", "user", audit.StatusSuccess, nil)
	return user.ID, nil
}

// Login checks the credentials, records the attempt and issues a token pair.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	normalized, err := models.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateLoginPassword(password); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, normalized)
	if errors.Is(err, repository.ErrNotFound) {
		observability.AuthFailures.WithLabelValues("unknown_user").Inc()
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !utils.CheckPassword(password, user.PasswordHash) {
		observability.AuthFailures.WithLabelValues("bad_password").Inc()
		if err := s.users.RecordFailedLogin(ctx, user.ID); err != nil {
			s.logger.WarnContext(ctx, "failed to record failed login", slog.String("error", err.Error()))
		}
		s.audit.Record(ctx, user.ID.Hex(), "login", "user", audit.StatusFailure, map[string]any{"reason": "bad_password"})
		return nil, ErrInvalidCredentials
	}
	if user.Status != models.UserStatusActive {
		observability.AuthFailures.WithLabelValues("inactive").Inc()
		return nil, ErrAccountInactive
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		return nil, err
	}

	result, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, user.ID.Hex(), "login", "user", audit.StatusSuccess, nil)
	return result, nil
}

// Refresh exchanges a refresh token for a new pair. With a refresh store the
// presented token is single-use.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if s.refresh != nil {
		owner, err := s.refresh.Consume(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if owner != claims.UserID {
			return nil, auth.ErrRefreshTokenRevoked
		}
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, auth.ErrTokenInvalid
	}
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, auth.ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	if user.Status != models.UserStatusActive {
		return nil, ErrAccountInactive
	}
	return s.issuePair(ctx, user)
}

// Logout revokes the refresh token. An already expired token needs no revoking.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if errors.Is(err, auth.ErrTokenExpired) {
		return nil
	}
	if err != nil {
		return err
	}
	if s.refresh != nil {
		if err := s.refresh.Revoke(ctx, claims.ID); err != nil {
			return fmt.Errorf("revoke refresh token: %w", err)
		}
	}
	s.audit.Record(ctx, claims.UserID, "logout", "user", audit.StatusSuccess, nil)
	return nil
}

func (s *AuthService) issuePair(ctx context.Context, user *models.User) (*LoginResult, error) {
	userID := user.ID.Hex()
	access, exp, err := s.tokens.IssueAccessToken(userID, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, jti, _, err := s.tokens.IssueRefreshToken(userID, user.Role)
	if err != nil {
		return nil, err
	}
	if s.refresh != nil {
		if err := s.refresh.Save(ctx, jti, userID, s.tokens.RefreshTTL()); err != nil {
			return nil, fmt.Errorf("store refresh token: %w", err)
		}
	}
	return &LoginResult{
		UserID:       userID,
		Username:     user.Username,
		Token:        access,
		RefreshToken: refresh,
		ExpiresAt:    exp,
	}, nil
}

// RequestPasswordReset stores a hashed one-time token and mails the link.
// The outcome is the same whether or not the email belongs to an account.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	normalized, err := models.NormalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, normalized)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.InfoContext(ctx, "password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	token, hash, err := utils.GenerateResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	if err := s.users.SetPasswordResetToken(ctx, user.ID, hash, s.now().Add(s.resetTTL)); err != nil {
		return err
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		s.logger.ErrorContext(ctx, "failed to send password reset email",
			slog.String("user_id", user.ID.Hex()),
			slog.String("error", err.Error()),
		)
	}
	s.audit.Record(ctx, user.ID.Hex(), "password_reset_request", "user", audit.StatusSuccess, nil)
	return nil
}

// ResetPassword sets a new password if token is valid and unexpired. The token
// is cleared in the same write.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidResetToken
	}
	if err := models.ValidateNewPassword("new_password", newPassword); err != nil {
		return err
	}
	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	userID, err := s.users.ConsumePasswordResetToken(ctx, utils.HashToken(token), hash)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return err
	}
	s.audit.Record(ctx, userID.Hex(), "password_reset", "user", audit.StatusSuccess, nil)
	return nil
}
