package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ritikvr/GenieBazaar-backend/internal/auth"
	"github.com/ritikvr/GenieBazaar-backend/internal/domain"
	"github.com/ritikvr/GenieBazaar-backend/internal/event"
	"github.com/ritikvr/GenieBazaar-backend/internal/mailer"
	"github.com/ritikvr/GenieBazaar-backend/internal/repository"
	"github.com/ritikvr/GenieBazaar-backend/internal/storage"
	apperrors "github.com/ritikvr/GenieBazaar-backend/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the shortest accepted password.
const minPasswordLength = 8

// resetTokenTTL is how long a password reset token stays valid.
const resetTokenTTL = 15 * time.Minute

// IdentityService implements account, session and profile operations.
type IdentityService struct {
	users       repository.UserRepository
	store       storage.Storage
	mail        mailer.Mailer
	tokens      *auth.TokenManager
	producer    *event.Producer
	logger      *slog.Logger
	frontendURL string
}

// NewIdentityService creates a new identity service.
func NewIdentityService(
	users repository.UserRepository,
	store storage.Storage,
	mail mailer.Mailer,
	tokens *auth.TokenManager,
	producer *event.Producer,
	logger *slog.Logger,
	frontendURL string,
) *IdentityService {
	return &IdentityService{
		users:       users,
		store:       store,
		mail:        mail,
		tokens:      tokens,
		producer:    producer,
		logger:      logger,
		frontendURL: frontendURL,
	}
}

// AuthResult is a signed-in identity together with its credential.
type AuthResult struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// RegisterInput holds the parameters for creating an account.
type RegisterInput struct {
	Name      string
	Email     string
	Password  string
	RawAvatar string
}

// UpdateProfileInput holds the parameters for updating the caller's profile.
type UpdateProfileInput struct {
	UserID    string
	Name      string
	Email     string
	RawAvatar string
}

// Register creates an account, uploading the optional avatar first.
func (s *IdentityService) Register(ctx context.Context, input *RegisterInput) (*AuthResult, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if input.Email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:        uuid.New().String(),
		Name:      input.Name,
		Email:     input.Email,
		Role:      domain.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if input.RawAvatar != "" {
		blobID, url, err := s.uploadAvatar(ctx, input.RawAvatar)
		if err != nil {
			return nil, err
		}
		user.AvatarBlobID = blobID
		user.AvatarURL = url
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hashedPassword)

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return &AuthResult{User: user, Token: token}, nil
}

// Login verifies the credentials and issues a fresh token.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" || password == "" {
		return nil, apperrors.InvalidInput("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))

	return &AuthResult{User: user, Token: token}, nil
}

// ForgotPassword stores a single-use reset token and mails the reset link.
// A failure after the account lookup clears the token fields before returning.
func (s *IdentityService) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return apperrors.InvalidInput("email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("get user by email: %w", err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	token := hex.EncodeToString(raw)

	expires := time.Now().UTC().Add(resetTokenTTL)
	user.ResetTokenHash = hashToken(token)
	user.ResetTokenExpiresAt = &expires

	if err := s.users.Update(ctx, user); err != nil {
		s.clearResetToken(ctx, user)
		return fmt.Errorf("store reset token: %w", err)
	}

	msg := &mailer.Message{
		To:      user.Email,
		Subject: "GenieBazaar password recovery",
		Body: fmt.Sprintf(
			"Your password reset link is:\n\n%s/password/reset/%s\n\nThe link expires in 15 minutes. If you did not request it, ignore this email.",
			s.frontendURL, token,
		),
	}

	if err := s.mail.Send(ctx, msg); err != nil {
		s.clearResetToken(ctx, user)
		return fmt.Errorf("send reset email: %w", err)
	}

	s.logger.InfoContext(ctx, "password reset email sent", slog.String("user_id", user.ID))

	return nil
}

// ResetPassword consumes a reset token and stores the new password.
func (s *IdentityService) ResetPassword(ctx context.Context, token, newPassword, confirmPassword string) error {
	if token == "" {
		return apperrors.InvalidInput("reset token is required")
	}
	if newPassword != confirmPassword {
		return apperrors.InvalidInput("passwords do not match")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.users.GetByResetTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Unauthorized("reset token is invalid")
		}
		return fmt.Errorf("get user by reset token: %w", err)
	}

	if user.ResetTokenExpiresAt == nil || !user.ResetTokenExpiresAt.After(time.Now().UTC()) {
		return apperrors.Gone("reset link has expired")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	user.PasswordHash = string(hashedPassword)
	user.ResetTokenHash = ""
	user.ResetTokenExpiresAt = nil

	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	s.logger.InfoContext(ctx, "password reset completed", slog.String("user_id", user.ID))

	return nil
}

// UpdatePassword changes the caller's password after checking the old one.
func (s *IdentityService) UpdatePassword(ctx context.Context, userID, oldPassword, newPassword, confirmPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user by id: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return apperrors.Unauthorized("old password is incorrect")
	}

	if newPassword != confirmPassword {
		return apperrors.InvalidInput("passwords do not match")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	user.PasswordHash = string(hashedPassword)
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	return nil
}

// UpdateProfile replaces the caller's name, email and optionally the avatar.
func (s *IdentityService) UpdateProfile(ctx context.Context, input *UpdateProfileInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	if input.Name != "" {
		user.Name = input.Name
	}
	if input.Email != "" {
		user.Email = input.Email
	}

	if input.RawAvatar != "" {
		if user.AvatarBlobID != "" {
			if err := s.store.Delete(ctx, user.AvatarBlobID); err != nil {
				s.logger.WarnContext(ctx, "failed to delete old avatar blob",
					slog.String("blob_id", user.AvatarBlobID),
					slog.String("error", err.Error()),
				)
			}
		}

		blobID, url, err := s.uploadAvatar(ctx, input.RawAvatar)
		if err != nil {
			return nil, err
		}
		user.AvatarBlobID = blobID
		user.AvatarURL = url
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	return user, nil
}

// Me returns the caller's account.
func (s *IdentityService) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

// ListUsers returns every account, newest first.
func (s *IdentityService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// GetUser returns a single account by ID.
func (s *IdentityService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

// AdminUpdateUser replaces an account's name, email and role.
func (s *IdentityService) AdminUpdateUser(ctx context.Context, id, name, email, role string) (*domain.User, error) {
	if !domain.IsValidRole(role) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid role %q", role))
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	user.Name = name
	user.Email = email
	user.Role = role

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.InfoContext(ctx, "user updated by admin",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role),
	)

	return user, nil
}

// DeleteUser removes an account and its avatar blob.
func (s *IdentityService) DeleteUser(ctx context.Context, id string) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get user by id: %w", err)
	}

	if user.AvatarBlobID != "" {
		if err := s.store.Delete(ctx, user.AvatarBlobID); err != nil {
			s.logger.WarnContext(ctx, "failed to delete avatar blob",
				slog.String("blob_id", user.AvatarBlobID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.logger.InfoContext(ctx, "user deleted", slog.String("user_id", id))

	return nil
}

// clearResetToken wipes the reset token fields, best effort.
func (s *IdentityService) clearResetToken(ctx context.Context, user *domain.User) {
	user.ResetTokenHash = ""
	user.ResetTokenExpiresAt = nil
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear reset token",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

// uploadAvatar decodes a raw avatar payload and stores it under the avatar folder.
func (s *IdentityService) uploadAvatar(ctx context.Context, raw string) (blobID, url string, err error) {
	data, contentType, err := decodeRawImage(raw)
	if err != nil {
		return "", "", apperrors.InvalidInput("avatar payload is not valid base64")
	}

	key := "avatar/" + uuid.New().String()
	result, err := s.store.Upload(ctx, &storage.UploadInput{
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        bytes.NewReader(data),
	})
	if err != nil {
		return "", "", fmt.Errorf("upload avatar: %w", err)
	}

	return result.Key, result.URL, nil
}

// hashToken returns the SHA256 hex digest of the given token string.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// validatePassword checks the minimum password length.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	return nil
}
