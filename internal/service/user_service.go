package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"notekeeper/internal/credential"
	"notekeeper/internal/domain"
	"notekeeper/internal/repository"
)

// CredentialService owns registration, login evaluation and password handling.
type CredentialService interface {
	Register(ctx context.Context, username, password, email string) error
	Login(ctx context.Context, username, password string) (*domain.UserSummary, error)
	// LoginFrom is Login with the caller's address recorded in the audit trail.
	LoginFrom(ctx context.Context, username, password, ipAddress string) (*domain.UserSummary, error)
	HashPassword(password, salt string) (string, error)
	VerifyPassword(storedHash, candidate string) bool
	GenerateStrongPassword(length int) (string, error)
	RecentAttempts(ctx context.Context, username string, limit int) ([]domain.LoginAttempt, error)
	// Profile returns the account behind a login summary without its password hash.
	Profile(ctx context.Context, userID int64) (*domain.User, error)
}

type credentialService struct {
	users    repository.UserRepository
	attempts repository.LoginAttemptRepository
	hasher   *credential.Hasher
	logger   logrus.FieldLogger
	now      func() time.Time
}

func NewCredentialService(users repository.UserRepository, attempts repository.LoginAttemptRepository, hasher *credential.Hasher, logger logrus.FieldLogger) CredentialService {
	if hasher == nil {
		hasher = credential.NewHasher(credential.MinIterations)
	}
	return &credentialService{
		users:    users,
		attempts: attempts,
		hasher:   hasher,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *credentialService) Register(ctx context.Context, username, password, email string) error {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := credential.ValidateUsername(username); err != nil {
		return err
	}
	if err := credential.ValidatePassword(password); err != nil {
		return err
	}
	if err := credential.ValidateEmail(email); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(password, "")
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		Email:        email,
		IsActive:     true,
	}

	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrDuplicateUser
		}
		s.logger.WithError(err).WithField("username", username).Error("register user")
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "username": username}).Info("user registered")
	return nil
}

func (s *credentialService) Login(ctx context.Context, username, password string) (*domain.UserSummary, error) {
	return s.LoginFrom(ctx, username, password, "")
}

func (s *credentialService) LoginFrom(ctx context.Context, username, password, ipAddress string) (*domain.UserSummary, error) {
	username = strings.TrimSpace(username)

	summary, err := s.authenticate(ctx, username, password)
	s.recordAttempt(ctx, username, ipAddress, err == nil)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"user_id": summary.ID, "username": summary.Username}).Info("user logged in")
	return summary, nil
}

func (s *credentialService) authenticate(ctx context.Context, username, password string) (*domain.UserSummary, error) {
	user, err := s.users.GetActiveByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFoundOrInactive
		}
		s.logger.WithError(err).WithField("username", username).Error("lookup user")
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, ErrWrongPassword
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("update last login")
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	return &domain.UserSummary{ID: user.ID, Username: user.Username}, nil
}

// recordAttempt never fails the caller; the audit trail is best effort.
func (s *credentialService) recordAttempt(ctx context.Context, username, ipAddress string, success bool) {
	attempt := &domain.LoginAttempt{
		Username:    username,
		IPAddress:   ipAddress,
		AttemptTime: s.now(),
		Success:     success,
	}
	if err := s.attempts.Append(ctx, attempt); err != nil {
		s.logger.WithError(err).WithField("username", username).Warn("record login attempt")
	}
}

func (s *credentialService) HashPassword(password, salt string) (string, error) {
	return s.hasher.Hash(password, salt)
}

func (s *credentialService) VerifyPassword(storedHash, candidate string) bool {
	return s.hasher.Verify(storedHash, candidate)
}

func (s *credentialService) GenerateStrongPassword(length int) (string, error) {
	return credential.GenerateStrongPassword(length)
}

func (s *credentialService) RecentAttempts(ctx context.Context, username string, limit int) ([]domain.LoginAttempt, error) {
	attempts, err := s.attempts.ListByUsername(ctx, strings.TrimSpace(username), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return attempts, nil
}

func (s *credentialService) Profile(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFoundOrInactive
		}
		s.logger.WithError(err).WithField("user_id", userID).Error("load profile")
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	user.PasswordHash = ""
	return user, nil
}
