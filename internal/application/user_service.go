package application

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pks-portal/internal/domain/entity"
	repo "github.com/oksasatya/pks-portal/internal/domain/repository"
	"github.com/oksasatya/pks-portal/pkg/apperror"
	"github.com/oksasatya/pks-portal/pkg/helpers"
	"github.com/oksasatya/pks-portal/pkg/mailer"
	mailtpl "github.com/oksasatya/pks-portal/pkg/mailer/templates"
)

var (
	ErrUserNotFound         = apperror.NotFound("user not found")
	ErrEmailTaken           = apperror.Conflict("email is already registered")
	ErrInvalidCredentials   = apperror.Unauthorized("invalid email or password")
	ErrEmailNotVerified     = apperror.Unauthorized("please verify your email before logging in")
	ErrVerificationNotFound = apperror.NotFound("verification token not found or already used")
	ErrResetTokenInvalid    = apperror.NotFound("reset token is invalid or expired")
	ErrSamePassword         = apperror.BadRequest("new password must differ from the current password")
	ErrDeleteSelf           = apperror.BadRequest("you cannot delete your own account")
	ErrInvalidRole          = apperror.BadRequest("role must be USER or ADMIN")
	ErrPasswordTooLong      = apperror.BadRequest("password must be at most 72 bytes")
)

// MailSettings controls the emails sent during the account lifecycle.
type MailSettings struct {
	Enabled   bool
	VerifyURL string
	ResetURL  string
	Brand     mailtpl.Brand
}

// Service implements the account lifecycle and admin user management.
type Service struct {
	Repo   repo.UserRepository
	JWT    *helpers.JWTManager
	Mail   MailQueue
	Email  MailSettings
	Logger *logrus.Logger
	Clock  Clock

	// ResetTTL overrides the default reset token lifetime when positive.
	ResetTTL time.Duration
}

func NewService(users repo.UserRepository, jwt *helpers.JWTManager, mail MailQueue, email MailSettings, logger *logrus.Logger) *Service {
	return &Service{Repo: users, JWT: jwt, Mail: mail, Email: email, Logger: logger}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginResult carries the session token issued on login.
type LoginResult struct {
	User      *entity.User
	Token     string
	ExpiresAt time.Time
}

type UpdateUserInput struct {
	Name       *string
	Email      *string
	Password   *string
	Role       *entity.Role
	IsVerified *bool
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unverified USER account and sends the verification email.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	email := normalizeEmail(in.Email)
	if _, err := s.Repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, apperror.Internal("failed to check email", err)
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	token := helpers.NewVerificationToken()
	u := &entity.User{
		Name:              strings.TrimSpace(in.Name),
		Email:             email,
		Password:          hash,
		Role:              entity.RoleUser,
		VerificationToken: &token,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, apperror.Internal("failed to create user", err)
	}

	link := withToken(s.Email.VerifyURL, token)
	s.enqueue(ctx, mailer.EmailJob{
		To:       u.Email,
		Template: mailtpl.VerifyEmail,
		Data:     mailtpl.NewVerifyEmailData(s.Email.Brand, u.Name, u.Email, link),
	})
	return u, nil
}

// Login checks credentials, issues a session token and records the visit.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.Repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, apperror.Internal("failed to load user", err)
	}
	if !u.IsVerified {
		return nil, ErrEmailNotVerified
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.JWT.IssueSessionToken(u.ID, string(u.Role))
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("issue session token failed")
		}
		return nil, apperror.Internal("failed to issue session", err)
	}

	now := s.Clock.now().UTC()
	if err := s.Repo.TouchLastVisited(ctx, u.ID, now); err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("update last visited failed")
		}
	} else {
		u.LastVisited = &now
	}
	return &LoginResult{User: u, Token: token, ExpiresAt: exp}, nil
}

// VerifyEmail consumes a verification token.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*entity.User, error) {
	u, err := s.Repo.VerifyByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrVerificationNotFound
		}
		return nil, apperror.Internal("failed to verify user", err)
	}
	return u, nil
}

// ChangePassword replaces the password of an authenticated user.
func (s *Service) ChangePassword(ctx context.Context, userID int64, newPassword string) error {
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if helpers.CompareHashAndPassword(u.Password, newPassword) {
		return ErrSamePassword
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	u.Password = hash
	if err := s.Repo.Update(ctx, u); err != nil {
		return apperror.Internal("failed to update password", err)
	}
	return nil
}

// RequestPasswordReset stores a one hour reset token and emails the link.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (*entity.User, error) {
	u, err := s.Repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperror.NotFound("email is not registered")
		}
		return nil, apperror.Internal("failed to load user", err)
	}
	now := s.Clock.now().UTC()
	token, exp := helpers.NewResetToken(now)
	if s.ResetTTL > 0 {
		exp = now.Add(s.ResetTTL)
	}
	u.ResetPasswordToken = &token
	u.ResetPasswordTokenExpiry = &exp
	if err := s.Repo.Update(ctx, u); err != nil {
		return nil, apperror.Internal("failed to store reset token", err)
	}

	link := withToken(s.Email.ResetURL, token)
	s.enqueue(ctx, mailer.EmailJob{
		To:       u.Email,
		Template: mailtpl.ForgotPassword,
		Data:     mailtpl.NewForgotPasswordData(s.Email.Brand, u.Name, u.Email, link, exp),
	})
	return u, nil
}

// ResetPassword consumes a reset token that has not expired yet.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	now := s.Clock.now().UTC()
	u, err := s.Repo.GetByResetToken(ctx, token, now)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return apperror.Internal("failed to load user", err)
	}
	if helpers.CompareHashAndPassword(u.Password, newPassword) {
		return ErrSamePassword
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Repo.ResetPassword(ctx, u.ID, token, hash, now); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return apperror.Internal("failed to reset password", err)
	}
	return nil
}

func hashPassword(plain string) (string, error) {
	hash, err := helpers.HashPassword(plain)
	if errors.Is(err, helpers.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", apperror.Internal("failed to hash password", err)
	}
	return hash, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]*entity.User, error) {
	users, err := s.Repo.List(ctx)
	if err != nil {
		return nil, apperror.Internal("failed to list users", err)
	}
	return users, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (*entity.User, error) {
	return s.getUser(ctx, id)
}

// UpdateUser applies an admin edit; nil fields are left unchanged.
func (s *Service) UpdateUser(ctx context.Context, id int64, in UpdateUserInput) (*entity.User, error) {
	u, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil && strings.TrimSpace(*in.Email) != "" {
		u.Email = normalizeEmail(*in.Email)
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, ErrInvalidRole
		}
		u.Role = *in.Role
	}
	if in.IsVerified != nil {
		u.IsVerified = *in.IsVerified
		if u.IsVerified {
			u.VerificationToken = nil
		}
	}
	if in.Password != nil && *in.Password != "" {
		hash, err := hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		u.Password = hash
	}
	if err := s.Repo.Update(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperror.Internal("failed to update user", err)
	}
	return u, nil
}

// DeleteUser removes an account; admins cannot remove themselves.
func (s *Service) DeleteUser(ctx context.Context, id, actorID int64) error {
	if id == actorID {
		return ErrDeleteSelf
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return apperror.Internal("failed to delete user", err)
	}
	return nil
}

func (s *Service) getUser(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperror.Internal("failed to load user", err)
	}
	return u, nil
}

func (s *Service) enqueue(ctx context.Context, job mailer.EmailJob) {
	if !s.Email.Enabled || s.Mail == nil {
		if s.Logger != nil {
			s.Logger.WithFields(logrus.Fields{"to": job.To, "template": job.Template}).Debug("email sending disabled, job skipped")
		}
		return
	}
	if err := s.Mail.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{"to": job.To, "template": job.Template}).Warn("failed to publish email job")
	}
}

// withToken appends ?token=<t> to base, keeping any existing query.
func withToken(base, token string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
