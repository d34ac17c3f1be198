package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"hirelane/internal/apperr"
	"hirelane/internal/logger"
	"hirelane/internal/store"
	"hirelane/internal/validation"

	"github.com/google/uuid"
)

// Service logs users in with a phone code and resolves their API tokens.
type Service struct {
	users  store.UserStore
	otp    *OTPService
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates the identity service.
func NewService(users store.UserStore, otp *OTPService, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{users: users, otp: otp, logger: log, now: time.Now}
}

// LoginInput is what a caller submits to exchange a code for a token. Role
// and Name only matter when the phone is not registered yet.
type LoginInput struct {
	Phone string     `json:"phone"`
	Code  string     `json:"otp"`
	Role  store.Role `json:"role"`
	Name  string     `json:"name"`
}

// Session is the result of a login. Token is shown once and never stored.
type Session struct {
	User    *store.User `json:"user"`
	Token   string      `json:"token"`
	Created bool        `json:"is_new_user"`
}

// RequestCode issues a login code for phone.
func (s *Service) RequestCode(ctx context.Context, phone string) (time.Duration, error) {
	return s.otp.Issue(ctx, phone)
}

// Login verifies the code, registers the phone on first use and issues a new
// API token. Issuing a token replaces the previous one.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if in.Phone == "" || in.Code == "" {
		fields := map[string]string{}
		if in.Phone == "" {
			fields["phone"] = "is required"
		}
		if in.Code == "" {
			fields["otp"] = "is required"
		}
		return nil, apperr.Validation(fields)
	}
	if in.Role == "" {
		in.Role = store.RoleWorker
	}
	if in.Role != store.RoleWorker && in.Role != store.RoleEmployer {
		return nil, apperr.Validation(map[string]string{"role": "must be one of: worker, employer"})
	}

	if err := s.otp.Verify(ctx, in.Phone, in.Code); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx, s.logger)
	created := false
	user, err := s.users.GetUserByPhone(ctx, in.Phone)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := validation.Registration(in.Name, in.Role); err != nil {
			return nil, err
		}
		now := s.now().UTC()
		user = &store.User{
			ID:         uuid.New(),
			Name:       strings.TrimSpace(in.Name),
			Phone:      in.Phone,
			Role:       in.Role,
			Experience: store.ExperienceFresher,
			IsActive:   true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.users.CreateUser(ctx, nil, user); err != nil {
			log.Error("failed to register user", "error", err)
			return nil, apperr.Internal(err, "failed to register user")
		}
		created = true
		log.Info("user registered", "user_id", user.ID, "role", user.Role)
	case err != nil:
		log.Error("failed to load user", "error", err)
		return nil, apperr.Internal(err, "failed to load user")
	case !user.IsActive:
		return nil, apperr.Forbidden("account is deactivated")
	}

	token, err := NewToken()
	if err != nil {
		return nil, apperr.Internal(err, "failed to issue token")
	}
	if err := s.users.SetAPIKeyHash(ctx, user.ID, HashKey(token)); err != nil {
		log.Error("failed to store token", "user_id", user.ID, "error", err)
		return nil, apperr.Internal(err, "failed to issue token")
	}

	log.Info("user logged in", "user_id", user.ID)
	return &Session{User: user, Token: token, Created: created}, nil
}

// Authenticate resolves a bearer token to the principal of an active user.
func (s *Service) Authenticate(ctx context.Context, token string) (*Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.Unauthorized("missing token")
	}
	user, err := s.users.GetUserByAPIKeyHash(ctx, HashKey(token))
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unauthorized("invalid token")
	}
	if err != nil {
		logger.FromContext(ctx, s.logger).Error("failed to resolve token", "error", err)
		return nil, apperr.Internal(err, "failed to authenticate")
	}
	return PrincipalOf(user), nil
}

// Me returns the caller's user record.
func (s *Service) Me(ctx context.Context, p *Principal) (*store.User, error) {
	if err := Require(p, store.RoleWorker, store.RoleEmployer, store.RoleAdmin); err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("user %s not found", p.ID)
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load user")
	}
	return user, nil
}

// Logout revokes the caller's token.
func (s *Service) Logout(ctx context.Context, p *Principal) error {
	if err := Require(p, store.RoleWorker, store.RoleEmployer, store.RoleAdmin); err != nil {
		return err
	}
	if err := s.users.SetAPIKeyHash(ctx, p.ID, ""); err != nil {
		logger.FromContext(ctx, s.logger).Error("failed to revoke token", "user_id", p.ID, "error", err)
		return apperr.Internal(err, "failed to log out")
	}
	return nil
}
