package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/session"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/security"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

const tokenType = "Bearer"

// ErrInvalidCredentials is returned by Login for an unknown email or a wrong
// password alike.
var ErrInvalidCredentials = &apperrors.AppError{
	Code:    apperrors.ErrUnauthorized,
	Message: "invalid email or password",
}

type AuthServicer interface {
	session.Provider
	SignUp(ctx context.Context, req *model.SignUpRequest) (*model.TokenResponse, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error)
	SignOut(ctx context.Context, p *session.Principal) error
}

type Service struct {
	users    repository.UserRepository
	jwtSvc   auth.JWTService
	hasher   security.PasswordHasher
	validate *validator.Validator
	logger   *logger.Logger
	// revoked holds the ids of signed out tokens until they expire.
	revoked  *cache.Cache
}

func NewService(users repository.UserRepository, jwtSvc auth.JWTService, hasher security.PasswordHasher,
	v *validator.Validator, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		users:    users,
		jwtSvc:   jwtSvc,
		hasher:   hasher,
		validate: v,
		logger:   log,
		revoked:  cache.New(cache.NoExpiration, 10*time.Minute),
	}
}

func (s *Service) SignUp(ctx context.Context, req *model.SignUpRequest) (*model.TokenResponse, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooShort) {
			return nil, apperrors.Validation(apperrors.FieldErrors{"password": err.Error()})
		}
		return nil, apperrors.Internal(err)
	}

	user := &model.User{
		Base:         model.Base{ID: uuid.New()},
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Validation(apperrors.FieldErrors{"email": "is already registered"})
		}
		s.logger.WithContext(ctx).Error(err, "failed to create user")
		return nil, apperrors.Internal(err)
	}

	s.logger.WithContext(ctx).Info("user signed up", "user_id", user.ID.String())
	return s.issue(user)
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.WithContext(ctx).Error(err, "failed to get user")
		return nil, apperrors.Internal(err)
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		s.logger.WithContext(ctx).Warn("login failed", "user_id", user.ID.String())
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// Resolve turns an access token into a principal bound to the user's
// earliest clinic, if any.
func (s *Service) Resolve(ctx context.Context, token string) (*session.Principal, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	if _, ok := s.revoked.Get(claims.ID); ok {
		return nil, apperrors.Unauthorized(errors.New("token has been signed out"))
	}

	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized(err)
		}
		return nil, apperrors.Internal(err)
	}

	p := &session.Principal{UserID: user.ID, Email: user.Email, Name: user.Name, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		p.TokenExpiresAt = claims.ExpiresAt.Time
	}

	clinic, err := s.users.FirstMembership(ctx, user.ID)
	switch {
	case err == nil:
		p.Clinic = &session.Clinic{ID: clinic.ID, Name: clinic.Name, Timezone: clinic.Timezone}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.Internal(err)
	}
	return p, nil
}

// SignOut revokes the token p was resolved from. The revocation lasts until
// the token would have expired anyway.
func (s *Service) SignOut(ctx context.Context, p *session.Principal) error {
	if err := session.RequireUser(p); err != nil {
		return err
	}
	if p.TokenID == "" {
		return apperrors.Unauthorized(nil)
	}
	ttl := time.Until(p.TokenExpiresAt)
	if ttl <= 0 {
		return nil
	}
	s.revoked.Set(p.TokenID, struct{}{}, ttl)
	s.logger.WithContext(ctx).Info("user signed out", "user_id", p.UserID.String())
	return nil
}

func (s *Service) issue(user *model.User) (*model.TokenResponse, error) {
	token, expiresAt, err := s.jwtSvc.GenerateAccessToken(auth.Subject{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
	})
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &model.TokenResponse{
		AccessToken: token,
		TokenType:   tokenType,
		ExpiresAt:   expiresAt,
	}, nil
}
