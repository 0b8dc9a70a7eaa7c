package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/session"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/security"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

func setup() (*Service, *memory.Store) {
	store := memory.NewStore()
	svc := NewService(
		store.Repositories().Users,
		auth.NewJWTService("test-secret", "clinic-api", time.Hour),
		security.NewBcryptHasher(4),
		validator.New(),
		nil,
	)
	return svc, store
}

func signUpRequest() *model.SignUpRequest {
	return &model.SignUpRequest{
		Name:            "Ana Lima",
		Email:           "Ana@Example.com",
		Password:        "s3cret-pass",
		ConfirmPassword: "s3cret-pass",
	}
}

func TestSignUpThenLogin(t *testing.T) {
	svc, _ := setup()
	ctx := context.Background()

	tokens, err := svc.SignUp(ctx, signUpRequest())
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.NotEmpty(t, tokens.AccessToken)

	p, err := svc.Resolve(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", p.Email)
	assert.Nil(t, p.Clinic)

	login, err := svc.Login(ctx, &model.LoginRequest{Email: "ana@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, login.AccessToken)
}

func TestSignUpValidation(t *testing.T) {
	svc, _ := setup()

	req := signUpRequest()
	req.Password = "short"
	req.ConfirmPassword = "different"
	_, err := svc.SignUp(context.Background(), req)
	require.True(t, apperrors.IsValidation(err))
	fields := apperrors.FieldsOf(err)
	assert.Equal(t, "must be at least 8 characters", fields["password"])
	assert.Equal(t, "does not match", fields["confirm_password"])
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc, _ := setup()
	ctx := context.Background()

	_, err := svc.SignUp(ctx, signUpRequest())
	require.NoError(t, err)

	req := signUpRequest()
	req.Email = "ana@example.com"
	_, err = svc.SignUp(ctx, req)
	assert.Equal(t, "is already registered", apperrors.FieldsOf(err)["email"])
}

func TestLoginFailures(t *testing.T) {
	svc, _ := setup()
	ctx := context.Background()

	_, err := svc.SignUp(ctx, signUpRequest())
	require.NoError(t, err)

	_, err = svc.Login(ctx, &model.LoginRequest{Email: "ana@example.com", Password: "wrong-password"})
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Equal(t, "invalid email or password", err.Error())

	_, err = svc.Login(ctx, &model.LoginRequest{Email: "nobody@example.com", Password: "whatever1"})
	assert.Equal(t, ErrInvalidCredentials, err)
}

func TestResolveBindsFirstClinic(t *testing.T) {
	svc, store := setup()
	ctx := context.Background()

	tokens, err := svc.SignUp(ctx, signUpRequest())
	require.NoError(t, err)
	p, err := svc.Resolve(ctx, tokens.AccessToken)
	require.NoError(t, err)

	clinics := store.Repositories().Clinics
	first := &model.Clinic{Base: model.Base{ID: uuid.New()}, Name: "Primeira", Timezone: "America/Sao_Paulo"}
	require.NoError(t, clinics.CreateWithMember(ctx, first, p.UserID))
	second := &model.Clinic{Base: model.Base{ID: uuid.New()}, Name: "Segunda"}
	require.NoError(t, clinics.CreateWithMember(ctx, second, p.UserID))

	p, err = svc.Resolve(ctx, tokens.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, p.Clinic)
	assert.Equal(t, first.ID, p.Clinic.ID)
	assert.Equal(t, "America/Sao_Paulo", p.Clinic.Timezone)
}

func TestResolveRejectsBadTokens(t *testing.T) {
	svc, _ := setup()
	ctx := context.Background()

	_, err := svc.Resolve(ctx, "garbage")
	assert.True(t, apperrors.IsUnauthorized(err))

	// A valid token for a user that does not exist.
	token, _, err := auth.NewJWTService("test-secret", "clinic-api", time.Hour).
		GenerateAccessToken(auth.Subject{ID: uuid.New(), Email: "ghost@example.com"})
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, token)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestSignOutRevokesToken(t *testing.T) {
	svc, _ := setup()
	ctx := context.Background()

	tokens, err := svc.SignUp(ctx, signUpRequest())
	require.NoError(t, err)
	other, err := svc.Login(ctx, &model.LoginRequest{Email: "ana@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	p, err := svc.Resolve(ctx, tokens.AccessToken)
	require.NoError(t, err)
	require.NotEmpty(t, p.TokenID)
	require.NoError(t, svc.SignOut(ctx, p))

	_, err = svc.Resolve(ctx, tokens.AccessToken)
	assert.True(t, apperrors.IsUnauthorized(err))

	_, err = svc.Resolve(ctx, other.AccessToken)
	assert.NoError(t, err)
}

func TestSignOutRequiresUser(t *testing.T) {
	svc, _ := setup()

	assert.True(t, apperrors.IsUnauthorized(svc.SignOut(context.Background(), nil)))
	assert.True(t, apperrors.IsUnauthorized(svc.SignOut(context.Background(), &session.Principal{UserID: uuid.New()})))
}
