package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/avtoscan/reports-backend/internal/models"
	"github.com/avtoscan/reports-backend/internal/pkg/apperror"
	"github.com/avtoscan/reports-backend/internal/repository"
)

type mockAuthUsers struct {
	mock.Mock
}

func (m *mockAuthUsers) SignupTx(ctx context.Context, user *models.User, fn func(*models.User) (string, error)) error {
	args := m.Called(ctx, user)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	user.ID = uuid.New()
	hash, err := fn(user)
	if err != nil {
		return err
	}
	user.RefreshTokenHash = &hash
	return nil
}

func (m *mockAuthUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthUsers) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*models.User, error) {
	args := m.Called(ctx, id, includeDeleted)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthUsers) UpdateRefreshTokenHash(ctx context.Context, id uuid.UUID, hash *string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

func (m *mockAuthUsers) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, id, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *mockAuthUsers) GetByResetTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthUsers) ResetPasswordTx(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, to, subject, text, html string) error {
	args := m.Called(ctx, to, subject, text, html)
	return args.Error(0)
}

func newTestTokens() *TokenManager {
	return NewTokenManager("test-access-secret", "test-refresh-secret", 15*time.Minute, 720*time.Hour)
}

func newAuthService(users *mockAuthUsers, mail *mockMailer) *AuthService {
	return NewAuthService(users, newTestTokens(), mail, time.Hour, "http://localhost:8080")
}

func TestAuthService_Signup_Success(t *testing.T) {
	users := new(mockAuthUsers)
	svc := newAuthService(users, new(mockMailer))
	ctx := context.Background()

	users.On("SignupTx", ctx, mock.AnythingOfType("*models.User")).Return(nil)

	result, err := svc.Signup(ctx, Credentials{Email: "New@Example.com", Password: "Password1"})
	require.NoError(t, err)

	assert.Equal(t, "new@example.com", result.User.Email, "email нормализуется к нижнему регистру")
	assert.Equal(t, []string{models.RoleUser}, []string(result.User.Roles))
	assert.NotEmpty(t, result.TokenPair.AccessToken)
	assert.NotEmpty(t, result.TokenPair.RefreshToken)
	require.NotNil(t, result.User.RefreshTokenHash)

	// Пароль никогда не хранится открытым текстом.
	assert.NotEqual(t, "Password1", result.User.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(result.User.PasswordHash), []byte("Password1")))
}

func TestAuthService_Signup_EmailInUse(t *testing.T) {
	users := new(mockAuthUsers)
	svc := newAuthService(users, new(mockMailer))
	ctx := context.Background()

	users.On("SignupTx", ctx, mock.AnythingOfType("*models.User")).
		Return(&pq.Error{Code: "23505"})

	_, err := svc.Signup(ctx, Credentials{Email: "taken@example.com", Password: "Password1"})
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
}

func TestAuthService_Signup_WeakPassword(t *testing.T) {
	svc := newAuthService(new(mockAuthUsers), new(mockMailer))

	_, err := svc.Signup(context.Background(), Credentials{Email: "a@example.com", Password: "short"})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestAuthService_Signin_WrongPassword(t *testing.T) {
	users := new(mockAuthUsers)
	svc := newAuthService(users, new(mockMailer))
	ctx := context.Background()

	passHash, _ := bcrypt.GenerateFromPassword([]byte("Password1"), bcrypt.MinCost)
	user := &models.User{ID: uuid.New(), Email: "a@example.com", PasswordHash: string(passHash)}
	users.On("GetByEmail", ctx, "a@example.com").Return(user, nil)

	_, err := svc.Signin(ctx, Credentials{Email: "a@example.com", Password: "wrong"})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.ErrCodeUnauthorized, appErr.Code)
}

func TestAuthService_Signin_UnknownEmailSameError(t *testing.T) {
	users := new(mockAuthUsers)
	svc := newAuthService(users, new(mockMailer))
	ctx := context.Background()

	users.On("GetByEmail", ctx, "ghost@example.com").Return(nil, repository.ErrUserNotFound)

	_, err := svc.Signin(ctx, Credentials{Email: "ghost@example.com", Password: "Password1"})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	// Несуществующий email и неверный пароль неразличимы снаружи.
	assert.Equal(t, "неверный email или пароль", appErr.Message)
}

func TestAuthService_Refresh_RotatesToken(t *testing.T) {
	users := new(mockAuthUsers)
	svc := newAuthService(users, new(mockMailer))
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Email: "a@example.com", Roles: []string{models.RoleUser}}
	pair, err := newTestTokens().GeneratePair(user)
	require.NoError(t, err)

	storedHash, err := hashRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	user.RefreshTokenHash = &storedHash

	users.On("GetByID", ctx, user.ID, false).Return(user, nil)
	users.On("UpdateRefreshTokenHash", ctx, user.ID, mock.AnythingOfType("*string")).Return(nil)

	result, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, result.TokenPair.AccessToken)
	users.AssertCalled(t, "UpdateRefreshTokenHash", ctx, user.ID, mock.AnythingOfType("*string"))
}

func TestAuthService_Refresh_RevokedToken(t *testing.T) {
	users := new(mockAuthUsers)
	svc := newAuthService(users, new(mockMailer))
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Email: "a@example.com"}
	pair, err := newTestTokens().GeneratePair(user)
	require.NoError(t, err)

	// После logout хэш пуст: даже валидный по подписи токен отклоняется.
	users.On("GetByID", ctx, user.ID, false).Return(user, nil)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.ErrCodeUnauthorized, appErr.Code)
}

func TestAuthService_Refresh_Garbage(t *testing.T) {
	svc := newAuthService(new(mockAuthUsers), new(mockMailer))

	_, err := svc.Refresh(context.Background(), "not-a-jwt")
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.ErrCodeUnauthorized, appErr.Code)
}

func TestAuthService_RequestPasswordReset_UnknownEmailSilent(t *testing.T) {
	users := new(mockAuthUsers)
	mail := new(mockMailer)
	svc := newAuthService(users, mail)
	ctx := context.Background()

	users.On("GetByEmail", ctx, "ghost@example.com").Return(nil, repository.ErrUserNotFound)

	// Неизвестный email не раскрывается: ни ошибки, ни письма.
	err := svc.RequestPasswordReset(ctx, "ghost@example.com")
	require.NoError(t, err)
	mail.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_RequestPasswordReset_SendsMail(t *testing.T) {
	users := new(mockAuthUsers)
	mail := new(mockMailer)
	svc := newAuthService(users, mail)
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Email: "a@example.com"}
	users.On("GetByEmail", ctx, "a@example.com").Return(user, nil)
	users.On("SetResetToken", ctx, user.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)
	mail.On("Send", ctx, "a@example.com", "Сброс пароля", mock.AnythingOfType("string"), "").Return(nil)

	err := svc.RequestPasswordReset(ctx, "a@example.com")
	require.NoError(t, err)

	// В базу уходит хэш, а не сам токен из письма.
	storedHash := users.Calls[1].Arguments.String(2)
	sentText := mail.Calls[0].Arguments.String(3)
	assert.NotContains(t, sentText, storedHash)
}

func TestAuthService_ResetPassword_ExpiredToken(t *testing.T) {
	users := new(mockAuthUsers)
	svc := newAuthService(users, new(mockMailer))
	ctx := context.Background()

	users.On("GetByResetTokenHash", ctx, mock.AnythingOfType("string")).
		Return(nil, repository.ErrUserNotFound)

	err := svc.ResetPassword(ctx, "deadbeef", "NewPassword1")
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.ErrCodeUnauthorized, appErr.Code)
}

func TestAuthService_ResetPassword_Success(t *testing.T) {
	users := new(mockAuthUsers)
	svc := newAuthService(users, new(mockMailer))
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Email: "a@example.com"}
	users.On("GetByResetTokenHash", ctx, mock.AnythingOfType("string")).Return(user, nil)
	users.On("ResetPasswordTx", ctx, user.ID, mock.AnythingOfType("string")).Return(nil)

	err := svc.ResetPassword(ctx, "deadbeef", "NewPassword1")
	require.NoError(t, err)

	newHash := users.Calls[1].Arguments.String(2)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(newHash), []byte("NewPassword1")))
}
