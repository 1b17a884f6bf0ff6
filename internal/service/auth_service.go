package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/avtoscan/reports-backend/internal/logger"
	"github.com/avtoscan/reports-backend/internal/mailer"
	"github.com/avtoscan/reports-backend/internal/models"
	"github.com/avtoscan/reports-backend/internal/pkg/apperror"
	"github.com/avtoscan/reports-backend/internal/repository"
	"github.com/avtoscan/reports-backend/internal/repository/common"
	"github.com/avtoscan/reports-backend/internal/validation"
)

// AuthUserRepository описывает зависимости AuthService от слоя хранилища.
type AuthUserRepository interface {
	SignupTx(ctx context.Context, user *models.User, fn func(*models.User) (string, error)) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*models.User, error)
	UpdateRefreshTokenHash(ctx context.Context, id uuid.UUID, hash *string) error
	SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*models.User, error)
	ResetPasswordTx(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// AuthService инкапсулирует регистрацию, аутентификацию и сброс пароля.
type AuthService struct {
	users         AuthUserRepository
	tokens        *TokenManager
	mail          mailer.Sender
	resetTTL      time.Duration
	publicBaseURL string
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(users AuthUserRepository, tokens *TokenManager, mail mailer.Sender, resetTTL time.Duration, publicBaseURL string) *AuthService {
	return &AuthService{
		users:         users,
		tokens:        tokens,
		mail:          mail,
		resetTTL:      resetTTL,
		publicBaseURL: publicBaseURL,
	}
}

// Credentials содержит email и пароль.
type Credentials struct {
	Email    string
	Password string
}

// AuthResult возвращает итог регистрации или входа.
type AuthResult struct {
	User      *models.User
	TokenPair *TokenPair
}

// Signup создаёт пользователя и сразу выдаёт пару токенов. Вставка
// пользователя и сохранение refresh-сессии выполняются в одной транзакции:
// либо пользователь зарегистрирован и залогинен, либо его нет вовсе.
func (s *AuthService) Signup(ctx context.Context, in Credentials) (*AuthResult, error) {
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось захешировать пароль: %w", err)
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: string(passHash),
		Roles:        []string{models.RoleUser},
	}

	var pair *TokenPair
	err = s.users.SignupTx(ctx, user, func(u *models.User) (string, error) {
		pair, err = s.tokens.GeneratePair(u)
		if err != nil {
			return "", fmt.Errorf("auth service: не удалось выпустить токены: %w", err)
		}
		return hashRefreshToken(pair.RefreshToken)
	})
	if err != nil {
		// Уникальность email обеспечивает констрейнт базы, а не
		// предварительный SELECT: гонка двух одновременных регистраций
		// разрешается на стороне Postgres.
		if common.IsUniqueViolation(err) {
			return nil, apperror.New(apperror.ErrCodeConflict, "email уже зарегистрирован")
		}
		return nil, err
	}

	logger.Log.WithField("user_id", user.ID).Info("пользователь зарегистрирован")

	return &AuthResult{User: user, TokenPair: pair}, nil
}

// Signin проверяет учётные данные и выдаёт новую пару токенов.
func (s *AuthService) Signin(ctx context.Context, in Credentials) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.New(apperror.ErrCodeUnauthorized, "неверный email или пароль")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "неверный email или пароль")
	}

	pair, err := s.tokens.GeneratePair(user)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось выпустить токены: %w", err)
	}

	refreshHash, err := hashRefreshToken(pair.RefreshToken)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateRefreshTokenHash(ctx, user.ID, &refreshHash); err != nil {
		return nil, err
	}

	return &AuthResult{User: user, TokenPair: pair}, nil
}

// Refresh проверяет refresh токен против сохранённого хэша и ротирует пару.
// Старый refresh токен после ротации недействителен.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "refresh токен невалиден")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "refresh токен невалиден")
	}

	user, err := s.users.GetByID(ctx, userID, false)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.New(apperror.ErrCodeUnauthorized, "refresh токен невалиден")
		}
		return nil, err
	}

	if user.RefreshTokenHash == nil {
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "сессия завершена")
	}
	digest := sha256.Sum256([]byte(refreshToken))
	if err := bcrypt.CompareHashAndPassword([]byte(*user.RefreshTokenHash), digest[:]); err != nil {
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "refresh токен отозван")
	}

	pair, err := s.tokens.GeneratePair(user)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось выпустить токены: %w", err)
	}

	refreshHash, err := hashRefreshToken(pair.RefreshToken)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateRefreshTokenHash(ctx, user.ID, &refreshHash); err != nil {
		return nil, err
	}

	return &AuthResult{User: user, TokenPair: pair}, nil
}

// Logout отзывает refresh-сессию пользователя.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.UpdateRefreshTokenHash(ctx, userID, nil); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "пользователь не найден")
		}
		return err
	}
	return nil
}

// Me возвращает профиль текущего пользователя.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID, false)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "пользователь не найден")
		}
		return nil, err
	}
	return user, nil
}

// RequestPasswordReset генерирует одноразовый токен сброса и отправляет
// письмо со ссылкой. Ответ одинаков независимо от того, существует ли
// email: перебор зарегистрированных адресов не должен быть возможен.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("auth service: не удалось сгенерировать токен сброса: %w", err)
	}
	token := hex.EncodeToString(raw)

	// В базе лежит только SHA-256 от токена: утечка дампа не даёт
	// рабочих ссылок сброса.
	digest := sha256.Sum256([]byte(token))
	tokenHash := hex.EncodeToString(digest[:])

	if err := s.users.SetResetToken(ctx, user.ID, tokenHash, time.Now().Add(s.resetTTL)); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.publicBaseURL, token)
	text := fmt.Sprintf("Для сброса пароля перейдите по ссылке: %s\nСсылка действует %s.", link, s.resetTTL)
	if err := s.mail.Send(ctx, user.Email, "Сброс пароля", text, ""); err != nil {
		logger.Log.WithError(err).WithField("user_id", user.ID).Error("не удалось отправить письмо сброса пароля")
		return fmt.Errorf("auth service: %w", err)
	}

	return nil
}

// ResetPassword меняет пароль по действующему токену сброса. Вместе с
// паролем атомарно гасится сам токен и отзывается refresh-сессия.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	digest := sha256.Sum256([]byte(token))
	user, err := s.users.GetByResetTokenHash(ctx, hex.EncodeToString(digest[:]))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.New(apperror.ErrCodeUnauthorized, "токен сброса невалиден или истёк")
		}
		return err
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth service: не удалось захешировать пароль: %w", err)
	}

	if err := s.users.ResetPasswordTx(ctx, user.ID, string(passHash)); err != nil {
		return err
	}

	logger.Log.WithField("user_id", user.ID).Info("пароль сброшен по токену")
	return nil
}

// hashRefreshToken возвращает bcrypt-хэш refresh токена. JWT длиннее
// лимита bcrypt в 72 байта, поэтому хэшируется его SHA-256 дайджест.
func hashRefreshToken(token string) (string, error) {
	digest := sha256.Sum256([]byte(token))
	hash, err := bcrypt.GenerateFromPassword(digest[:], bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth service: не удалось захешировать refresh токен: %w", err)
	}
	return string(hash), nil
}
