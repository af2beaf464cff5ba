// Package services содержит логику бизнес-уровня для работы с пользователями,
// аутентификацией и жизненным циклом сессии.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/gst-compliance/internal/lib/jwt"
	"github.com/magabrotheeeer/gst-compliance/internal/lib/password"
	"github.com/magabrotheeeer/gst-compliance/internal/lib/sl"
	"github.com/magabrotheeeer/gst-compliance/internal/models"
	"github.com/magabrotheeeer/gst-compliance/internal/storage/repository"
)

// ErrInvalidCredentials возвращается при неверной паре почта/пароль.
// Причина (нет пользователя или не совпал пароль) наружу не раскрывается.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// RegisterUser сохраняет нового пользователя и возвращает его UID.
	RegisterUser(ctx context.Context, user models.User) (string, error)
	// GetUserByEmail возвращает пользователя по почте или ErrNotFound.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUser возвращает пользователя по UID или ErrNotFound.
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	// ListUsers возвращает список пользователей с пагинацией.
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	// RemoveUser удаляет пользователя и возвращает количество удалённых строк.
	RemoveUser(ctx context.Context, userUID string) (int, error)
	// UpdateSubscription обновляет статус подписки и дату окончания.
	UpdateSubscription(ctx context.Context, userUID, status string, endDate *time.Time) error
}

// SessionStore описывает хранилище снимков сессий.
type SessionStore interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// AuthService отвечает за регистрацию, вход, выход, восстановление сессии
// и обновление подписки пользователя.
type AuthService struct {
	users    UserRepository
	sessions SessionStore
	jwtMaker jwt.Maker
	tokenTTL time.Duration
	log      *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, sessions SessionStore, jwtMaker jwt.Maker, tokenTTL time.Duration, log *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		jwtMaker: jwtMaker,
		tokenTTL: tokenTTL,
		log:      log,
	}
}

func sessionKey(userUID string) string {
	return "session:" + userUID
}

// Register создает нового пользователя с хэшированием пароля,
// ролью user и статусом подписки pending. Почта приводится к нижнему
// регистру, её уникальность обеспечивает хранилище.
func (s *AuthService) Register(ctx context.Context, req models.DummyRegister) (string, error) {
	hashed, err := password.GetHash(req.Password)
	if err != nil {
		return "", err
	}
	user := models.User{
		Name:               req.Name,
		Email:              strings.ToLower(req.Email),
		Phone:              req.Phone,
		BusinessName:       req.BusinessName,
		GSTIN:              strings.ToUpper(req.GSTIN),
		PasswordHash:       hashed,
		Role:               models.RoleUser, // дефолтная роль при регистрации
		SubscriptionStatus: models.SubscriptionPending,
	}
	return s.users.RegisterUser(ctx, user)
}

// Login проверяет пароль пользователя, генерирует JWT и сохраняет
// снимок сессии со сроком жизни токена.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (string, *models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := s.jwtMaker.GenerateToken(user.UID, user.Role)
	if err != nil {
		return "", nil, err
	}
	if err := s.sessions.Set(ctx, sessionKey(user.UID), user, s.tokenTTL); err != nil {
		s.log.Warn("failed to persist session", slog.String("user_uid", user.UID), sl.Err(err))
	}
	return token, user, nil
}

// Logout удаляет сохранённую сессию. Операция тотальна: ошибка хранилища
// логируется, но наружу не возвращается.
func (s *AuthService) Logout(ctx context.Context, userUID string) {
	if err := s.sessions.Invalidate(ctx, sessionKey(userUID)); err != nil {
		s.log.Warn("failed to invalidate session", slog.String("user_uid", userUID), sl.Err(err))
	}
}

// Resolve восстанавливает сессию пользователя по UID из валидного токена.
//
// Сначала читается снимок из хранилища сессий; повреждённый или
// отсутствующий снимок считается отсутствием сессии, и пользователь
// перечитывается из базы данных, после чего снимок пересоздаётся.
func (s *AuthService) Resolve(ctx context.Context, userUID string) (*models.User, error) {
	var cached models.User
	found, err := s.sessions.Get(ctx, sessionKey(userUID), &cached)
	if err != nil {
		// Нечитаемый снимок равносилен отсутствию сессии.
		s.log.Warn("failed to read session snapshot", slog.String("user_uid", userUID), sl.Err(err))
	} else if found && cached.UID == userUID {
		return &cached, nil
	}

	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Set(ctx, sessionKey(userUID), user, s.tokenTTL); err != nil {
		s.log.Warn("failed to persist session", slog.String("user_uid", userUID), sl.Err(err))
	}
	return user, nil
}

// UpdateSubscription обновляет статус подписки пользователя.
//
// Строка в базе — источник истины: снимок сессии удаляется до записи и
// пересоздаётся после неё, поэтому читатель никогда не увидит обновлённую
// сессию при старой записи или наоборот.
func (s *AuthService) UpdateSubscription(ctx context.Context, userUID, status string, endDate *time.Time) (*models.User, error) {
	const op = "auth.UpdateSubscription"

	if err := s.sessions.Invalidate(ctx, sessionKey(userUID)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.UpdateSubscription(ctx, userUID, status, endDate); err != nil {
		return nil, err
	}
	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Set(ctx, sessionKey(userUID), user, s.tokenTTL); err != nil {
		s.log.Warn("failed to persist session", slog.String("user_uid", userUID), sl.Err(err))
	}
	return user, nil
}

// ListUsers возвращает список пользователей (админская операция).
func (s *AuthService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	return s.users.ListUsers(ctx, limit, offset)
}

// RemoveUser удаляет пользователя и его сессию (админская операция).
func (s *AuthService) RemoveUser(ctx context.Context, userUID string) error {
	count, err := s.users.RemoveUser(ctx, userUID)
	if err != nil {
		return err
	}
	if count == 0 {
		return repository.ErrNotFound
	}
	s.Logout(ctx, userUID)
	return nil
}

// EnsureAdmin создаёт учётную запись администратора при первом запуске.
// Привилегированный вход существует только как обычная запись в базе,
// без специальных ветвей в Login.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, rawPassword, name string) error {
	const op = "auth.EnsureAdmin"

	email = strings.ToLower(email)
	_, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	admin := models.User{
		Name:               name,
		Email:              email,
		Phone:              "+91 9876543210",
		BusinessName:       "GST Today Admin",
		GSTIN:              "ADMIN123456789Z",
		PasswordHash:       hashed,
		Role:               models.RoleAdmin,
		SubscriptionStatus: models.SubscriptionActive,
	}
	if _, err := s.users.RegisterUser(ctx, admin); err != nil {
		// Конкурирующий запуск мог уже создать запись.
		if errors.Is(err, repository.ErrEmailExists) {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("admin account seeded", slog.String("email", email))
	return nil
}
