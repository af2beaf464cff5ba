package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/gst-compliance/internal/lib/jwt"
	"github.com/magabrotheeeer/gst-compliance/internal/lib/password"
	"github.com/magabrotheeeer/gst-compliance/internal/models"
	"github.com/magabrotheeeer/gst-compliance/internal/storage/repository"
)

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) RegisterUser(ctx context.Context, user models.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *mockUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserRepository) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserRepository) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *mockUserRepository) RemoveUser(ctx context.Context, userUID string) (int, error) {
	args := m.Called(ctx, userUID)
	return args.Int(0), args.Error(1)
}

func (m *mockUserRepository) UpdateSubscription(ctx context.Context, userUID, status string, endDate *time.Time) error {
	args := m.Called(ctx, userUID, status, endDate)
	return args.Error(0)
}

type mockSessionStore struct {
	mock.Mock
}

func (m *mockSessionStore) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	if user, ok := args.Get(2).(*models.User); ok {
		*(result.(*models.User)) = *user
	}
	return args.Bool(0), args.Error(1)
}

func (m *mockSessionStore) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *mockSessionStore) Invalidate(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type mockJWTMaker struct {
	mock.Mock
}

func (m *mockJWTMaker) GenerateToken(userUID, role string) (string, error) {
	args := m.Called(userUID, role)
	return args.String(0), args.Error(1)
}

func (m *mockJWTMaker) ParseToken(tokenStr string) (*jwt.CustomClaims, error) {
	args := m.Called(tokenStr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jwt.CustomClaims), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegister(t *testing.T) {
	users := new(mockUserRepository)
	svc := NewAuthService(users, new(mockSessionStore), new(mockJWTMaker), time.Hour, discardLogger())

	users.On("RegisterUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return u.Email == "new@example.com" &&
			u.Role == models.RoleUser &&
			u.SubscriptionStatus == models.SubscriptionPending &&
			u.PasswordHash != "secret123"
	})).Return("uid-1", nil)

	uid, err := svc.Register(context.Background(), models.DummyRegister{
		Name:     "Ramesh",
		Email:    "NEW@Example.com",
		Password: "secret123",
	})

	require.NoError(t, err)
	assert.Equal(t, "uid-1", uid)
	users.AssertExpectations(t)
}

func TestLogin(t *testing.T) {
	hash, err := password.GetHash("secret123")
	require.NoError(t, err)

	stored := &models.User{
		UID:                "uid-1",
		Email:              "user@example.com",
		PasswordHash:       hash,
		Role:               models.RoleUser,
		SubscriptionStatus: models.SubscriptionActive,
	}

	tests := []struct {
		name      string
		email     string
		password  string
		setup     func(users *mockUserRepository, sessions *mockSessionStore, maker *mockJWTMaker)
		wantToken string
		wantErr   error
	}{
		{
			name:     "успешный вход",
			email:    "User@Example.com",
			password: "secret123",
			setup: func(users *mockUserRepository, sessions *mockSessionStore, maker *mockJWTMaker) {
				users.On("GetUserByEmail", mock.Anything, "user@example.com").Return(stored, nil)
				maker.On("GenerateToken", "uid-1", models.RoleUser).Return("token-abc", nil)
				sessions.On("Set", mock.Anything, "session:uid-1", stored, time.Hour).Return(nil)
			},
			wantToken: "token-abc",
		},
		{
			name:     "неизвестная почта",
			email:    "ghost@example.com",
			password: "secret123",
			setup: func(users *mockUserRepository, sessions *mockSessionStore, maker *mockJWTMaker) {
				users.On("GetUserByEmail", mock.Anything, "ghost@example.com").Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name:     "неверный пароль",
			email:    "user@example.com",
			password: "wrong-password",
			setup: func(users *mockUserRepository, sessions *mockSessionStore, maker *mockJWTMaker) {
				users.On("GetUserByEmail", mock.Anything, "user@example.com").Return(stored, nil)
			},
			wantErr: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(mockUserRepository)
			sessions := new(mockSessionStore)
			maker := new(mockJWTMaker)
			tt.setup(users, sessions, maker)
			svc := NewAuthService(users, sessions, maker, time.Hour, discardLogger())

			token, user, err := svc.Login(context.Background(), tt.email, tt.password)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, token)
			assert.Equal(t, stored.UID, user.UID)
			users.AssertExpectations(t)
			sessions.AssertExpectations(t)
		})
	}
}

func TestResolve(t *testing.T) {
	stored := &models.User{UID: "uid-1", Email: "user@example.com", Role: models.RoleUser}

	t.Run("снимок сессии найден", func(t *testing.T) {
		users := new(mockUserRepository)
		sessions := new(mockSessionStore)
		sessions.On("Get", mock.Anything, "session:uid-1", mock.Anything).Return(true, nil, stored)

		svc := NewAuthService(users, sessions, new(mockJWTMaker), time.Hour, discardLogger())
		user, err := svc.Resolve(context.Background(), "uid-1")

		require.NoError(t, err)
		assert.Equal(t, "uid-1", user.UID)
		users.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
	})

	t.Run("снимка нет — чтение из базы и пересоздание", func(t *testing.T) {
		users := new(mockUserRepository)
		sessions := new(mockSessionStore)
		sessions.On("Get", mock.Anything, "session:uid-1", mock.Anything).Return(false, nil, nil)
		users.On("GetUser", mock.Anything, "uid-1").Return(stored, nil)
		sessions.On("Set", mock.Anything, "session:uid-1", stored, time.Hour).Return(nil)

		svc := NewAuthService(users, sessions, new(mockJWTMaker), time.Hour, discardLogger())
		user, err := svc.Resolve(context.Background(), "uid-1")

		require.NoError(t, err)
		assert.Equal(t, "uid-1", user.UID)
		sessions.AssertExpectations(t)
	})

	t.Run("повреждённый снимок равносилен отсутствию", func(t *testing.T) {
		users := new(mockUserRepository)
		sessions := new(mockSessionStore)
		sessions.On("Get", mock.Anything, "session:uid-1", mock.Anything).Return(false, errors.New("unmarshal error"), nil)
		users.On("GetUser", mock.Anything, "uid-1").Return(stored, nil)
		sessions.On("Set", mock.Anything, "session:uid-1", stored, time.Hour).Return(nil)

		svc := NewAuthService(users, sessions, new(mockJWTMaker), time.Hour, discardLogger())
		user, err := svc.Resolve(context.Background(), "uid-1")

		require.NoError(t, err)
		assert.Equal(t, "uid-1", user.UID)
	})

	t.Run("пользователь удалён", func(t *testing.T) {
		users := new(mockUserRepository)
		sessions := new(mockSessionStore)
		sessions.On("Get", mock.Anything, "session:uid-1", mock.Anything).Return(false, nil, nil)
		users.On("GetUser", mock.Anything, "uid-1").Return(nil, repository.ErrNotFound)

		svc := NewAuthService(users, sessions, new(mockJWTMaker), time.Hour, discardLogger())
		_, err := svc.Resolve(context.Background(), "uid-1")

		require.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestUpdateSubscription(t *testing.T) {
	endDate := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	updated := &models.User{UID: "uid-1", SubscriptionStatus: models.SubscriptionActive, SubscriptionEndDate: &endDate}

	t.Run("сессия сбрасывается до записи и пересоздаётся после", func(t *testing.T) {
		users := new(mockUserRepository)
		sessions := new(mockSessionStore)
		sessions.On("Invalidate", mock.Anything, "session:uid-1").Return(nil)
		users.On("UpdateSubscription", mock.Anything, "uid-1", models.SubscriptionActive, &endDate).Return(nil)
		users.On("GetUser", mock.Anything, "uid-1").Return(updated, nil)
		sessions.On("Set", mock.Anything, "session:uid-1", updated, time.Hour).Return(nil)

		svc := NewAuthService(users, sessions, new(mockJWTMaker), time.Hour, discardLogger())
		user, err := svc.UpdateSubscription(context.Background(), "uid-1", models.SubscriptionActive, &endDate)

		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionActive, user.SubscriptionStatus)
		users.AssertExpectations(t)
		sessions.AssertExpectations(t)
	})

	t.Run("ошибка сброса сессии останавливает обновление", func(t *testing.T) {
		users := new(mockUserRepository)
		sessions := new(mockSessionStore)
		sessions.On("Invalidate", mock.Anything, "session:uid-1").Return(errors.New("redis down"))

		svc := NewAuthService(users, sessions, new(mockJWTMaker), time.Hour, discardLogger())
		_, err := svc.UpdateSubscription(context.Background(), "uid-1", models.SubscriptionActive, &endDate)

		require.Error(t, err)
		users.AssertNotCalled(t, "UpdateSubscription", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("неизвестный пользователь", func(t *testing.T) {
		users := new(mockUserRepository)
		sessions := new(mockSessionStore)
		sessions.On("Invalidate", mock.Anything, "session:uid-1").Return(nil)
		users.On("UpdateSubscription", mock.Anything, "uid-1", models.SubscriptionActive, &endDate).Return(repository.ErrNotFound)

		svc := NewAuthService(users, sessions, new(mockJWTMaker), time.Hour, discardLogger())
		_, err := svc.UpdateSubscription(context.Background(), "uid-1", models.SubscriptionActive, &endDate)

		require.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestEnsureAdmin(t *testing.T) {
	t.Run("администратор уже существует", func(t *testing.T) {
		users := new(mockUserRepository)
		users.On("GetUserByEmail", mock.Anything, "admin@gsttoday.com").
			Return(&models.User{UID: "uid-admin", Role: models.RoleAdmin}, nil)

		svc := NewAuthService(users, new(mockSessionStore), new(mockJWTMaker), time.Hour, discardLogger())
		err := svc.EnsureAdmin(context.Background(), "Admin@GSTToday.com", "admin123", "Administrator")

		require.NoError(t, err)
		users.AssertNotCalled(t, "RegisterUser", mock.Anything, mock.Anything)
	})

	t.Run("администратор создаётся с ролью admin и активной подпиской", func(t *testing.T) {
		users := new(mockUserRepository)
		users.On("GetUserByEmail", mock.Anything, "admin@gsttoday.com").Return(nil, repository.ErrNotFound)
		users.On("RegisterUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
			return u.Email == "admin@gsttoday.com" &&
				u.Role == models.RoleAdmin &&
				u.SubscriptionStatus == models.SubscriptionActive
		})).Return("uid-admin", nil)

		svc := NewAuthService(users, new(mockSessionStore), new(mockJWTMaker), time.Hour, discardLogger())
		err := svc.EnsureAdmin(context.Background(), "admin@gsttoday.com", "admin123", "Administrator")

		require.NoError(t, err)
		users.AssertExpectations(t)
	})

	t.Run("конкурирующее создание не считается ошибкой", func(t *testing.T) {
		users := new(mockUserRepository)
		users.On("GetUserByEmail", mock.Anything, "admin@gsttoday.com").Return(nil, repository.ErrNotFound)
		users.On("RegisterUser", mock.Anything, mock.Anything).Return("", repository.ErrEmailExists)

		svc := NewAuthService(users, new(mockSessionStore), new(mockJWTMaker), time.Hour, discardLogger())
		err := svc.EnsureAdmin(context.Background(), "admin@gsttoday.com", "admin123", "Administrator")

		require.NoError(t, err)
	})
}

func TestRemoveUser(t *testing.T) {
	t.Run("удаление вместе с сессией", func(t *testing.T) {
		users := new(mockUserRepository)
		sessions := new(mockSessionStore)
		users.On("RemoveUser", mock.Anything, "uid-1").Return(1, nil)
		sessions.On("Invalidate", mock.Anything, "session:uid-1").Return(nil)

		svc := NewAuthService(users, sessions, new(mockJWTMaker), time.Hour, discardLogger())
		err := svc.RemoveUser(context.Background(), "uid-1")

		require.NoError(t, err)
		sessions.AssertExpectations(t)
	})

	t.Run("неизвестный пользователь", func(t *testing.T) {
		users := new(mockUserRepository)
		users.On("RemoveUser", mock.Anything, "uid-404").Return(0, nil)

		svc := NewAuthService(users, new(mockSessionStore), new(mockJWTMaker), time.Hour, discardLogger())
		err := svc.RemoveUser(context.Background(), "uid-404")

		require.ErrorIs(t, err, repository.ErrNotFound)
	})
}
