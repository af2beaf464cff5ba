// Package jwt реализует генерацию и парсинг JWT токенов с пользовательскими claim полями.
//
// CustomClaims расширяет стандартные claims JWT, добавляя идентификатор
// пользователя и его роль. Maker определяет интерфейс для создания и
// проверки токенов, MakerImpl — реализация с секретным ключом и TTL.
package jwt

import (
	"time"
)

// Maker описывает интерфейс для генерации и парсинга JWT токенов.
type Maker interface {
	// GenerateToken создает токен с идентификатором пользователя и ролью.
	GenerateToken(userUID, role string) (string, error)
	// ParseToken возвращает *CustomClaims, если токен валиден.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует интерфейс Maker с использованием секретного ключа
// и времени жизни токена (TTL).
type MakerImpl struct {
	secretKey string        // Секретный ключ для подписи токенов.
	tokenTTL  time.Duration // Время жизни токена.
}

// NewJWTMaker создаёт новый экземпляр MakerImpl на основе секретного ключа и TTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}

// TokenTTL возвращает время жизни выпускаемых токенов.
// Используется при сохранении сессии, чтобы её срок совпадал со сроком токена.
func (j *MakerImpl) TokenTTL() time.Duration {
	return j.tokenTTL
}
