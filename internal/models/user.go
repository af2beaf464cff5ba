// Package models содержит доменные структуры сервиса: пользователей,
// документы учёта (счета продаж и закупок) и производные налоговые данные.
package models

import "time"

// Роли пользователей системы.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Статусы подписки на сервис.
const (
	SubscriptionActive  = "active"
	SubscriptionExpired = "expired"
	SubscriptionPending = "pending"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	UID                 string     // Уникальный идентификатор пользователя
	Name                string     // Имя владельца бизнеса
	Email               string     // Электронная почта (хранится в нижнем регистре, уникальна)
	Phone               string     // Контактный телефон
	BusinessName        string     // Название бизнеса
	GSTIN               string     // Регистрационный номер GST (15 символов)
	PasswordHash        string     // Bcrypt-хэш пароля
	Role                string     // Роль: user или admin
	SubscriptionStatus  string     // Статус подписки: active, expired, pending
	SubscriptionEndDate *time.Time // Дата окончания подписки, nil если не задана
	CreatedAt           time.Time  // Дата регистрации
}

// IsAdmin сообщает, является ли пользователь администратором.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// DummyRegister используется для приёма данных регистрации из JSON-запроса
// до их валидации и преобразования в User.
type DummyRegister struct {
	Name         string `json:"name" validate:"required,min=2,max=100"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required,min=10,max=20"`
	Password     string `json:"password" validate:"required,min=6"`
	BusinessName string `json:"business_name" validate:"required,min=2,max=150"`
	GSTIN        string `json:"gstin" validate:"required,len=15"`
}
