// Package services содержит политику доступа к защищённым маршрутам.
//
// Решение принимается чистой функцией от снимка пользователя и требований
// маршрута: одинаковые входы всегда дают одинаковый результат.
package services

import "github.com/magabrotheeeer/gst-compliance/internal/models"

// Цели перенаправления при отказе в доступе.
const (
	RedirectWelcome   = "/welcome"   // Точка входа для неаутентифицированных
	RedirectHome      = "/"          // Домашняя страница
	RedirectSubscribe = "/subscribe" // Предложение оформить подписку
)

// Decision — результат проверки доступа.
type Decision struct {
	Allowed    bool   // Разрешён ли доступ
	RedirectTo string // Куда перенаправить при отказе
}

// Check применяет правила доступа по порядку, побеждает первое совпавшее:
//
//  1. Нет пользователя — отказ, перенаправление на точку входа.
//  2. Маршрут только для администратора, а роль не admin — отказ, домой.
//  3. Маршрут требует подписку, статус не active и роль не admin — отказ,
//     на страницу подписки. Администратор проходит проверку подписки
//     безусловно: это осознанный обходной механизм, а не ошибка.
//  4. Иначе — доступ разрешён.
func Check(user *models.User, requiresSubscription, requiresAdmin bool) Decision {
	if user == nil {
		return Decision{Allowed: false, RedirectTo: RedirectWelcome}
	}
	if requiresAdmin && !user.IsAdmin() {
		return Decision{Allowed: false, RedirectTo: RedirectHome}
	}
	if requiresSubscription && user.SubscriptionStatus != models.SubscriptionActive && !user.IsAdmin() {
		return Decision{Allowed: false, RedirectTo: RedirectSubscribe}
	}
	return Decision{Allowed: true}
}
