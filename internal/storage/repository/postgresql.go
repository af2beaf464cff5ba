// Package repository реализует хранилище данных на основе PostgreSQL
// для управления пользователями и документами учёта. Предоставляет методы
// создания, чтения, удаления и агрегирования записей, а также переходы
// состояния документов по IRN и E-Way Bill.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Ошибки уровня хранилища. Сервисный слой сопоставляет их через errors.Is.
var (
	// ErrNotFound возвращается, если запрошенная запись отсутствует.
	ErrNotFound = errors.New("record not found")
	// ErrEmailExists возвращается при попытке зарегистрировать занятую почту.
	ErrEmailExists = errors.New("email already exists")
	// ErrIRNAlreadyIssued возвращается, если IRN по документу уже выпущен.
	ErrIRNAlreadyIssued = errors.New("irn already issued")
	// ErrEWayBillConflict возвращается, если E-Way Bill уже выпущен
	// или выпуск невозможен из-за отсутствия IRN.
	ErrEWayBillConflict = errors.New("e-way bill state conflict")
)

// Storage инкапсулирует соединение с базой данных PostgreSQL
// и реализует методы работы с пользователями и документами.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его доступность.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// Close закрывает соединение с базой данных.
func (s *Storage) Close() error {
	return s.DB.Close()
}
