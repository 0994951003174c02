// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
)

var (
	// ErrUnauthorized — нет идентичности или запись принадлежит другому пользователю.
	ErrUnauthorized = errors.New("запрос не авторизован")
	// ErrNotFound — запись не найдена или недоступна запрашивающему.
	ErrNotFound = errors.New("запись не найдена")
	// ErrFolderNoContent — запрошено содержимое папки.
	ErrFolderNoContent = errors.New("у папки нет содержимого")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
)

// Сообщения валидации загрузки (стабильный контракт API).
const (
	MsgMissingName      = "Missing name"
	MsgMissingType      = "Missing type"
	MsgMissingData      = "Missing data"
	MsgParentNotFound   = "Parent not found"
	MsgParentNotAFolder = "Parent is not a folder"
	MsgInvalidData      = "Invalid data"
)

// ValidationError — ошибка валидации с сообщением для клиента.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is позволяет сравнивать через errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func validationError(msg string) error {
	return &ValidationError{Message: msg}
}

// BlobError — ошибка записи блоба. Message не содержит путей.
type BlobError struct {
	Message string
	Err     error
}

func (e *BlobError) Error() string {
	return e.Message
}

func (e *BlobError) Unwrap() error {
	return e.Err
}
