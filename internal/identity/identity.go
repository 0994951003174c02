// Пакет identity — определение пользователя по учётным данным запроса.
// Ни один резолвер не отклоняет запрос: неудача означает отсутствие
// идентичности, решение принимают операции.
package identity

import (
	"context"
)

// Credentials — учётные данные, извлечённые из запроса.
type Credentials struct {
	// Token — значение заголовка X-Token (сессионный токен)
	Token string
	// Bearer — JWT из заголовка Authorization: Bearer
	Bearer string
}

// Empty сообщает, что учётные данные не переданы.
func (c Credentials) Empty() bool {
	return c.Token == "" && c.Bearer == ""
}

// Resolver отображает учётные данные в идентификатор пользователя.
// Ошибки хранилищ не возвращаются: при сбое идентичность отсутствует.
type Resolver interface {
	Resolve(ctx context.Context, creds Credentials) (userID string, ok bool)
}

// Chain — цепочка резолверов: побеждает первый, вернувший идентичность.
type Chain []Resolver

// Resolve реализует Resolver.
func (c Chain) Resolve(ctx context.Context, creds Credentials) (string, bool) {
	if creds.Empty() {
		return "", false
	}
	for _, r := range c {
		if r == nil {
			continue
		}
		if id, ok := r.Resolve(ctx, creds); ok {
			return id, true
		}
	}
	return "", false
}

type contextKey string

const userKey contextKey = "identity_user"

// WithUser помещает идентификатор пользователя в контекст.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

// UserFromContext извлекает идентификатор пользователя.
// Пустая строка и false — идентичность отсутствует.
func UserFromContext(ctx context.Context) (string, bool) {
	id, _ := ctx.Value(userKey).(string)
	return id, id != ""
}
