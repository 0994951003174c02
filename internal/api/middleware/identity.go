// identity.go — middleware определения пользователя.
// Никогда не отклоняет запрос: отсутствие идентичности решает сервисный слой.
package middleware

import (
	"net/http"
	"strings"

	"github.com/bigkaa/files-manager/internal/identity"
)

// HeaderToken — заголовок с токеном сессии.
const HeaderToken = "X-Token"

// Identity извлекает X-Token и Authorization: Bearer, разрешает их через
// resolver и кладёт идентификатор пользователя в контекст запроса.
func Identity(resolver identity.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds := credentialsFromRequest(r)
			if creds.Empty() {
				next.ServeHTTP(w, r)
				return
			}

			if userID, ok := resolver.Resolve(r.Context(), creds); ok {
				r = r.WithContext(identity.WithUser(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func credentialsFromRequest(r *http.Request) identity.Credentials {
	creds := identity.Credentials{
		Token: strings.TrimSpace(r.Header.Get(HeaderToken)),
	}

	authHeader := r.Header.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "bearer ") {
		creds.Bearer = strings.TrimSpace(authHeader[7:])
	}
	return creds
}
