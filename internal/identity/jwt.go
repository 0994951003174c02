package identity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig — параметры проверки Bearer JWT.
type JWTConfig struct {
	// URL JWKS endpoint
	JWKSURL string
	// Ожидаемый iss (пусто — не проверяется)
	Issuer string
	// Таймаут HTTP-клиента JWKS
	ClientTimeout time.Duration
	// Интервал обновления JWKS-ключей
	RefreshInterval time.Duration
	// Допустимое отклонение времени
	Leeway time.Duration
}

// JWTResolver определяет пользователя по sub проверенного RS256 JWT.
type JWTResolver struct {
	jwks   keyfunc.Keyfunc
	issuer string
	leeway time.Duration
	logger *slog.Logger
}

// NewJWTResolver создаёт резолвер с ключами из JWKS endpoint.
// Недоступность JWKS при старте не является ошибкой: ключи подгрузятся
// при следующем обновлении.
func NewJWTResolver(cfg JWTConfig, logger *slog.Logger) (*JWTResolver, error) {
	storage, err := jwkset.NewStorageFromHTTP(cfg.JWKSURL, jwkset.HTTPClientStorageOptions{
		Client:                    &http.Client{Timeout: cfg.ClientTimeout},
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           cfg.RefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", cfg.JWKSURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return NewJWTResolverWithKeyfunc(k, cfg.Issuer, cfg.Leeway, logger), nil
}

// NewJWTResolverWithKeyfunc создаёт резолвер с готовой keyfunc.
func NewJWTResolverWithKeyfunc(kf keyfunc.Keyfunc, issuer string, leeway time.Duration, logger *slog.Logger) *JWTResolver {
	return &JWTResolver{
		jwks:   kf,
		issuer: issuer,
		leeway: leeway,
		logger: logger.With(slog.String("component", "jwt_resolver")),
	}
}

// Resolve реализует Resolver.
func (j *JWTResolver) Resolve(ctx context.Context, creds Credentials) (string, bool) {
	if creds.Bearer == "" {
		return "", false
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(j.leeway),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(creds.Bearer, claims, j.jwks.KeyfuncCtx(ctx), opts...)
	if err != nil || !token.Valid {
		j.logger.Debug("JWT валидация не пройдена", slog.Any("error", err))
		jwtValidations.WithLabelValues("invalid").Inc()
		return "", false
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		jwtValidations.WithLabelValues("invalid").Inc()
		return "", false
	}

	jwtValidations.WithLabelValues("ok").Inc()
	return subject, true
}
