// Пакет config — загрузка и валидация конфигурации Files Manager
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Files Manager.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// --- PostgreSQL (метаданные файлов, справочник пользователей) ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// --- Redis (сессии, очередь задач) ---

	// Адрес Redis в формате host:port
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// Префикс ключа сессии: {prefix}{token} → userId
	SessionKeyPrefix string
	// Таймаут обращения к хранилищу сессий
	SessionTimeout time.Duration

	// --- Хранилище блобов ---

	// Корневая директория блобов (FOLDER_PATH)
	FolderPath string
	// Максимальный размер тела запроса загрузки в байтах
	MaxUploadBytes int64
	// Допустимые размеры вариантов (миниатюр)
	VariantSizes []string

	// --- Кэш папок ---

	FolderCacheSize int
	FolderCacheTTL  time.Duration

	// --- Очередь фоновых задач ---

	QueueName         string
	DiagnosticChannel string
	DispatchBuffer    int
	DispatchWorkers   int
	DispatchTimeout   time.Duration

	// --- JWT (опционально) ---

	// URL JWKS endpoint. Пустое значение отключает Bearer JWT аутентификацию.
	JWTJWKSURL          string
	JWTIssuer           string
	JWTLeeway           time.Duration
	JWKSRefreshInterval time.Duration
	JWKSClientTimeout   time.Duration

	// --- GC осиротевших блобов ---

	// Расписание cron (пустое значение отключает GC)
	GCSchedule string
	// Минимальный возраст блоба без записи метаданных перед удалением
	GCGracePeriod time.Duration

	// --- topologymetrics ---

	DephealthGroup         string
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
//
//nolint:cyclop,funlen // линейный разбор переменных окружения
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	cfg.Port, err = getEnvInt("FM_PORT", 5000)
	if err != nil {
		return nil, fmt.Errorf("FM_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("FM_PORT: порт %d вне диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("FM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("FM_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("FM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("FM_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("FM_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FM_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("FM_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FM_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("FM_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FM_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	cfg.DBHost = getEnvDefault("FM_DB_HOST", "localhost")
	cfg.DBPort, err = getEnvInt("FM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("FM_DB_PORT: %w", err)
	}
	cfg.DBName = getEnvDefault("FM_DB_NAME", "files_manager")
	cfg.DBUser, err = getEnvRequired("FM_DB_USER")
	if err != nil {
		return nil, err
	}
	cfg.DBPassword, err = getEnvRequired("FM_DB_PASSWORD")
	if err != nil {
		return nil, err
	}
	cfg.DBSSLMode = getEnvDefault("FM_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("FM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Redis ---

	cfg.RedisAddr = getEnvDefault("FM_REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = os.Getenv("FM_REDIS_PASSWORD")
	cfg.RedisDB, err = getEnvInt("FM_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("FM_REDIS_DB: %w", err)
	}
	cfg.SessionKeyPrefix = getEnvDefault("FM_SESSION_KEY_PREFIX", "auth_")
	cfg.SessionTimeout, err = getEnvDuration("FM_SESSION_TIMEOUT", 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FM_SESSION_TIMEOUT: %w", err)
	}

	// --- Хранилище блобов ---

	// FOLDER_PATH поддерживается для совместимости с прежними развёртываниями
	cfg.FolderPath = getEnvDefault("FM_FOLDER_PATH", getEnvDefault("FOLDER_PATH", "/tmp/files_manager"))
	maxUpload, err := getEnvInt("FM_MAX_UPLOAD_BYTES", 64<<20)
	if err != nil {
		return nil, fmt.Errorf("FM_MAX_UPLOAD_BYTES: %w", err)
	}
	if maxUpload <= 0 {
		return nil, fmt.Errorf("FM_MAX_UPLOAD_BYTES: значение должно быть > 0")
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	cfg.VariantSizes, err = parseSizes(getEnvDefault("FM_VARIANT_SIZES", "500,250,100"))
	if err != nil {
		return nil, fmt.Errorf("FM_VARIANT_SIZES: %w", err)
	}

	// --- Кэш папок ---

	cfg.FolderCacheSize, err = getEnvInt("FM_FOLDER_CACHE_SIZE", 10000)
	if err != nil {
		return nil, fmt.Errorf("FM_FOLDER_CACHE_SIZE: %w", err)
	}
	if cfg.FolderCacheSize < 1 {
		return nil, fmt.Errorf("FM_FOLDER_CACHE_SIZE: значение должно быть >= 1")
	}
	cfg.FolderCacheTTL, err = getEnvDuration("FM_FOLDER_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("FM_FOLDER_CACHE_TTL: %w", err)
	}

	// --- Очередь ---

	cfg.QueueName = getEnvDefault("FM_QUEUE_NAME", "fileQueue")
	cfg.DiagnosticChannel = getEnvDefault("FM_DIAGNOSTIC_CHANNEL", "files:diagnostics")
	cfg.DispatchBuffer, err = getEnvInt("FM_DISPATCH_BUFFER", 256)
	if err != nil {
		return nil, fmt.Errorf("FM_DISPATCH_BUFFER: %w", err)
	}
	cfg.DispatchWorkers, err = getEnvInt("FM_DISPATCH_WORKERS", 2)
	if err != nil {
		return nil, fmt.Errorf("FM_DISPATCH_WORKERS: %w", err)
	}
	if cfg.DispatchBuffer < 1 || cfg.DispatchWorkers < 1 {
		return nil, fmt.Errorf("FM_DISPATCH_BUFFER, FM_DISPATCH_WORKERS: значения должны быть >= 1")
	}
	cfg.DispatchTimeout, err = getEnvDuration("FM_DISPATCH_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FM_DISPATCH_TIMEOUT: %w", err)
	}

	// --- JWT ---

	cfg.JWTJWKSURL = os.Getenv("FM_JWT_JWKS_URL")
	if cfg.JWTJWKSURL != "" {
		if _, err := url.ParseRequestURI(cfg.JWTJWKSURL); err != nil {
			return nil, fmt.Errorf("FM_JWT_JWKS_URL: некорректный URL %q", cfg.JWTJWKSURL)
		}
	}
	cfg.JWTIssuer = os.Getenv("FM_JWT_ISSUER")
	cfg.JWTLeeway, err = getEnvDuration("FM_JWT_LEEWAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FM_JWT_LEEWAY: %w", err)
	}
	cfg.JWKSRefreshInterval, err = getEnvDuration("FM_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("FM_JWKS_REFRESH_INTERVAL: %w", err)
	}
	cfg.JWKSClientTimeout, err = getEnvDuration("FM_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FM_JWKS_CLIENT_TIMEOUT: %w", err)
	}

	// --- GC ---

	cfg.GCSchedule = getEnvDefault("FM_GC_SCHEDULE", "@every 1h")
	if cfg.GCSchedule == "off" {
		cfg.GCSchedule = ""
	}
	cfg.GCGracePeriod, err = getEnvDuration("FM_GC_GRACE_PERIOD", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("FM_GC_GRACE_PERIOD: %w", err)
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("FM_DEPHEALTH_GROUP", "files-manager")
	cfg.DephealthCheckInterval, err = getEnvDuration("FM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("FM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FM_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL для меток topologymetrics (без пароля).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s@%s:%d/%s", c.DBUser, c.DBHost, c.DBPort, c.DBName)
}

// MigrateURL возвращает URL для golang-migrate (драйвер pgx5).
func (c *Config) MigrateURL() string {
	return fmt.Sprintf(
		"pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPassword), c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseSizes разбирает CSV-список размеров вариантов.
// Каждый размер — положительное целое число; результат отсортирован по убыванию.
func parseSizes(s string) ([]string, error) {
	var nums []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("некорректный размер %q: ожидается положительное целое", part)
		}
		nums = append(nums, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(nums)))

	sizes := make([]string, 0, len(nums))
	for _, n := range nums {
		sizes = append(sizes, strconv.Itoa(n))
	}
	return sizes, nil
}
