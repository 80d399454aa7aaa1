package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string // サーバーポート（8080）
	GoEnv string // dev/prod
	FEURL string // フロントURL（CORS）

	DatabaseURL string // 無ければPOSTGRES_*から組み立てる

	StoreID      string // 店舗ID（カタログの絞り込み）
	CurrencyCode string // 注文の通貨

	OrderServiceURL     string        // 注文サービス
	OrderServiceTimeout time.Duration // 0ならタイムアウトなし

	SessionSecret string        // セッションcookie署名
	SessionTTL    time.Duration // セッションの有効期限

	RedisAddr     string // 空ならメモリ
	RedisPassword string
	RedisDB       int

	NATSURL string // 空ならイベント送信なし

	LogLevel    string
	LogEncoding string
}

// Loadは環境変数
func Load() (Config, error) {
	redisDB, err := optionalAtoi("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}
	orderTimeout, err := optionalDuration("ORDER_SERVICE_TIMEOUT", 0)
	if err != nil {
		return Config{}, err
	}
	sessionTTL, err := optionalDuration("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:  os.Getenv("PORT"),
		GoEnv: getenv("GO_ENV", "dev"),
		FEURL: os.Getenv("FE_URL"),

		DatabaseURL: databaseURL(),

		StoreID:      os.Getenv("STORE_ID"),
		CurrencyCode: getenv("CURRENCY_CODE", "USD"),

		OrderServiceURL:     os.Getenv("ORDER_SERVICE_URL"),
		OrderServiceTimeout: orderTimeout,

		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionTTL:    sessionTTL,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		NATSURL: os.Getenv("NATS_URL"),

		LogLevel:    getenv("LOG_LEVEL", "info"),
		LogEncoding: getenv("LOG_ENCODING", "json"),
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.StoreID == "" {
		return Config{}, fmt.Errorf("STORE_ID is required")
	}
	if cfg.OrderServiceURL == "" {
		return Config{}, fmt.Errorf("ORDER_SERVICE_URL is required")
	}
	if cfg.SessionSecret == "" {
		return Config{}, fmt.Errorf("SESSION_SECRET is required")
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL must be positive")
	}

	return cfg, nil
}

// ":8080" 形式にする
func (c Config) Addr() string {
	if c.Port != "" && c.Port[0] == ':' {
		return c.Port
	}
	return ":" + c.Port
}

func (c Config) IsProd() bool {
	return c.GoEnv == "prod"
}

// DATABASE_URL があれば最優先で使う
func databaseURL() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getenv("POSTGRES_HOST", "localhost"),
		getenv("POSTGRES_PORT", "5432"),
		getenv("POSTGRES_USER", "postgres"),
		getenv("POSTGRES_PASSWORD", "postgres"),
		getenv("POSTGRES_DB", "storefront"),
		getenv("POSTGRES_SSLMODE", "disable"),
	)
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func optionalAtoi(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func optionalDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}
