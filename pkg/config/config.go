package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string
	AppURL    string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Stripe    StripeConfig
	Checkout  CheckoutConfig
	MagicLink MagicLinkConfig
	Mail      MailConfig
	Invites   InviteConfig
	Offers    OfferConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StripeConfig carries payment provider credentials.
type StripeConfig struct {
	SecretKey        string
	WebhookSecret    string
	WebhookTolerance time.Duration
}

// CheckoutConfig tunes hosted checkout sessions built for offers without a provider price.
type CheckoutConfig struct {
	Currency           string
	ProductDescription string
}

// MagicLinkConfig controls one-time sign-in links.
type MagicLinkConfig struct {
	Secret string
	TTL    time.Duration
}

// MailConfig configures outbound SMTP. An empty Host selects the log-only mailer.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// InviteConfig governs the access invite worker pool.
type InviteConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// OfferConfig governs offer lookup caching.
type OfferConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.AppURL = strings.TrimRight(v.GetString("APP_URL"), "/")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 7*24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Stripe = StripeConfig{
		SecretKey:        v.GetString("STRIPE_SECRET_KEY"),
		WebhookSecret:    v.GetString("STRIPE_WEBHOOK_SECRET"),
		WebhookTolerance: parseDuration(v.GetString("STRIPE_WEBHOOK_TOLERANCE"), 5*time.Minute),
	}

	cfg.Checkout = CheckoutConfig{
		Currency:           strings.ToLower(v.GetString("CHECKOUT_CURRENCY")),
		ProductDescription: v.GetString("CHECKOUT_PRODUCT_DESCRIPTION"),
	}

	cfg.MagicLink = MagicLinkConfig{
		Secret: v.GetString("MAGIC_LINK_SECRET"),
		TTL:    parseDuration(v.GetString("MAGIC_LINK_TTL"), 24*time.Hour),
	}

	cfg.Mail = MailConfig{
		Host:     v.GetString("SMTP_HOST"),
		Port:     v.GetInt("SMTP_PORT"),
		Username: v.GetString("SMTP_USERNAME"),
		Password: v.GetString("SMTP_PASSWORD"),
		From:     v.GetString("MAIL_FROM"),
	}

	cfg.Invites = InviteConfig{
		Workers:    v.GetInt("INVITE_WORKERS"),
		MaxRetries: v.GetInt("INVITE_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("INVITE_RETRY_DELAY"), 5*time.Second),
	}

	cfg.Offers = OfferConfig{
		CacheEnabled: v.GetBool("ENABLE_OFFER_CACHE"),
		CacheTTL:     parseDuration(v.GetString("OFFER_CACHE_TTL"), time.Minute),
	}

	return cfg, nil
}

// Validate reports configuration that would make the payment flow unsafe to serve.
func (c *Config) Validate() error {
	var missing []string
	if c.Stripe.SecretKey == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}
	if c.Stripe.WebhookSecret == "" {
		missing = append(missing, "STRIPE_WEBHOOK_SECRET")
	}
	if c.Env == EnvProduction {
		if c.JWT.Secret == "" || c.JWT.Secret == "dev_secret" {
			missing = append(missing, "JWT_SECRET")
		}
		if c.MagicLink.Secret == "" || c.MagicLink.Secret == "dev_magic_link_secret" {
			missing = append(missing, "MAGIC_LINK_SECRET")
		}
	}
	if len(missing) > 0 {
		return errors.New("missing required configuration: " + strings.Join(missing, ", "))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")
	v.SetDefault("APP_URL", "https://techne.institute")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "cohort_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "168h")
	v.SetDefault("JWT_ISSUER", "cohort-portal-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	v.SetDefault("STRIPE_WEBHOOK_TOLERANCE", "300s")

	v.SetDefault("CHECKOUT_CURRENCY", "usd")
	v.SetDefault("CHECKOUT_PRODUCT_DESCRIPTION", "Techne Institute AI Building Cohort")

	v.SetDefault("MAGIC_LINK_SECRET", "dev_magic_link_secret")
	v.SetDefault("MAGIC_LINK_TTL", "24h")

	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("MAIL_FROM", "Techne Institute <hello@techne.institute>")

	v.SetDefault("INVITE_WORKERS", 2)
	v.SetDefault("INVITE_MAX_RETRIES", 3)
	v.SetDefault("INVITE_RETRY_DELAY", "5s")

	v.SetDefault("ENABLE_OFFER_CACHE", true)
	v.SetDefault("OFFER_CACHE_TTL", "1m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
