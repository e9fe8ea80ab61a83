package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves into an empty directory so no .env file is picked up.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, 5*time.Minute, cfg.Stripe.WebhookTolerance)
	assert.Equal(t, 24*time.Hour, cfg.MagicLink.TTL)
	assert.Equal(t, "usd", cfg.Checkout.Currency)
	assert.True(t, cfg.Offers.CacheEnabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("APP_URL", "https://portal.example.com/")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("CHECKOUT_CURRENCY", "EUR")
	t.Setenv("INVITE_RETRY_DELAY", "not-a-duration")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_1")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example.com", cfg.AppURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "eur", cfg.Checkout.Currency)
	assert.Equal(t, 5*time.Second, cfg.Invites.RetryDelay)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := &Config{Env: EnvProduction, JWT: JWTConfig{Secret: "dev_secret"}}
	err := cfg.Validate()
	require.Error(t, err)
	for _, key := range []string{"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET", "JWT_SECRET", "MAGIC_LINK_SECRET"} {
		assert.Contains(t, err.Error(), key)
	}

	cfg = &Config{Env: EnvDevelopment, Stripe: StripeConfig{SecretKey: "sk", WebhookSecret: "whsec"}}
	assert.NoError(t, cfg.Validate())
}
