package config

import (
	"strings"
	"testing"
	"time"
	_ "time/tzdata"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "  s3cret ")
	t.Setenv("ADMIN_PASSWORD", "admin123")

	cfg := LoadConfig()
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Fatalf("expected trimmed secret, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.TokenTTL != 0 {
		t.Fatalf("expected unbounded tokens by default, got %v", cfg.Auth.TokenTTL)
	}
	if cfg.Calendar.TimeZone != "Europe/Rome" {
		t.Fatalf("unexpected timezone %q", cfg.Calendar.TimeZone)
	}
	if cfg.Calendar.CalendarID != "primary" {
		t.Fatalf("unexpected calendar id %q", cfg.Calendar.CalendarID)
	}
	if cfg.MQ.Channel != "appointments" {
		t.Fatalf("unexpected channel %q", cfg.MQ.Channel)
	}
	if cfg.TrustProxy {
		t.Fatal("forwarding headers must not be trusted by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_USE_SSL", "true")
	t.Setenv("AUTH_TOKEN_TTL", "12h")
	t.Setenv("CORS_ORIGIN", "https://book.example.com/, http://localhost:4200")
	t.Setenv("LOGIN_RATE_LIMIT_RPS", "0.5")
	t.Setenv("MQ_BACKEND", "RabbitMQ")
	t.Setenv("TRUST_PROXY", "true")

	cfg := LoadConfig()
	if cfg.ServerPort != 9090 {
		t.Fatalf("unexpected port %d", cfg.ServerPort)
	}
	if !cfg.Database.UseSSL {
		t.Fatal("expected ssl enabled")
	}
	if cfg.Auth.TokenTTL != 12*time.Hour {
		t.Fatalf("unexpected ttl %v", cfg.Auth.TokenTTL)
	}
	if got := strings.Join(cfg.CORS.AllowedOrigins, " "); got != "https://book.example.com http://localhost:4200" {
		t.Fatalf("unexpected origins %q", got)
	}
	if cfg.RateLimit.LoginRPS != 0.5 {
		t.Fatalf("unexpected rps %v", cfg.RateLimit.LoginRPS)
	}
	if cfg.MQ.Backend != "rabbitmq" {
		t.Fatalf("unexpected backend %q", cfg.MQ.Backend)
	}
	if !cfg.TrustProxy {
		t.Fatal("expected proxy headers trusted")
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Auth:     AuthConfig{JWTSecret: "secret"},
		Admin:    AdminConfig{Username: "admin", Password: "pw"},
		Calendar: CalendarConfig{TimeZone: "Europe/Rome"},
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, "JWT_SECRET"},
		{"missing admin password", func(c *Config) { c.Admin.Password = "" }, "ADMIN_PASSWORD"},
		{"bad timezone", func(c *Config) { c.Calendar.TimeZone = "Mars/Olympus" }, "CALENDAR_TIMEZONE"},
		{"bad mq backend", func(c *Config) { c.MQ.Backend = "kafka" }, "MQ_BACKEND"},
		{"bad storage backend", func(c *Config) { c.Storage.Backend = "s3" }, "STORAGE_BACKEND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestIntegrationConfigured(t *testing.T) {
	if (CalendarConfig{ClientID: "id", ClientSecret: "secret"}).Configured() {
		t.Fatal("calendar without refresh token must not be configured")
	}
	if !(CalendarConfig{ClientID: "id", ClientSecret: "secret", RefreshToken: "rt"}).Configured() {
		t.Fatal("expected calendar configured")
	}
	if (WhatsAppConfig{AccountSID: "AC1", AuthToken: "tok"}).Configured() {
		t.Fatal("whatsapp without sender must not be configured")
	}
}
