package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPPort string
	LogLevel string

	DatabaseURL string
	RedisURL    string
	AMQPURL     string

	GHLWebhookURL   string
	GHLAPIKey       string
	GHLPayloadShape string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioLookupURL  string

	KickboxAPIKey string
	KickboxURL    string

	SMTPHost            string
	SMTPPort            int
	SMTPUser            string
	SMTPPass            string
	SMTPFrom            string
	LeadAlertRecipients []string

	RetargetAPIKey string
	RetargetWindow time.Duration

	DeliveryTimeout     time.Duration
	DeliveryHardTimeout time.Duration
	DedupRetention      time.Duration
	EmailCacheTTL       time.Duration
	PhoneCacheTTL       time.Duration
	VerifierTimeout     time.Duration
	ExpirySweepInterval time.Duration

	CaptureRateLimitPerMin int
	DisposableDomains      []string
	RejectedLineTypes      []string
	CORSAllowedOrigins     []string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		AMQPURL:     os.Getenv("AMQP_URL"),

		GHLWebhookURL:   os.Getenv("GHL_WEBHOOK_URL"),
		GHLAPIKey:       os.Getenv("GHL_API_KEY"),
		GHLPayloadShape: strings.ToLower(getEnv("GHL_PAYLOAD_SHAPE", "nested")),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioLookupURL:  getEnv("TWILIO_LOOKUP_URL", "https://lookups.twilio.com/v2"),

		KickboxAPIKey: os.Getenv("KICKBOX_API_KEY"),
		KickboxURL:    getEnv("KICKBOX_URL", "https://api.kickbox.com/v2"),

		SMTPHost:            os.Getenv("SMTP_HOST"),
		SMTPPort:            getEnvInt("SMTP_PORT", 587),
		SMTPUser:            os.Getenv("SMTP_USER"),
		SMTPPass:            os.Getenv("SMTP_PASS"),
		SMTPFrom:            getEnv("SMTP_FROM", "leads@seniorsimple.org"),
		LeadAlertRecipients: splitCSV(os.Getenv("LEAD_ALERT_RECIPIENTS")),

		RetargetAPIKey: os.Getenv("RETARGET_API_KEY"),

		CaptureRateLimitPerMin: getEnvInt("CAPTURE_RATE_LIMIT_PER_MIN", 10),
		DisposableDomains:      splitCSV(os.Getenv("DISPOSABLE_DOMAINS")),
		RejectedLineTypes:      splitCSV(getEnv("REJECTED_LINE_TYPES", "nonFixedVoip,tollFree,pager,voicemail")),
		CORSAllowedOrigins:     splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,https://seniorsimple.org")),
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"DELIVERY_TIMEOUT", "2s", &cfg.DeliveryTimeout},
		{"DELIVERY_HARD_TIMEOUT", "10s", &cfg.DeliveryHardTimeout},
		{"DEDUP_RETENTION", "15m", &cfg.DedupRetention},
		{"EMAIL_CACHE_TTL", "10m", &cfg.EmailCacheTTL},
		{"PHONE_CACHE_TTL", "5m", &cfg.PhoneCacheTTL},
		{"VERIFIER_TIMEOUT", "3s", &cfg.VerifierTimeout},
		{"RETARGET_WINDOW", "24h", &cfg.RetargetWindow},
		{"EXPIRY_SWEEP_INTERVAL", "10m", &cfg.ExpirySweepInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.GHLPayloadShape != "nested" && c.GHLPayloadShape != "flat" {
		errs = append(errs, "GHL_PAYLOAD_SHAPE must be nested or flat")
	}
	if c.DeliveryTimeout <= 0 {
		errs = append(errs, "DELIVERY_TIMEOUT must be > 0")
	}
	if c.DeliveryHardTimeout < c.DeliveryTimeout {
		errs = append(errs, "DELIVERY_HARD_TIMEOUT must be >= DELIVERY_TIMEOUT")
	}
	if c.DedupRetention <= 0 {
		errs = append(errs, "DEDUP_RETENTION must be > 0")
	}
	if c.EmailCacheTTL <= 0 || c.PhoneCacheTTL <= 0 {
		errs = append(errs, "EMAIL_CACHE_TTL and PHONE_CACHE_TTL must be > 0")
	}
	if c.VerifierTimeout <= 0 {
		errs = append(errs, "VERIFIER_TIMEOUT must be > 0")
	}
	if c.RetargetWindow <= 0 {
		errs = append(errs, "RETARGET_WINDOW must be > 0")
	}
	if c.ExpirySweepInterval <= 0 {
		errs = append(errs, "EXPIRY_SWEEP_INTERVAL must be > 0")
	}
	if c.CaptureRateLimitPerMin <= 0 {
		errs = append(errs, "CAPTURE_RATE_LIMIT_PER_MIN must be > 0")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Missing lists optional integrations that are not configured. Each one
// disables a destination or verifier and is reported at startup.
func (c *Config) Missing() []string {
	var missing []string
	if c.GHLWebhookURL == "" {
		missing = append(missing, "GHL_WEBHOOK_URL")
	}
	if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" {
		missing = append(missing, "TWILIO_ACCOUNT_SID/TWILIO_AUTH_TOKEN")
	}
	if c.KickboxAPIKey == "" {
		missing = append(missing, "KICKBOX_API_KEY")
	}
	if c.AMQPURL == "" {
		missing = append(missing, "AMQP_URL")
	}
	if c.RetargetAPIKey == "" {
		missing = append(missing, "RETARGET_API_KEY")
	}
	return missing
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
