package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// GatewayConfig holds the credential triple for one payment gateway
// integration: a merchant/terminal code, a shared HMAC secret, the
// gateway's payment endpoint and the return URL it should redirect to.
type GatewayConfig struct {
	Name       string // gateway key used in routes, e.g. "vnpay", "wallet"
	TmnCode    string
	HashSecret string
	URL        string
	ReturnURL  string
	// HashAlgo selects HMAC-SHA512 ("sha512", default) or HMAC-SHA256
	// ("sha256", used by the wallet variant per spec).
	HashAlgo string
}

type Config struct {
	Env    string
	Port   string
	DBUser string
	DBPass string
	DBHost string
	DBPort string
	DBName string

	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int

	// FrontendURL is where PaymentCoordinator redirects the browser after
	// a return-URL callback is resolved.
	FrontendURL string

	// HoldTTL is how long a seat hold lives once TryHold succeeds.
	HoldTTL time.Duration
	// BookingExpiry is how long a PENDING booking survives before the
	// ExpirySweeper cancels it. Must be >= HoldTTL.
	BookingExpiry time.Duration
	// SweepBookingInterval / SweepHoldInterval are the two independent
	// sweeper tick cadences.
	SweepBookingInterval time.Duration
	SweepHoldInterval    time.Duration

	Gateways map[string]GatewayConfig

	// AMQPURL is the broker URL for seat-state and booking-confirmed
	// events. Falls back to RABBITMQ_URL then AMQP_URL, matching the
	// env vars the rest of the stack already uses.
	AMQPURL string
}

func Load() Config {
	hold := envDurSeconds("HOLD_TTL_SECONDS", 600)
	expiry := envDurSeconds("BOOKING_EXPIRY_SECONDS", 900)
	if expiry < hold {
		log.Fatalf("BOOKING_EXPIRY_SECONDS (%s) must be >= HOLD_TTL_SECONDS (%s)", expiry, hold)
	}
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		FrontendURL: getenv("FRONTEND_URL", "http://localhost:3000"),

		HoldTTL:              hold,
		BookingExpiry:        expiry,
		SweepBookingInterval: envDurSeconds("SWEEP_INTERVAL_SECONDS", 300),
		SweepHoldInterval:    envDurSeconds("HOLD_SWEEP_INTERVAL_SECONDS", 600),

		Gateways: loadGateways(),
		AMQPURL:  amqpURL(),
	}
}

func amqpURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// loadGateways reads the credential triples for every gateway this service
// knows about. A gateway whose triple is entirely absent is skipped rather
// than failing startup, since a deployment may only enable one.
func loadGateways() map[string]GatewayConfig {
	out := map[string]GatewayConfig{}
	specs := []struct {
		key      string
		envNS    string
		hashAlgo string
	}{
		{"vnpay", "VNPAY", "sha512"},
		{"wallet", "WALLET", "sha256"},
	}
	for _, s := range specs {
		tmn := os.Getenv(s.envNS + "_TMN_CODE")
		secret := os.Getenv(s.envNS + "_HASH_SECRET")
		if tmn == "" || secret == "" {
			continue
		}
		out[s.key] = GatewayConfig{
			Name:       s.key,
			TmnCode:    tmn,
			HashSecret: secret,
			URL:        os.Getenv(s.envNS + "_URL"),
			ReturnURL:  os.Getenv(s.envNS + "_RETURN_URL"),
			HashAlgo:   s.hashAlgo,
		}
	}
	return out
}

func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func envDurSeconds(key string, def int) time.Duration {
	n := def
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			n = parsed
		} else {
			log.Fatalf("invalid int for %s: %q", key, v)
		}
	}
	return time.Duration(n) * time.Second
}
