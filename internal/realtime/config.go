package realtime

import "os"

// Config holds what the fan-out process needs to relay job state changes.
// NATS_URL, TENANT_ID and JWT_SECRET are shared with the planning API so both
// ends of the event stream agree on subjects and token signing.
type Config struct {
	NatsURL    string
	TenantID   string
	JWTSecret  string
	ListenAddr string
}

func LoadConfig() Config {
	return Config{
		NatsURL:    envOr("NATS_URL", "nats://localhost:4222"),
		TenantID:   envOr("TENANT_ID", "default"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		ListenAddr: envOr("REALTIME_PORT", ":8081"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
