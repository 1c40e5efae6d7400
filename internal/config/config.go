package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string
	LogMode  string

	DBDriver string // sqlite|postgres|memory
	DBDSN    string

	BlobBasePath    string
	CatalogManifest string // optional YAML manifest synced on boot
	TemplatesKey    string // blob key of the speaking base templates

	RedisAddr       string // empty -> in-process content cache
	ContentCacheTTL time.Duration

	DefaultLanguage string

	EnableLocalAuth bool
	AuthHMACSecret  string
	AdminUser       string
	AdminPassHash   string   // bcrypt
	AdminSubjects   []string // token subjects promoted to admin

	EnableJWKS  bool
	JWKSURL     string
	JWTIssuer   string
	JWTAudience string

	CORSOriginsOnline  []string
	CORSOriginsOffline []string
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	project := envOr("FIREBASE_PROJECT_ID", "fideprepweb")
	return Config{
		Mode:     mode,
		HTTPAddr: addr,
		LogMode:  envOr("LOG_MODE", string(mode)),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		BlobBasePath:    envOr("BLOB_BASE_PATH", "./data"),
		CatalogManifest: os.Getenv("CATALOG_MANIFEST"),
		TemplatesKey:    envOr("TEMPLATES_KEY", "templates/base_templates_oral.json"),

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		ContentCacheTTL: envDuration("CONTENT_CACHE_TTL", 10*time.Minute),

		DefaultLanguage: strings.ToUpper(envOr("DEFAULT_LANGUAGE", "FR")),

		EnableLocalAuth: envBool("ENABLE_LOCAL_AUTH", mode == ModeOffline),
		AuthHMACSecret:  envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		AdminUser:       envOr("ADMIN_USER", "admin"),
		AdminPassHash:   envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),
		AdminSubjects:   csvOr("ADMIN_SUBJECTS", ""),

		EnableJWKS:  envBool("ENABLE_JWKS", mode == ModeOnline),
		JWKSURL:     envOr("JWKS_URL", "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"),
		JWTIssuer:   envOr("JWT_ISSUER", "https://securetoken.google.com/"+project),
		JWTAudience: envOr("JWT_AUDIENCE", project),

		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://fideprep.ch,https://test.fideprep.ch"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000"),
	}
}

// CORSOrigins returns the allow-list for the active mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// bare integers are seconds
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
