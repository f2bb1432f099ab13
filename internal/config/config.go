package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// File host backends.
const (
	FileHostCatbox     = "catbox"
	FileHostCloudinary = "cloudinary"
)

// Store backends.
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Environment    string // ENV: production, development, etc.
	Port           string
	Host           string // Raw HOST env (e.g. https://api.example.com)
	AllowedHost    string // Hostname only for strict host check (production only)
	FrontendURL    string
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS, else FRONTEND_URL
	TrustedProxies []string // CIDRs whose X-Forwarded-For is believed; empty uses RemoteAddr only

	Store       string // mongo | memory
	MongoURI    string
	RedisURI    string
	PostgresURI string // empty disables the security audit log

	EncryptionKey string // base64 32-byte key for emails at rest; empty stores them as given

	FileHost            string // catbox | cloudinary
	CatboxEndpoint      string
	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string

	RequestTimeout time.Duration // per remote database call
	UploadTimeout  time.Duration // per file host upload and URL fetch

	MaxURLUploadBytes int64 // per-request ceiling for URL uploads; 0 keeps the service default
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))
	host := getEnv("HOST", "http://localhost:8080")

	// AllowedHost is only set in production; host check is skipped in development
	var allowedHost string
	if env == "production" {
		allowedHost = hostname(host)
	}

	allowedOrigins := parseList(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{getEnv("FRONTEND_URL", "http://localhost:3000")}
	}

	return &Config{
		Environment:    env,
		Port:           getEnv("PORT", "8080"),
		Host:           host,
		AllowedHost:    allowedHost,
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:3000"),
		AllowedOrigins: allowedOrigins,
		TrustedProxies: parseList(getEnv("TRUSTED_PROXIES", "")),

		Store:       strings.ToLower(getEnv("STORE", StoreMongo)),
		MongoURI:    getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/ura_storage")),
		RedisURI:    getEnv("REDIS_URI", "redis://localhost:6379/0"),
		PostgresURI: getEnv("POSTGRES_URI", ""),

		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),

		FileHost:            strings.ToLower(getEnv("FILE_HOST", FileHostCatbox)),
		CatboxEndpoint:      getEnv("CATBOX_ENDPOINT", "https://catbox.moe/user/api.php"),
		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		CloudinaryFolder:    getEnv("CLOUDINARY_FOLDER", "ura-storage"),

		RequestTimeout: getDuration("REQUEST_TIMEOUT", 10*time.Second),
		UploadTimeout:  getDuration("UPLOAD_TIMEOUT", 2*time.Minute),

		MaxURLUploadBytes: getInt64("MAX_URL_UPLOAD_BYTES", 0),
	}
}

// hostname strips scheme, path and port from a HOST value.
func hostname(host string) string {
	for _, prefix := range []string{"https://", "http://"} {
		host = strings.TrimPrefix(host, prefix)
	}
	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return strings.TrimSpace(host)
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration accepts Go duration strings ("30s", "2m"); bad values fall back to the default.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

// getInt64 falls back to the default for missing, malformed or negative values.
func getInt64(key string, defaultValue int64) int64 {
	n, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil || n < 0 {
		return defaultValue
	}
	return n
}
