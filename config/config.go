package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// Every field has a default, so an empty environment reproduces the fixed
// on-disk layout the generator has always used.
type Config struct {
	CatalogPath   string
	ScreenshotDir string
	ThumbnailDir  string
	TemplatePath  string
	OutputPath    string
	ManifestPath  string

	ViewportWidth   int
	ViewportHeight  int
	ThumbnailWidth  int
	ThumbnailHeight int

	MaxConcurrency      int
	MaxRetries          int
	NavigationTimeout   time.Duration
	CaptureInterval     time.Duration
	AbortOnCaptureError bool
	ChromeBin           string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	S3Bucket string
	S3Prefix string
	S3Region string

	LogLevel string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		CatalogPath:   getEnv("CATALOG_PATH", "data/data.csv"),
		ScreenshotDir: getEnv("SCREENSHOT_DIR", "processing/screenshots"),
		ThumbnailDir:  getEnv("THUMBNAIL_DIR", "processing/screenshot_thumbnails"),
		TemplatePath:  getEnv("TEMPLATE_PATH", "templates/index.htm"),
		OutputPath:    getEnv("OUTPUT_PATH", "index.html"),
		ManifestPath:  getEnv("MANIFEST_PATH", "processing/manifest.csv"),

		ViewportWidth:   getEnvInt("VIEWPORT_WIDTH", 1200),
		ViewportHeight:  getEnvInt("VIEWPORT_HEIGHT", 800),
		ThumbnailWidth:  getEnvInt("THUMBNAIL_WIDTH", 600),
		ThumbnailHeight: getEnvInt("THUMBNAIL_HEIGHT", 400),

		MaxConcurrency:      getEnvInt("MAX_CONCURRENCY", 1),
		MaxRetries:          getEnvInt("MAX_RETRIES", 1),
		NavigationTimeout:   getEnvDuration("NAVIGATION_TIMEOUT", 60*time.Second),
		CaptureInterval:     getEnvDuration("CAPTURE_INTERVAL", 0),
		AbortOnCaptureError: getEnvBool("ABORT_ON_CAPTURE_ERROR", false),
		ChromeBin:           getEnv("CHROME_BIN", ""),

		PostgresHost:     getEnv("POSTGRES_HOST", ""),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "catalog"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "catalog"),
		PostgresDB:       getEnv("POSTGRES_DB", "catalog_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		S3Bucket: getEnv("S3_BUCKET", ""),
		S3Prefix: getEnv("S3_PREFIX", "catalog"),
		S3Region: getEnv("AWS_REGION", "us-east-1"),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// PostgresEnabled reports whether a database host was configured.
func (c *Config) PostgresEnabled() bool {
	return c.PostgresHost != ""
}

// S3Enabled reports whether a publish bucket was configured.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}
