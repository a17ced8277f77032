package config

import (
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	APP_ENV       string
	MAIN_ROUTES   string
	APP_PORT      string
	JWTSecret     string
	JWTExpiration int

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBUnit     string

	CookieSecure   bool
	CookieHTTPOnly bool
	CookieSameSite string

	LogLevel      string
	SnowflakeNode int64

	// Intake
	IntakeDefaultMode string
	IntakeSessionTTL  time.Duration
	OverReceiptPolicy string
	CatalogCacheSize  int
	TacImportDir      string

	// Completion notifications, disabled when SMTPHost is empty
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	NotifyEmails []string

	allowedOrigins map[string]bool
)

// LoadConfig reads .env (when present) and the process environment into the package variables.
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	APP_ENV = v.GetString("APP_ENV")
	MAIN_ROUTES = v.GetString("MAIN_ROUTES")
	APP_PORT = v.GetString("APP_PORT")

	JWTSecret = v.GetString("JWT_SECRET")
	JWTExpiration = v.GetInt("JWT_EXPIRATION")

	DBDriver = v.GetString("DB_DRIVER")
	DBHost = v.GetString("DB_HOST")
	DBPort = v.GetString("DB_PORT")
	DBUser = v.GetString("DB_USER")
	DBPassword = v.GetString("DB_PASSWORD")
	DBUnit = v.GetString("DB_UNIT")

	CookieSecure = v.GetBool("COOKIE_SECURE")
	CookieHTTPOnly = v.GetBool("COOKIE_HTTPONLY")
	CookieSameSite = v.GetString("COOKIE_SAMESITE")

	LogLevel = v.GetString("LOG_LEVEL")
	SnowflakeNode = v.GetInt64("SNOWFLAKE_NODE")

	IntakeDefaultMode = v.GetString("INTAKE_DEFAULT_MODE")
	IntakeSessionTTL = v.GetDuration("INTAKE_SESSION_TTL")
	OverReceiptPolicy = strings.ToLower(v.GetString("OVER_RECEIPT_POLICY"))
	CatalogCacheSize = v.GetInt("CATALOG_CACHE_SIZE")
	TacImportDir = v.GetString("TAC_IMPORT_DIR")

	SMTPHost = v.GetString("SMTP_HOST")
	SMTPPort = v.GetInt("SMTP_PORT")
	SMTPUser = v.GetString("SMTP_USER")
	SMTPPassword = v.GetString("SMTP_PASSWORD")
	SMTPFrom = v.GetString("SMTP_FROM")
	NotifyEmails = splitList(v.GetString("NOTIFY_EMAILS"))

	loadAllowedOrigins(v.GetString("ALLOWED_ORIGINS"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("MAIN_ROUTES", "/api/v1")
	v.SetDefault("APP_PORT", "9000")
	v.SetDefault("JWT_SECRET", "refurb_app_key_secret")
	v.SetDefault("JWT_EXPIRATION", 86400)
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_UNIT", "refurb")
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("COOKIE_HTTPONLY", false)
	v.SetDefault("COOKIE_SAMESITE", "None")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SNOWFLAKE_NODE", 1)
	v.SetDefault("INTAKE_DEFAULT_MODE", "bulk")
	v.SetDefault("INTAKE_SESSION_TTL", "30m")
	v.SetDefault("OVER_RECEIPT_POLICY", "allow")
	v.SetDefault("CATALOG_CACHE_SIZE", 256)
	v.SetDefault("TAC_IMPORT_DIR", "./tac-data/unprocessed")
	v.SetDefault("SMTP_PORT", 465)
	v.SetDefault("ALLOWED_ORIGINS", "")
}

// IsDevelopment reports whether the service runs with development logging.
func IsDevelopment() bool {
	return APP_ENV == "development"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loadAllowedOrigins(originsStr string) {
	allowedOrigins = make(map[string]bool)

	origins := splitList(originsStr)
	if len(origins) == 0 {
		allowedOrigins["http://127.0.0.1:3000"] = true
		allowedOrigins["http://localhost:5173"] = true
		return
	}

	for _, origin := range origins {
		allowedOrigins[origin] = true
	}
}

func SetupCORS(app *fiber.App) {
	app.Use(func(c *fiber.Ctx) error {
		origin := c.Get("Origin")
		if allowedOrigins[origin] {
			c.Set("Access-Control-Allow-Origin", origin)
			c.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			c.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
			c.Set("Access-Control-Allow-Credentials", "true")
		}

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	})
}

func GetTokenCookie(token string) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     "refresh_token",
		Value:    token,
		Expires:  time.Now().Add(time.Duration(JWTExpiration) * time.Second),
		HTTPOnly: CookieHTTPOnly,
		SameSite: CookieSameSite,
		Path:     "/",
		Secure:   CookieSecure,
	}
}
