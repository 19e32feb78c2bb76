package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	AppName      string

	UploadDir string

	BorrowLimit int
	LoanPeriod  time.Duration

	// Whether a student may submit another payment in a month that already
	// has a Pending or Rejected submission. An Approved payment always
	// blocks further submissions for the month.
	AllowDuplicatePendingPayments bool
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		Port: getEnv("PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "postgres"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "program"),
		DBPassword: getEnv("DB_PASSWORD", "test"),
		DBName:     getEnv("DB_NAME", "library"),

		JWTSecret:       getEnv("JWT_SECRET", "library-backend-secret"),
		AccessTokenTTL:  7 * 24 * time.Hour,
		RefreshTokenTTL: 30 * 24 * time.Hour,

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		AppName:      getEnv("APP_NAME", "Library Management"),

		UploadDir: getEnv("UPLOAD_DIR", "uploads"),

		BorrowLimit: getEnvInt("BORROW_LIMIT", 3),
		LoanPeriod:  time.Duration(getEnvInt("LOAN_PERIOD_DAYS", 14)) * 24 * time.Hour,

		AllowDuplicatePendingPayments: getEnvBool("ALLOW_DUPLICATE_PENDING_PAYMENTS", true),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %v", key, value, defaultValue)
		return defaultValue
	}
	return b
}
