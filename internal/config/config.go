package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort       string // Application port
	DBUser        string // Database user
	DBPassword    string // Database password
	DBHost        string // Database host
	DBPort        string // Database port
	DBName        string // Database name
	JWTSecret     string // JWT secret key
	PaymentSecret string // Shared secret for payment-callback signatures
	BundleCost    int64  // Bundle price in credit units
	SweepCron     string // Cron expression for the expiry sweep
	RedisAddr     string // Redis server address
	RedisPass     string // Redis password
	RedisDB       int    // Redis database number
	IsProd        bool   // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	bundleCost, _ := strconv.ParseInt(os.Getenv("BUNDLE_COST"), 10, 64)
	if bundleCost <= 0 {
		bundleCost = 299 // Default bundle price
	}
	sweepCron := os.Getenv("SWEEP_CRON")
	if sweepCron == "" {
		sweepCron = "0 3 * * *" // Nightly at 03:00
	}
	return &Config{
		AppPort:       os.Getenv("APP_PORT"),
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBHost:        os.Getenv("DB_HOST"),
		DBPort:        os.Getenv("DB_PORT"),
		DBName:        os.Getenv("DB_NAME"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		PaymentSecret: os.Getenv("PAYMENT_SECRET"),
		BundleCost:    bundleCost,
		SweepCron:     sweepCron,
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPass:     os.Getenv("REDIS_PASS"),
		RedisDB:       redisDB,
		IsProd:        os.Getenv("IS_PROD") == "true",
	}
}

// DSN builds the MySQL data source name from the database settings.
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}
