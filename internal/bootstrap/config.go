package bootstrap

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config 汇总进程的全部配置，来源是环境变量 (.env 可选)。
type Config struct {
	ServerPort string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret      string
	JWTExpiryHours int

	RateLimitPerMin int

	LogLevel string
}

// LoadConfig 读取 .env (如果存在) 和环境变量。
// JWT_SECRET 和 REDIS_ADDR 没有安全的默认值，缺失时直接报错。
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg := &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		DBUser:          getEnv("DB_USER", "root"),
		DBPassword:      getEnv("DB_PASSWORD", ""),
		DBHost:          getEnv("DB_HOST", "127.0.0.1"),
		DBPort:          getEnv("DB_PORT", "3306"),
		DBName:          getEnv("DB_NAME", "botchat"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		JWTExpiryHours:  getEnvInt("JWT_EXPIRY_HOURS", 24),
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MIN", 120),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR environment variable is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.WithField("key", key).Warnf("Invalid integer value %q, using default %d", v, fallback)
		return fallback
	}
	return n
}
