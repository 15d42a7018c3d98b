package planning

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

type AppConfig struct {
	Mode         string
	ApiPort      string
	MainDatabase struct {
		Host         string
		Port         string
		User         string
		Password     string
		DatabaseName string
		SSLMode      string
	}
	JWTConfig struct {
		Secret string
	}
	RedisConfig struct {
		Host     string
		Port     string
		Password string
		DB       int
	}
	NatsConfig struct {
		URL      string
		TenantID string
	}
	SmtpConfig struct {
		Host     string
		Port     int
		Username string
		Password string
		From     string
		UseTLS   bool
	}
	AlertConfig struct {
		// Recipients notified when a drift repair backfills ledger rows.
		Recipients []string
	}
}

var config AppConfig

func InitConfig(envfile string) {
	if err := godotenv.Load(envfile); err != nil {
		log.Fatal(fmt.Sprintf("Error loading %s file: %s", envfile, err))
	}
	config = AppConfig{
		Mode:    getEnvOrPanic("RUN_MODE"),
		ApiPort: getEnvOrPanic("API_PORT"),
		MainDatabase: struct {
			Host         string
			Port         string
			User         string
			Password     string
			DatabaseName string
			SSLMode      string
		}{
			Host:         getEnvOrPanic("DB_HOSTNAME"),
			Port:         getEnvOrPanic("DB_PORT"),
			User:         getEnvOrPanic("DB_USERNAME"),
			Password:     getEnvOrPanic("DB_PASSWORD"),
			DatabaseName: getEnvOrPanic("DB_NAME"),
			SSLMode:      getEnvOrPanic("DB_SSL_MODE"),
		},
		JWTConfig: struct {
			Secret string
		}{
			Secret: getEnvOrPanic("JWT_SECRET"),
		},
		RedisConfig: struct {
			Host     string
			Port     string
			Password string
			DB       int
		}{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnvOrDefault("REDIS_DB", 0),
		},
		NatsConfig: struct {
			URL      string
			TenantID string
		}{
			URL:      GetEnv("NATS_URL", "nats://localhost:4222"),
			TenantID: GetEnv("TENANT_ID", "default"),
		},
		SmtpConfig: struct {
			Host     string
			Port     int
			Username string
			Password string
			From     string
			UseTLS   bool
		}{
			Host:     GetEnv("SMTP_HOST", ""),
			Port:     getIntEnvOrDefault("SMTP_PORT", 587),
			Username: GetEnv("SMTP_USERNAME", ""),
			Password: GetEnv("SMTP_PASSWORD", ""),
			From:     GetEnv("SMTP_FROM", ""),
			UseTLS:   GetEnv("SMTP_USE_TLS", "false") == "true",
		},
		AlertConfig: struct {
			Recipients []string
		}{
			Recipients: splitList(GetEnv("INTEGRITY_ALERT_RECIPIENTS", "")),
		},
	}

	DB = connectToPostgres(config.MainDatabase.Host, config.MainDatabase.User, config.MainDatabase.Password, config.MainDatabase.DatabaseName, config.MainDatabase.Port, config.MainDatabase.SSLMode)
	Logger = initLogger()
	Redis = connectToRedis(config.RedisConfig.Host, config.RedisConfig.Port, config.RedisConfig.Password, config.RedisConfig.DB)
}

func GetConfig() AppConfig {
	return config
}

func getEnvOrPanic(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("%s must be set", key)
	}
	return value
}

func GetEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return value
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func connectToPostgres(host string, username string, password string, dbname string, port string, ssl string) *gorm.DB {
	var err error
	var db *gorm.DB
	var conn *sql.DB

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		host, username, password, dbname, port, ssl)
	if db, err = gorm.Open(postgres.Open(dsn),
		&gorm.Config{
			Logger: logger.New(
				log.New(os.Stdout, "\r\n", log.LstdFlags),
				logger.Config{
					SlowThreshold: 0,
					LogLevel:      logger.Error,
				},
			),
			TranslateError: true,
			NowFunc: func() time.Time {
				return time.Now()
			},
			NamingStrategy: schema.NamingStrategy{
				SingularTable: true,
			}}); err != nil {
		panic(err)
	}
	if conn, err = db.DB(); err != nil {
		panic(err)
	}
	conn.SetMaxIdleConns(10)
	conn.SetMaxOpenConns(10)
	conn.SetConnMaxLifetime(time.Hour)
	return db
}

func initLogger() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05",
		NoColor:    false,
		FormatLevel: func(i interface{}) string {
			return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
		},
		FormatMessage: func(i interface{}) string {
			return fmt.Sprintf("  %s  ", i)
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("%s=", i)
		},
		FormatFieldValue: func(i interface{}) string {
			return fmt.Sprintf("%s", i)
		},
	}

	return zerolog.New(output).With().Timestamp().Caller().Logger()
}

func connectToRedis(host string, port string, password string, db int) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		panic(fmt.Sprintf("Failed to connect to Redis: %v", err))
	}

	return client
}
