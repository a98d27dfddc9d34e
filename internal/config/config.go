package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	ServiceConfig = Load()
}

var ServiceConfig *Config

type Config struct {
	Server   ServerConfig
	MongoDB  MongoDBConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Consul   ConsulConfig
	MinIO    MinIOConfig
	Auth     AuthConfig
	OpenAI   OpenAIConfig
	Zoom     ZoomConfig
	Cron     CronConfig
}

type ServerConfig struct {
	Port           string
	Host           string
	ServiceName    string
	ServiceAddress string
	ServiceID      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	AllowOrigins   []string
	LogDir         string
}

type ConsulConfig struct {
	ConsulAddress string
}

type MongoDBConfig struct {
	Driver   string // "mongo" or "memory"
	URI      string
	Database string
	PoolSize uint64
	Timeout  time.Duration
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
	CacheTTL time.Duration
}

type RabbitMQConfig struct {
	URI      string
	Exchange string
}

type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Region          string
	PaperBucket     string
	PublicBaseURL   string
	MaxUploadSize   int64
}

type AuthConfig struct {
	JWTSecret     string
	TokenExpiry   time.Duration
	AdminEmail    string
	AdminPassword string
}

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

type ZoomConfig struct {
	ClientID     string
	ClientSecret string
	AccountID    string
	BaseURL      string
	TokenURL     string
}

type CronConfig struct {
	Secret   string
	Schedule string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "9400"),
			Host:           getEnv("HOST", "0.0.0.0"),
			ServiceName:    getEnv("ACADEMY_SERVICE_NAME", "proacademics-service"),
			ServiceAddress: getEnv("ACADEMY_SERVICE_ADDRESS", "proacademics-service"),
			ServiceID:      getEnv("ACADEMY_SERVICE_NAME", "proacademics-service") + "-" + getEnv("HOSTNAME", "academy"),
			ReadTimeout:    getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("WRITE_TIMEOUT", 15*time.Second),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second),
			AllowOrigins:   getEnvAsSlice("ALLOW_ORIGINS", []string{"http://localhost:3000"}),
			LogDir:         getEnv("LOG_DIR", ""),
		},
		Consul: ConsulConfig{
			ConsulAddress: getEnv("CONSUL_ADDRESS", ""),
		},
		MongoDB: MongoDBConfig{
			Driver:   getEnv("DATABASE_DRIVER", "mongo"),
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "proacademics"),
			PoolSize: getEnvAsUint64("MONGODB_POOL_SIZE", 100),
			Timeout:  getEnvAsDuration("MONGODB_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			CacheTTL: getEnvAsDuration("CACHE_TTL", 60*time.Second),
		},
		RabbitMQ: RabbitMQConfig{
			URI:      getEnv("RABBITMQ_URI", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "academy.events"),
		},
		MinIO: MinIOConfig{
			Endpoint:        getEnv("MINIO_ENDPOINT", ""),
			AccessKeyID:     getEnv("MINIO_ACCESS_KEY", ""),
			SecretAccessKey: getEnv("MINIO_SECRET_KEY", ""),
			UseSSL:          getEnvAsBool("MINIO_USE_SSL", false),
			Region:          getEnv("MINIO_REGION", "us-east-1"),
			PaperBucket:     getEnv("MINIO_PAPER_BUCKET", "past-papers"),
			PublicBaseURL:   getEnv("MINIO_PUBLIC_URL", ""),
			MaxUploadSize:   int64(getEnvAsInt("MAX_UPLOAD_SIZE_MB", 25)) << 20,
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("NEXTAUTH_SECRET", ""),
			TokenExpiry:   getEnvAsDuration("TOKEN_EXPIRY", 7*24*time.Hour),
			AdminEmail:    getEnv("ADMIN_EMAIL", ""),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		},
		OpenAI: OpenAIConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
			Temperature: getEnvAsFloat("OPENAI_TEMPERATURE", 0.7),
		},
		Zoom: ZoomConfig{
			ClientID:     getEnv("ZOOM_API_KEY", ""),
			ClientSecret: getEnv("ZOOM_API_SECRET", ""),
			AccountID:    getEnv("ZOOM_ACCOUNT_ID", ""),
			BaseURL:      getEnv("ZOOM_BASE_URL", "https://api.zoom.us/v2"),
			TokenURL:     getEnv("ZOOM_TOKEN_URL", "https://zoom.us/oauth/token"),
		},
		Cron: CronConfig{
			Secret:   getEnv("CRON_SECRET", ""),
			Schedule: getEnv("CRON_SCHEDULE", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("error retrieve int env var: %s", err)
			return defaultValue
		}
		return intVal
	}
	return defaultValue
}

func getEnvAsUint64(key string, defaultValue uint64) uint64 {
	if value, exists := os.LookupEnv(key); exists {
		uintVal, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			log.Printf("error retrieve uint64 env var: %s", err)
			return defaultValue
		}
		return uintVal
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		duration, err := time.ParseDuration(value)
		if err != nil {
			log.Printf("error retrieve duration env var: %s", err)
			return defaultValue
		}
		return duration
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			log.Printf("error retrieve bool env var: %s", err)
			return defaultValue
		}
		return boolVal
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		floatVal, err := strconv.ParseFloat(value, 64)
		if err != nil {
			log.Printf("error retrieve float env var: %s", err)
			return defaultValue
		}
		return floatVal
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
