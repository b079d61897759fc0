package env

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"research-agent/internal/application/port/output"

	"github.com/joho/godotenv"
)

var _ output.ConfigPort = (*EnvService)(nil)

type EnvService struct{}

// NewEnvService loads .env and then .env.$APP_ENV on top of it. Missing files
// are not an error: the process environment may already carry everything.
func NewEnvService() *EnvService {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "dev"
	}

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Info: no .env file found, using process environment")
	}

	envFile := fmt.Sprintf(".env.%s", appEnv)
	if err := godotenv.Overload(envFile); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load %s: %v", envFile, err)
	}

	return &EnvService{}
}

func (e *EnvService) Get(key string) string {
	return os.Getenv(key)
}

// MustGet returns an error instead of exiting so the caller can report it.
func (e *EnvService) MustGet(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("environment variable %s is missing", key)
	}
	return val, nil
}

func (e *EnvService) GetWithDefault(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

func (e *EnvService) GetBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func (e *EnvService) GetInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func (e *EnvService) GetDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}
	return parsed
}
