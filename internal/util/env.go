package util

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/OFFIS-RIT/castnet/pkg/logger"

	"github.com/joho/godotenv"
)

// LoadEnv loads the given dotenv files (".env" when none are given) into the
// process environment. Missing files are not an error.
func LoadEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		logger.Debug("No .env file found, using system environment variables")
	}
}

func GetEnv(key string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return ""
	}
	return value
}

func GetEnvString(key string, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}

	return value
}

func GetEnvNumeric(key string, defaultValue int) float64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return float64(defaultValue)
	}
	returnValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return float64(defaultValue)
	}

	return returnValue
}

func GetEnvInt(key string, defaultValue int) int {
	return int(GetEnvNumeric(key, defaultValue))
}

func GetEnvFloat(key string, defaultValue float64) float64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	returnValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return defaultValue
	}
	return returnValue
}

func GetEnvBool(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	if value == "true" || value == "false" {
		return value == "true"
	}

	return defaultValue
}

// GetEnvDuration accepts Go duration strings ("90s", "2m") or a plain
// number of seconds.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}
