package env

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var Env map[string]string

func GetEnv(key, def string) string {
	if val, ok := Env[key]; ok {
		return val
	}
	// Fallback to OS environment variables (Docker, CI, batch jobs)
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetEnvInt reads an integer setting, falling back to def on absence or parse error.
func GetEnvInt(key string, def int) int {
	raw := GetEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func SetupEnvFile() {
	// Look for .env relative to the working directory. The batch jobs under
	// cmd/ run from the project root in production, so the deeper fallbacks
	// only matter for local development.
	envFiles := []string{
		".env",
		"../../.env",
		"../../../.env",
	}

	var err error
	for _, envFile := range envFiles {
		Env, err = godotenv.Read(envFile)
		if err == nil {
			return
		}
	}

	// Cron hosts configure everything through real environment variables,
	// so a missing .env file is not fatal.
	Env = map[string]string{}
}

// AppBaseURL returns the externally visible base URL used in generated
// links (checkout return URLs, activation mails, OAuth callbacks). When
// APP_URL is unset it falls back to the local dev server address.
func AppBaseURL() string {
	base := strings.TrimRight(GetEnv("APP_URL", ""), "/")
	if base == "" {
		base = "http://localhost:" + GetEnv("APP_PORT", "3000")
	}
	return base
}

func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}
