package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"inspect-mcp/internal/model"
	"inspect-mcp/internal/store/redisstore"
)

// Store backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	DataPath   string
	StoreDir   string
	Backend    string
	Redis      redisstore.Options
	ReportLock bool

	Lights      model.LightSettings
	OverrideTTL time.Duration
	Location    *time.Location

	InspectorName       string
	OrgID               string
	UserID              string
	MetricsAddr         string
	EnableMermaidCharts bool
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory (highest priority for MCP servers)
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory (useful for development/go run)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	// 3. Resolve Data Paths
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	storeDir := filepath.Join(dataPath, "store")

	backend := getEnv("STORE_BACKEND", BackendFile)
	if backend != BackendFile && backend != BackendRedis {
		return nil, fmt.Errorf("unknown STORE_BACKEND %q (want %s or %s)", backend, BackendFile, BackendRedis)
	}

	loc := time.Local
	if tz := getEnv("TIMEZONE", ""); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
		}
	}

	lights := model.DefaultLightSettings()
	lights.RedThreshold = getEnvInt("LIGHT_RED_THRESHOLD", model.DefaultRedThreshold)
	lights.YellowThreshold = getEnvInt("LIGHT_YELLOW_THRESHOLD", model.DefaultYellowThreshold)
	if lights.RedThreshold >= lights.YellowThreshold {
		log.Warn().Int("red", lights.RedThreshold).Int("yellow", lights.YellowThreshold).
			Msg("LIGHT_RED_THRESHOLD is not below LIGHT_YELLOW_THRESHOLD")
	}

	cfg := &AppConfig{
		DataPath: dataPath,
		StoreDir: storeDir,
		Backend:  backend,
		Redis: redisstore.Options{
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "inspect:"),
		},
		ReportLock:    getEnvBool("REPORT_LOCK", false),
		Lights:        lights,
		OverrideTTL:   time.Duration(getEnvInt("OVERRIDE_TTL_HOURS", 24)) * time.Hour,
		Location:      loc,
		InspectorName: getEnv("INSPECTOR_NAME", ""),
		OrgID:         getEnv("ORG_ID", ""),
		UserID:        getEnv("USER_ID", ""),
		MetricsAddr:   getEnv("METRICS_ADDR", ""),

		EnableMermaidCharts: getEnvBool("ENABLE_MERMAID_CHARTS", false),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Warn().Str("key", key).Str("value", value).Int("default", fallback).Msg("Ignoring non-integer setting")
	}
	return fallback
}
