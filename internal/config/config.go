package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultRemoteTimeout 是远端镜像单次请求的等待上限。
const DefaultRemoteTimeout = 3 * time.Second

// AppConfig 汇总服务端与客户端运行所需的基础配置。
type AppConfig struct {
	ListenAddr    string
	Port          string
	DatabasePath  string
	GinMode       string
	CORSOrigins   []string
	CachePath     string
	RemoteBaseURL string
	RemoteTimeout time.Duration
	LogMode       string
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
// 当前目录存在 .env 时会先行加载，已设置的环境变量不会被覆盖。
func Load() AppConfig {
	_ = godotenv.Load()

	port := env("PORT", "8000")

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	timeout := DefaultRemoteTimeout
	if raw := strings.TrimSpace(os.Getenv("REMOTE_TIMEOUT")); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			timeout = parsed
		}
	}

	return AppConfig{
		ListenAddr:    listenAddr,
		Port:          port,
		DatabasePath:  env("DATABASE_PATH", "focuscycle.db"),
		GinMode:       env("GIN_MODE", "release"),
		CORSOrigins:   splitList(env("CORS_ORIGINS", "*")),
		CachePath:     env("CACHE_PATH", "focuscycle-cache.db"),
		RemoteBaseURL: strings.TrimRight(env("REMOTE_BASE_URL", "http://localhost:8000/api"), "/"),
		RemoteTimeout: timeout,
		LogMode:       env("LOG_MODE", "production"),
	}
}

func env(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
