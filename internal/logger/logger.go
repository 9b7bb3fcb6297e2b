package logger

import (
	"strings"

	"go.uber.org/zap"
)

// New 根据运行模式构建 zap 日志实例，production 输出 JSON，其余输出开发格式。
func New(mode string) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}

// OrNop 在未注入日志实例时回退到静默实现。
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
