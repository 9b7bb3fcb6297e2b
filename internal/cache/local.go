package cache

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/focuscycle/internal/db"
	"github.com/focuscycle/internal/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// KeySettings 保存计时器设置。
	KeySettings = "pomodoro_settings"
	// KeyStats 保存当日统计。
	KeyStats = "pomodoro_stats"
	// KeyStudyCycle 保存 {cycles, activeCycleId} 学习循环数据包。
	KeyStudyCycle = "pomodoro_study_cycle"
)

// KeyValue 描述同步本地存储需要提供的能力，仓库与控制器只依赖该接口。
type KeyValue interface {
	Save(key string, value any) bool
	Raw(key string) ([]byte, bool)
	Remove(key string) bool
}

// Local 基于 SQLite 的同步键值缓存，是客户端状态的即时真源。
type Local struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewLocal 构造 Local，gdb 通常来自 db.OpenCache。
func NewLocal(gdb *gorm.DB, log *zap.Logger) *Local {
	return &Local{db: gdb, log: logger.OrNop(log)}
}

// Save 将 value 序列化为 JSON 后写入 key，失败时记录日志并返回 false。
func (l *Local) Save(key string, value any) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		l.log.Warn("cache save skipped: empty key")
		return false
	}

	payload, err := json.Marshal(value)
	if err != nil {
		l.log.Error("cache encode failed", zap.String("key", key), zap.Error(err))
		return false
	}

	entry := db.CacheEntry{Key: key, Value: string(payload)}
	if err := l.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error; err != nil {
		l.log.Error("cache write failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Raw 返回 key 对应的原始 JSON，不存在或读取失败时第二个返回值为 false。
func (l *Local) Raw(key string) ([]byte, bool) {
	var entry db.CacheEntry
	if err := l.db.Where("key = ?", strings.TrimSpace(key)).First(&entry).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			l.log.Error("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return []byte(entry.Value), true
}

// Remove 删除 key，key 不存在时同样视为成功。
func (l *Local) Remove(key string) bool {
	if err := l.db.Unscoped().Where("key = ?", strings.TrimSpace(key)).Delete(&db.CacheEntry{}).Error; err != nil {
		l.log.Error("cache remove failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Load 读取并反序列化 key，缺失或解析失败时返回 fallback。
func Load[T any](store KeyValue, key string, fallback T) T {
	raw, ok := store.Raw(key)
	if !ok || len(raw) == 0 {
		return fallback
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return fallback
	}
	return value
}
