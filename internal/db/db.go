package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是服务端使用的全局数据库连接实例
var DB *gorm.DB

// Init 初始化服务端数据库连接并执行自动迁移。
// databasePath 为空时将回退到默认值 focuscycle.db。
func Init(databasePath string) error {
	gdb, err := open(databasePath, "focuscycle.db", &gorm.Config{})
	if err != nil {
		return err
	}

	// 自动迁移模式，为远端镜像创建表
	if err := Migrate(gdb); err != nil {
		return err
	}

	DB = gdb
	return nil
}

// Migrate 为远端镜像相关模型建表，测试中也直接复用。
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&Cycle{},
		&Subject{},
		&StudySession{},
		&DailyStat{},
	)
}

// OpenCache 打开客户端本地缓存库，仅包含 cache_entries 表。
// 缓存库关闭 gorm 日志，避免命令行输出被 SQL 噪音淹没。
func OpenCache(cachePath string) (*gorm.DB, error) {
	gdb, err := open(cachePath, "focuscycle-cache.db", &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	if err := gdb.AutoMigrate(&CacheEntry{}); err != nil {
		return nil, err
	}
	return gdb, nil
}

func open(databasePath, fallback string, cfg *gorm.Config) (*gorm.DB, error) {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		path = fallback
	}

	if err := ensureParentDir(path); err != nil {
		return nil, err
	}

	return gorm.Open(sqlite.Open(path), cfg)
}

func ensureParentDir(path string) error {
	if strings.HasPrefix(path, "file:") {
		return nil
	}

	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
