package db

import "gorm.io/gorm"

// CacheEntry 存储客户端本地缓存的键值对，Value 为 JSON 文本。
type CacheEntry struct {
	gorm.Model
	Key   string `gorm:"size:100;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// TableName 自定义表名以保持命名一致。
func (CacheEntry) TableName() string {
	return "cache_entries"
}
