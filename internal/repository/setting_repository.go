package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/huaiminqin/collection-self/internal/entity"
	"gorm.io/gorm"
)

// SettingRepository 系统设置仓库
type SettingRepository struct {
	db *gorm.DB
}

// NewSettingRepository 创建设置仓库
func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// Get 读取设置值，不存在时返回默认值
func (r *SettingRepository) Get(ctx context.Context, key, fallback string) (string, error) {
	var setting entity.Setting
	err := r.db.WithContext(ctx).First(&setting, "key = ?", key).Error
	if err != nil {
		if IsNotFound(err) {
			return fallback, nil
		}
		return fallback, err
	}
	return setting.Value, nil
}

// Set 写入设置值，存在则覆盖
func (r *SettingRepository) Set(ctx context.Context, key, value string) error {
	var setting entity.Setting
	err := r.db.WithContext(ctx).First(&setting, "key = ?", key).Error
	if err != nil {
		if IsNotFound(err) {
			setting = entity.Setting{
				ID:        uuid.New().String()[:32],
				Key:       key,
				Value:     value,
				UpdatedAt: time.Now(),
			}
			return r.db.WithContext(ctx).Create(&setting).Error
		}
		return err
	}
	setting.Value = value
	setting.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(&setting).Error
}
