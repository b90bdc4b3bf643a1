package entity

import (
	"time"
)

// Admin 管理员账号
type Admin struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	Username     string    `json:"username" gorm:"size:50;not null;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Admin) TableName() string {
	return "admins"
}

// Setting 系统设置键值对，SMTP 等运行期可改配置存放在这里
type Setting struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Key       string    `json:"key" gorm:"size:100;not null;uniqueIndex"`
	Value     string    `json:"value" gorm:"type:text"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}
