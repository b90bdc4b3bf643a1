package entity

import (
	"time"
)

// 提醒发送状态
const (
	ReminderStatusSent   = "sent"
	ReminderStatusFailed = "failed"
)

// ReminderLog 提醒邮件发送记录
type ReminderLog struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	TaskID       string    `json:"task_id" gorm:"size:32;not null;index"`
	MemberID     string    `json:"member_id" gorm:"size:32;not null;index"`
	Email        string    `json:"email" gorm:"size:100"`
	Status       string    `json:"status" gorm:"size:20;not null"`
	ErrorMessage string    `json:"error_message" gorm:"type:text"`
	SentAt       time.Time `json:"sent_at"`

	// 关联
	Task   *Task   `json:"task,omitempty" gorm:"foreignKey:TaskID"`
	Member *Member `json:"member,omitempty" gorm:"foreignKey:MemberID"`
}

func (ReminderLog) TableName() string {
	return "reminder_logs"
}
