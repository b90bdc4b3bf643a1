package entity

import (
	"time"
)

// Member 班级成员实体
type Member struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	StudentID string    `json:"student_id" gorm:"size:50;not null;uniqueIndex"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	Gender    string    `json:"gender" gorm:"size:10"`
	Dormitory string    `json:"dormitory" gorm:"size:50"`
	Email     string    `json:"email" gorm:"size:100"`
	ClassID   string    `json:"class_id" gorm:"size:32;not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Class *Class `json:"class,omitempty" gorm:"foreignKey:ClassID"`
}

func (Member) TableName() string {
	return "members"
}
