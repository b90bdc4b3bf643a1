package entity

import (
	"time"
)

// College 学院实体
type College struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Name      string    `json:"name" gorm:"size:100;not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Grades []Grade `json:"grades,omitempty" gorm:"foreignKey:CollegeID"`
}

func (College) TableName() string {
	return "colleges"
}

// Grade 年级实体
type Grade struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	CollegeID string    `json:"college_id" gorm:"size:32;not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	College *College `json:"college,omitempty" gorm:"foreignKey:CollegeID"`
	Classes []Class  `json:"classes,omitempty" gorm:"foreignKey:GradeID"`
}

func (Grade) TableName() string {
	return "grades"
}

// Class 班级实体
type Class struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	GradeID   string    `json:"grade_id" gorm:"size:32;not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Grade   *Grade   `json:"grade,omitempty" gorm:"foreignKey:GradeID"`
	Members []Member `json:"members,omitempty" gorm:"foreignKey:ClassID"`
	Tasks   []Task   `json:"tasks,omitempty" gorm:"foreignKey:ClassID"`
}

func (Class) TableName() string {
	return "classes"
}
