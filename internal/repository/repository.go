package repository

import (
	"gorm.io/gorm"
)

// Repositories 仓库集合
type Repositories struct {
	Organization *OrganizationRepository
	Member       *MemberRepository
	Task         *TaskRepository
	Submission   *SubmissionRepository
	Admin        *AdminRepository
	Setting      *SettingRepository
	ReminderLog  *ReminderLogRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Organization: NewOrganizationRepository(db),
		Member:       NewMemberRepository(db),
		Task:         NewTaskRepository(db),
		Submission:   NewSubmissionRepository(db),
		Admin:        NewAdminRepository(db),
		Setting:      NewSettingRepository(db),
		ReminderLog:  NewReminderLogRepository(db),
	}
}
