package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AnswerMap 问卷答案，键为题目ID，值为字符串（单选/文本）或字符串数组（多选）
type AnswerMap map[string]interface{}

func (a AnswerMap) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

func (a *AnswerMap) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan AnswerMap: %v", value)
	}
	return json.Unmarshal(bytes, a)
}

// Submission 提交记录实体
type Submission struct {
	ID       string      `json:"id" gorm:"primaryKey;size:32"`
	TaskID   string      `json:"task_id" gorm:"size:32;not null;index:idx_submissions_task_member"`
	MemberID string      `json:"member_id" gorm:"size:32;not null;index:idx_submissions_task_member"`
	Type     CollectType `json:"submission_type" gorm:"column:submission_type;size:20;not null;default:file"`

	// 文件信息（file/image 类型）
	OriginalFilename string `json:"original_filename" gorm:"size:255"`
	StoredObject     string `json:"stored_object" gorm:"size:500"`
	ContentType      string `json:"content_type" gorm:"size:100"`
	FileSize         int64  `json:"file_size" gorm:"not null;default:0"`

	// 文本内容（text 类型）
	TextContent string `json:"text_content" gorm:"type:text"`

	// 问卷答案（questionnaire 类型）
	Answers AnswerMap `json:"answers" gorm:"type:jsonb"`

	// 可见性
	IsPrivate bool `json:"is_private" gorm:"not null;default:false"`

	UploadCount int `json:"upload_count" gorm:"not null;default:1"`
	ItemIndex   int `json:"item_index" gorm:"not null;default:1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Task   *Task   `json:"task,omitempty" gorm:"foreignKey:TaskID"`
	Member *Member `json:"member,omitempty" gorm:"foreignKey:MemberID"`
}

func (Submission) TableName() string {
	return "submissions"
}
