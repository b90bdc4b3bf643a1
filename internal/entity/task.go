package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// CollectType 收集类型
type CollectType string

const (
	CollectTypeFile          CollectType = "file"
	CollectTypeImage         CollectType = "image"
	CollectTypeText          CollectType = "text"
	CollectTypeQuestionnaire CollectType = "questionnaire"
)

// Valid 是否为已知收集类型
func (t CollectType) Valid() bool {
	switch t {
	case CollectTypeFile, CollectTypeImage, CollectTypeText, CollectTypeQuestionnaire:
		return true
	}
	return false
}

// CollectTypes 任务收集类型开关，四种类型可任意组合，但至少启用一种
type CollectTypes struct {
	File          bool `json:"file"`
	Image         bool `json:"image"`
	Text          bool `json:"text"`
	Questionnaire bool `json:"questionnaire"`
}

// Enabled 指定类型是否启用
func (c CollectTypes) Enabled(t CollectType) bool {
	switch t {
	case CollectTypeFile:
		return c.File
	case CollectTypeImage:
		return c.Image
	case CollectTypeText:
		return c.Text
	case CollectTypeQuestionnaire:
		return c.Questionnaire
	}
	return false
}

// Any 是否至少启用一种类型
func (c CollectTypes) Any() bool {
	return c.File || c.Image || c.Text || c.Questionnaire
}

// List 已启用类型列表，按固定顺序
func (c CollectTypes) List() []CollectType {
	var out []CollectType
	for _, t := range []CollectType{CollectTypeFile, CollectTypeImage, CollectTypeText, CollectTypeQuestionnaire} {
		if c.Enabled(t) {
			out = append(out, t)
		}
	}
	return out
}

func (c CollectTypes) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *CollectTypes) Scan(value interface{}) error {
	if value == nil {
		*c = CollectTypes{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan CollectTypes: %v", value)
	}
	return json.Unmarshal(bytes, c)
}

// QuestionType 问卷题目类型
type QuestionType string

const (
	QuestionTypeText     QuestionType = "text"
	QuestionTypeRadio    QuestionType = "radio"
	QuestionTypeCheckbox QuestionType = "checkbox"
	QuestionTypeImage    QuestionType = "image"
	QuestionTypeFile     QuestionType = "file"
)

// Valid 是否为已知题目类型
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeText, QuestionTypeRadio, QuestionTypeCheckbox, QuestionTypeImage, QuestionTypeFile:
		return true
	}
	return false
}

// QuestionnaireItem 问卷题目。ID 在创建任务时分配且不再变化，
// 答案按题目 ID 关联，题目增删或重排不影响已有答案。
type QuestionnaireItem struct {
	ID       string       `json:"id"`
	Type     QuestionType `json:"type"`
	Title    string       `json:"title"`
	Options  []string     `json:"options,omitempty"`
	Required bool         `json:"required"`
}

// QuestionnaireConfig 问卷配置，题目顺序即展示顺序
type QuestionnaireConfig []QuestionnaireItem

// Find 按题目ID查找，返回题目及其序号
func (q QuestionnaireConfig) Find(itemID string) (*QuestionnaireItem, int) {
	for i := range q {
		if q[i].ID == itemID {
			return &q[i], i
		}
	}
	return nil, -1
}

func (q QuestionnaireConfig) Value() (driver.Value, error) {
	if q == nil {
		return nil, nil
	}
	return json.Marshal(q)
}

func (q *QuestionnaireConfig) Scan(value interface{}) error {
	if value == nil {
		*q = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan QuestionnaireConfig: %v", value)
	}
	return json.Unmarshal(bytes, q)
}

// StringList 字符串数组 JSONB 列
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan StringList: %v", value)
	}
	return json.Unmarshal(bytes, l)
}

// Task 收集任务实体
type Task struct {
	ID          string `json:"id" gorm:"primaryKey;size:32"`
	Title       string `json:"title" gorm:"size:200;not null"`
	Description string `json:"description" gorm:"type:text"`
	ClassID     string `json:"class_id" gorm:"size:32;not null;index"`

	// 收集配置
	CollectTypes   CollectTypes        `json:"collect_types" gorm:"type:jsonb;not null;default:'{}'"`
	ItemsPerPerson int                 `json:"items_per_person" gorm:"not null;default:1"`
	AllowedTypes   StringList          `json:"allowed_types" gorm:"type:jsonb"`
	Questionnaire  QuestionnaireConfig `json:"questionnaire_config" gorm:"column:questionnaire_config;type:jsonb"`

	// 提交策略。截止时间默认只用于状态标记，deadline_enforced 打开后才阻止提交
	Deadline               *time.Time `json:"deadline"`
	DeadlineEnforced       bool       `json:"deadline_enforced" gorm:"not null;default:false"`
	MaxUploads             int        `json:"max_uploads" gorm:"not null;default:1"`
	AllowModify            bool       `json:"allow_modify" gorm:"not null;default:true"`
	AdminOnlyVisible       bool       `json:"admin_only_visible" gorm:"not null;default:false"`
	AllowUserSetVisibility bool       `json:"allow_user_set_visibility" gorm:"not null;default:true"`
	NamingFormat           string     `json:"naming_format" gorm:"size:200;not null;default:'{student_id}_{name}'"`

	// 提醒配置
	RemindBeforeHours int  `json:"remind_before_hours" gorm:"not null;default:24"`
	AutoRemindEnabled bool `json:"auto_remind_enabled" gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Class *Class `json:"class,omitempty" gorm:"foreignKey:ClassID"`
}

func (Task) TableName() string {
	return "tasks"
}

// DeadlinePassed 是否已过截止时间
func (t *Task) DeadlinePassed(now time.Time) bool {
	if t.Deadline == nil {
		return false
	}
	return now.After(*t.Deadline)
}
