package service

import (
	"testing"

	"github.com/huaiminqin/collection-self/internal/entity"
)

func sampleQuestionnaire() entity.QuestionnaireConfig {
	return entity.QuestionnaireConfig{
		{ID: "q1", Type: entity.QuestionTypeText, Title: "备注", Required: true},
		{ID: "q2", Type: entity.QuestionTypeRadio, Title: "性别", Options: []string{"男", "女"}},
		{ID: "q3", Type: entity.QuestionTypeCheckbox, Title: "爱好", Options: []string{"篮球", "音乐", "编程"}},
	}
}

func TestValidateAnswersOK(t *testing.T) {
	err := validateAnswers(sampleQuestionnaire(), entity.AnswerMap{
		"q1": "无",
		"q2": "男",
		"q3": []interface{}{"篮球", "编程"},
	})
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestValidateAnswersUnknownItemID(t *testing.T) {
	err := validateAnswers(sampleQuestionnaire(), entity.AnswerMap{
		"q1":      "无",
		"unknown": "x",
	})
	if !IsCode(err, CodeValidation) {
		t.Errorf("Expected validation error for unknown item ID, got %v", err)
	}
}

func TestValidateAnswersRequiredMissing(t *testing.T) {
	err := validateAnswers(sampleQuestionnaire(), entity.AnswerMap{"q2": "女"})
	if !IsCode(err, CodeValidation) {
		t.Errorf("Expected validation error for missing required answer, got %v", err)
	}

	// 空白答案等同于未作答
	err = validateAnswers(sampleQuestionnaire(), entity.AnswerMap{"q1": "   "})
	if !IsCode(err, CodeValidation) {
		t.Errorf("Expected validation error for blank required answer, got %v", err)
	}
}

func TestValidateAnswersOptionCheck(t *testing.T) {
	err := validateAnswers(sampleQuestionnaire(), entity.AnswerMap{
		"q1": "无",
		"q2": "未知选项",
	})
	if !IsCode(err, CodeValidation) {
		t.Errorf("Expected validation error for radio answer outside options, got %v", err)
	}

	err = validateAnswers(sampleQuestionnaire(), entity.AnswerMap{
		"q1": "无",
		"q3": []interface{}{"篮球", "游泳"},
	})
	if !IsCode(err, CodeValidation) {
		t.Errorf("Expected validation error for checkbox answer outside options, got %v", err)
	}
}

func TestValidateAnswersCheckboxDuplicates(t *testing.T) {
	err := validateAnswers(sampleQuestionnaire(), entity.AnswerMap{
		"q1": "无",
		"q3": []interface{}{"篮球", "篮球"},
	})
	if !IsCode(err, CodeValidation) {
		t.Errorf("Expected validation error for duplicate checkbox answers, got %v", err)
	}
}

func TestValidateAnswersOptionalSkipped(t *testing.T) {
	// 非必答题可以不作答
	err := validateAnswers(sampleQuestionnaire(), entity.AnswerMap{"q1": "无"})
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestValidateFileExt(t *testing.T) {
	// 未配置时不限制
	if err := validateFileExt(nil, ".exe"); err != nil {
		t.Errorf("Empty allowed list should accept any ext, got %v", err)
	}

	allowed := entity.StringList{"image", ".pdf"}
	if err := validateFileExt(allowed, ".png"); err != nil {
		t.Errorf(".png should match image group, got %v", err)
	}
	if err := validateFileExt(allowed, ".pdf"); err != nil {
		t.Errorf(".pdf should match explicit ext, got %v", err)
	}
	if err := validateFileExt(allowed, ".mp4"); !IsCode(err, CodeValidation) {
		t.Errorf("Expected validation error for .mp4, got %v", err)
	}
}

func TestResolveVisibility(t *testing.T) {
	truev, falsev := true, false

	// 不允许成员自选时强制使用任务设置
	forced := &entity.Task{AdminOnlyVisible: true, AllowUserSetVisibility: false}
	if !resolveVisibility(forced, &falsev) {
		t.Error("Requested visibility should be overridden when user choice is disabled")
	}

	// 允许自选时尊重请求值
	free := &entity.Task{AdminOnlyVisible: true, AllowUserSetVisibility: true}
	if resolveVisibility(free, &falsev) {
		t.Error("Requested public visibility should be honored")
	}
	if !resolveVisibility(free, &truev) {
		t.Error("Requested private visibility should be honored")
	}

	// 未指定时退回任务默认
	if !resolveVisibility(free, nil) {
		t.Error("Missing request should fall back to task default")
	}
}
