package service

import (
	"testing"
	"time"

	"github.com/huaiminqin/collection-self/internal/entity"
)

func textTask(itemsPerPerson int) *entity.Task {
	return &entity.Task{
		ID:             "task-001",
		ClassID:        "class-001",
		CollectTypes:   entity.CollectTypes{Text: true},
		ItemsPerPerson: itemsPerPerson,
	}
}

func members(n int) []entity.Member {
	out := make([]entity.Member, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, entity.Member{
			ID:        string(rune('a' + i)),
			StudentID: string(rune('A' + i)),
			Name:      string(rune('甲' + i)),
		})
	}
	return out
}

func textSub(memberID string) entity.Submission {
	return entity.Submission{TaskID: "task-001", MemberID: memberID, Type: entity.CollectTypeText}
}

func TestComputeStatsProgress(t *testing.T) {
	task := textTask(1)
	roster := members(3)
	subs := []entity.Submission{textSub(roster[0].ID)}

	stats := computeStats(task, roster, subs, time.Now())
	if stats.TotalMembers != 3 {
		t.Errorf("Expected total 3, got %d", stats.TotalMembers)
	}
	if stats.SubmittedCount != 1 {
		t.Errorf("Expected submitted 1, got %d", stats.SubmittedCount)
	}
	if stats.NotSubmittedCount != 2 {
		t.Errorf("Expected not submitted 2, got %d", stats.NotSubmittedCount)
	}
	// 1/3 = 33.3%，保留一位小数
	if stats.ProgressPercent != 33.3 {
		t.Errorf("Expected progress 33.3, got %v", stats.ProgressPercent)
	}
}

func TestComputeStatsEmptyRoster(t *testing.T) {
	stats := computeStats(textTask(1), nil, nil, time.Now())
	if stats.TotalMembers != 0 || stats.SubmittedCount != 0 {
		t.Errorf("Expected empty stats, got %+v", stats)
	}
	if stats.ProgressPercent != 0 {
		t.Errorf("Expected progress 0 for empty roster, got %v", stats.ProgressPercent)
	}
}

func TestComputeStatsOverdue(t *testing.T) {
	task := textTask(1)
	deadline := time.Now().Add(-time.Hour)
	task.Deadline = &deadline

	stats := computeStats(task, members(1), nil, time.Now())
	if !stats.Overdue {
		t.Error("Expected overdue task")
	}
}

func TestHasSubmittedItemsPerPerson(t *testing.T) {
	task := textTask(2)
	subs := []entity.Submission{textSub("a")}
	if hasSubmitted(task, subs) {
		t.Error("One submission should not satisfy items_per_person=2")
	}
	subs = append(subs, textSub("a"))
	if !hasSubmitted(task, subs) {
		t.Error("Two submissions should satisfy items_per_person=2")
	}
}

func TestHasSubmittedIgnoresDisabledTypes(t *testing.T) {
	// 任务收窄为只收文本后，历史文件提交不再计入完成判定
	task := textTask(1)
	fileSub := entity.Submission{TaskID: task.ID, MemberID: "a", Type: entity.CollectTypeFile}
	if hasSubmitted(task, []entity.Submission{fileSub}) {
		t.Error("File submission should not count when only text is enabled")
	}
	if !hasSubmitted(task, []entity.Submission{fileSub, textSub("a")}) {
		t.Error("Text submission should count")
	}
}

func TestUnsubmittedMembersKeepsRosterOrder(t *testing.T) {
	task := textTask(1)
	roster := members(4)
	// 第二名成员已交
	subs := []entity.Submission{textSub(roster[1].ID)}

	missing := unsubmittedMembers(task, roster, subs)
	if len(missing) != 3 {
		t.Fatalf("Expected 3 unsubmitted, got %d", len(missing))
	}
	expected := []string{roster[0].ID, roster[2].ID, roster[3].ID}
	for i, m := range missing {
		if m.ID != expected[i] {
			t.Errorf("Position %d: expected %s, got %s", i, expected[i], m.ID)
		}
	}
}

func TestBuildQuestionnaireAssignsIDs(t *testing.T) {
	config, err := buildQuestionnaire([]QuestionnaireItemInput{
		{Type: entity.QuestionTypeText, Title: "姓名", Required: true},
		{Type: entity.QuestionTypeRadio, Title: "性别", Options: []string{"男", "女"}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(config) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(config))
	}
	seen := map[string]bool{}
	for _, item := range config {
		if item.ID == "" {
			t.Error("Item ID should be assigned")
		}
		if seen[item.ID] {
			t.Errorf("Duplicate item ID %s", item.ID)
		}
		seen[item.ID] = true
	}
}

func TestBuildQuestionnaireValidation(t *testing.T) {
	cases := []struct {
		name  string
		items []QuestionnaireItemInput
	}{
		{"empty config", nil},
		{"blank title", []QuestionnaireItemInput{{Type: entity.QuestionTypeText, Title: "  "}}},
		{"unknown type", []QuestionnaireItemInput{{Type: "slider", Title: "评分"}}},
		{"radio without options", []QuestionnaireItemInput{{Type: entity.QuestionTypeRadio, Title: "性别"}}},
		{"checkbox without options", []QuestionnaireItemInput{{Type: entity.QuestionTypeCheckbox, Title: "爱好"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := buildQuestionnaire(tc.items)
			if !IsCode(err, CodeValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}
