package handler

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/huaiminqin/collection-self/internal/config"
	"github.com/huaiminqin/collection-self/internal/entity"
	"github.com/huaiminqin/collection-self/internal/repository"
	"github.com/huaiminqin/collection-self/internal/service"
	"github.com/huaiminqin/collection-self/internal/testutil"
)

func setupSubmissionTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	cfg := &config.Config{}
	repos := repository.NewRepositories(db)
	svc := service.NewSubmissionService(repos.Task, repos.Member, repos.Submission, nil, "")
	h := NewSubmissionHandler(svc, cfg)

	// 提交入口无需认证
	api := router.Group("/api/v1")
	api.POST("/submissions/text", h.SubmitText)
	api.POST("/submissions/questionnaire", h.SubmitQuestionnaire)
	api.GET("/submissions/mine", h.ListOwn)
	api.GET("/submissions/public", h.ListPublic)
	api.DELETE("/submissions/:id/own", h.DeleteOwn)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func TestSubmitTextFlow(t *testing.T) {
	env := setupSubmissionTest(t)
	class := testutil.SeedClass(t, env.DB, "软件2401")
	testutil.SeedMember(t, env.DB, class.ID, "20250001", "张三")
	task := testutil.SeedTask(t, env.DB, class.ID, "周报收集", entity.CollectTypes{Text: true})

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/submissions/text", map[string]interface{}{
		"task_id":    task.ID,
		"student_id": "20250001",
		"content":    "本周完成需求评审",
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w2 := testutil.DoRequest(env.Router, "GET",
		"/api/v1/submissions/mine?task_id="+task.ID+"&student_id=20250001", nil, "")
	resp := testutil.ParseResponse(w2)
	items := resp["data"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("Expected 1 submission, got %d", len(items))
	}
	sub := items[0].(map[string]interface{})
	if sub["text_content"] != "本周完成需求评审" {
		t.Errorf("Unexpected text content: %v", sub["text_content"])
	}
}

func TestSubmitTextAppendsUntilLimit(t *testing.T) {
	env := setupSubmissionTest(t)
	class := testutil.SeedClass(t, env.DB, "软件2401")
	testutil.SeedMember(t, env.DB, class.ID, "20250001", "张三")
	task := testutil.SeedTask(t, env.DB, class.ID, "周报收集", entity.CollectTypes{Text: true})

	// max_uploads=1 且不允许修改
	env.DB.Model(task).Updates(map[string]interface{}{"max_uploads": 1, "allow_modify": false})

	body := map[string]interface{}{
		"task_id":    task.ID,
		"student_id": "20250001",
		"content":    "第一次提交",
	}
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/submissions/text", body, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 for first submission, got %d: %s", w.Code, w.Body.String())
	}

	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/submissions/text", body, "")
	if w2.Code != http.StatusConflict {
		t.Fatalf("Expected 409 when limit reached and modify disabled, got %d: %s", w2.Code, w2.Body.String())
	}
	resp := testutil.ParseResponse(w2)
	if resp["code"].(float64) != 40900 {
		t.Errorf("Expected code 40900, got %v", resp["code"])
	}
}

func TestSubmitTextAllowModifyAppends(t *testing.T) {
	env := setupSubmissionTest(t)
	class := testutil.SeedClass(t, env.DB, "软件2401")
	m := testutil.SeedMember(t, env.DB, class.ID, "20250001", "张三")
	task := testutil.SeedTask(t, env.DB, class.ID, "周报收集", entity.CollectTypes{Text: true})

	// max_uploads=1 但允许修改，超额提交作为追加记录接受
	body := map[string]interface{}{
		"task_id":    task.ID,
		"student_id": "20250001",
		"content":    "提交",
	}
	for i := 0; i < 2; i++ {
		w := testutil.DoRequest(env.Router, "POST", "/api/v1/submissions/text", body, "")
		if w.Code != http.StatusCreated {
			t.Fatalf("Submission %d: expected 201, got %d: %s", i+1, w.Code, w.Body.String())
		}
	}

	var count int64
	env.DB.Model(&entity.Submission{}).
		Where("task_id = ? AND member_id = ?", task.ID, m.ID).Count(&count)
	if count != 2 {
		t.Errorf("Expected 2 appended submissions, got %d", count)
	}
}

func TestSubmitDisabledTypeRejected(t *testing.T) {
	env := setupSubmissionTest(t)
	class := testutil.SeedClass(t, env.DB, "软件2401")
	testutil.SeedMember(t, env.DB, class.ID, "20250001", "张三")
	task := testutil.SeedTask(t, env.DB, class.ID, "文件收集", entity.CollectTypes{File: true})

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/submissions/text", map[string]interface{}{
		"task_id":    task.ID,
		"student_id": "20250001",
		"content":    "文本",
	}, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for disabled type, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 40300 {
		t.Errorf("Expected code 40300, got %v", resp["code"])
	}
}

func TestSubmitUnknownStudent(t *testing.T) {
	env := setupSubmissionTest(t)
	class := testutil.SeedClass(t, env.DB, "软件2401")
	task := testutil.SeedTask(t, env.DB, class.ID, "周报收集", entity.CollectTypes{Text: true})

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/submissions/text", map[string]interface{}{
		"task_id":    task.ID,
		"student_id": "99999999",
		"content":    "内容",
	}, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 for unknown student, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSubmitAfterDeadline(t *testing.T) {
	env := setupSubmissionTest(t)
	class := testutil.SeedClass(t, env.DB, "软件2401")
	testutil.SeedMember(t, env.DB, class.ID, "20250001", "张三")
	task := testutil.SeedTask(t, env.DB, class.ID, "周报收集", entity.CollectTypes{Text: true})

	deadline := time.Now().Add(-time.Hour)
	env.DB.Model(task).Update("deadline", deadline)

	// 截止时间默认只用于状态标记，过期提交仍然接受
	body := map[string]interface{}{
		"task_id":    task.ID,
		"student_id": "20250001",
		"content":    "迟到的提交",
	}
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/submissions/text", body, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 for advisory deadline, got %d: %s", w.Code, w.Body.String())
	}

	// 显式开启强制截止后才拒绝
	env.DB.Model(task).Update("deadline_enforced", true)
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/submissions/text", body, "")
	if w2.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 with enforced deadline, got %d: %s", w2.Code, w2.Body.String())
	}
}

func TestConcurrentSubmitsRespectLimit(t *testing.T) {
	env := setupSubmissionTest(t)
	class := testutil.SeedClass(t, env.DB, "软件2401")
	m := testutil.SeedMember(t, env.DB, class.ID, "20250001", "张三")
	task := testutil.SeedTask(t, env.DB, class.ID, "周报收集", entity.CollectTypes{Text: true})

	env.DB.Model(task).Updates(map[string]interface{}{"max_uploads": 1, "allow_modify": false})

	body := map[string]interface{}{
		"task_id":    task.ID,
		"student_id": "20250001",
		"content":    "并发提交",
	}

	const workers = 8
	codes := make([]int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			w := testutil.DoRequest(env.Router, "POST", "/api/v1/submissions/text", body, "")
			codes[idx] = w.Code
		}(i)
	}
	wg.Wait()

	created := 0
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
		default:
			t.Errorf("Unexpected status %d", code)
		}
	}
	if created != 1 {
		t.Errorf("Expected exactly 1 accepted submission, got %d", created)
	}

	var count int64
	env.DB.Model(&entity.Submission{}).
		Where("task_id = ? AND member_id = ?", task.ID, m.ID).Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 persisted submission, got %d", count)
	}
}

func TestSubmitQuestionnaire(t *testing.T) {
	env := setupSubmissionTest(t)
	class := testutil.SeedClass(t, env.DB, "软件2401")
	testutil.SeedMember(t, env.DB, class.ID, "20250001", "张三")
	task := testutil.SeedTask(t, env.DB, class.ID, "问卷任务", entity.CollectTypes{Questionnaire: true})

	task.Questionnaire = entity.QuestionnaireConfig{
		{ID: "q1", Type: entity.QuestionTypeText, Title: "备注", Required: true},
		{ID: "q2", Type: entity.QuestionTypeRadio, Title: "性别", Options: []string{"男", "女"}},
	}
	if err := env.DB.Save(task).Error; err != nil {
		t.Fatalf("Failed to save questionnaire config: %v", err)
	}

	// 未知题目ID拒绝
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/submissions/questionnaire", map[string]interface{}{
		"task_id":    task.ID,
		"student_id": "20250001",
		"answers":    map[string]interface{}{"q1": "无", "bogus": "x"},
	}, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for unknown item ID, got %d: %s", w.Code, w.Body.String())
	}

	// 答案按题目ID关联
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/submissions/questionnaire", map[string]interface{}{
		"task_id":    task.ID,
		"student_id": "20250001",
		"answers":    map[string]interface{}{"q1": "无", "q2": "男"},
	}, "")
	if w2.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w2.Code, w2.Body.String())
	}
	resp := testutil.ParseResponse(w2)
	data := resp["data"].(map[string]interface{})
	answers := data["answers"].(map[string]interface{})
	if answers["q2"] != "男" {
		t.Errorf("Expected answer keyed by item ID, got %v", answers)
	}
}

func TestVisibilityForcedByTask(t *testing.T) {
	env := setupSubmissionTest(t)
	class := testutil.SeedClass(t, env.DB, "软件2401")
	m := testutil.SeedMember(t, env.DB, class.ID, "20250001", "张三")
	task := testutil.SeedTask(t, env.DB, class.ID, "周报收集", entity.CollectTypes{Text: true})

	// 任务强制仅管理员可见
	env.DB.Model(task).Updates(map[string]interface{}{
		"admin_only_visible":        true,
		"allow_user_set_visibility": false,
	})

	// 成员请求公开，应被覆盖为私有
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/submissions/text", map[string]interface{}{
		"task_id":    task.ID,
		"student_id": "20250001",
		"content":    "内容",
		"is_private": false,
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var sub entity.Submission
	env.DB.First(&sub, "task_id = ? AND member_id = ?", task.ID, m.ID)
	if !sub.IsPrivate {
		t.Error("Submission should be forced private by task settings")
	}

	// 强制仅管理员可见的任务公开列表为空
	w2 := testutil.DoRequest(env.Router, "GET", "/api/v1/submissions/public?task_id="+task.ID, nil, "")
	resp := testutil.ParseResponse(w2)
	items := resp["data"].([]interface{})
	if len(items) != 0 {
		t.Errorf("Expected empty public list, got %d items", len(items))
	}
}

func TestDeleteOwnRespectsAllowModify(t *testing.T) {
	env := setupSubmissionTest(t)
	class := testutil.SeedClass(t, env.DB, "软件2401")
	m := testutil.SeedMember(t, env.DB, class.ID, "20250001", "张三")
	task := testutil.SeedTask(t, env.DB, class.ID, "周报收集", entity.CollectTypes{Text: true})
	sub := testutil.SeedSubmission(t, env.DB, task.ID, m.ID, entity.CollectTypeText)

	env.DB.Model(task).Update("allow_modify", false)

	w := testutil.DoRequest(env.Router, "DELETE",
		"/api/v1/submissions/"+sub.ID+"/own?student_id=20250001", nil, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 when modify disabled, got %d: %s", w.Code, w.Body.String())
	}

	env.DB.Model(task).Update("allow_modify", true)
	w2 := testutil.DoRequest(env.Router, "DELETE",
		"/api/v1/submissions/"+sub.ID+"/own?student_id=20250001", nil, "")
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w2.Code, w2.Body.String())
	}
}
