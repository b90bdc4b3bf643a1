package handler

import (
	"net/http"
	"testing"

	"go.uber.org/zap"

	"github.com/huaiminqin/collection-self/internal/entity"
	"github.com/huaiminqin/collection-self/internal/repository"
	"github.com/huaiminqin/collection-self/internal/service"
	"github.com/huaiminqin/collection-self/internal/testutil"
)

func setupExportTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	repos := repository.NewRepositories(db)
	taskSvc := service.NewTaskService(repos.Task, repos.Member, repos.Submission, repos.Organization)
	exportSvc := service.NewExportService(taskSvc, repos.Member, repos.Submission, nil, "", zap.NewNop())
	h := NewExportHandler(exportSvc)

	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/tasks/:id/export/preview", h.Preview)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func TestExportPreview(t *testing.T) {
	env := setupExportTest(t)
	token := testutil.DefaultTestToken()
	class := testutil.SeedClass(t, env.DB, "软件2401")
	testutil.SeedMember(t, env.DB, class.ID, "20250001", "张三")
	testutil.SeedMember(t, env.DB, class.ID, "20250002", "李四")
	task := testutil.SeedTask(t, env.DB, class.ID, "周报收集", entity.CollectTypes{Text: true})

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/tasks/"+task.ID+"/export/preview", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	entries := resp["data"].([]interface{})
	if len(entries) != 2 {
		t.Fatalf("Expected 2 preview entries, got %d", len(entries))
	}
	first := entries[0].(map[string]interface{})
	if first["filename"] != "20250001_张三" {
		t.Errorf("Expected task naming format applied, got %v", first["filename"])
	}

	// 临时模板覆盖任务配置
	w2 := testutil.DoRequest(env.Router, "GET",
		"/api/v1/tasks/"+task.ID+"/export/preview?naming_format={name}", nil, token)
	resp2 := testutil.ParseResponse(w2)
	entries2 := resp2["data"].([]interface{})
	second := entries2[1].(map[string]interface{})
	if second["filename"] != "李四" {
		t.Errorf("Expected override format applied, got %v", second["filename"])
	}

	// 非法模板拒绝
	w3 := testutil.DoRequest(env.Router, "GET",
		"/api/v1/tasks/"+task.ID+"/export/preview?naming_format={bogus}", nil, token)
	if w3.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown variable, got %d", w3.Code)
	}
}
