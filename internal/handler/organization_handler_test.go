package handler

import (
	"net/http"
	"testing"

	"github.com/huaiminqin/collection-self/internal/entity"
	"github.com/huaiminqin/collection-self/internal/repository"
	"github.com/huaiminqin/collection-self/internal/service"
	"github.com/huaiminqin/collection-self/internal/testutil"
)

func setupOrganizationTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	repos := repository.NewRepositories(db)
	h := NewOrganizationHandler(service.NewOrganizationService(repos.Organization))

	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/colleges", h.ListColleges)
	api.POST("/colleges", h.CreateCollege)
	api.DELETE("/colleges/:id", h.DeleteCollege)
	api.POST("/grades", h.CreateGrade)
	api.POST("/classes", h.CreateClass)
	api.DELETE("/classes/:id", h.DeleteClass)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func TestCreateOrganizationChain(t *testing.T) {
	env := setupOrganizationTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/colleges",
		map[string]interface{}{"name": "计算机学院"}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	collegeID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/grades",
		map[string]interface{}{"name": "2024级", "college_id": collegeID}, token)
	if w2.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w2.Code, w2.Body.String())
	}
	gradeID := testutil.ParseResponse(w2)["data"].(map[string]interface{})["id"].(string)

	w3 := testutil.DoRequest(env.Router, "POST", "/api/v1/classes",
		map[string]interface{}{"name": "软件2401", "grade_id": gradeID}, token)
	if w3.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w3.Code, w3.Body.String())
	}

	// 年级不存在时创建班级被拒绝
	w4 := testutil.DoRequest(env.Router, "POST", "/api/v1/classes",
		map[string]interface{}{"name": "软件2402", "grade_id": "nonexistent"}, token)
	if w4.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing grade, got %d", w4.Code)
	}
}

func TestDeleteClassCascades(t *testing.T) {
	env := setupOrganizationTest(t)
	token := testutil.DefaultTestToken()
	class := testutil.SeedClass(t, env.DB, "软件2401")
	m := testutil.SeedMember(t, env.DB, class.ID, "20250001", "张三")
	task := testutil.SeedTask(t, env.DB, class.ID, "周报收集", entity.CollectTypes{Text: true})
	testutil.SeedSubmission(t, env.DB, task.ID, m.ID, entity.CollectTypeText)

	w := testutil.DoRequest(env.Router, "DELETE", "/api/v1/classes/"+class.ID, nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var members, tasks, subs int64
	env.DB.Model(&entity.Member{}).Where("class_id = ?", class.ID).Count(&members)
	env.DB.Model(&entity.Task{}).Where("class_id = ?", class.ID).Count(&tasks)
	env.DB.Model(&entity.Submission{}).Where("task_id = ?", task.ID).Count(&subs)
	if members != 0 || tasks != 0 || subs != 0 {
		t.Errorf("Cascade incomplete: members=%d tasks=%d submissions=%d", members, tasks, subs)
	}
}

func TestDeleteCollegeNotFound(t *testing.T) {
	env := setupOrganizationTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, "DELETE", "/api/v1/colleges/nonexistent", nil, token)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}
