package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/huaiminqin/collection-self/internal/repository"
	"github.com/huaiminqin/collection-self/internal/service"
	"github.com/huaiminqin/collection-self/internal/testutil"
)

func setupMemberTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	repos := repository.NewRepositories(db)
	h := NewMemberHandler(service.NewMemberService(repos.Member, repos.Organization))

	router.GET("/api/v1/members/lookup", h.Lookup)
	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/members", h.List)
	api.POST("/members", h.Create)
	api.POST("/members/import", h.Import)
	api.GET("/members/export", h.Export)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func TestCreateMemberDuplicateStudentID(t *testing.T) {
	env := setupMemberTest(t)
	token := testutil.DefaultTestToken()
	class := testutil.SeedClass(t, env.DB, "软件2401")

	body := map[string]interface{}{
		"student_id": "20250001",
		"name":       "张三",
		"class_id":   class.ID,
	}
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/members", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/members", body, token)
	if w2.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for duplicate student_id, got %d: %s", w2.Code, w2.Body.String())
	}
}

func TestMemberLookup(t *testing.T) {
	env := setupMemberTest(t)
	class := testutil.SeedClass(t, env.DB, "软件2401")
	testutil.SeedMember(t, env.DB, class.ID, "20250001", "张三")

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/members/lookup?student_id=20250001", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["name"] != "张三" {
		t.Errorf("Expected 张三, got %v", data["name"])
	}

	w2 := testutil.DoRequest(env.Router, "GET", "/api/v1/members/lookup?student_id=unknown", nil, "")
	if w2.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown student, got %d", w2.Code)
	}
}

func TestImportMembersFromExcel(t *testing.T) {
	env := setupMemberTest(t)
	token := testutil.DefaultTestToken()
	class := testutil.SeedClass(t, env.DB, "软件2401")

	// 构造导入表格：一行完整、一行缺姓名
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]string{
		{"学号", "姓名", "性别", "宿舍", "邮箱"},
		{"20250001", "张三", "男", "1号楼101", "zhangsan@example.com"},
		{"20250002", "", "", "", ""},
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			f.SetCellValue(sheet, cell, v)
		}
	}
	excelBuf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("Failed to build excel: %v", err)
	}
	f.Close()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	mw.WriteField("class_id", class.ID)
	fw, _ := mw.CreateFormFile("file", "members.xlsx")
	fw.Write(excelBuf.Bytes())
	mw.Close()

	req, _ := http.NewRequest("POST", "/api/v1/members/import", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["created"].(float64) != 1 {
		t.Errorf("Expected 1 created, got %v", data["created"])
	}
	errs := data["errors"].([]interface{})
	if len(errs) != 1 {
		t.Errorf("Expected 1 row error, got %d", len(errs))
	}
}
