package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/huaiminqin/collection-self/internal/config"
	"github.com/huaiminqin/collection-self/internal/entity"
	"github.com/huaiminqin/collection-self/internal/repository"
	"github.com/huaiminqin/collection-self/internal/service"
	"github.com/huaiminqin/collection-self/internal/testutil"
)

func setupAuthTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	cfg := &config.Config{}
	cfg.JWT.Secret = testutil.JWTSecret
	cfg.JWT.AccessTokenExpire = 24 * time.Hour
	cfg.JWT.Issuer = "class-collect"
	cfg.Auth.MaxLoginAttempts = 5
	cfg.Auth.LockoutDuration = 30 * time.Minute

	repos := repository.NewRepositories(db)
	h := NewAuthHandler(service.NewAuthService(repos.Admin, nil, cfg, zap.NewNop()))

	router.POST("/api/v1/auth/login", h.Login)
	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/auth/me", h.Me)
	api.POST("/auth/change-password", h.ChangePassword)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func seedAdmin(t *testing.T, env *testutil.TestEnv, username, password string) *entity.Admin {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	now := time.Now()
	admin := &entity.Admin{
		ID:           uuid.New().String()[:32],
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := env.DB.Create(admin).Error; err != nil {
		t.Fatalf("Failed to seed admin: %v", err)
	}
	return admin
}

func TestLoginSuccess(t *testing.T) {
	env := setupAuthTest(t)
	seedAdmin(t, env, "admin", "secret123")

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/login",
		map[string]interface{}{"username": "admin", "password": "secret123"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["access_token"] == nil || data["access_token"] == "" {
		t.Error("Expected access token in response")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := setupAuthTest(t)
	seedAdmin(t, env, "admin", "secret123")

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/login",
		map[string]interface{}{"username": "admin", "password": "wrong"}, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d: %s", w.Code, w.Body.String())
	}

	// 不存在的账号得到同样的响应
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/login",
		map[string]interface{}{"username": "nobody", "password": "wrong"}, "")
	if w2.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 for unknown user, got %d", w2.Code)
	}
}

func TestChangePassword(t *testing.T) {
	env := setupAuthTest(t)
	admin := seedAdmin(t, env, "admin", "secret123")
	token := testutil.GenerateTestToken(admin.ID, admin.Username)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/change-password",
		map[string]interface{}{"old_password": "wrong", "new_password": "newsecret"}, token)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for wrong old password, got %d: %s", w.Code, w.Body.String())
	}

	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/change-password",
		map[string]interface{}{"old_password": "secret123", "new_password": "newsecret"}, token)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w2.Code, w2.Body.String())
	}

	// 新密码可以登录
	w3 := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/login",
		map[string]interface{}{"username": "admin", "password": "newsecret"}, "")
	if w3.Code != http.StatusOK {
		t.Fatalf("Expected 200 with new password, got %d: %s", w3.Code, w3.Body.String())
	}
}
