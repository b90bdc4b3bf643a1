package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/huaiminqin/collection-self/internal/entity"
	"github.com/huaiminqin/collection-self/internal/middleware"
)

const (
	TestSchema = "test_collect"
	JWTSecret  = "collect-test-jwt-secret"
)

// TestEnv holds test environment resources
type TestEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	T      *testing.T
}

// projectRoot returns the project root directory by looking for go.mod
func projectRoot() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// loadEnv loads .env from the project root
func loadEnv() {
	root := projectRoot()
	if root != "" {
		godotenv.Load(filepath.Join(root, ".env"))
	}
}

// SetupTestDB creates a test database connection using a dedicated test schema.
// Each test gets an isolated schema that is cleaned up after the test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	loadEnv()

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "collect")
	password := getEnv("DB_PASSWORD", "collect123")
	dbname := getEnv("DB_NAME", "class_collect")

	baseDSN := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// Create a unique test schema for isolation
	schemaName := fmt.Sprintf("%s_%d", TestSchema, time.Now().UnixNano()%1000000)

	setupDB, err := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to database for schema setup: %v", err)
	}
	setupDB.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schemaName))
	sqlSetup, _ := setupDB.DB()
	sqlSetup.Close()

	// Open connection with search_path in DSN so ALL pooled connections use the test schema
	testDSN := fmt.Sprintf("%s search_path=%s", baseDSN, schemaName)
	db, err := gorm.Open(postgres.Open(testDSN), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	err = db.AutoMigrate(
		&entity.College{},
		&entity.Grade{},
		&entity.Class{},
		&entity.Member{},
		&entity.Task{},
		&entity.Submission{},
		&entity.Admin{},
		&entity.Setting{},
		&entity.ReminderLog{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		cleanDB, cleanErr := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if cleanErr == nil {
			cleanDB.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schemaName))
			sqlClean, _ := cleanDB.DB()
			if sqlClean != nil {
				sqlClean.Close()
			}
		}
	})

	return db
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup creates an API group with JWT auth middleware for testing
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken creates a valid JWT token for testing
func GenerateTestToken(adminID, username string) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      adminID,
		"aid":      adminID,
		"username": username,
		"iss":      "class-collect",
		"iat":      now.Unix(),
		"exp":      now.Add(24 * time.Hour).Unix(),
		"jti":      fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken returns a token for a default test admin
func DefaultTestToken() string {
	return GenerateTestToken("test-admin-001", "admin")
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedClass creates a college/grade/class chain and returns the class
func SeedClass(t *testing.T, db *gorm.DB, name string) *entity.Class {
	t.Helper()
	now := time.Now()
	college := &entity.College{ID: newID(), Name: "测试学院", CreatedAt: now, UpdatedAt: now}
	if err := db.Create(college).Error; err != nil {
		t.Fatalf("Failed to seed college: %v", err)
	}
	grade := &entity.Grade{ID: newID(), Name: "2024级", CollegeID: college.ID, CreatedAt: now, UpdatedAt: now}
	if err := db.Create(grade).Error; err != nil {
		t.Fatalf("Failed to seed grade: %v", err)
	}
	class := &entity.Class{ID: newID(), Name: name, GradeID: grade.ID, CreatedAt: now, UpdatedAt: now}
	if err := db.Create(class).Error; err != nil {
		t.Fatalf("Failed to seed class: %v", err)
	}
	return class
}

// SeedMember creates a class member
func SeedMember(t *testing.T, db *gorm.DB, classID, studentID, name string) *entity.Member {
	t.Helper()
	now := time.Now()
	member := &entity.Member{
		ID:        newID(),
		StudentID: studentID,
		Name:      name,
		ClassID:   classID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("Failed to seed member: %v", err)
	}
	return member
}

// SeedTask creates a collection task with the given collect types
func SeedTask(t *testing.T, db *gorm.DB, classID, title string, types entity.CollectTypes) *entity.Task {
	t.Helper()
	now := time.Now()
	task := &entity.Task{
		ID:                     newID(),
		Title:                  title,
		ClassID:                classID,
		CollectTypes:           types,
		ItemsPerPerson:         1,
		MaxUploads:             1,
		AllowModify:            true,
		AllowUserSetVisibility: true,
		NamingFormat:           "{student_id}_{name}",
		RemindBeforeHours:      24,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := db.Create(task).Error; err != nil {
		t.Fatalf("Failed to seed task: %v", err)
	}
	return task
}

// SeedSubmission creates a text submission for a member
func SeedSubmission(t *testing.T, db *gorm.DB, taskID, memberID string, subType entity.CollectType) *entity.Submission {
	t.Helper()
	now := time.Now()
	sub := &entity.Submission{
		ID:          newID(),
		TaskID:      taskID,
		MemberID:    memberID,
		Type:        subType,
		TextContent: "测试内容",
		UploadCount: 1,
		ItemIndex:   1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to seed submission: %v", err)
	}
	return sub
}

func newID() string {
	return uuid.New().String()[:32]
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
