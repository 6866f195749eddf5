package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/clachance14/PipeTrakV2-sub010/internal/middleware"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/entity"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/repository"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/service"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	TestSchema = "test_pipetrak"
	JWTSecret  = "pipetrak-jwt-secret-key-2026"
)

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
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "postgres")
	dbname := getEnv("DB_NAME", "pipetrak")

	baseDSN := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// Create a unique test schema for isolation
	schemaName := fmt.Sprintf("%s_%d", TestSchema, time.Now().UnixNano()%1000000)

	// First: create schema using a temporary connection
	setupDB, err := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to database for schema setup: %v", err)
	}
	setupDB.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schemaName))
	sqlSetup, _ := setupDB.DB()
	sqlSetup.Close()

	// Second: open connection with search_path in DSN so ALL pooled connections use test schema
	testDSN := fmt.Sprintf("%s search_path=%s", baseDSN, schemaName)
	db, err := gorm.Open(postgres.Open(testDSN), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Migrate test tables
	err = db.AutoMigrate(
		&entity.Drawing{},
		&entity.Component{},
		&entity.ProgressTemplate{},
		&entity.MilestoneConfig{},
		&entity.FieldWeld{},
		&entity.Welder{},
		&entity.MilestoneEvent{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	// Cleanup on test completion
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		// Reconnect to drop the schema
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

// SetupServices wires repositories and services against a test database.
// Redis is nil so rollups hit the database directly.
func SetupServices(t *testing.T, db *gorm.DB) (*service.Services, *repository.Repositories) {
	t.Helper()

	repos := repository.NewRepositories(db)
	if err := service.SeedDefaultTemplates(context.Background(), repos.Template, zap.NewNop()); err != nil {
		t.Fatalf("Failed to seed templates: %v", err)
	}

	registry := service.NewTemplateRegistry(repos.Template, zap.NewNop())
	rollup := service.NewRollupService(nil, repos, zap.NewNop(), 0)
	svcs := &service.Services{
		Registry: registry,
		Progress: service.NewProgressService(db, repos, registry, rollup, zap.NewNop(), 1),
		Repair:   service.NewRepairService(db, repos, registry, rollup, zap.NewNop(), 0),
		Rollup:   rollup,
		Welder:   service.NewWelderService(repos, zap.NewNop()),
		Import:   service.NewImportService(db, repos, registry, rollup, zap.NewNop()),
	}
	return svcs, repos
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
func GenerateTestToken(userID, name string, roles []string) string {
	if roles == nil {
		roles = []string{}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":        userID,
		"uid":        userID,
		"name":       name,
		"email":      userID + "@test.com",
		"project_id": "test-project-001",
		"roles":      roles,
		"perms":      []string{"*"},
		"iss":        "pipetrak",
		"iat":        now.Unix(),
		"exp":        now.Add(24 * time.Hour).Unix(),
		"jti":        fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken returns a token for a default foreman test user
func DefaultTestToken() string {
	return GenerateTestToken("test-user-001", "Test Foreman", []string{"project_admin"})
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

// ParseResponse parses the JSON response body into a handler.Response-like map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedDrawing creates a test drawing
func SeedDrawing(t *testing.T, repos *repository.Repositories, projectID, number string) *entity.Drawing {
	t.Helper()
	d := &entity.Drawing{
		ProjectID: projectID,
		Number:    number,
		Title:     "Test drawing " + number,
		CreatedBy: "test-user-001",
	}
	if err := repos.Drawing.Create(context.Background(), d); err != nil {
		t.Fatalf("Failed to seed drawing: %v", err)
	}
	return d
}

// SeedComponent creates a test component with an empty milestone map
func SeedComponent(t *testing.T, svcs *service.Services, drawingID, componentType string) *entity.Component {
	t.Helper()
	comp, err := svcs.Progress.CreateComponent(context.Background(), &service.CreateComponentRequest{
		DrawingID:     drawingID,
		ComponentType: componentType,
	}, "test-user-001")
	if err != nil {
		t.Fatalf("Failed to seed component: %v", err)
	}
	return comp
}

// SeedWelder creates a test welder
func SeedWelder(t *testing.T, svcs *service.Services, projectID, stencil string) *entity.Welder {
	t.Helper()
	w, err := svcs.Welder.CreateWelder(context.Background(), &service.CreateWelderRequest{
		ProjectID: projectID,
		Stencil:   stencil,
		Name:      "Welder " + stencil,
	}, "test-user-001")
	if err != nil {
		t.Fatalf("Failed to seed welder: %v", err)
	}
	return w
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
