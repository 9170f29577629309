package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/glowsenior/HIPAA-Contract-Site/config"
	"github.com/glowsenior/HIPAA-Contract-Site/model"
	"github.com/glowsenior/HIPAA-Contract-Site/service"
	"github.com/glowsenior/HIPAA-Contract-Site/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testUserHeader carries the acting user through test requests in place
// of a bearer token.
const testUserHeader = "X-Test-User"

type fixture struct {
	users     *store.UserStore
	contracts *store.ContractStore
	documents *store.DocumentStore
	pipeline  *service.DocumentPipeline
	router    *gin.Engine
	uploadDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := store.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	cfg := &config.Config{
		Auth:   config.AuthConfig{JWTSecret: "test-secret", TokenExpireHours: 1},
		Upload: config.UploadConfig{MaxFileSize: 1024 * 1024},
	}

	f := &fixture{
		users:     store.NewUserStore(db),
		contracts: store.NewContractStore(db),
		documents: store.NewDocumentStore(db),
		uploadDir: t.TempDir(),
	}
	f.pipeline = service.NewDocumentPipeline(f.contracts, f.documents, service.NewDiskStorage(f.uploadDir), cfg.Upload.MaxFileSize)

	authH := NewAuthHandler(cfg, f.users)
	contractH := NewContractHandler(f.contracts, f.users, f.pipeline)
	documentH := NewDocumentHandler(f.pipeline)

	router := gin.New()
	router.POST("/api/auth/register", authH.Register)
	router.POST("/api/auth/login", authH.Login)
	router.GET("/api/documents/public/:id", documentH.PublicView)

	api := router.Group("/api")
	api.Use(func(c *gin.Context) {
		if id := c.GetHeader(testUserHeader); id != "" {
			c.Set("user_id", id)
		}
	})
	api.GET("/auth/me", authH.GetCurrentUser)
	api.GET("/contracts", contractH.List)
	api.POST("/contracts", contractH.Create)
	api.GET("/contracts/:id", contractH.Get)
	api.PUT("/contracts/:id", contractH.Update)
	api.DELETE("/contracts/:id", contractH.Delete)
	api.POST("/contracts/:id/status", contractH.SetStatus)
	api.POST("/contracts/:id/message", contractH.AddMessage)
	api.POST("/documents/upload", documentH.Upload)
	api.GET("/documents/:id", documentH.Get)
	api.GET("/documents/:id/download", documentH.Download)
	api.GET("/documents/:id/view", documentH.View)
	api.PUT("/documents/:id/verify", documentH.Verify)
	api.DELETE("/documents/:id", documentH.Delete)
	f.router = router

	return f
}

func (f *fixture) seedUser(t *testing.T, id, role string) {
	t.Helper()
	err := f.users.Create(context.Background(), &model.User{
		ID:        id,
		Email:     id + "@example.com",
		Password:  "hash",
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
	})
	if err != nil {
		t.Fatalf("Failed to seed user %s: %v", id, err)
	}
}

// seedParticipants creates the client/contractor pair most tests use.
func (f *fixture) seedParticipants(t *testing.T) {
	t.Helper()
	f.seedUser(t, "client-1", model.RoleClient)
	f.seedUser(t, "contractor-1", model.RoleContractor)
}

func (f *fixture) seedContract(t *testing.T, status model.Status) *model.Contract {
	t.Helper()
	contract := &model.Contract{
		Title:        "Clinic website",
		Description:  "Build a clinic site",
		ClientID:     "client-1",
		ContractorID: "contractor-1",
		ProjectType:  model.ProjectMedicalWebsite,
		Budget:       5000,
		Currency:     "USD",
		Status:       status,
		Timeline: model.Timeline{
			StartDate: time.Now(),
			EndDate:   time.Now().AddDate(0, 1, 0),
		},
	}
	if err := f.contracts.Create(context.Background(), contract); err != nil {
		t.Fatalf("Failed to seed contract: %v", err)
	}
	return contract
}

// do sends one request as userID and returns the recorder. An empty
// userID sends the request unauthenticated.
func (f *fixture) do(t *testing.T, userID, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(testUserHeader, userID)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
	return body
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("Expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}
