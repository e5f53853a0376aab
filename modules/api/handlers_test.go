package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	tododomain "github.com/example/todo-cache-demo/domain/todo"
	"github.com/example/todo-cache-demo/modules/cache"

	authmod "github.com/example/todo-cache-demo/modules/auth"
	todomod "github.com/example/todo-cache-demo/modules/todo"
)

const testRedisAddr = "localhost:6379"

// apiTestEnv wires the full handler stack against a temp database and a
// real Redis instance, mirroring the production route layout.
type apiTestEnv struct {
	app     *fiber.App
	cleanup func()
}

func setupAPITest(t *testing.T) *apiTestEnv {
	t.Helper()

	dbPath := "test_api_" + t.Name() + ".db"
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	todoRepo := tododomain.NewRepository(db)
	if err := todoRepo.Migrate(); err != nil {
		t.Fatalf("failed to migrate todos: %v", err)
	}
	userRepo := authmod.NewUserRepository(db)
	if err := userRepo.Migrate(); err != nil {
		t.Fatalf("failed to migrate users: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}
	prefix := "test:api:" + t.Name() + ":"
	c := cache.New(client, prefix, cache.DefaultTTL)

	todoService, err := todomod.NewService(todoRepo, c)
	if err != nil {
		t.Fatalf("failed to create todo service: %v", err)
	}

	authService := authmod.NewAuthService(userRepo, authmod.NewPasswordHasher(), authmod.NewJWTManager(authmod.JWTConfig{
		SecretKey:            "test-secret-key",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: time.Hour,
		Issuer:               "test-issuer",
	}))

	handlers := NewHandlers(todoService, authService, authmod.OAuthProviders{})

	app := fiber.New()
	app.Get("/health", handlers.HealthCheck)
	api := app.Group("/api")
	api.Post("/signup", handlers.Signup)
	api.Post("/login", handlers.Login)
	api.Post("/refresh", handlers.Refresh)
	api.Get("/auth/:provider", handlers.OAuthRedirect)
	todos := api.Group("/todo", AuthMiddleware(authService))
	todos.Post("/", handlers.CreateTodo)
	todos.Get("/", handlers.ListTodos)
	todos.Patch("/:id", handlers.UpdateTodo)
	todos.Delete("/:id", handlers.DeleteTodo)
	api.Get("/cache/stats", handlers.GetCacheStats)

	cleanup := func() {
		keys, _ := client.Keys(ctx, prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return &apiTestEnv{app: app, cleanup: cleanup}
}

func (e *apiTestEnv) request(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, 5000)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	var decoded map[string]any
	if len(data) > 0 {
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("failed to decode response %q: %v", data, err)
		}
	}

	return resp.StatusCode, decoded
}

// signupAndLogin registers a user and returns an access token.
func (e *apiTestEnv) signupAndLogin(t *testing.T, name, email string) string {
	t.Helper()

	status, _ := e.request(t, "POST", "/api/signup", "", map[string]string{
		"name": name, "email": email, "password": "password123",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("signup status = %d, want 201", status)
	}

	status, body := e.request(t, "POST", "/api/login", "", map[string]string{
		"email": email, "password": "password123",
	})
	if status != fiber.StatusOK {
		t.Fatalf("login status = %d, want 200", status)
	}
	token, _ := body["access_token"].(string)
	if token == "" {
		t.Fatal("login response missing access_token")
	}
	return token
}

func TestAPI_SignupAndLogin(t *testing.T) {
	env := setupAPITest(t)
	defer env.cleanup()

	status, body := env.request(t, "POST", "/api/signup", "", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "password123",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("signup status = %d, want 201", status)
	}
	if success, _ := body["success"].(bool); !success {
		t.Errorf("signup success = %v, want true", body["success"])
	}

	t.Run("duplicate email rejected", func(t *testing.T) {
		status, _ := env.request(t, "POST", "/api/signup", "", map[string]string{
			"name": "Alice Again", "email": "alice@example.com", "password": "password456",
		})
		if status != fiber.StatusBadRequest {
			t.Errorf("status = %d, want 400", status)
		}
	})

	t.Run("weak password rejected", func(t *testing.T) {
		status, _ := env.request(t, "POST", "/api/signup", "", map[string]string{
			"name": "Bob", "email": "bob@example.com", "password": "short",
		})
		if status != fiber.StatusBadRequest {
			t.Errorf("status = %d, want 400", status)
		}
	})

	t.Run("wrong password at login", func(t *testing.T) {
		status, _ := env.request(t, "POST", "/api/login", "", map[string]string{
			"email": "alice@example.com", "password": "wrong-password",
		})
		if status != fiber.StatusUnauthorized {
			t.Errorf("status = %d, want 401", status)
		}
	})

	t.Run("login returns tokens", func(t *testing.T) {
		status, body := env.request(t, "POST", "/api/login", "", map[string]string{
			"email": "alice@example.com", "password": "password123",
		})
		if status != fiber.StatusOK {
			t.Fatalf("status = %d, want 200", status)
		}
		if body["access_token"] == "" || body["refresh_token"] == "" {
			t.Error("login response missing tokens")
		}
	})
}

func TestAPI_Refresh(t *testing.T) {
	env := setupAPITest(t)
	defer env.cleanup()

	env.signupAndLogin(t, "Alice", "alice@example.com")
	_, body := env.request(t, "POST", "/api/login", "", map[string]string{
		"email": "alice@example.com", "password": "password123",
	})
	refreshToken, _ := body["refresh_token"].(string)

	status, renewed := env.request(t, "POST", "/api/refresh", "", map[string]string{
		"refresh_token": refreshToken,
	})
	if status != fiber.StatusOK {
		t.Fatalf("refresh status = %d, want 200", status)
	}
	if renewed["access_token"] == "" {
		t.Error("refresh response missing access_token")
	}

	status, _ = env.request(t, "POST", "/api/refresh", "", map[string]string{
		"refresh_token": "garbage",
	})
	if status != fiber.StatusUnauthorized {
		t.Errorf("refresh with garbage status = %d, want 401", status)
	}
}

func TestAPI_TodoEndpointsRequireAuth(t *testing.T) {
	env := setupAPITest(t)
	defer env.cleanup()

	for _, tc := range []struct{ method, path string }{
		{"POST", "/api/todo/"},
		{"GET", "/api/todo/"},
		{"PATCH", "/api/todo/some-id"},
		{"DELETE", "/api/todo/some-id"},
	} {
		status, _ := env.request(t, tc.method, tc.path, "", nil)
		if status != fiber.StatusUnauthorized {
			t.Errorf("%s %s without token status = %d, want 401", tc.method, tc.path, status)
		}
	}
}

func TestAPI_TodoLifecycle(t *testing.T) {
	env := setupAPITest(t)
	defer env.cleanup()

	token := env.signupAndLogin(t, "Alice", "alice@example.com")

	// Create
	status, body := env.request(t, "POST", "/api/todo/", token, map[string]string{
		"title": "buy milk",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("create status = %d, want 201", status)
	}
	created, _ := body["todo"].(map[string]any)
	if created == nil {
		t.Fatal("create response missing todo")
	}
	todoID, _ := created["id"].(string)
	if todoID == "" {
		t.Fatal("created todo missing id")
	}
	if created["status"] != "pending" {
		t.Errorf("new todo status = %v, want pending", created["status"])
	}

	// List right after create hits the cache: 200
	status, body = env.request(t, "GET", "/api/todo/", token, nil)
	if status != fiber.StatusOK {
		t.Fatalf("cached list status = %d, want 200", status)
	}
	if body["message"] != "Found data in cache" {
		t.Errorf("message = %v, want cache-hit message", body["message"])
	}
	todos, _ := body["todos"].([]any)
	if len(todos) != 1 {
		t.Fatalf("todos len = %d, want 1", len(todos))
	}

	// Empty patch rejected
	status, body = env.request(t, "PATCH", "/api/todo/"+todoID, token, map[string]string{})
	if status != fiber.StatusBadRequest {
		t.Fatalf("empty patch status = %d, want 400", status)
	}
	if body["message"] != "missing fields" {
		t.Errorf("message = %v, want %q", body["message"], "missing fields")
	}

	// Status patch
	status, body = env.request(t, "PATCH", "/api/todo/"+todoID, token, map[string]string{
		"status": "completed",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("patch status = %d, want 201", status)
	}
	updated, _ := body["updateTodo"].(map[string]any)
	if updated == nil || updated["status"] != "completed" {
		t.Errorf("updateTodo = %v, want completed status", body["updateTodo"])
	}

	// Patch on a missing todo
	status, body = env.request(t, "PATCH", "/api/todo/no-such-id", token, map[string]string{
		"status": "completed",
	})
	if status != fiber.StatusBadRequest {
		t.Fatalf("patch missing todo status = %d, want 400", status)
	}
	if body["message"] != "no such todo exists" {
		t.Errorf("message = %v, want %q", body["message"], "no such todo exists")
	}

	// Delete
	status, _ = env.request(t, "DELETE", "/api/todo/"+todoID, token, nil)
	if status != fiber.StatusCreated {
		t.Fatalf("delete status = %d, want 201", status)
	}

	// Second delete fails
	status, _ = env.request(t, "DELETE", "/api/todo/"+todoID, token, nil)
	if status != fiber.StatusBadRequest {
		t.Errorf("second delete status = %d, want 400", status)
	}

	// List is empty again
	_, body = env.request(t, "GET", "/api/todo/", token, nil)
	todos, _ = body["todos"].([]any)
	if len(todos) != 0 {
		t.Errorf("todos len = %d, want 0", len(todos))
	}
}

func TestAPI_CreateTodo_EmptyTitle(t *testing.T) {
	env := setupAPITest(t)
	defer env.cleanup()

	token := env.signupAndLogin(t, "Alice", "alice@example.com")

	status, body := env.request(t, "POST", "/api/todo/", token, map[string]string{
		"title": "   ",
	})
	if status != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if body["message"] != "Title can't be empty" {
		t.Errorf("message = %v, want %q", body["message"], "Title can't be empty")
	}
}

func TestAPI_UserIsolation(t *testing.T) {
	env := setupAPITest(t)
	defer env.cleanup()

	aliceToken := env.signupAndLogin(t, "Alice", "alice@example.com")
	bobToken := env.signupAndLogin(t, "Bob", "bob@example.com")

	status, body := env.request(t, "POST", "/api/todo/", aliceToken, map[string]string{
		"title": "alice's task",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("create status = %d, want 201", status)
	}
	created, _ := body["todo"].(map[string]any)
	todoID, _ := created["id"].(string)

	// Bob's list is empty
	_, body = env.request(t, "GET", "/api/todo/", bobToken, nil)
	todos, _ := body["todos"].([]any)
	if len(todos) != 0 {
		t.Errorf("bob's todos len = %d, want 0", len(todos))
	}

	// Bob cannot touch Alice's todo
	status, _ = env.request(t, "PATCH", "/api/todo/"+todoID, bobToken, map[string]string{
		"status": "completed",
	})
	if status != fiber.StatusBadRequest {
		t.Errorf("cross-user patch status = %d, want 400", status)
	}
	status, _ = env.request(t, "DELETE", "/api/todo/"+todoID, bobToken, nil)
	if status != fiber.StatusBadRequest {
		t.Errorf("cross-user delete status = %d, want 400", status)
	}

	// Alice still sees her todo untouched
	_, body = env.request(t, "GET", "/api/todo/", aliceToken, nil)
	todos, _ = body["todos"].([]any)
	if len(todos) != 1 {
		t.Errorf("alice's todos len = %d, want 1", len(todos))
	}
}

func TestAPI_OAuthRedirect_UnknownProvider(t *testing.T) {
	env := setupAPITest(t)
	defer env.cleanup()

	status, _ := env.request(t, "GET", "/api/auth/myspace", "", nil)
	if status != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	env := setupAPITest(t)
	defer env.cleanup()

	status, body := env.request(t, "GET", "/health", "", nil)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}
