package api

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	authmod "github.com/example/todo-cache-demo/modules/auth"
	todomod "github.com/example/todo-cache-demo/modules/todo"
)

// Module provides the HTTP API.
type Module struct {
	app        *fiber.App
	handlers   *Handlers
	todoModule *todomod.Module
	authModule *authmod.Module
	port       int
}

// Compile-time interface check.
var _ mono.Module = (*Module)(nil)

// NewModule creates a new API module.
func NewModule(port int) *Module {
	return &Module{
		port: port,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "api"
}

// SetTodoModule wires the todo module dependency. Must be called before Start.
func (m *Module) SetTodoModule(tm *todomod.Module) {
	m.todoModule = tm
}

// SetAuthModule wires the auth module dependency. Must be called before Start.
func (m *Module) SetAuthModule(am *authmod.Module) {
	m.authModule = am
}

// Start configures the Fiber app and launches the HTTP server.
// The todo and auth modules must already be started; register them first.
func (m *Module) Start(_ context.Context) error {
	if m.todoModule == nil || m.authModule == nil {
		return fmt.Errorf("api module: todo and auth modules must be set")
	}

	todoService := m.todoModule.GetService()
	authService := m.authModule.GetService()
	if todoService == nil || authService == nil {
		return fmt.Errorf("api module: dependent services not started")
	}

	m.app = fiber.New(fiber.Config{
		AppName:               "Todo Cache Demo",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
	})

	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	m.app.Use(cors.New())

	m.handlers = NewHandlers(todoService, authService, m.authModule.GetProviders())
	m.setupRoutes()

	go func() {
		addr := fmt.Sprintf(":%d", m.port)
		log.Printf("[api] Starting HTTP server on %s", addr)
		if err := m.app.Listen(addr); err != nil {
			log.Printf("[api] HTTP server error: %v", err)
		}
	}()

	return nil
}

// setupRoutes configures all HTTP routes.
func (m *Module) setupRoutes() {
	m.app.Get("/health", m.handlers.HealthCheck)

	api := m.app.Group("/api")

	// Public auth endpoints
	api.Post("/signup", m.handlers.Signup)
	api.Post("/login", m.handlers.Login)
	api.Post("/refresh", m.handlers.Refresh)
	api.Get("/auth/:provider", m.handlers.OAuthRedirect)
	api.Get("/auth/:provider/callback", m.handlers.OAuthCallback)

	// Todo endpoints, all behind the auth middleware
	todos := api.Group("/todo", AuthMiddleware(m.authModule.GetService()))
	todos.Post("/", m.handlers.CreateTodo)
	todos.Get("/", m.handlers.ListTodos)
	todos.Patch("/:id", m.handlers.UpdateTodo)
	todos.Delete("/:id", m.handlers.DeleteTodo)

	// Cache observability
	cache := api.Group("/cache")
	cache.Get("/stats", m.handlers.GetCacheStats)
	cache.Post("/stats/reset", m.handlers.ResetCacheStats)
}

// Stop stops the HTTP server gracefully.
func (m *Module) Stop(_ context.Context) error {
	if m.app != nil {
		log.Println("[api] Shutting down HTTP server...")
		return m.app.Shutdown()
	}
	return nil
}

// errorHandler handles errors escaping Fiber routes.
func (m *Module) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":  message,
		"code":   code,
		"path":   c.Path(),
		"method": c.Method(),
	})
}

// GetApp returns the Fiber app (for testing).
func (m *Module) GetApp() *fiber.App {
	return m.app
}
