package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	apimod "github.com/example/todo-cache-demo/modules/api"
	authmod "github.com/example/todo-cache-demo/modules/auth"
	cachemod "github.com/example/todo-cache-demo/modules/cache"
	todomod "github.com/example/todo-cache-demo/modules/todo"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration from environment
	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	dbPath := getEnv("DB_PATH", "./todos.db")
	httpPort := getEnvInt("HTTP_PORT", 3000)
	cacheTTL := getEnvDuration("CACHE_TTL", cachemod.DefaultTTL)
	cachePrefix := getEnv("CACHE_PREFIX", cachemod.DefaultPrefix)

	log.Println("=== Todo Cache Demo ===")
	log.Printf("Redis: %s", redisAddr)
	log.Printf("Database: %s", dbPath)
	log.Printf("HTTP Port: %d", httpPort)
	log.Printf("Cache TTL: %s", cacheTTL)
	log.Printf("Cache Prefix: %s", cachePrefix)

	// Create modules and wire dependencies
	cacheModule := cachemod.NewModuleWithConfig(redisAddr, cachePrefix, cacheTTL)
	authModule := authmod.NewModule(dbPath)
	todoModule := todomod.NewModule(dbPath)
	apiModule := apimod.NewModule(httpPort)

	todoModule.SetCacheModule(cacheModule)
	apiModule.SetAuthModule(authModule)
	apiModule.SetTodoModule(todoModule)

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
	)
	if err != nil {
		log.Fatalf("Failed to create mono application: %v", err)
	}

	// Register in dependency order: independent modules first.
	app.Register(cacheModule)
	app.Register(authModule)
	app.Register(todoModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}

	log.Println("=== Application Started ===")
	log.Printf("API available at http://localhost:%d", httpPort)
	log.Println("Endpoints:")
	log.Println("  GET    /health                       - Health check")
	log.Println("  POST   /api/signup                   - Register with credentials")
	log.Println("  POST   /api/login                    - Login, returns tokens")
	log.Println("  POST   /api/refresh                  - Refresh tokens")
	log.Println("  GET    /api/auth/:provider           - Federated sign-in redirect")
	log.Println("  GET    /api/auth/:provider/callback  - Federated sign-in callback")
	log.Println("  POST   /api/todo                     - Create todo")
	log.Println("  GET    /api/todo                     - List todos (cached)")
	log.Println("  PATCH  /api/todo/:id                 - Update todo")
	log.Println("  DELETE /api/todo/:id                 - Delete todo")
	log.Println("  GET    /api/cache/stats              - Cache statistics")
	log.Println("  POST   /api/cache/stats/reset        - Reset cache stats")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown")

	// Setup graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns environment variable as int or default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: invalid int value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration returns environment variable as duration or default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Printf("Warning: invalid duration value for %s: %s, using default: %s", key, value, defaultValue)
	}
	return defaultValue
}
