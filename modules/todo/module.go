package todo

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "github.com/example/todo-cache-demo/domain/todo"
	cachemod "github.com/example/todo-cache-demo/modules/cache"
)

// Module provides the todo service as a mono module.
type Module struct {
	db          *gorm.DB
	repo        *domain.Repository
	service     *Service
	cacheModule *cachemod.Module
	dbPath      string
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new todo module.
func NewModule(dbPath string) *Module {
	return &Module{
		dbPath: dbPath,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "todo"
}

// SetCacheModule wires the cache module dependency.
// Must be called before Start.
func (m *Module) SetCacheModule(cm *cachemod.Module) {
	m.cacheModule = cm
}

// Start opens the database, runs migrations and creates the service.
// The cache module must already be started; register it first.
func (m *Module) Start(_ context.Context) error {
	if m.cacheModule == nil {
		return fmt.Errorf("todo module: cache module not set")
	}
	c := m.cacheModule.Cache()
	if c == nil {
		return fmt.Errorf("todo module: cache not started")
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db
	m.repo = domain.NewRepository(db)

	if err := m.repo.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	service, err := NewService(m.repo, c)
	if err != nil {
		return err
	}
	m.service = service

	log.Printf("[todo] Database initialized at %s", m.dbPath)
	return nil
}

// Stop closes the database connection.
func (m *Module) Stop(_ context.Context) error {
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	log.Println("[todo] Module stopped")
	return nil
}

// GetService returns the todo service. Nil before Start.
func (m *Module) GetService() *Service {
	return m.service
}

// GetRepository returns the todo repository. Nil before Start.
func (m *Module) GetRepository() *domain.Repository {
	return m.repo
}

// Health reports whether the database connection is healthy.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.dbPath,
		},
	}
}
