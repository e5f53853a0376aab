package auth

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Module provides authentication services as a mono module.
type Module struct {
	db        *gorm.DB
	service   *AuthService
	providers OAuthProviders
	dbPath    string
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new auth module.
func NewModule(dbPath string) *Module {
	return &Module{
		dbPath: dbPath,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "auth"
}

// Start opens the database, runs migrations and creates the service.
func (m *Module) Start(_ context.Context) error {
	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	repo := NewUserRepository(db)
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	hasher := NewPasswordHasher()
	jwtManager := NewJWTManager(loadJWTConfig())

	m.service = NewAuthService(repo, hasher, jwtManager)
	m.providers = loadOAuthProviders()

	log.Printf("[auth] Module started (database: %s, oauth providers: %d)", m.dbPath, len(m.providers))
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
	log.Println("[auth] Module stopped")
	return nil
}

// GetService returns the auth service. Nil before Start.
func (m *Module) GetService() *AuthService {
	return m.service
}

// GetProviders returns the configured OAuth providers.
func (m *Module) GetProviders() OAuthProviders {
	return m.providers
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

// loadJWTConfig loads the JWT configuration from the environment,
// falling back to defaults.
func loadJWTConfig() JWTConfig {
	cfg := DefaultJWTConfig()

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.SecretKey = secret
	} else {
		log.Println("[auth] Warning: JWT_SECRET not set, using insecure default")
	}
	if v := os.Getenv("JWT_ACCESS_TOKEN_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.AccessTokenDuration = d
		}
	}
	if v := os.Getenv("JWT_REFRESH_TOKEN_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RefreshTokenDuration = d
		}
	}

	return cfg
}

// loadOAuthProviders builds the provider set from the environment.
// Providers with missing credentials are simply not registered.
func loadOAuthProviders() OAuthProviders {
	providers := OAuthProviders{}

	baseURL := os.Getenv("OAUTH_REDIRECT_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}

	if id, secret := os.Getenv("GITHUB_ID"), os.Getenv("GITHUB_SECRET"); id != "" && secret != "" {
		providers["github"] = NewGitHubProvider(id, secret, baseURL+"/api/auth/github/callback")
		log.Println("[auth] Registered OAuth provider: github")
	}
	if id, secret := os.Getenv("GOOGLE_ID"), os.Getenv("GOOGLE_SECRET"); id != "" && secret != "" {
		providers["google"] = NewGoogleProvider(id, secret, baseURL+"/api/auth/google/callback")
		log.Println("[auth] Registered OAuth provider: google")
	}

	return providers
}
