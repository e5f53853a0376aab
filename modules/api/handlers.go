package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	tododomain "github.com/example/todo-cache-demo/domain/todo"
	authmod "github.com/example/todo-cache-demo/modules/auth"
	todomod "github.com/example/todo-cache-demo/modules/todo"
)

const oauthStateCookie = "oauth_state"

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	todos     *todomod.Service
	auth      *authmod.AuthService
	providers authmod.OAuthProviders
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(todos *todomod.Service, auth *authmod.AuthService, providers authmod.OAuthProviders) *Handlers {
	return &Handlers{
		todos:     todos,
		auth:      auth,
		providers: providers,
	}
}

// HealthCheck reports service liveness.
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// ============================================================
// Auth endpoints
// ============================================================

// Signup handles credential registration.
func (h *Handlers) Signup(c *fiber.Ctx) error {
	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(MessageResponse{
			Success: false,
			Message: "Invalid request body",
		})
	}

	u, err := h.auth.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return h.handleAuthError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(SignupResponse{
		Success: true,
		Message: "Signed up successfully, proceed to login",
		User: UserPayload{
			ID:    u.ID,
			Name:  u.Name,
			Email: u.Email,
		},
	})
}

// Login handles credential sign-in.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(MessageResponse{
			Success: false,
			Message: "Invalid request body",
		})
	}
	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(MessageResponse{
			Success: false,
			Message: "Email and password are required",
		})
	}

	tokens, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return h.handleAuthError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(TokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		TokenType:    tokens.TokenType,
	})
}

// Refresh exchanges a refresh token for a new token pair.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(MessageResponse{
			Success: false,
			Message: "Refresh token is required",
		})
	}

	tokens, err := h.auth.RefreshTokens(c.UserContext(), req.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(MessageResponse{
			Success: false,
			Message: "Invalid or expired refresh token",
		})
	}

	return c.Status(fiber.StatusOK).JSON(TokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		TokenType:    tokens.TokenType,
	})
}

// OAuthRedirect sends the client to the provider's consent page.
func (h *Handlers) OAuthRedirect(c *fiber.Ctx) error {
	provider, err := h.providers.Get(c.Params("provider"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(MessageResponse{
			Success: false,
			Message: "Unknown or unconfigured provider",
		})
	}

	state, err := randomState()
	if err != nil {
		return fiber.ErrInternalServerError
	}

	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(10 * time.Minute),
	})

	return c.Redirect(provider.AuthCodeURL(state), fiber.StatusFound)
}

// OAuthCallback completes the federated sign-in and issues session tokens.
func (h *Handlers) OAuthCallback(c *fiber.Ctx) error {
	provider, err := h.providers.Get(c.Params("provider"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(MessageResponse{
			Success: false,
			Message: "Unknown or unconfigured provider",
		})
	}

	state := c.Query("state")
	if state == "" || state != c.Cookies(oauthStateCookie) {
		return c.Status(fiber.StatusUnauthorized).JSON(MessageResponse{
			Success: false,
			Message: "OAuth state mismatch",
		})
	}
	c.ClearCookie(oauthStateCookie)

	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(MessageResponse{
			Success: false,
			Message: "Missing authorization code",
		})
	}

	profile, err := provider.FetchProfile(c.UserContext(), code)
	if err != nil {
		log.Printf("[api] OAuth profile fetch failed (%s): %v", provider.Name(), err)
		return c.Status(fiber.StatusUnauthorized).JSON(MessageResponse{
			Success: false,
			Message: "Federated sign-in failed",
		})
	}

	tokens, err := h.auth.LoginWithProfile(c.UserContext(), profile)
	if err != nil {
		log.Printf("[api] OAuth sign-in failed (%s): %v", provider.Name(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(MessageResponse{
			Success: false,
			Message: "Internal server error",
		})
	}

	return c.Status(fiber.StatusOK).JSON(TokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		TokenType:    tokens.TokenType,
	})
}

// ============================================================
// Todo endpoints
// ============================================================

// CreateTodo handles POST /api/todo.
func (h *Handlers) CreateTodo(c *fiber.Ctx) error {
	claims, ok := claimsFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(MessageResponse{
			Success: false,
			Message: "invalid user session",
		})
	}

	var req CreateTodoRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(MessageResponse{
			Success: false,
			Message: "Invalid request body",
		})
	}

	t, err := h.todos.Create(c.UserContext(), claims.UserID, req.Title)
	if err != nil {
		if errors.Is(err, todomod.ErrEmptyTitle) {
			return c.Status(fiber.StatusBadRequest).JSON(MessageResponse{
				Success: false,
				Message: "Title can't be empty",
			})
		}
		log.Printf("[api] Create todo failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(MessageResponse{
			Success: false,
			Message: "Internal server error",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(TodoResponse{
		Success: true,
		Message: "todo created",
		Todo:    t,
	})
}

// ListTodos handles GET /api/todo. Cache hits return 200, store
// fetches 201, mirroring what the clients already distinguish on.
func (h *Handlers) ListTodos(c *fiber.Ctx) error {
	claims, ok := claimsFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(MessageResponse{
			Success: false,
			Message: "No user found, try login first",
		})
	}

	todos, fromCache, err := h.todos.List(c.UserContext(), claims.UserID)
	if err != nil {
		log.Printf("[api] List todos failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(TodosResponse{
			Success: false,
			Todos:   []tododomain.Todo{},
			Message: "failed to fetch todos",
		})
	}
	if todos == nil {
		todos = []tododomain.Todo{}
	}

	if fromCache {
		return c.Status(fiber.StatusOK).JSON(TodosResponse{
			Success: true,
			Todos:   todos,
			Message: "Found data in cache",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(TodosResponse{
		Success: true,
		Todos:   todos,
		Message: "todos fetched successfully",
	})
}

// UpdateTodo handles PATCH /api/todo/:id.
func (h *Handlers) UpdateTodo(c *fiber.Ctx) error {
	claims, ok := claimsFromContext(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(MessageResponse{
			Success: false,
			Message: "no user found",
		})
	}

	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(MessageResponse{
			Success: false,
			Message: "no todo id provided",
		})
	}

	var req UpdateTodoRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(MessageResponse{
			Success: false,
			Message: "Invalid request body",
		})
	}

	t, err := h.todos.Update(c.UserContext(), claims.UserID, id, todomod.UpdatePatch{
		Title:  req.Title,
		Status: req.Status,
	})
	if err != nil {
		switch {
		case errors.Is(err, todomod.ErrEmptyPatch):
			return c.Status(fiber.StatusBadRequest).JSON(MessageResponse{
				Success: false,
				Message: "missing fields",
			})
		case errors.Is(err, todomod.ErrEmptyTitle), errors.Is(err, todomod.ErrInvalidStatus):
			return c.Status(fiber.StatusBadRequest).JSON(MessageResponse{
				Success: false,
				Message: err.Error(),
			})
		case errors.Is(err, tododomain.ErrTodoNotFound):
			return c.Status(fiber.StatusBadRequest).JSON(MessageResponse{
				Success: false,
				Message: "no such todo exists",
			})
		default:
			log.Printf("[api] Update todo failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(MessageResponse{
				Success: false,
				Message: "Internal server error",
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(UpdateTodoResponse{
		Success:    true,
		Message:    "successfully updated",
		UpdateTodo: t,
	})
}

// DeleteTodo handles DELETE /api/todo/:id.
func (h *Handlers) DeleteTodo(c *fiber.Ctx) error {
	claims, ok := claimsFromContext(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(MessageResponse{
			Success: false,
			Message: "no user found",
		})
	}

	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(MessageResponse{
			Success: false,
			Message: "no todo id provided",
		})
	}

	if err := h.todos.Delete(c.UserContext(), claims.UserID, id); err != nil {
		if errors.Is(err, tododomain.ErrTodoNotFound) {
			return c.Status(fiber.StatusBadRequest).JSON(MessageResponse{
				Success: false,
				Message: "no such todo exists",
			})
		}
		log.Printf("[api] Delete todo failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(MessageResponse{
			Success: false,
			Message: "Internal server error",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(MessageResponse{
		Success: true,
		Message: "successfully deleted",
	})
}

// ============================================================
// Cache observability endpoints
// ============================================================

// GetCacheStats returns cache hit/miss counters.
func (h *Handlers) GetCacheStats(c *fiber.Ctx) error {
	return c.JSON(h.todos.CacheStats())
}

// ResetCacheStats resets cache counters.
func (h *Handlers) ResetCacheStats(c *fiber.Ctx) error {
	h.todos.ResetCacheStats()
	return c.JSON(fiber.Map{"message": "cache stats reset"})
}

// handleAuthError maps auth service errors to HTTP responses.
func (h *Handlers) handleAuthError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, authmod.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(MessageResponse{
			Success: false,
			Message: "Invalid email or password",
		})
	case errors.Is(err, authmod.ErrUserExists):
		return c.Status(fiber.StatusBadRequest).JSON(MessageResponse{
			Success: false,
			Message: "User already exists",
		})
	case errors.Is(err, authmod.ErrInvalidEmail),
		errors.Is(err, authmod.ErrWeakPassword),
		errors.Is(err, authmod.ErrPasswordTooLong),
		errors.Is(err, authmod.ErrShortName):
		return c.Status(fiber.StatusBadRequest).JSON(MessageResponse{
			Success: false,
			Message: err.Error(),
		})
	default:
		log.Printf("[api] Internal error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(MessageResponse{
			Success: false,
			Message: "Internal Server Error",
		})
	}
}

// randomState returns a hex-encoded random OAuth state value.
func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
