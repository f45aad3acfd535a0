package auth

import (
	"context"
	"errors"

	"armory-backend/internal/application/audit"
	authsvc "armory-backend/internal/application/auth"
	"armory-backend/internal/middleware"
	"armory-backend/internal/pkg/jwt"
	"armory-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// TokenConfig controls the bearer token issued at login. An empty Secret
// disables token issuance.
type TokenConfig struct {
	Secret        string
	Issuer        string
	ExpiryMinutes int
}

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	UserFinder authsvc.UserFinder
	Rdb        *redis.Client
	Config     middleware.SessionConfig
	Token      TokenConfig
	Audit      audit.Recorder
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login POST /api/v1/auth/login: authenticate, rotate the session, set the
// cookie and return the user plus a bearer token.
func (h *Handlers) Login(c *fiber.Ctx) error {
	if h.UserFinder == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
		return response.Error(c, authsvc.ErrCredentialsRequired.Error(), fiber.StatusBadRequest, nil)
	}

	user, err := h.UserFinder.FindByEmailAndPassword(c.UserContext(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrCredentialsRequired):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case errors.Is(err, authsvc.ErrInvalidCredentials):
			return response.Error(c, err.Error(), fiber.StatusUnauthorized, nil)
		default:
			log.Error().Err(err).Msg("auth: login lookup failed")
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}

	userID := user.UserID.String()
	sessionID := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, middleware.SessionUser{
		UserID:       userID,
		Fullname:     user.Fullname,
		Email:        user.Email,
		Role:         user.Role,
		AssignedBase: user.AssignedBase,
	})
	if err := h.Rdb.SAdd(c.UserContext(), middleware.UserSessionsPrefix+userID, sessionID).Err(); err != nil {
		log.Error().Err(err).Msg("auth: session tracking failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sessionID
	c.Cookie(&cookie)

	data := fiber.Map{
		"user": authsvc.SessionUserShape{
			UserID:       userID,
			Fullname:     user.Fullname,
			Email:        user.Email,
			Role:         user.Role,
			AssignedBase: user.AssignedBase,
		},
	}
	if h.Token.Secret != "" {
		token, err := jwt.Generate(h.Token.Secret, userID, user.Role, user.Base(), h.Token.Issuer, h.Token.ExpiryMinutes)
		if err != nil {
			log.Error().Err(err).Msg("auth: token signing failed")
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
		data["token"] = token
	}

	if h.Audit != nil {
		h.Audit.Record(c.UserContext(), audit.Entry{
			UserID:       userID,
			Action:       audit.ActionLogin,
			ResourceType: audit.ResourceUser,
			ResourceID:   userID,
		})
	}
	return response.Success(c, "Login successful", data, nil)
}

// Me GET /api/v1/auth/me: the current session or bearer user.
func (h *Handlers) Me(c *fiber.Ctx) error {
	user, err := authsvc.VerifyUser(middleware.GetUser(c))
	if err != nil {
		log.Debug().Str("trace_id", middleware.GetTraceID(c)).
			Bool("session_id_present", middleware.GetSessionID(c) != "").
			Msg("auth/me: not authenticated")
		return response.Error(c, "Not authenticated", fiber.StatusUnauthorized, nil)
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": user}, nil)
}

// Logout DELETE /api/v1/auth/logout: drop the session from Redis and clear the cookie.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	ctx := context.Background()

	if sessionID != "" {
		if m, ok := middleware.GetUser(c).(map[string]interface{}); ok {
			if userID, _ := m["user_id"].(string); userID != "" {
				_ = h.Rdb.SRem(ctx, middleware.UserSessionsPrefix+userID, sessionID).Err()
			}
		}
		_ = h.Rdb.Del(ctx, middleware.SessionRedisPrefix+sessionID).Err()
	}
	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = ""
	cookie.MaxAge = -1
	c.Cookie(&cookie)

	return response.Success(c, "Logged out successfully", nil, nil)
}
