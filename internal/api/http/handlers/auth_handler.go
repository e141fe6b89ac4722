package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-tracker/internal/api/dto"
	"github.com/spec-kit/issue-tracker/internal/service"
)

const msgMissingCredentials = "Please provide email and password"

// AuthHandler serves registration, login and the current user.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := bindJSON(c, &req, msgMissingCredentials); err != nil {
		return err
	}
	res, err := h.authService.Register(c.UserContext(), req.Email, req.Password, req.Name)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "User registered successfully", authResponse(res))
}

// Login POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bindJSON(c, &req, msgMissingCredentials); err != nil {
		return err
	}
	res, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Login successful", authResponse(res))
}

// Me GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	session, err := callerSession(c)
	if err != nil {
		return err
	}
	user, err := h.authService.GetCurrentUser(c.UserContext(), session.UserID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", dto.CurrentUserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	})
}

func authResponse(res *service.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{
		ID:        res.User.ID,
		Email:     res.User.Email,
		Name:      res.User.Name,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
	}
}
