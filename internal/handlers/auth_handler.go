package handlers

import (
	"log"
	"strings"

	"ordersvc/internal/models"
	"ordersvc/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles credential registration and token issuance for caller
// services.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/token", h.HandleToken)
}

// RegisterServiceRequest is the request body for service registration.
type RegisterServiceRequest struct {
	Name   string `json:"name" validate:"required,min=3,max=100"`
	Secret string `json:"secret" validate:"required,min=12"`
}

// HandleRegister registers a new caller service and returns its client id.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return writeServiceError(c, models.NewValidationError("invalid request body"))
	}
	if err := h.validate.Struct(req); err != nil {
		return writeServiceError(c, models.NewValidationError(err.Error()))
	}

	account := models.ServiceAccount{Name: req.Name}
	if err := h.authService.RegisterService(&account, req.Secret); err != nil {
		log.Printf("Error registering service %s: %v", req.Name, err)
		if strings.Contains(err.Error(), "already registered") {
			return c.Status(fiber.StatusConflict).JSON(&models.ServiceError{
				StatusCode: fiber.StatusConflict,
				Message:    err.Error(),
			})
		}
		return writeServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(account)
}

// TokenRequest is the request body for token issuance.
type TokenRequest struct {
	ClientID string `json:"client_id" validate:"required,uuid"`
	Secret   string `json:"secret" validate:"required"`
}

// HandleToken exchanges service credentials for a JWT.
func (h *AuthHandler) HandleToken(c *fiber.Ctx) error {
	var req TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return writeServiceError(c, models.NewValidationError("invalid request body"))
	}
	if err := h.validate.Struct(req); err != nil {
		return writeServiceError(c, models.NewValidationError(err.Error()))
	}

	token, err := h.authService.IssueToken(req.ClientID, req.Secret)
	if err != nil {
		log.Printf("Token issuance failed for client %s: %v", req.ClientID, err)
		return c.Status(fiber.StatusUnauthorized).JSON(&models.ServiceError{
			StatusCode: fiber.StatusUnauthorized,
			Message:    "authentication failed",
		})
	}

	return c.JSON(fiber.Map{"token": token})
}
