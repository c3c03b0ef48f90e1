package handlers

import (
	"log"

	"ordersvc/internal/models"
	"ordersvc/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// OrderHandler exposes the order operations over HTTP for the gateway and
// back-office tooling. The same operations are served on the message
// transport by OrderRPCHandler.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/", h.HandleFindAllOrders)
	orderRoutes.Get("/:id", h.HandleFindOneOrder)
	orderRoutes.Patch("/:id/status", h.HandleChangeOrderStatus)
}

// writeServiceError converts any error into the structured
// {statusCode, message} failure shape and writes it.
func writeServiceError(c *fiber.Ctx, err error) error {
	svcErr := models.AsServiceError(err)
	return c.Status(svcErr.StatusCode).JSON(svcErr)
}

// HandleCreateOrder runs the order creation flow.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req models.CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return writeServiceError(c, models.NewValidationError("invalid request body"))
	}
	if err := h.validate.Struct(req); err != nil {
		return writeServiceError(c, models.NewValidationError(err.Error()))
	}

	resp, err := h.service.CreateOrder(req)
	if err != nil {
		log.Printf("Error creating order: %v", err)
		return writeServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// HandleFindAllOrders returns a page of orders with pagination metadata.
func (h *OrderHandler) HandleFindAllOrders(c *fiber.Ctx) error {
	query := models.OrderPageQuery{
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 10),
		Status: c.Query("status"),
	}
	if err := h.validate.Struct(query); err != nil {
		return writeServiceError(c, models.NewValidationError(err.Error()))
	}

	page, err := h.service.FindAll(query)
	if err != nil {
		log.Printf("Error listing orders: %v", err)
		return writeServiceError(c, err)
	}
	return c.JSON(page)
}

// HandleFindOneOrder retrieves a single order by id, enriched with live
// product names.
func (h *OrderHandler) HandleFindOneOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")
	if _, err := uuid.Parse(orderID); err != nil {
		return writeServiceError(c, models.NewValidationError("order id must be a valid UUID"))
	}

	order, err := h.service.FindOne(orderID)
	if err != nil {
		log.Printf("Error getting order %s: %v", orderID, err)
		return writeServiceError(c, err)
	}
	return c.JSON(order)
}

// HandleChangeOrderStatus applies a status change to an order.
func (h *OrderHandler) HandleChangeOrderStatus(c *fiber.Ctx) error {
	orderID := c.Params("id")
	if _, err := uuid.Parse(orderID); err != nil {
		return writeServiceError(c, models.NewValidationError("order id must be a valid UUID"))
	}

	var body struct {
		Status string `json:"status" validate:"required"`
	}
	if err := c.BodyParser(&body); err != nil {
		return writeServiceError(c, models.NewValidationError("invalid request body"))
	}
	if err := h.validate.Struct(body); err != nil {
		return writeServiceError(c, models.NewValidationError(err.Error()))
	}

	order, err := h.service.ChangeStatus(orderID, body.Status)
	if err != nil {
		log.Printf("Error changing status of order %s: %v", orderID, err)
		return writeServiceError(c, err)
	}
	return c.JSON(order)
}
