package handlers

import (
	"encoding/json"
	"log"

	"ordersvc/internal/models"
	"ordersvc/internal/services"
	"ordersvc/pkg/rabbitmq"

	"github.com/go-playground/validator/v10"
	amqp "github.com/streadway/amqp"
)

// Message patterns served on the orders request queue. These names are the
// contract with callers; the queue names of the event subscriptions live in
// the configuration.
const (
	PatternCreateOrder       = "createOrder"
	PatternFindAllOrders     = "findAllOrders"
	PatternFindOneOrder      = "findOneOrder"
	PatternChangeOrderStatus = "changeOrderStatus"
)

// OrderRPCHandler serves the order operations on the message transport and
// handles the payment.succeeded event. Routing happens through an explicit
// dispatch table built once at startup.
type OrderRPCHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderRPCHandler creates a new OrderRPCHandler.
func NewOrderRPCHandler(service *services.OrderService) *OrderRPCHandler {
	return &OrderRPCHandler{
		service:  service,
		validate: validator.New(),
	}
}

// Routes builds the pattern → handler dispatch table.
func (h *OrderRPCHandler) Routes() map[string]rabbitmq.RPCHandler {
	return map[string]rabbitmq.RPCHandler{
		PatternCreateOrder:       h.handleCreateOrder,
		PatternFindAllOrders:     h.handleFindAllOrders,
		PatternFindOneOrder:      h.handleFindOneOrder,
		PatternChangeOrderStatus: h.handleChangeOrderStatus,
	}
}

// reply wraps a successful result in the reply envelope.
func reply(data interface{}) []byte {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Printf("Failed to marshal reply data: %v", err)
		return replyErr(err)
	}
	body, err := json.Marshal(models.RPCResponse{Data: raw})
	if err != nil {
		log.Printf("Failed to marshal reply envelope: %v", err)
		return replyErr(err)
	}
	return body
}

// replyErr wraps a failure in the reply envelope, converting it into the
// structured {statusCode, message} shape first.
func replyErr(err error) []byte {
	body, marshalErr := json.Marshal(models.RPCResponse{Err: models.AsServiceError(err)})
	if marshalErr != nil {
		log.Printf("Failed to marshal error envelope: %v", marshalErr)
		return []byte(`{"error":{"statusCode":500,"message":"internal error"}}`)
	}
	return body
}

func (h *OrderRPCHandler) handleCreateOrder(body []byte) []byte {
	var req models.CreateOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return replyErr(models.NewValidationError("invalid createOrder payload"))
	}
	if err := h.validate.Struct(req); err != nil {
		return replyErr(models.NewValidationError(err.Error()))
	}

	resp, err := h.service.CreateOrder(req)
	if err != nil {
		log.Printf("Error creating order: %v", err)
		return replyErr(err)
	}
	return reply(resp)
}

func (h *OrderRPCHandler) handleFindAllOrders(body []byte) []byte {
	query := models.OrderPageQuery{Page: 1, Limit: 10}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &query); err != nil {
			return replyErr(models.NewValidationError("invalid findAllOrders payload"))
		}
	}
	if err := h.validate.Struct(query); err != nil {
		return replyErr(models.NewValidationError(err.Error()))
	}

	page, err := h.service.FindAll(query)
	if err != nil {
		log.Printf("Error listing orders: %v", err)
		return replyErr(err)
	}
	return reply(page)
}

func (h *OrderRPCHandler) handleFindOneOrder(body []byte) []byte {
	var req struct {
		ID string `json:"id" validate:"required,uuid"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return replyErr(models.NewValidationError("invalid findOneOrder payload"))
	}
	if err := h.validate.Struct(req); err != nil {
		return replyErr(models.NewValidationError("order id must be a valid UUID"))
	}

	order, err := h.service.FindOne(req.ID)
	if err != nil {
		log.Printf("Error getting order %s: %v", req.ID, err)
		return replyErr(err)
	}
	return reply(order)
}

func (h *OrderRPCHandler) handleChangeOrderStatus(body []byte) []byte {
	var req models.ChangeOrderStatusRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return replyErr(models.NewValidationError("invalid changeOrderStatus payload"))
	}
	if err := h.validate.Struct(req); err != nil {
		return replyErr(models.NewValidationError(err.Error()))
	}

	order, err := h.service.ChangeStatus(req.ID, req.Status)
	if err != nil {
		log.Printf("Error changing status of order %s: %v", req.ID, err)
		return replyErr(err)
	}
	return reply(order)
}

// HandlePaymentSucceeded processes the payment.succeeded event. Delivery is
// at-least-once and the reconciliation is idempotent, so a transient
// failure is returned for the transport to redeliver; a malformed event is
// logged and dropped since redelivering it can never succeed.
func (h *OrderRPCHandler) HandlePaymentSucceeded(msg amqp.Delivery) error {
	var evt models.PaidOrderEvent
	if err := json.Unmarshal(msg.Body, &evt); err != nil {
		log.Printf("Dropping malformed payment.succeeded event (tag %d): %v", msg.DeliveryTag, err)
		return nil
	}
	if err := h.validate.Struct(evt); err != nil {
		log.Printf("Dropping invalid payment.succeeded event (tag %d): %v", msg.DeliveryTag, err)
		return nil
	}

	if _, err := h.service.MarkPaid(evt); err != nil {
		log.Printf("Failed to reconcile payment for order %s: %v", evt.OrderID, err)
		return err
	}
	return nil
}
