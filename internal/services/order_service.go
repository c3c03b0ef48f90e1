package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"ordersvc/internal/clients"
	"ordersvc/internal/models"
	"ordersvc/internal/repositories"

	"github.com/google/uuid"
)

// OrderService orchestrates the order lifecycle: creation against the
// catalog and payment services, read-side lookups with catalog enrichment,
// status changes and payment-confirmation reconciliation.
type OrderService struct {
	orderRepo repositories.OrderRepository
	catalog   clients.ProductValidator
	payments  clients.PaymentSessions
	currency  string
}

// NewOrderService creates a new OrderService.
func NewOrderService(orderRepo repositories.OrderRepository, catalog clients.ProductValidator, payments clients.PaymentSessions, currency string) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		catalog:   catalog,
		payments:  payments,
		currency:  currency,
	}
}

// CreateOrder runs the creation flow: validate the requested products
// against the catalog, snapshot prices, persist the order atomically, then
// start a payment session. If the payment call fails the order stays
// persisted in PENDING and the caller retries session acquisition against
// the returned order id; the totals are already fixed and re-deriving them
// buys nothing.
func (s *OrderService) CreateOrder(req models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	ids := make([]string, 0, len(req.Items))
	seen := make(map[string]bool, len(req.Items))
	for _, item := range req.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}

	products, err := s.catalog.Validate(ids, true)
	if err != nil {
		return nil, models.NewProductValidationError("requested products could not be validated", err)
	}

	productsByID := make(map[string]models.Product, len(products))
	for _, p := range products {
		productsByID[p.ID] = p
	}
	var missing []string
	for _, id := range ids {
		if _, ok := productsByID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		msg := fmt.Sprintf("products not available: %s", strings.Join(missing, ", "))
		return nil, models.NewProductValidationError(msg, nil)
	}

	var totalAmount float64
	var totalItems int
	items := make([]models.OrderItem, 0, len(req.Items))
	for _, reqItem := range req.Items {
		product := productsByID[reqItem.ProductID]
		items = append(items, models.OrderItem{
			ProductID: reqItem.ProductID,
			Quantity:  reqItem.Quantity,
			Price:     product.Price, // snapshot, never recomputed
		})
		totalAmount += product.Price * float64(reqItem.Quantity)
		totalItems += reqItem.Quantity
	}

	order := &models.Order{
		ID:          uuid.New().String(),
		Status:      models.StatusPending,
		TotalAmount: totalAmount,
		TotalItems:  totalItems,
		Items:       items,
	}
	if err := s.orderRepo.Create(order); err != nil {
		return nil, models.NewPersistenceError(err)
	}

	// Enrich from the validation response; no second catalog round-trip.
	sessionItems := make([]models.PaymentSessionItem, 0, len(order.Items))
	for i := range order.Items {
		order.Items[i].Name = productsByID[order.Items[i].ProductID].Name
		sessionItems = append(sessionItems, models.PaymentSessionItem{
			Name:     order.Items[i].Name,
			Price:    order.Items[i].Price,
			Quantity: order.Items[i].Quantity,
		})
	}

	session, err := s.payments.CreateSession(models.CreatePaymentSessionRequest{
		OrderID:  order.ID,
		Currency: s.currency,
		Items:    sessionItems,
	})
	if err != nil {
		log.Printf("Payment session for order %s failed, order stays PENDING: %v", order.ID, err)
		return nil, models.NewPaymentSessionError(order.ID, err)
	}

	return &models.CreateOrderResponse{Order: order, PaymentSession: session}, nil
}

// FindOne fetches an order with its items and enriches each line with the
// live product name. A product the catalog no longer resolves keeps an
// empty name; order history must survive catalog drift.
func (s *OrderService) FindOne(id string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, models.NewOrderNotFoundError(id)
		}
		return nil, models.NewPersistenceError(err)
	}

	products, err := s.catalog.Validate(order.ProductIDs(), false)
	if err != nil {
		return nil, models.NewDownstreamError(err)
	}
	namesByID := make(map[string]string, len(products))
	for _, p := range products {
		namesByID[p.ID] = p.Name
	}
	for i := range order.Items {
		order.Items[i].Name = namesByID[order.Items[i].ProductID]
	}
	return order, nil
}

// FindAll returns one page of orders plus pagination metadata.
func (s *OrderService) FindAll(query models.OrderPageQuery) (*models.OrderPage, error) {
	var status models.OrderStatus
	if query.Status != "" {
		parsed, err := models.ParseOrderStatus(query.Status)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		status = parsed
	}

	total, err := s.orderRepo.CountByStatus(status)
	if err != nil {
		return nil, models.NewPersistenceError(err)
	}
	orders, err := s.orderRepo.List(status, query.Page, query.Limit)
	if err != nil {
		return nil, models.NewPersistenceError(err)
	}

	totalPages := (total + int64(query.Limit) - 1) / int64(query.Limit)
	return &models.OrderPage{
		Data: orders,
		Meta: models.PaginationMeta{
			TotalItems:   total,
			ItemsPerPage: query.Limit,
			Page:         query.Page,
			TotalPages:   totalPages,
		},
	}, nil
}

// ChangeStatus applies a requested status change. Requesting the status the
// order already has returns the order unchanged, so retried messages are
// harmless.
func (s *OrderService) ChangeStatus(id, statusStr string) (*models.Order, error) {
	status, err := models.ParseOrderStatus(statusStr)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, models.NewOrderNotFoundError(id)
		}
		return nil, models.NewPersistenceError(err)
	}

	apply, err := models.TransitionStatus(order, status)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if !apply {
		return order, nil
	}

	updated, err := s.orderRepo.UpdateStatus(id, status)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, models.NewOrderNotFoundError(id)
		}
		return nil, models.NewPersistenceError(err)
	}
	return updated, nil
}

// MarkPaid reconciles the order with a payment confirmation. The repository
// applies status, paid flags, charge reference and receipt in one atomic
// unit and treats a redelivered confirmation as a no-op.
func (s *OrderService) MarkPaid(evt models.PaidOrderEvent) (*models.Order, error) {
	order, err := s.orderRepo.MarkPaid(evt.OrderID, evt.StripePaymentID, evt.ReceiptURL)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, models.NewOrderNotFoundError(evt.OrderID)
		}
		return nil, models.NewPersistenceError(err)
	}
	log.Printf("Order %s reconciled as PAID (charge %s)", order.ID, evt.StripePaymentID)
	return order, nil
}
