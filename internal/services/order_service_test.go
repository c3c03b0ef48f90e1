package services_test

import (
	"fmt"
	"testing"

	"ordersvc/internal/models"
	"ordersvc/internal/repositories"
	"ordersvc/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository is a mock implementation of repositories.OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(order *models.Order) error {
	args := m.Called(order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(id string) (*models.Order, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(id string, status models.OrderStatus) (*models.Order, error) {
	args := m.Called(id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) MarkPaid(id, chargeID, receiptURL string) (*models.Order, error) {
	args := m.Called(id, chargeID, receiptURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) List(status models.OrderStatus, page, limit int) ([]models.Order, error) {
	args := m.Called(status, page, limit)
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderRepository) CountByStatus(status models.OrderStatus) (int64, error) {
	args := m.Called(status)
	return args.Get(0).(int64), args.Error(1)
}

// MockProductValidator is a mock implementation of clients.ProductValidator.
type MockProductValidator struct {
	mock.Mock
}

func (m *MockProductValidator) Validate(ids []string, requireAvailable bool) ([]models.Product, error) {
	args := m.Called(ids, requireAvailable)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

// MockPaymentSessions is a mock implementation of clients.PaymentSessions.
type MockPaymentSessions struct {
	mock.Mock
}

func (m *MockPaymentSessions) CreateSession(req models.CreatePaymentSessionRequest) (*models.PaymentSession, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentSession), args.Error(1)
}

func newOrderService(repo *MockOrderRepository, catalog *MockProductValidator, payments *MockPaymentSessions) *services.OrderService {
	return services.NewOrderService(repo, catalog, payments, "usd")
}

func TestOrderService_CreateOrder_ComputesTotals(t *testing.T) {
	repo := new(MockOrderRepository)
	catalog := new(MockProductValidator)
	payments := new(MockPaymentSessions)
	service := newOrderService(repo, catalog, payments)

	catalog.On("Validate", []string{"prod-a", "prod-b"}, true).Return([]models.Product{
		{ID: "prod-a", Name: "Laptop", Price: 10.0},
		{ID: "prod-b", Name: "Mouse", Price: 5.0},
	}, nil).Once()

	var persisted *models.Order
	repo.On("Create", mock.AnythingOfType("*models.Order")).Run(func(args mock.Arguments) {
		persisted = args.Get(0).(*models.Order)
	}).Return(nil).Once()

	session := &models.PaymentSession{
		CancelURL:  "https://pay.example/cancel",
		SuccessURL: "https://pay.example/success",
		URL:        "https://pay.example/session/123",
	}
	payments.On("CreateSession", mock.AnythingOfType("models.CreatePaymentSessionRequest")).Return(session, nil).Once()

	resp, err := service.CreateOrder(models.CreateOrderRequest{
		Items: []models.OrderItemRequest{
			{ProductID: "prod-a", Quantity: 2},
			{ProductID: "prod-b", Quantity: 1},
		},
	})

	assert.NoError(t, err)
	assert.Equal(t, 25.0, resp.Order.TotalAmount)
	assert.Equal(t, 3, resp.Order.TotalItems)
	assert.Equal(t, models.StatusPending, resp.Order.Status)
	assert.Equal(t, session, resp.PaymentSession)

	// Prices are snapshotted onto the persisted line items.
	assert.Len(t, persisted.Items, 2)
	assert.Equal(t, 10.0, persisted.Items[0].Price)
	assert.Equal(t, 5.0, persisted.Items[1].Price)

	// Names come from the validation response, not a second catalog call.
	assert.Equal(t, "Laptop", resp.Order.Items[0].Name)
	assert.Equal(t, "Mouse", resp.Order.Items[1].Name)

	repo.AssertExpectations(t)
	catalog.AssertExpectations(t)
	payments.AssertExpectations(t)
}

func TestOrderService_CreateOrder_MissingProduct(t *testing.T) {
	repo := new(MockOrderRepository)
	catalog := new(MockProductValidator)
	payments := new(MockPaymentSessions)
	service := newOrderService(repo, catalog, payments)

	// The catalog omits prod-b from its response.
	catalog.On("Validate", []string{"prod-a", "prod-b"}, true).Return([]models.Product{
		{ID: "prod-a", Name: "Laptop", Price: 10.0},
	}, nil).Once()

	resp, err := service.CreateOrder(models.CreateOrderRequest{
		Items: []models.OrderItemRequest{
			{ProductID: "prod-a", Quantity: 2},
			{ProductID: "prod-b", Quantity: 1},
		},
	})

	assert.Nil(t, resp)
	svcErr := models.AsServiceError(err)
	assert.Equal(t, 400, svcErr.StatusCode)
	assert.Contains(t, svcErr.Message, "prod-b")

	// Nothing was persisted and no payment session was attempted.
	repo.AssertNotCalled(t, "Create", mock.Anything)
	payments.AssertNotCalled(t, "CreateSession", mock.Anything)
	catalog.AssertExpectations(t)
}

func TestOrderService_CreateOrder_CatalogUnavailable(t *testing.T) {
	repo := new(MockOrderRepository)
	catalog := new(MockProductValidator)
	payments := new(MockPaymentSessions)
	service := newOrderService(repo, catalog, payments)

	catalog.On("Validate", mock.Anything, true).Return(nil, models.ErrDownstreamTimeout).Once()

	resp, err := service.CreateOrder(models.CreateOrderRequest{
		Items: []models.OrderItemRequest{{ProductID: "prod-a", Quantity: 1}},
	})

	assert.Nil(t, resp)
	assert.Equal(t, 400, models.AsServiceError(err).StatusCode)
	repo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestOrderService_CreateOrder_PaymentSessionFails(t *testing.T) {
	repo := new(MockOrderRepository)
	catalog := new(MockProductValidator)
	payments := new(MockPaymentSessions)
	service := newOrderService(repo, catalog, payments)

	catalog.On("Validate", []string{"prod-a"}, true).Return([]models.Product{
		{ID: "prod-a", Name: "Laptop", Price: 10.0},
	}, nil).Once()

	var persisted *models.Order
	repo.On("Create", mock.AnythingOfType("*models.Order")).Run(func(args mock.Arguments) {
		persisted = args.Get(0).(*models.Order)
	}).Return(nil).Once()

	payments.On("CreateSession", mock.AnythingOfType("models.CreatePaymentSessionRequest")).
		Return(nil, models.ErrDownstreamUnavailable).Once()

	resp, err := service.CreateOrder(models.CreateOrderRequest{
		Items: []models.OrderItemRequest{{ProductID: "prod-a", Quantity: 1}},
	})

	// The order was persisted in PENDING before the payment call; the
	// failure surfaces with the order id so the caller can retry session
	// acquisition against it.
	assert.Nil(t, resp)
	svcErr := models.AsServiceError(err)
	assert.Equal(t, 502, svcErr.StatusCode)
	assert.Contains(t, svcErr.Message, persisted.ID)
	assert.Equal(t, models.StatusPending, persisted.Status)

	repo.AssertExpectations(t)
	payments.AssertExpectations(t)
}

func TestOrderService_CreateOrder_PersistenceFailure(t *testing.T) {
	repo := new(MockOrderRepository)
	catalog := new(MockProductValidator)
	payments := new(MockPaymentSessions)
	service := newOrderService(repo, catalog, payments)

	catalog.On("Validate", mock.Anything, true).Return([]models.Product{
		{ID: "prod-a", Name: "Laptop", Price: 10.0},
	}, nil).Once()
	repo.On("Create", mock.Anything).Return(fmt.Errorf("store unavailable")).Once()

	resp, err := service.CreateOrder(models.CreateOrderRequest{
		Items: []models.OrderItemRequest{{ProductID: "prod-a", Quantity: 1}},
	})

	assert.Nil(t, resp)
	assert.Equal(t, 500, models.AsServiceError(err).StatusCode)
	payments.AssertNotCalled(t, "CreateSession", mock.Anything)
}

func TestOrderService_FindOne_NotFound(t *testing.T) {
	repo := new(MockOrderRepository)
	catalog := new(MockProductValidator)
	payments := new(MockPaymentSessions)
	service := newOrderService(repo, catalog, payments)

	repo.On("GetByID", "missing-id").
		Return(nil, fmt.Errorf("order with id missing-id: %w", repositories.ErrNotFound)).Once()

	order, err := service.FindOne("missing-id")
	assert.Nil(t, order)
	svcErr := models.AsServiceError(err)
	assert.Equal(t, 404, svcErr.StatusCode)
	assert.Contains(t, svcErr.Message, "missing-id")
	catalog.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything)
}

func TestOrderService_FindOne_EnrichesNames(t *testing.T) {
	repo := new(MockOrderRepository)
	catalog := new(MockProductValidator)
	payments := new(MockPaymentSessions)
	service := newOrderService(repo, catalog, payments)

	stored := &models.Order{
		ID:     "order-1",
		Status: models.StatusPending,
		Items: []models.OrderItem{
			{ProductID: "prod-a", Quantity: 1, Price: 10.0},
			{ProductID: "prod-gone", Quantity: 2, Price: 4.0},
		},
	}
	repo.On("GetByID", "order-1").Return(stored, nil).Once()

	// Read-side enrichment does not require availability, and prod-gone
	// has dropped out of the catalog entirely.
	catalog.On("Validate", []string{"prod-a", "prod-gone"}, false).Return([]models.Product{
		{ID: "prod-a", Name: "Laptop", Price: 12.0},
	}, nil).Once()

	order, err := service.FindOne("order-1")
	assert.NoError(t, err)
	assert.Equal(t, "Laptop", order.Items[0].Name)
	assert.Equal(t, "", order.Items[1].Name, "unresolvable products keep an empty name")
	assert.Equal(t, 10.0, order.Items[0].Price, "snapshotted price wins over the live catalog price")

	repo.AssertExpectations(t)
	catalog.AssertExpectations(t)
}

func TestOrderService_FindOne_CatalogOutage(t *testing.T) {
	repo := new(MockOrderRepository)
	catalog := new(MockProductValidator)
	service := newOrderService(repo, catalog, new(MockPaymentSessions))

	stored := &models.Order{
		ID:     "order-1",
		Status: models.StatusPending,
		Items:  []models.OrderItem{{ProductID: "prod-a", Quantity: 1, Price: 10.0}},
	}
	repo.On("GetByID", "order-1").Return(stored, nil).Twice()

	// Catalog drift degrades gracefully, but a catalog outage is a
	// downstream failure and propagates.
	catalog.On("Validate", []string{"prod-a"}, false).Return(nil, models.ErrDownstreamTimeout).Once()
	order, err := service.FindOne("order-1")
	assert.Nil(t, order)
	assert.Equal(t, 504, models.AsServiceError(err).StatusCode)

	catalog.On("Validate", []string{"prod-a"}, false).Return(nil, models.ErrDownstreamUnavailable).Once()
	order, err = service.FindOne("order-1")
	assert.Nil(t, order)
	assert.Equal(t, 502, models.AsServiceError(err).StatusCode)

	repo.AssertExpectations(t)
	catalog.AssertExpectations(t)
}

func TestOrderService_FindAll_PaginationMeta(t *testing.T) {
	repo := new(MockOrderRepository)
	catalog := new(MockProductValidator)
	payments := new(MockPaymentSessions)
	service := newOrderService(repo, catalog, payments)

	repo.On("CountByStatus", models.OrderStatus("")).Return(int64(25), nil).Once()
	repo.On("List", models.OrderStatus(""), 2, 10).Return(make([]models.Order, 10), nil).Once()

	page, err := service.FindAll(models.OrderPageQuery{Page: 2, Limit: 10})
	assert.NoError(t, err)
	assert.Equal(t, int64(25), page.Meta.TotalItems)
	assert.Equal(t, int64(3), page.Meta.TotalPages)
	assert.Equal(t, 10, page.Meta.ItemsPerPage)
	assert.Equal(t, 2, page.Meta.Page)
	repo.AssertExpectations(t)
}

func TestOrderService_FindAll_RejectsUnknownStatusFilter(t *testing.T) {
	repo := new(MockOrderRepository)
	service := newOrderService(repo, new(MockProductValidator), new(MockPaymentSessions))

	page, err := service.FindAll(models.OrderPageQuery{Page: 1, Limit: 10, Status: "SHIPPED"})
	assert.Nil(t, page)
	assert.Equal(t, 400, models.AsServiceError(err).StatusCode)
	repo.AssertNotCalled(t, "CountByStatus", mock.Anything)
}

func TestOrderService_ChangeStatus_Idempotent(t *testing.T) {
	repo := new(MockOrderRepository)
	service := newOrderService(repo, new(MockProductValidator), new(MockPaymentSessions))

	stored := &models.Order{ID: "order-1", Status: models.StatusCancelled}
	repo.On("GetByID", "order-1").Return(stored, nil).Twice()

	// Requesting the current status twice returns the same order both
	// times and never writes.
	first, err := service.ChangeStatus("order-1", "CANCELLED")
	assert.NoError(t, err)
	second, err := service.ChangeStatus("order-1", "CANCELLED")
	assert.NoError(t, err)
	assert.Equal(t, first, second)
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
}

func TestOrderService_ChangeStatus_AppliesNewStatus(t *testing.T) {
	repo := new(MockOrderRepository)
	service := newOrderService(repo, new(MockProductValidator), new(MockPaymentSessions))

	stored := &models.Order{ID: "order-1", Status: models.StatusPending}
	updated := &models.Order{ID: "order-1", Status: models.StatusDelivered}
	repo.On("GetByID", "order-1").Return(stored, nil).Once()
	repo.On("UpdateStatus", "order-1", models.StatusDelivered).Return(updated, nil).Once()

	order, err := service.ChangeStatus("order-1", "DELIVERED")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, order.Status)
	repo.AssertExpectations(t)
}

func TestOrderService_ChangeStatus_UnknownOrder(t *testing.T) {
	repo := new(MockOrderRepository)
	service := newOrderService(repo, new(MockProductValidator), new(MockPaymentSessions))

	repo.On("GetByID", "missing-id").
		Return(nil, fmt.Errorf("order with id missing-id: %w", repositories.ErrNotFound)).Once()

	order, err := service.ChangeStatus("missing-id", "CANCELLED")
	assert.Nil(t, order)
	assert.Equal(t, 404, models.AsServiceError(err).StatusCode)
}

func TestOrderService_MarkPaid(t *testing.T) {
	repo := new(MockOrderRepository)
	service := newOrderService(repo, new(MockProductValidator), new(MockPaymentSessions))

	paid := &models.Order{ID: "order-1", Status: models.StatusPaid, Paid: true, StripeChargeID: "ch_1"}
	repo.On("MarkPaid", "order-1", "ch_1", "https://pay.example/receipt/1").Return(paid, nil).Once()

	order, err := service.MarkPaid(models.PaidOrderEvent{
		OrderID:         "order-1",
		StripePaymentID: "ch_1",
		ReceiptURL:      "https://pay.example/receipt/1",
	})
	assert.NoError(t, err)
	assert.True(t, order.Paid)
	repo.AssertExpectations(t)
}
