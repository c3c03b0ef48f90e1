package clients

import (
	"encoding/json"
	"fmt"

	"ordersvc/internal/models"
)

// validateProductsPattern is the catalog service's request queue.
const validateProductsPattern = "validate_products"

// Requester performs one request/response call on the message transport.
// Satisfied by *rabbitmq.Client.
type Requester interface {
	Request(pattern string, body []byte) ([]byte, error)
}

// ProductValidator asks the catalog service to resolve product ids into
// authoritative name/price records.
type ProductValidator interface {
	// Validate resolves the given ids. With requireAvailable set the
	// catalog drops out-of-stock products from the result. Ids the
	// catalog does not know are simply absent from the result; detecting
	// them is the caller's job.
	Validate(ids []string, requireAvailable bool) ([]models.Product, error)
}

// CatalogClient is the message-transport implementation of ProductValidator.
type CatalogClient struct {
	mq Requester
}

// NewCatalogClient creates a new CatalogClient.
func NewCatalogClient(mq Requester) *CatalogClient {
	return &CatalogClient{
		mq: mq,
	}
}

// Validate calls the catalog's validate_products operation.
func (c *CatalogClient) Validate(ids []string, requireAvailable bool) ([]models.Product, error) {
	body, err := json.Marshal(models.ValidateProductsRequest{IDs: ids, Available: requireAvailable})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal validate_products request: %w", err)
	}

	reply, err := c.mq.Request(validateProductsPattern, body)
	if err != nil {
		return nil, err
	}

	var envelope models.RPCResponse
	if err := json.Unmarshal(reply, &envelope); err != nil {
		return nil, fmt.Errorf("malformed validate_products reply: %v: %w", err, models.ErrDownstreamUnavailable)
	}
	if envelope.Err != nil {
		return nil, envelope.Err
	}

	var products []models.Product
	if err := json.Unmarshal(envelope.Data, &products); err != nil {
		return nil, fmt.Errorf("malformed validate_products payload: %v: %w", err, models.ErrDownstreamUnavailable)
	}
	return products, nil
}
