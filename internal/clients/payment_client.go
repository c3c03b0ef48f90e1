package clients

import (
	"encoding/json"
	"fmt"

	"ordersvc/internal/models"
)

// createPaymentSessionPattern is the payment service's request queue.
const createPaymentSessionPattern = "create.payment.session"

// PaymentSessions starts payment sessions with the payment provider.
type PaymentSessions interface {
	// CreateSession returns a redirectable session descriptor for the
	// order. The call is attempted exactly once; retrying is the
	// caller's decision.
	CreateSession(req models.CreatePaymentSessionRequest) (*models.PaymentSession, error)
}

// PaymentClient is the message-transport implementation of PaymentSessions.
type PaymentClient struct {
	mq Requester
}

// NewPaymentClient creates a new PaymentClient.
func NewPaymentClient(mq Requester) *PaymentClient {
	return &PaymentClient{
		mq: mq,
	}
}

// CreateSession calls the payment provider's create.payment.session
// operation.
func (c *PaymentClient) CreateSession(req models.CreatePaymentSessionRequest) (*models.PaymentSession, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment session request: %w", err)
	}

	reply, err := c.mq.Request(createPaymentSessionPattern, body)
	if err != nil {
		return nil, err
	}

	var envelope models.RPCResponse
	if err := json.Unmarshal(reply, &envelope); err != nil {
		return nil, fmt.Errorf("malformed payment session reply: %v: %w", err, models.ErrDownstreamUnavailable)
	}
	if envelope.Err != nil {
		return nil, envelope.Err
	}

	var session models.PaymentSession
	if err := json.Unmarshal(envelope.Data, &session); err != nil {
		return nil, fmt.Errorf("malformed payment session payload: %v: %w", err, models.ErrDownstreamUnavailable)
	}
	return &session, nil
}
