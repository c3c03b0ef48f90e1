package rabbitmq

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"ordersvc/internal/models"

	"github.com/google/uuid"
	amqp "github.com/streadway/amqp"
)

// replyQueue is RabbitMQ's pseudo-queue for direct reply-to RPC. Consuming
// from it (auto-ack, before the first publish) lets the broker route replies
// back on this connection without declaring a per-client reply queue.
const replyQueue = "amq.rabbitmq.reply-to"

// RPCHandler processes one inbound request body and returns the reply body.
// Handlers are responsible for the reply envelope; they must always return
// something the caller can decode.
type RPCHandler func(body []byte) []byte

// Client holds the RabbitMQ connection and the channels used for serving,
// event consumption and outbound RPC.
type Client struct {
	conn       *amqp.Connection
	channel    *amqp.Channel // inbound serving and event consumption
	rpcChannel *amqp.Channel // outbound requests and their replies

	timeout time.Duration

	pendingMu sync.Mutex
	pending   map[string]chan []byte

	publishMu sync.Mutex // amqp channels do not allow concurrent publishes
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
	// RequestTimeout bounds every outbound RPC call. Zero means 5s.
	RequestTimeout time.Duration
}

// NewClient connects to RabbitMQ, opens the channels and starts the reply
// consumer for outbound RPC.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	rpcCh, err := conn.Channel()
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to open rpc channel: %w", err)
	}

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	client := &Client{
		conn:       conn,
		channel:    ch,
		rpcChannel: rpcCh,
		timeout:    timeout,
		pending:    make(map[string]chan []byte),
	}

	// The reply consumer must be running before the first request is
	// published, otherwise the broker rejects the publish.
	replies, err := rpcCh.Consume(
		replyQueue, // queue
		"",         // consumer tag
		true,       // auto-ack: required for direct reply-to
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to consume reply queue: %w", err)
	}
	go client.dispatchReplies(replies)

	log.Println("RabbitMQ client connected")
	return client, nil
}

// Close closes the RabbitMQ channels and connection.
func (c *Client) Close() error {
	var errs []error
	for _, ch := range []*amqp.Channel{c.channel, c.rpcChannel} {
		if ch != nil {
			if err := ch.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
			}
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// dispatchReplies routes reply deliveries to the request waiting on the
// matching correlation id. Replies for requests that already timed out are
// dropped.
func (c *Client) dispatchReplies(replies <-chan amqp.Delivery) {
	for msg := range replies {
		c.pendingMu.Lock()
		waiter, ok := c.pending[msg.CorrelationId]
		if ok {
			delete(c.pending, msg.CorrelationId)
		}
		c.pendingMu.Unlock()
		if ok {
			waiter <- msg.Body
		}
	}
}

// Request performs one request/response call against a collaborator
// service: publish to the pattern's queue, suspend until the reply arrives
// or the timeout elapses. Each call is attempted exactly once.
func (c *Client) Request(pattern string, body []byte) ([]byte, error) {
	if c.rpcChannel == nil {
		return nil, fmt.Errorf("request %s: %w", pattern, models.ErrDownstreamUnavailable)
	}

	corrID := uuid.New().String()
	waiter := make(chan []byte, 1)

	c.pendingMu.Lock()
	c.pending[corrID] = waiter
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, corrID)
		c.pendingMu.Unlock()
	}()

	c.publishMu.Lock()
	err := c.rpcChannel.Publish(
		"",      // exchange: default exchange
		pattern, // routing key: the collaborator's request queue
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: corrID,
			ReplyTo:       replyQueue,
			Type:          pattern,
			Body:          body,
			Timestamp:     time.Now(),
		})
	c.publishMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("request %s: %v: %w", pattern, err, models.ErrDownstreamUnavailable)
	}

	select {
	case reply := <-waiter:
		return reply, nil
	case <-time.After(c.timeout):
		return nil, fmt.Errorf("request %s: %w", pattern, models.ErrDownstreamTimeout)
	}
}

// ServeRPC consumes the given request queue and dispatches each message by
// its pattern (the message Type) through the routes table. The table is
// built once at startup; unknown patterns get an error reply. Messages are
// acked after the reply is published.
func (c *Client) ServeRPC(queueName string, routes map[string]RPCHandler) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for serving")
	}

	queue, err := c.channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	msgs, err := c.channel.Consume(
		queue.Name, // queue
		"",         // consumer tag
		false,      // auto-ack: replies are sent before acking
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer on %s: %w", queueName, err)
	}

	log.Printf(" [*] Serving requests on %s", queueName)

	// Each delivery is an independent unit of work: a request suspended on
	// a downstream call must not stall the requests queued behind it, so
	// every message gets its own goroutine. Handler idempotency and the
	// store's atomic updates make concurrent handling safe.
	go func() {
		for msg := range msgs {
			go c.handleRequest(msg, routes)
		}
	}()

	return nil
}

// handleRequest runs one inbound request through the dispatch table,
// publishes the reply and settles the delivery. If the reply cannot be
// published the message is requeued; the caller is still waiting and the
// handlers tolerate a second run.
func (c *Client) handleRequest(msg amqp.Delivery, routes map[string]RPCHandler) {
	var reply []byte
	handler, ok := routes[msg.Type]
	if !ok {
		log.Printf("No handler for pattern %q (tag %d)", msg.Type, msg.DeliveryTag)
		reply = errorReply(fmt.Sprintf("unknown operation: %s", msg.Type))
	} else {
		reply = handler(msg.Body)
	}

	if msg.ReplyTo != "" {
		c.publishMu.Lock()
		pubErr := c.channel.Publish(
			"",          // exchange
			msg.ReplyTo, // routing key
			false,       // mandatory
			false,       // immediate
			amqp.Publishing{
				ContentType:   "application/json",
				CorrelationId: msg.CorrelationId,
				Body:          reply,
				Timestamp:     time.Now(),
			})
		c.publishMu.Unlock()
		if pubErr != nil {
			log.Printf("Error publishing reply for message %d, requeueing: %v", msg.DeliveryTag, pubErr)
			if nackErr := msg.Nack(false, true); nackErr != nil {
				log.Printf("Error nacking message %d: %v", msg.DeliveryTag, nackErr)
			}
			return
		}
	}

	if ackErr := msg.Ack(false); ackErr != nil {
		log.Printf("Error acking message %d: %v", msg.DeliveryTag, ackErr)
	}
}

// requeueDelay spaces out the first redelivery of a failed event so a
// transient failure does not spin against the broker.
const requeueDelay = time.Second

// ConsumeEvents consumes fire-and-forget events from the given queue with
// manual acknowledgement. A handler error requeues the message after a
// short delay; a message that fails again after redelivery is parked on the
// queue's dead-letter sibling instead of looping.
func (c *Client) ConsumeEvents(queueName string, messageHandler func(msg amqp.Delivery) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	queue, err := c.channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	deadLetterQueue := queueName + ".dlq"
	if _, err := c.channel.QueueDeclare(deadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", deadLetterQueue, err)
	}

	msgs, err := c.channel.Consume(
		queue.Name, // queue
		"",         // consumer tag
		false,      // auto-ack: set to false to manually acknowledge messages
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer on %s: %w", queueName, err)
	}

	log.Printf(" [*] Waiting for events on %s", queueName)

	// One goroutine per event: a confirmation suspended on the store must
	// not hold up unrelated events behind it.
	go func() {
		for msg := range msgs {
			go c.handleEvent(msg, deadLetterQueue, messageHandler)
		}
	}()

	return nil
}

// handleEvent runs one event through the handler and settles the delivery:
// ack on success, delayed requeue on the first failure, dead-letter after a
// failed redelivery.
func (c *Client) handleEvent(msg amqp.Delivery, deadLetterQueue string, messageHandler func(msg amqp.Delivery) error) {
	err := messageHandler(msg)
	if err == nil {
		if ackErr := msg.Ack(false); ackErr != nil {
			log.Printf("Error acking message %d: %v", msg.DeliveryTag, ackErr)
		}
		return
	}

	log.Printf("Error processing message %d: %v", msg.DeliveryTag, err)

	if !msg.Redelivered {
		time.Sleep(requeueDelay)
		if requeueErr := msg.Nack(false, true); requeueErr != nil {
			log.Printf("Error nacking message %d: %v", msg.DeliveryTag, requeueErr)
		}
		return
	}

	// Already retried once; park it for inspection instead of looping.
	c.publishMu.Lock()
	pubErr := c.channel.Publish(
		"",              // exchange
		deadLetterQueue, // routing key
		false,           // mandatory
		false,           // immediate
		amqp.Publishing{
			ContentType: msg.ContentType,
			Body:        msg.Body,
			Timestamp:   time.Now(),
		})
	c.publishMu.Unlock()
	if pubErr != nil {
		log.Printf("Error dead-lettering message %d, requeueing: %v", msg.DeliveryTag, pubErr)
		if nackErr := msg.Nack(false, true); nackErr != nil {
			log.Printf("Error nacking message %d: %v", msg.DeliveryTag, nackErr)
		}
		return
	}
	log.Printf("Message %d moved to %s", msg.DeliveryTag, deadLetterQueue)
	if ackErr := msg.Ack(false); ackErr != nil {
		log.Printf("Error acking message %d: %v", msg.DeliveryTag, ackErr)
	}
}

// errorReply builds the error envelope for requests that cannot be routed.
func errorReply(message string) []byte {
	body, err := json.Marshal(models.RPCResponse{Err: models.NewValidationError(message)})
	if err != nil {
		log.Printf("Failed to marshal error reply: %v", err)
		return []byte(`{"error":{"statusCode":500,"message":"internal error"}}`)
	}
	return body
}
