package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"scoreboard/internal/log"
)

const (
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

// Client publishes and consumes rollover notices through one durable queue
// bound to a direct exchange under the queue's own name. The connection is
// dialed on demand and dropped after connection errors.
type Client struct {
	url      string
	exchange string
	queue    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	breaker breaker
	logger  *log.Logger
	// pause waits between reconnects; nil sleeps on a timer.
	pause func(ctx context.Context, d time.Duration) error
}

// NewClient dials url once so a misconfigured broker fails at startup.
func NewClient(url, exchange, queue string) (*Client, error) {
	c := &Client{url: url, exchange: exchange, queue: queue, logger: log.WithComponent(log.ComponentAMQP)}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureChannel(); err != nil {
		return nil, err
	}
	return c, nil
}

// ensureChannel must be called with mu held.
func (c *Client) ensureChannel() error {
	if c.channel != nil && !c.channel.IsClosed() {
		return nil
	}
	c.drop()

	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	c.conn, c.channel = conn, ch

	if err := c.declare(); err != nil {
		c.drop()
		return err
	}
	return nil
}

func (c *Client) declare() error {
	const durable, autoDelete, internal, exclusive, noWait = true, false, false, false, false
	if err := c.channel.ExchangeDeclare(c.exchange, amqp091.ExchangeDirect, durable, autoDelete, internal, noWait, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", c.exchange, err)
	}
	if _, err := c.channel.QueueDeclare(c.queue, durable, autoDelete, exclusive, noWait, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.queue, err)
	}
	if err := c.channel.QueueBind(c.queue, c.queue, c.exchange, noWait, nil); err != nil {
		return fmt.Errorf("bind %s to %s: %w", c.queue, c.exchange, err)
	}
	return nil
}

// PublishRolloverNotice sends notice as a persistent JSON message. It fails
// fast with ErrBreakerOpen while the broker keeps failing.
func (c *Client) PublishRolloverNotice(ctx context.Context, notice *RolloverNotice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.breaker.allow() {
		return ErrBreakerOpen
	}
	body, err := notice.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    notice.ID,
		Timestamp:    notice.Timestamp,
		Body:         body,
	}

	c.mu.Lock()
	err = c.ensureChannel()
	if err == nil {
		err = c.channel.PublishWithContext(ctx, c.exchange, c.queue, false, false, msg)
	}
	if isConnectionError(err) {
		c.drop()
	}
	c.mu.Unlock()

	if err != nil {
		c.breaker.failure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.breaker.success()
	c.logger.InfoContext(ctx, "Published rollover notice",
		log.FieldNoticeID, notice.ID,
		log.FieldRevision, notice.Revision,
		"exchange", c.exchange,
		"queue", c.queue)
	return nil
}

// NoticeHandler processes one notice. An error requeues the message.
type NoticeHandler func(context.Context, *RolloverNotice) error

// ConsumeRolloverNotices runs handler for each notice until ctx is done.
// Malformed messages are dropped. A lost connection is re-dialed with
// exponential backoff; any other error ends consumption.
func (c *Client) ConsumeRolloverNotices(ctx context.Context, handler NoticeHandler) error {
	return c.reconnectLoop(ctx, func(ctx context.Context) (bool, error) {
		return c.consume(ctx, handler)
	})
}

// reconnectLoop reruns session while it fails with connection errors. The
// backoff starts over whenever a session got as far as consuming.
func (c *Client) reconnectLoop(ctx context.Context, session func(context.Context) (started bool, err error)) error {
	attempt := 0
	for {
		started, err := session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}
		if started {
			attempt = 0
		}
		wait := exponentialBackoff(attempt)
		attempt++
		c.logger.WarnContext(ctx, "Consumer lost connection, retrying", log.FieldError, err, "retry_in", wait)
		if err := c.wait(ctx, wait); err != nil {
			return err
		}
		c.mu.Lock()
		c.drop()
		c.mu.Unlock()
	}
}

func (c *Client) wait(ctx context.Context, d time.Duration) error {
	if c.pause != nil {
		return c.pause(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// consume reports started once the broker accepted the consumer.
func (c *Client) consume(ctx context.Context, handler NoticeHandler) (bool, error) {
	c.mu.Lock()
	err := c.ensureChannel()
	var deliveries <-chan amqp091.Delivery
	if err == nil {
		// Manual acks: a message leaves the queue only once handled.
		deliveries, err = c.channel.Consume(c.queue, "", false, false, false, false, nil)
		if err != nil {
			err = fmt.Errorf("start consuming: %w", err)
		}
	}
	c.mu.Unlock()
	if err != nil {
		return false, err
	}

	c.logger.InfoContext(ctx, "Started consuming rollover notices", "queue", c.queue)
	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return true, ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return true, errors.New("delivery channel closed: connection closed")
			}
			c.handle(ctx, d, handler)
		}
	}
}

func (c *Client) handle(ctx context.Context, d amqp091.Delivery, handler NoticeHandler) {
	notice, err := RolloverNoticeFromJSON(d.Body)
	if err != nil {
		c.logger.ErrorContext(ctx, "Dropping malformed notice", log.FieldError, err, "message_id", d.MessageId)
		d.Nack(false, false)
		return
	}
	if err := handler(ctx, notice); err != nil {
		c.logger.ErrorContext(ctx, "Notice handler failed, requeueing", log.FieldError, err, log.FieldNoticeID, notice.ID)
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}

// exponentialBackoff doubles from one second up to maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	return min(time.Second<<attempt, maxBackoff)
}

var connectionErrorHints = []string{"connection", "eof", "broken pipe", "not open"}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range connectionErrorHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

// drop must be called with mu held.
func (c *Client) drop() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drop()
	return nil
}
