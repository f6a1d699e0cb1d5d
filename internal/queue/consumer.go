package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	AuditQueue      = "auth.audit"
	AuditBindingKey = "user.*"
	DefaultAuditLog = "logs/auth-audit.log"
)

// Consumer drains the audit queue bound to the auth exchange and appends
// one line per event to a log file.
type Consumer struct {
	URL      string
	Exchange string
	Queue    string
	LogPath  string
	Log      *zap.Logger

	now func() time.Time
	mu  sync.Mutex
}

// NewConsumer fills in the default exchange, queue and log file.
func NewConsumer(url string, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{
		URL:      url,
		Exchange: Exchange,
		Queue:    AuditQueue,
		LogPath:  DefaultAuditLog,
		Log:      log,
		now:      time.Now,
	}
}

// Run connects, consumes and reconnects with backoff until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := minBackoff
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("audit consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = minBackoff

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn("audit consumer: consume loop ended, reconnecting", zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warn("audit consumer: set QoS failed", zap.Error(err))
	}
	if err := ch.ExchangeDeclare(c.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(c.Queue, AuditBindingKey, c.Exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}

	msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.Log.Info("audit consumer: listening", zap.String("queue", c.Queue), zap.String("exchange", c.Exchange))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(d.RoutingKey, d.Body); err != nil {
				c.Log.Error("audit consumer: handle message failed",
					zap.String("routing_key", d.RoutingKey), zap.Error(err))
				// reject without requeue so a bad payload cannot loop
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// handle formats one event and appends it to the audit log.
func (c *Consumer) handle(routingKey string, body []byte) error {
	line, err := formatAuditLine(routingKey, body, c.now())
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(c.LogPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// formatAuditLine renders an event as
//
//	[2026-03-01T12:00:00Z] user.login | userId=42 | timestamp=...
//
// with the remaining payload fields in key order.
func formatAuditLine(routingKey string, body []byte, received time.Time) (string, error) {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", fmt.Errorf("unmarshal: %w", err)
	}
	userID, _ := fields["userId"].(string)
	if userID == "" {
		return "", errors.New("event without userId")
	}
	delete(fields, "userId")

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | userId=%s", received.UTC().Format(time.RFC3339), routingKey, userID)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " | %s=%v", k, fields[k])
	}
	b.WriteByte('\n')
	return b.String(), nil
}
