package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	minBackoff            = time.Second
	maxBackoff            = 30 * time.Second
	defaultPublishTimeout = 5 * time.Second
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("publisher closed")

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher keeps one broker connection for the life of the process and
// publishes JSON events to a durable topic exchange. Publish never blocks
// the caller and never returns an error: failures are logged and the
// event is dropped.
type Publisher struct {
	url      string
	exchange string
	timeout  time.Duration
	log      *zap.Logger

	mu     sync.RWMutex
	conn   *amqp.Connection
	ch     channel
	closed bool

	wg   sync.WaitGroup
	done chan struct{}
	once sync.Once
}

// NewPublisher returns an unconnected publisher. Call Start to connect.
func NewPublisher(url, exchange string, log *zap.Logger) *Publisher {
	if exchange == "" {
		exchange = Exchange
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{
		url:      url,
		exchange: exchange,
		timeout:  defaultPublishTimeout,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start runs the connect loop in the background. The service stays up
// while the broker is unreachable; events published meanwhile are dropped.
func (p *Publisher) Start() error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	go p.run()
	return nil
}

func (p *Publisher) run() {
	backoff := minBackoff
	for {
		conn, ch, err := p.dial()
		if err != nil {
			p.log.Warn("rabbitmq connect failed", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-p.done:
				return
			case <-time.After(backoff):
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = minBackoff

		notify := conn.NotifyClose(make(chan *amqp.Error, 1))
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			_ = ch.Close()
			_ = conn.Close()
			return
		}
		p.conn, p.ch = conn, ch
		p.mu.Unlock()
		p.log.Info("rabbitmq connected", zap.String("exchange", p.exchange))

		select {
		case <-p.done:
			return
		case amqpErr := <-notify:
			p.mu.Lock()
			p.conn, p.ch = nil, nil
			p.mu.Unlock()
			p.log.Warn("rabbitmq connection lost", zap.Any("reason", amqpErr))
		}
	}
}

func (p *Publisher) dial() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

// Publish sends payload as a persistent JSON message. It returns before
// the broker has acknowledged anything.
func (p *Publisher) Publish(exchange, routingKey string, payload any) {
	if exchange == "" {
		exchange = p.exchange
	}
	body, err := json.Marshal(payload)
	if err != nil {
		p.log.Error("event encode failed", zap.String("routing_key", routingKey), zap.Error(err))
		return
	}

	p.mu.RLock()
	ch, closed := p.ch, p.closed
	if closed || ch == nil {
		p.mu.RUnlock()
		p.log.Warn("rabbitmq not connected, event dropped", zap.String("routing_key", routingKey))
		return
	}
	p.wg.Add(1)
	p.mu.RUnlock()

	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		msg := amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now().UTC(),
			Body:         body,
		}
		if err := ch.PublishWithContext(ctx, exchange, routingKey, false, false, msg); err != nil {
			p.log.Error("event publish failed",
				zap.String("exchange", exchange),
				zap.String("routing_key", routingKey),
				zap.Error(err))
			return
		}
		p.log.Debug("event published", zap.String("routing_key", routingKey))
	}()
}

// Close stops reconnecting, waits for in-flight publishes and closes the
// connection. It is safe to call more than once.
func (p *Publisher) Close() error {
	var err error
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.done)

		p.wg.Wait()

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.ch != nil {
			err = p.ch.Close()
		}
		if p.conn != nil {
			if cerr := p.conn.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		p.conn, p.ch = nil, nil
	})
	return err
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
