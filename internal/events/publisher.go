package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/airvitals/airvitals/internal/refresh"
)

// ErrPublisherClosed is returned when publishing after Close.
var ErrPublisherClosed = errors.New("publisher closed")

// MessageWriter is the subset of *kafka.Writer used by the publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// PublisherConfig holds publisher configuration.
type PublisherConfig struct {
	Brokers []string
	Topic   string

	// Writer overrides the Kafka writer built from Brokers and Topic.
	Writer MessageWriter

	// QueueSize bounds the listener backlog (default: 64).
	QueueSize int

	// WriteTimeout bounds each write (default: 5s).
	WriteTimeout time.Duration

	Logger zerolog.Logger
}

// Publisher writes transition events to a Kafka topic.
type Publisher struct {
	writer  MessageWriter
	timeout time.Duration
	logger  zerolog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	wg     sync.WaitGroup
}

// NewPublisher creates a publisher and starts its delivery loop.
func NewPublisher(cfg PublisherConfig) *Publisher {
	writer := cfg.Writer
	if writer == nil {
		writer = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		}
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	p := &Publisher{
		writer:  writer,
		timeout: cfg.WriteTimeout,
		logger:  cfg.Logger,
		queue:   make(chan Event, cfg.QueueSize),
	}

	p.wg.Add(1)
	go p.run()

	return p
}

// Publish writes one event synchronously.
func (p *Publisher) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(e.Key()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Listener returns a refresh listener that enqueues every transition.
// Events are dropped with a warning when the backlog is full.
func (p *Publisher) Listener() refresh.Listener {
	return func(t refresh.Transition) {
		if err := p.enqueue(FromTransition(t)); err != nil {
			p.logger.Warn().Err(err).
				Str("to", string(t.To.Phase)).
				Msg("dropping transition event")
		}
	}
}

func (p *Publisher) enqueue(e Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.queue <- e:
		return nil
	default:
		return errors.New("event queue full")
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for e := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := p.Publish(ctx, e)
		cancel()
		if err != nil {
			p.logger.Error().Err(err).Str("event_id", e.ID).Msg("publishing transition event")
			continue
		}
		p.logger.Debug().Str("event_id", e.ID).Str("to", string(e.To)).Msg("transition event published")
	}
}

// Close drains queued events and closes the writer.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.writer.Close()
}
