package worker

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/airvitals/airvitals/internal/api/middleware"
)

// PubSubHandler receives command messages and hands them to a Dispatcher.
type PubSubHandler struct {
	client     *pubsub.Client
	subscriber *pubsub.Subscriber
	dispatcher *Dispatcher
	config     Config
	logger     zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg Config, dispatcher *Dispatcher, logger zerolog.Logger) (*PubSubHandler, error) {
	cfg = cfg.withDefaults()

	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = cfg.MaxOutstanding
	subscriber.ReceiveSettings.MaxExtension = cfg.MaxExtension

	return &PubSubHandler{
		client:     client,
		subscriber: subscriber,
		dispatcher: dispatcher,
		config:     cfg,
		logger:     logger,
	}, nil
}

// Start processes messages until ctx is cancelled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.config.SubscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if h.handle(ctx, msg.ID, msg.Data) {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

// handle runs one message and reports whether it should be acknowledged.
func (h *PubSubHandler) handle(ctx context.Context, id string, data []byte) bool {
	start := time.Now()
	ctx, cancel := context.WithTimeout(middleware.WithRequestID(ctx, id), h.config.JobTimeout)
	defer cancel()

	logger := h.logger.With().Str("message_id", id).Logger()

	jobType, err := h.dispatcher.Dispatch(ctx, data)
	if err != nil {
		if !Retryable(err) {
			logger.Warn().Err(err).Str("job_type", jobType).Msg("dropping command")
			return true
		}
		logger.Error().Err(err).Str("job_type", jobType).Msg("job failed")
		return false
	}

	logger.Info().
		Str("job_type", jobType).
		Dur("duration", time.Since(start)).
		Msg("job completed")
	return true
}
