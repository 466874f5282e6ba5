package worker

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/airvitals/airvitals/internal/api/middleware"
	"github.com/airvitals/airvitals/internal/refresh"
)

type ctxController struct {
	requestID   string
	hasDeadline bool
	state       refresh.State
}

func (c *ctxController) State() refresh.State { return c.state }

func (c *ctxController) Refresh(ctx context.Context) (refresh.State, error) {
	c.requestID = middleware.GetRequestID(ctx)
	_, c.hasDeadline = ctx.Deadline()
	return c.state, nil
}

func (c *ctxController) Locate(ctx context.Context) (refresh.State, error) {
	return c.Refresh(ctx)
}

func TestHandle_AckDecisions(t *testing.T) {
	failed := refresh.Fail(refresh.Initial(), refresh.MessageFetchFailed)

	tests := []struct {
		name  string
		state refresh.State
		body  string
		ack   bool
	}{
		{"locate ok", refresh.Initial(), `{"job_type":"locate"}`, true},
		{"refresh failed is redelivered", failed, `{"job_type":"manual_refresh"}`, false},
		{"malformed is dropped", refresh.Initial(), `{`, true},
		{"unknown is dropped", refresh.Initial(), `{"job_type":"purge"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &ctxController{state: tt.state}
			h := &PubSubHandler{
				dispatcher: NewDispatcher(c, nil, zerolog.Nop()),
				config:     Config{JobTimeout: time.Second},
				logger:     zerolog.Nop(),
			}
			assert.Equal(t, tt.ack, h.handle(context.Background(), "msg-1", []byte(tt.body)))
		})
	}
}

func TestHandle_PropagatesMessageID(t *testing.T) {
	c := &ctxController{state: refresh.Initial()}
	h := &PubSubHandler{
		dispatcher: NewDispatcher(c, nil, zerolog.Nop()),
		config:     DefaultConfig(),
		logger:     zerolog.Nop(),
	}

	assert.True(t, h.handle(context.Background(), "msg-42", []byte(`{"job_type":"locate"}`)))
	assert.Equal(t, "msg-42", c.requestID)
	assert.True(t, c.hasDeadline)
}
