package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airvitals/airvitals/internal/airquality"
	"github.com/airvitals/airvitals/internal/events"
	"github.com/airvitals/airvitals/internal/geolocation"
	"github.com/airvitals/airvitals/internal/refresh"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.messages...)
}

var amsterdam = geolocation.Coordinates{Latitude: 52.37, Longitude: 4.89}

func successTransition() refresh.Transition {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	from := refresh.BeginFetch(refresh.WithCoordinates(refresh.Initial(), amsterdam), at)
	report := &airquality.Report{
		City:    "Amsterdam",
		Country: "Netherlands",
		Current: airquality.Current{Pollution: airquality.Pollution{AQIUS: 120}},
	}
	return refresh.Transition{
		From: from,
		To:   refresh.Succeed(from, report, at.Add(time.Second)),
		At:   at.Add(time.Second),
	}
}

func TestFromTransition_Success(t *testing.T) {
	e := events.FromTransition(successTransition())

	assert.Equal(t, events.TypeTransition, e.Type)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, refresh.PhaseLoading, e.From)
	assert.Equal(t, refresh.PhaseSuccess, e.To)
	assert.Equal(t, uint64(1), e.Generation)
	assert.Equal(t, amsterdam, e.Location)
	assert.Equal(t, "Amsterdam, Netherlands", e.Place)
	require.NotNil(t, e.AQIUS)
	assert.Equal(t, 120.0, *e.AQIUS)
	assert.Equal(t, "Unhealthy", string(e.Label))
	assert.Equal(t, "SUCCESS", e.Key())
}

func TestFromTransition_Error(t *testing.T) {
	s := refresh.WithCoordinates(refresh.Initial(), amsterdam)
	e := events.FromTransition(refresh.Transition{
		From: s,
		To:   refresh.Fail(s, refresh.MessageFetchFailed),
		At:   time.Now(),
	})

	assert.Equal(t, refresh.PhaseError, e.To)
	assert.Equal(t, refresh.MessageFetchFailed, e.Message)
	assert.Equal(t, refresh.FailureNetworkOrParse, e.Failure)
	assert.Nil(t, e.AQIUS)
	assert.Empty(t, e.Place)
}

func TestPublisher_Publish(t *testing.T) {
	writer := &fakeWriter{}
	p := events.NewPublisher(events.PublisherConfig{Writer: writer, Logger: zerolog.Nop()})
	defer p.Close()

	e := events.FromTransition(successTransition())
	require.NoError(t, p.Publish(context.Background(), e))

	msgs := writer.written()
	require.Len(t, msgs, 1)
	assert.Equal(t, "SUCCESS", string(msgs[0].Key))
	require.Len(t, msgs[0].Headers, 1)
	assert.Equal(t, events.TypeTransition, string(msgs[0].Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].Value, &decoded))
	assert.Equal(t, "LOADING", decoded["from"])
	assert.Equal(t, "SUCCESS", decoded["to"])
	assert.Equal(t, 120.0, decoded["aqi_us"])
	assert.Equal(t, "Amsterdam, Netherlands", decoded["place"])
}

func TestPublisher_PublishError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker down")}
	p := events.NewPublisher(events.PublisherConfig{Writer: writer, Logger: zerolog.Nop()})
	defer p.Close()

	err := p.Publish(context.Background(), events.FromTransition(successTransition()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestPublisher_ListenerDeliversOnClose(t *testing.T) {
	writer := &fakeWriter{}
	p := events.NewPublisher(events.PublisherConfig{Writer: writer, Logger: zerolog.Nop()})

	listener := p.Listener()
	listener(successTransition())
	listener(successTransition())

	require.NoError(t, p.Close())
	assert.Len(t, writer.written(), 2)
	assert.True(t, writer.closed)

	// after close, events are dropped without panicking
	listener(successTransition())
	assert.Len(t, writer.written(), 2)
	assert.NoError(t, p.Close())
}

func TestPublisher_WithController(t *testing.T) {
	writer := &fakeWriter{}
	p := events.NewPublisher(events.PublisherConfig{Writer: writer, Logger: zerolog.Nop()})

	c := refresh.NewController(refresh.Config{
		Locator: geolocation.NewStaticLocator(geolocation.StaticConfig{Unsupported: true}),
		Logger:  zerolog.Nop(),
	})
	c.Subscribe(p.Listener())

	_, err := c.Mount(context.Background())
	require.ErrorIs(t, err, geolocation.ErrUnsupportedEnvironment)
	require.NoError(t, p.Close())

	msgs := writer.written()
	require.Len(t, msgs, 1)

	var e events.Event
	require.NoError(t, json.Unmarshal(msgs[0].Value, &e))
	assert.Equal(t, refresh.FailureUnsupportedEnvironment, e.Failure)
	assert.Equal(t, refresh.MessageUnsupportedEnvironment, e.Message)
	assert.Equal(t, refresh.PhaseLoading, e.To)
}
