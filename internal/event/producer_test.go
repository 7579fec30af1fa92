package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GwangCheonLee/authcore/internal/domain"
	"github.com/GwangCheonLee/authcore/pkg/kafka"
)

type capturingPublisher struct {
	topics []string
	events []*kafka.Event
	err    error
}

func (c *capturingPublisher) Publish(_ context.Context, topic string, event *kafka.Event) error {
	c.topics = append(c.topics, topic)
	c.events = append(c.events, event)
	return c.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestProducer_UserRegistered(t *testing.T) {
	pub := &capturingPublisher{}
	p := NewProducer(pub, discardLogger())

	p.UserRegistered(context.Background(), &domain.User{
		ID:       42,
		Email:    "jane@example.com",
		Nickname: "jane",
	})

	require.Len(t, pub.events, 1)
	assert.Equal(t, "authcore.user.registered", pub.topics[0])

	evt := pub.events[0]
	assert.Equal(t, TypeUserRegistered, evt.EventType)
	assert.Equal(t, "42", evt.AggregateID)
	assert.Equal(t, "user", evt.AggregateType)
	assert.Equal(t, "authcore", evt.Source)

	var payload UserRegisteredPayload
	require.NoError(t, evt.UnmarshalData(&payload))
	assert.Equal(t, int64(42), payload.UserID)
	assert.Equal(t, "jane@example.com", payload.Email)
	assert.False(t, payload.RegisteredAt.IsZero())
}

func TestProducer_UserSignedIn_Topics(t *testing.T) {
	pub := &capturingPublisher{}
	p := NewProducer(pub, discardLogger())

	user := &domain.User{ID: 7, Email: "jane@example.com"}
	p.UserSignedIn(context.Background(), user, MethodPassword)
	p.UserSignedIn(context.Background(), user, MethodOAuth)

	require.Len(t, pub.events, 2)
	assert.Equal(t, "authcore.user.signed-in", pub.topics[0])

	var first UserSignedInPayload
	require.NoError(t, pub.events[0].UnmarshalData(&first))
	assert.Equal(t, MethodPassword, first.Method)

	var second UserSignedInPayload
	require.NoError(t, pub.events[1].UnmarshalData(&second))
	assert.Equal(t, MethodOAuth, second.Method)
}

func TestProducer_TwoFactorEnabled(t *testing.T) {
	pub := &capturingPublisher{}
	p := NewProducer(pub, discardLogger())

	p.TwoFactorEnabled(context.Background(), 42)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "authcore.user.two-factor-enabled", pub.topics[0])
	assert.Equal(t, TypeTwoFactorEnabled, pub.events[0].EventType)
}

func TestProducer_UserDeactivated(t *testing.T) {
	pub := &capturingPublisher{}
	p := NewProducer(pub, discardLogger())

	p.UserDeactivated(context.Background(), 42)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "authcore.user.deactivated", pub.topics[0])
}

func TestProducer_PublishFailure_DoesNotPanic(t *testing.T) {
	pub := &capturingPublisher{err: errors.New("broker unreachable")}
	p := NewProducer(pub, discardLogger())

	// Best-effort publish: a broker failure is swallowed after logging.
	assert.NotPanics(t, func() {
		p.UserRegistered(context.Background(), &domain.User{ID: 1, Email: "a@b.c"})
	})
}
