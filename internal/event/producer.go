package event

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/GwangCheonLee/authcore/internal/domain"
	"github.com/GwangCheonLee/authcore/pkg/kafka"
)

const (
	source        = "authcore"
	aggregateType = "user"
)

// Event types published by this service.
const (
	TypeUserRegistered   = "user.registered"
	TypeUserSignedIn     = "user.signed-in"
	TypeTwoFactorEnabled = "user.two-factor-enabled"
	TypeUserDeactivated  = "user.deactivated"
)

// publisher is the subset of the Kafka producer used here.
type publisher interface {
	Publish(ctx context.Context, topic string, event *kafka.Event) error
}

// Producer publishes user lifecycle events. Publishing is best-effort:
// a broker failure is logged and never fails the request that caused it.
type Producer struct {
	pub    publisher
	logger *slog.Logger
}

// NewProducer creates a lifecycle event producer.
func NewProducer(pub publisher, logger *slog.Logger) *Producer {
	return &Producer{pub: pub, logger: logger}
}

// UserRegisteredPayload is the data payload for user.registered events.
type UserRegisteredPayload struct {
	UserID       int64     `json:"user_id"`
	Email        string    `json:"email"`
	Nickname     string    `json:"nickname"`
	RegisteredAt time.Time `json:"registered_at"`
}

// UserSignedInPayload is the data payload for user.signed-in events.
type UserSignedInPayload struct {
	UserID     int64     `json:"user_id"`
	Email      string    `json:"email"`
	Method     string    `json:"method"`
	SignedInAt time.Time `json:"signed_in_at"`
}

// TwoFactorEnabledPayload is the data payload for user.two-factor-enabled events.
type TwoFactorEnabledPayload struct {
	UserID    int64     `json:"user_id"`
	EnabledAt time.Time `json:"enabled_at"`
}

// UserDeactivatedPayload is the data payload for user.deactivated events.
type UserDeactivatedPayload struct {
	UserID        int64     `json:"user_id"`
	DeactivatedAt time.Time `json:"deactivated_at"`
}

// Sign-in methods recorded on user.signed-in events.
const (
	MethodPassword = "password"
	MethodOAuth    = "oauth"
)

// UserRegistered publishes a user.registered event.
func (p *Producer) UserRegistered(ctx context.Context, u *domain.User) {
	p.publish(ctx, TypeUserRegistered, u.ID, UserRegisteredPayload{
		UserID:       u.ID,
		Email:        u.Email,
		Nickname:     u.Nickname,
		RegisteredAt: time.Now().UTC(),
	})
}

// UserSignedIn publishes a user.signed-in event.
func (p *Producer) UserSignedIn(ctx context.Context, u *domain.User, method string) {
	p.publish(ctx, TypeUserSignedIn, u.ID, UserSignedInPayload{
		UserID:     u.ID,
		Email:      u.Email,
		Method:     method,
		SignedInAt: time.Now().UTC(),
	})
}

// TwoFactorEnabled publishes a user.two-factor-enabled event.
func (p *Producer) TwoFactorEnabled(ctx context.Context, userID int64) {
	p.publish(ctx, TypeTwoFactorEnabled, userID, TwoFactorEnabledPayload{
		UserID:    userID,
		EnabledAt: time.Now().UTC(),
	})
}

// UserDeactivated publishes a user.deactivated event.
func (p *Producer) UserDeactivated(ctx context.Context, userID int64) {
	p.publish(ctx, TypeUserDeactivated, userID, UserDeactivatedPayload{
		UserID:        userID,
		DeactivatedAt: time.Now().UTC(),
	})
}

func (p *Producer) publish(ctx context.Context, eventType string, userID int64, payload any) {
	evt, err := kafka.NewEvent(eventType, strconv.FormatInt(userID, 10), aggregateType, source, payload)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to build event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
		return
	}
	if reqID := chimiddleware.GetReqID(ctx); reqID != "" {
		evt.WithCorrelationID(reqID)
	}

	topic := kafka.Topic(aggregateType, actionOf(eventType))
	if err := p.pub.Publish(ctx, topic, evt); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish event",
			slog.String("topic", topic),
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
	}
}

// actionOf strips the aggregate prefix from an event type, so
// "user.signed-in" becomes the topic action "signed-in".
func actionOf(eventType string) string {
	return eventType[len(aggregateType)+1:]
}
