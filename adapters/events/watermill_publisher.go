package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/mijinummi/Lumenpulse/ports"
)

const (
	// TopicLogin is published after a successful challenge verification.
	TopicLogin = "auth.login"

	// TopicLogout is published after a refresh token revocation.
	TopicLogout = "auth.logout"

	// TopicPasswordReset is published after a completed password reset.
	TopicPasswordReset = "auth.password_reset"
)

// LoginEvent notifies other services that a user authenticated.
type LoginEvent struct {
	UserID    string `json:"user_id"`
	PublicKey string `json:"public_key"`
}

// LogoutEvent notifies other services that a session ended.
type LogoutEvent struct {
	UserID string `json:"user_id"`
}

// PasswordResetEvent notifies other services that a password changed.
type PasswordResetEvent struct {
	UserID string `json:"user_id"`
}

// WatermillPublisher implements ports.EventPublisher using Watermill.
type WatermillPublisher struct {
	publisher message.Publisher
}

var _ ports.EventPublisher = (*WatermillPublisher)(nil)

// NewWatermillPublisher creates a new Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogin publishes a login event.
func (p *WatermillPublisher) PublishLogin(ctx context.Context, userID, publicKey string) error {
	return p.publish(TopicLogin, LoginEvent{UserID: userID, PublicKey: publicKey})
}

// PublishLogout publishes a logout event.
func (p *WatermillPublisher) PublishLogout(ctx context.Context, userID string) error {
	return p.publish(TopicLogout, LogoutEvent{UserID: userID})
}

// PublishPasswordReset publishes a password reset event.
func (p *WatermillPublisher) PublishPasswordReset(ctx context.Context, userID string) error {
	return p.publish(TopicPasswordReset, PasswordResetEvent{UserID: userID})
}

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
