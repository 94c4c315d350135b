package ports

import "context"

// EventPublisher notifies other services about auth lifecycle events.
// Publishing is best-effort; callers log failures and move on.
type EventPublisher interface {
	PublishLogin(ctx context.Context, userID, publicKey string) error
	PublishLogout(ctx context.Context, userID string) error
	PublishPasswordReset(ctx context.Context, userID string) error
}
