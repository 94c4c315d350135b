package ports

import "context"

// Mailer is the outbound email side channel used to deliver raw reset
// tokens. Delivery is best-effort from the reset manager's point of view.
type Mailer interface {
	SendPasswordReset(ctx context.Context, address, rawToken string) error
}
