// Package mail provides the development transport for out-of-band notices.
// Real deployments put an actual mail sender behind the same interfaces;
// delivery stays fire-and-forget either way.
package mail

import (
	"context"

	"jogger.org/internal/audit"
)

// LogNotifier emits each notice as a structured audit line instead of
// sending mail. It satisfies both delegation.Notifier and
// account.ResetNotifier.
type LogNotifier struct{}

// NewLogNotifier constructs the log-backed notifier.
func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

// ManagerInvited records the invitation that would be mailed to the manager.
func (n *LogNotifier) ManagerInvited(ctx context.Context, ownerEmail, userEmail, code string) {
	_ = audit.LogEvent(ctx, "mail.manager_invited", map[string]any{
		"to":         ownerEmail,
		"user_email": userEmail,
		"code":       code,
	})
}

// ManageeConfirmed records the activation notice for the managed account.
func (n *LogNotifier) ManageeConfirmed(ctx context.Context, userEmail, ownerEmail string) {
	_ = audit.LogEvent(ctx, "mail.managee_confirmed", map[string]any{
		"to":          userEmail,
		"owner_email": ownerEmail,
	})
}

// PasswordReset records the reset code that would be mailed to the account.
func (n *LogNotifier) PasswordReset(ctx context.Context, email, code string) {
	_ = audit.LogEvent(ctx, "mail.password_reset", map[string]any{
		"to":   email,
		"code": code,
	})
}
