package delegation

import "context"

// Notifier delivers delegation notices out-of-band. Fire-and-forget:
// delivery failure must not roll back the delegation state change, so the
// methods report nothing back.
type Notifier interface {
	// ManagerInvited tells the invited manager how to accept the grant.
	ManagerInvited(ctx context.Context, ownerEmail, userEmail, code string)
	// ManageeConfirmed tells the managed account the grant went active.
	ManageeConfirmed(ctx context.Context, userEmail, ownerEmail string)
}
