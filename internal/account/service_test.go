package account_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"jogger.org/internal/account"
	"jogger.org/internal/store/memory"
)

type resetRecorder struct {
	mu    sync.Mutex
	codes map[string]string // email -> last code
}

func (r *resetRecorder) PasswordReset(_ context.Context, email, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.codes == nil {
		r.codes = make(map[string]string)
	}
	r.codes[email] = code
}

func (r *resetRecorder) lastCode(email string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.codes[email]
}

func newTestService(t *testing.T) (*account.Service, *resetRecorder) {
	t.Helper()
	recorder := &resetRecorder{}
	svc, err := account.NewService(memory.New().Accounts(), recorder)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, recorder
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	acc, err := svc.Register(ctx, "  Runner@Example.COM ", "runner", "hunter22")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if acc.Email != "runner@example.com" {
		t.Fatalf("email not normalized: %q", acc.Email)
	}
	if acc.PasswordHash == "hunter22" || acc.PasswordHash == "" {
		t.Fatal("password must be stored hashed")
	}

	got, err := svc.Authenticate(ctx, "runner@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != acc.ID {
		t.Fatalf("authenticated wrong account: %d", got.ID)
	}

	if _, err := svc.Authenticate(ctx, "runner@example.com", "wrong"); !errors.Is(err, account.ErrInvalidCredentials) {
		t.Fatalf("wrong password must be ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@example.com", "hunter22"); !errors.Is(err, account.ErrInvalidCredentials) {
		t.Fatalf("unknown email must be ErrInvalidCredentials, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	cases := []struct {
		name                      string
		email, username, password string
	}{
		{"missing email", "", "runner", "pw"},
		{"bad email", "not-an-email", "runner", "pw"},
		{"missing username", "a@b.com", "  ", "pw"},
		{"missing password", "a@b.com", "runner", ""},
	}
	for _, tc := range cases {
		if _, err := svc.Register(ctx, tc.email, tc.username, tc.password); !errors.Is(err, account.ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestRegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.Register(ctx, "a@b.com", "runner", "pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, "a@b.com", "other", "pw"); !errors.Is(err, account.ErrConflict) {
		t.Fatalf("duplicate email must conflict, got %v", err)
	}
	if _, err := svc.Register(ctx, "c@d.com", "runner", "pw"); !errors.Is(err, account.ErrConflict) {
		t.Fatalf("duplicate username must conflict, got %v", err)
	}
}

func TestUpdateProfileRehashesPassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	acc, err := svc.Register(ctx, "a@b.com", "runner", "old-pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	newPassword := "new-pw"
	username := "sprinter"
	if _, err := svc.UpdateProfile(ctx, acc.ID, account.ProfileUpdate{
		Username: &username,
		Password: &newPassword,
	}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	if _, err := svc.Authenticate(ctx, "a@b.com", "old-pw"); !errors.Is(err, account.ErrInvalidCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}
	got, err := svc.Authenticate(ctx, "a@b.com", "new-pw")
	if err != nil {
		t.Fatalf("Authenticate with new password: %v", err)
	}
	if got.Username != "sprinter" {
		t.Fatalf("username not updated: %q", got.Username)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	svc, recorder := newTestService(t)

	acc, err := svc.Register(ctx, "a@b.com", "runner", "old-pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.RequestPasswordReset(ctx, "a@b.com"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	code := recorder.lastCode("a@b.com")
	if code == "" {
		t.Fatal("reset code was not delivered")
	}

	// Stored form is hashed, never the plaintext.
	stored, err := svc.Get(ctx, acc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.ResetCodeHash == nil || *stored.ResetCodeHash == code {
		t.Fatal("reset code must be stored hashed")
	}

	if err := svc.ConfirmPasswordReset(ctx, "a@b.com", "wrong-code", "new-pw"); !errors.Is(err, account.ErrInvalidCredentials) {
		t.Fatalf("wrong code must fail, got %v", err)
	}
	if err := svc.ConfirmPasswordReset(ctx, "a@b.com", code, "new-pw"); err != nil {
		t.Fatalf("ConfirmPasswordReset: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "a@b.com", "new-pw"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}

	// The code is single-use: confirming cleared it.
	stored, err = svc.Get(ctx, acc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.ResetCodeHash != nil {
		t.Fatal("reset code must be cleared after a successful reset")
	}
	if err := svc.ConfirmPasswordReset(ctx, "a@b.com", code, "another-pw"); !errors.Is(err, account.ErrInvalidCredentials) {
		t.Fatalf("consumed code must fail, got %v", err)
	}
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	svc, recorder := newTestService(t)
	// Unknown addresses are not confirmed or denied.
	if err := svc.RequestPasswordReset(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("unknown email must not error: %v", err)
	}
	if recorder.lastCode("ghost@example.com") != "" {
		t.Fatal("no code may be sent for unknown addresses")
	}
}
