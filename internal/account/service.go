package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ResetNotifier delivers password reset codes out-of-band. Fire-and-forget:
// delivery failure must not roll back the state change.
type ResetNotifier interface {
	PasswordReset(ctx context.Context, email, code string)
}

// Service provides account registration, credentials and profile operations.
type Service struct {
	store    Store
	notifier ResetNotifier
}

// NewService constructs the account service. The notifier may be nil, in
// which case reset codes are generated but not delivered.
func NewService(store Store, notifier ResetNotifier) (*Service, error) {
	if store == nil {
		return nil, errors.New("account store is required")
	}
	return &Service{store: store, notifier: notifier}, nil
}

// Register creates a new account with a unique email and username.
func (s *Service) Register(ctx context.Context, email, username, password string) (Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Account{}, err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return Account{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	password = strings.TrimSpace(password)
	if password == "" {
		return Account{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return Account{}, err
	}
	return s.store.Create(ctx, Account{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
	})
}

// Authenticate verifies email/password credentials and returns the account.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Account{}, err
	}
	acc, err := s.store.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return Account{}, err
	}
	if err := VerifyPassword(acc.PasswordHash, password); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return acc, nil
}

// Get returns the account with the given id.
func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.store.GetByID(ctx, id)
}

// GetByEmail returns the account registered under the given email.
func (s *Service) GetByEmail(ctx context.Context, email string) (Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Account{}, err
	}
	return s.store.GetByEmail(ctx, email)
}

// ProfileUpdate carries plaintext profile changes from the caller.
type ProfileUpdate struct {
	Email    *string
	Username *string
	Password *string
}

// UpdateProfile applies the given changes to the account.
func (s *Service) UpdateProfile(ctx context.Context, id int64, upd ProfileUpdate) (Account, error) {
	var stored Update
	if upd.Email != nil {
		email, err := normalizeEmail(*upd.Email)
		if err != nil {
			return Account{}, err
		}
		stored.Email = &email
	}
	if upd.Username != nil {
		username := strings.TrimSpace(*upd.Username)
		if username == "" {
			return Account{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
		}
		stored.Username = &username
	}
	if upd.Password != nil {
		password := strings.TrimSpace(*upd.Password)
		if password == "" {
			return Account{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
		}
		hash, err := HashPassword(password)
		if err != nil {
			return Account{}, err
		}
		stored.PasswordHash = &hash
	}
	return s.store.Update(ctx, id, stored)
}

// Delete removes the account and everything it owns.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

// RequestPasswordReset issues a fresh single-use reset code and hands it to
// the notifier. Unknown emails return nil so the endpoint does not confirm
// which addresses are registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	acc, err := s.store.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	code, err := NewResetCode()
	if err != nil {
		return err
	}
	hash, err := HashPassword(code)
	if err != nil {
		return err
	}
	if err := s.store.SetResetCode(ctx, acc.ID, &hash); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.PasswordReset(ctx, acc.Email, code)
	}
	return nil
}

// ConfirmPasswordReset verifies the reset code, sets the new password, and
// then clears the code. Verifying does not consume the code by itself;
// clearing is the explicit final step once the reset succeeded.
func (s *Service) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	newPassword = strings.TrimSpace(newPassword)
	if newPassword == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	acc, err := s.store.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	if acc.ResetCodeHash == nil {
		return ErrInvalidCredentials
	}
	if err := VerifyPassword(*acc.ResetCodeHash, code); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if _, err := s.store.Update(ctx, acc.ID, Update{PasswordHash: &hash}); err != nil {
		return err
	}
	return s.store.SetResetCode(ctx, acc.ID, nil)
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	return email, nil
}
