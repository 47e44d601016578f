package delegation

import (
	"strings"
	"testing"
)

func TestActivateRequiresCode(t *testing.T) {
	code := "secret"
	rec := AuthRecord{Code: &code}
	if rec.State() != StatePending {
		t.Fatalf("expected pending, got %s", rec.State())
	}

	if !rec.Activate() {
		t.Fatal("first activate should succeed")
	}
	if !rec.Active || rec.Code != nil {
		t.Fatalf("expected active with no code, got active=%v code=%v", rec.Active, rec.Code)
	}
	if rec.State() != StateActive {
		t.Fatalf("expected active, got %s", rec.State())
	}

	// A second activate has no code to consume and must not re-trigger.
	if rec.Activate() {
		t.Fatal("second activate must be a no-op")
	}
	if !rec.Active {
		t.Fatal("second activate must not flip active off")
	}
}

func TestActivateAfterDeactivateStaysRevoked(t *testing.T) {
	code := "secret"
	rec := AuthRecord{Code: &code}
	rec.Deactivate()
	if rec.State() != StateRevoked {
		t.Fatalf("expected revoked, got %s", rec.State())
	}
	if rec.Activate() {
		t.Fatal("revoked record must not activate")
	}
	if rec.Active {
		t.Fatal("revoked record must stay inactive")
	}
}

func TestDeactivateIdempotent(t *testing.T) {
	code := "secret"
	rec := AuthRecord{Code: &code, Active: true}
	rec.Deactivate()
	first := rec
	rec.Deactivate()
	if rec.Active != first.Active || (rec.Code == nil) != (first.Code == nil) {
		t.Fatalf("double deactivate changed state: %+v vs %+v", rec, first)
	}
	if rec.Active || rec.Code != nil {
		t.Fatalf("expected inactive with no code, got %+v", rec)
	}
}

func TestNewActivationCode(t *testing.T) {
	a, err := NewActivationCode()
	if err != nil {
		t.Fatalf("NewActivationCode: %v", err)
	}
	b, err := NewActivationCode()
	if err != nil {
		t.Fatalf("NewActivationCode: %v", err)
	}
	if a == b {
		t.Fatal("codes must not repeat")
	}
	if len(a) < 32 {
		t.Fatalf("code too short for 256 bits: %d chars", len(a))
	}
	if strings.ContainsAny(a, "+/=") {
		t.Fatalf("code is not URL-safe: %q", a)
	}
}
