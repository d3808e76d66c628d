package chatline

import (
	"errors"
	"testing"
)

func TestSessionLifecycle(t *testing.T) {
	s := newSession()
	if s.State() != SessionAnonymous {
		t.Fatalf("expected anonymous, got %s", s.State())
	}

	if _, err := s.beginRegistration("alice"); err != nil {
		t.Fatalf("begin registration: %v", err)
	}
	if s.State() != SessionPending {
		t.Fatalf("expected pending, got %s", s.State())
	}
	if _, ok := s.Identity(); ok {
		t.Fatalf("identity must not be available before confirmation")
	}

	if !s.confirm("conn-1") {
		t.Fatalf("expected confirm to transition")
	}
	ident, ok := s.Identity()
	if !ok || ident.Name != "alice" || ident.ID != "conn-1" {
		t.Fatalf("unexpected identity: %+v (ok=%v)", ident, ok)
	}

	s.reset()
	if s.State() != SessionAnonymous {
		t.Fatalf("expected anonymous after reset, got %s", s.State())
	}
	if _, ok := s.Identity(); ok {
		t.Fatalf("identity must be cleared by reset")
	}
}

func TestSessionRejectsEmptyName(t *testing.T) {
	s := newSession()
	_, err := s.beginRegistration("")
	if !errors.Is(err, NewError(ErrorInvalidIdentity, "")) {
		t.Fatalf("expected invalid_identity, got %v", err)
	}
	if s.State() != SessionAnonymous {
		t.Fatalf("state must be unchanged, got %s", s.State())
	}
}

func TestSessionDuplicateSubmit(t *testing.T) {
	s := newSession()
	if _, err := s.beginRegistration("alice"); err != nil {
		t.Fatalf("begin registration: %v", err)
	}
	if _, err := s.beginRegistration("alice"); CodeOf(err) != ErrorAlreadyPending {
		t.Fatalf("expected already_pending, got %v", err)
	}

	s.confirm("conn-1")
	if _, err := s.beginRegistration("bob"); CodeOf(err) != ErrorAlreadyPending {
		t.Fatalf("expected already_pending while active, got %v", err)
	}
}

func TestSessionDuplicateConfirm(t *testing.T) {
	s := newSession()
	if s.confirm("conn-1") {
		t.Fatalf("confirm without pending registration must be a no-op")
	}

	_, _ = s.beginRegistration("alice")
	if !s.confirm("conn-1") {
		t.Fatalf("first confirm must transition")
	}
	if s.confirm("conn-2") {
		t.Fatalf("duplicate confirm must be a no-op")
	}
	ident, _ := s.Identity()
	if ident.ID != "conn-1" {
		t.Fatalf("duplicate confirm must not rebind identity: %+v", ident)
	}
}

func TestSessionExpireOnlyCurrentAttempt(t *testing.T) {
	s := newSession()
	attempt, _ := s.beginRegistration("alice")
	s.confirm("conn-1")

	if s.expire(attempt) {
		t.Fatalf("expire must not fire after confirmation")
	}
	if s.State() != SessionActive {
		t.Fatalf("expected active, got %s", s.State())
	}
}

func TestSessionExpireRevertsPending(t *testing.T) {
	s := newSession()
	attempt, _ := s.beginRegistration("alice")
	if !s.expire(attempt) {
		t.Fatalf("expire must fire while pending")
	}
	if s.State() != SessionAnonymous {
		t.Fatalf("expected anonymous, got %s", s.State())
	}

	// A fresh login attempt works after an expiry.
	if _, err := s.beginRegistration("alice"); err != nil {
		t.Fatalf("begin after expire: %v", err)
	}
}
