package chatline

import "sync"

// session owns the login state machine and the local identity.
// Transitions: anonymous -> pending (beginRegistration), pending ->
// active (confirm), anything -> anonymous (reset, on disconnect).
//
// Every login gets an attempt number so that a confirmation timeout
// armed for one attempt can never expire a later one.
type session struct {
	mu          sync.Mutex
	state       SessionState
	identity    Identity
	pendingName string
	attempt     int
}

func newSession() *session {
	return &session{state: SessionAnonymous}
}

func (s *session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the confirmed identity. ok is false until the
// session is active.
func (s *session) Identity() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, s.state == SessionActive
}

// beginRegistration moves anonymous -> pending and records the name the
// registration request will carry. Exactly one registration is in
// flight per login: a second call while pending or active fails without
// side effects.
func (s *session) beginRegistration(name string) (int, error) {
	if name == "" {
		return 0, NewError(ErrorInvalidIdentity, "display name must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionAnonymous {
		return 0, NewError(ErrorAlreadyPending, "identity already submitted in state "+s.state.String())
	}
	s.state = SessionPending
	s.pendingName = name
	s.attempt++
	return s.attempt, nil
}

// confirm moves pending -> active and binds the identity to the
// connection token. It reports whether this call performed the
// transition; duplicate confirmations return false and change nothing.
func (s *session) confirm(connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionPending {
		return false
	}
	s.state = SessionActive
	s.identity = Identity{ID: connID, Name: s.pendingName}
	s.attempt++
	return true
}

// reset reverts to anonymous, forgetting any identity. Used on
// disconnect; a fresh login requires a new beginRegistration.
func (s *session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SessionAnonymous
	s.identity = Identity{}
	s.pendingName = ""
	s.attempt++
}

// expire reverts pending -> anonymous, but only if the given attempt is
// still the one in flight. It reports whether it fired.
func (s *session) expire(attempt int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionPending || s.attempt != attempt {
		return false
	}
	s.state = SessionAnonymous
	s.pendingName = ""
	s.attempt++
	return true
}
