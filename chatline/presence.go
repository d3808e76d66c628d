package chatline

import (
	"context"
	"sync"
)

// RosterFetcher pulls the full online roster from the server. The REST
// client implements it; tests substitute an in-memory one.
type RosterFetcher interface {
	OnlineUsers(ctx context.Context) ([]User, error)
}

// presence holds the unfiltered roster of online users. Both refresh
// paths (the pull at login and the pull after a newConnection push)
// replace the snapshot wholesale; the server is the single source of
// truth for membership, so nothing is ever patched in locally.
type presence struct {
	mu    sync.Mutex
	users []User
}

func newPresence() *presence {
	return &presence{}
}

// Refresh pulls a fresh roster and replaces the snapshot. On failure
// the snapshot is left unchanged and the error is returned; there is no
// automatic retry.
func (p *presence) Refresh(ctx context.Context, fetcher RosterFetcher) error {
	users, err := fetcher.OnlineUsers(ctx)
	if err != nil {
		return WrapError(ErrorFetch, "refresh online users", err)
	}
	p.Replace(users)
	return nil
}

// Replace swaps in a full roster snapshot.
func (p *presence) Replace(users []User) {
	p.mu.Lock()
	p.users = append([]User(nil), users...)
	p.mu.Unlock()
}

// All returns a copy of the unfiltered roster.
func (p *presence) All() []User {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]User(nil), p.users...)
}

// InRoom returns the roster entries for one room.
func (p *presence) InRoom(room Room) []User {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []User
	for _, u := range p.users {
		if u.Room == room {
			out = append(out, u)
		}
	}
	return out
}

// Clear drops the snapshot, used when the connection goes away.
func (p *presence) Clear() {
	p.mu.Lock()
	p.users = nil
	p.mu.Unlock()
}
