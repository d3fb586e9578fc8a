package poll

import (
	"sync"
	"time"

	"relay-service/internal/observability"
)

// Session is one client's polling state for one room. A client is Polling
// while its polls keep arriving within the TTL and falls back to Disconnected
// when the sweeper reaps it; nothing is lost either way, the cursor lives
// with the client.
type Session struct {
	UserID   string
	RoomID   string
	Cursor   string
	LastSeen time.Time
}

// Tracker records active polling sessions so the gateway can expose poller
// counts and reap idle clients. It is bookkeeping only: poll responses never
// depend on tracker state.
type Tracker struct {
	sessions map[string]Session
	expiry   time.Duration
	mu       sync.RWMutex
	done     chan struct{}
}

// NewTracker creates a Tracker reaping sessions idle longer than expiry.
func NewTracker(expiry time.Duration) *Tracker {
	if expiry <= 0 {
		expiry = time.Minute
	}
	return &Tracker{
		sessions: make(map[string]Session),
		expiry:   expiry,
		done:     make(chan struct{}),
	}
}

// Touch records a poll from the given user in the given room.
func (t *Tracker) Touch(userID, roomID, cursor string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[userID+"/"+roomID] = Session{
		UserID:   userID,
		RoomID:   roomID,
		Cursor:   cursor,
		LastSeen: time.Now(),
	}
	observability.SetActivePollSessions(len(t.sessions))
}

// Active returns the number of live sessions.
func (t *Tracker) Active() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// ActiveInRoom returns the number of live sessions polling a room.
func (t *Tracker) ActiveInRoom(roomID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	count := 0
	for _, s := range t.sessions {
		if s.RoomID == roomID {
			count++
		}
	}
	return count
}

// Sweep removes sessions idle past the expiry and returns how many were
// reaped.
func (t *Tracker) Sweep() int {
	deadline := time.Now().Add(-t.expiry)
	t.mu.Lock()
	defer t.mu.Unlock()
	reaped := 0
	for key, s := range t.sessions {
		if s.LastSeen.Before(deadline) {
			delete(t.sessions, key)
			reaped++
		}
	}
	observability.SetActivePollSessions(len(t.sessions))
	return reaped
}

// Run sweeps periodically until Stop.
func (t *Tracker) Run() {
	ticker := time.NewTicker(t.expiry)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.Sweep()
		case <-t.done:
			return
		}
	}
}

// Stop terminates the sweep loop.
func (t *Tracker) Stop() {
	close(t.done)
}
