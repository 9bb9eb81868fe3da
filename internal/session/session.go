package session

import "time"

// Phase identifies the step of the try-on conversation for a single user.
type Phase string

const (
	// PhaseIdle indicates there is no active try-on cycle with the user.
	PhaseIdle Phase = "idle"
	// PhaseAwaitingGarment means the person photo is stored and the garment
	// photo is expected next.
	PhaseAwaitingGarment Phase = "awaiting_garment"
	// PhaseProcessing means both photos are collected and inference is running.
	PhaseProcessing Phase = "processing"
)

// Session stores the state of one try-on cycle for a user. A cycle begins
// when the person photo arrives and ends when the result (or an error) has
// been delivered.
type Session struct {
	UserID      int64
	CycleID     string
	Dir         string
	PersonPath  string
	GarmentPath string
	Phase       Phase
	StartedAt   time.Time
}

// Store keeps per-user sessions. Implementations must be safe for
// concurrent use: photo updates for different users arrive in parallel.
type Store interface {
	// Get returns the session for a user and whether one exists.
	Get(userID int64) (Session, bool)
	// Put stores or replaces the session for its UserID.
	Put(s Session)
	// Phase returns the current phase, PhaseIdle when no session exists.
	Phase(userID int64) Phase
	// Delete removes the session for a user. Deleting a missing session is a no-op.
	Delete(userID int64)

	// TryAcquire marks the user as busy for the duration of a photo handling
	// step. It returns false when another update for the same user is already
	// in flight, in which case the caller must not touch the session.
	TryAcquire(userID int64) bool
	// Release clears the busy mark set by TryAcquire.
	Release(userID int64)
}
