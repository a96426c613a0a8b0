package session

import (
	"fmt"
	"time"
)

// DefaultUserID identifies runs that were not started on behalf of a user.
const DefaultUserID = "demo_user_123"

// Session groups the traces of one process run on the dashboard
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	StartTime time.Time `json:"start_time"`
	Tags      []string  `json:"tags,omitempty"`
}

// New creates a session that starts now
func New(userID string, tags ...string) *Session {
	return NewAt(time.Now(), userID, tags...)
}

// NewAt creates a session with an explicit start time
func NewAt(start time.Time, userID string, tags ...string) *Session {
	if userID == "" {
		userID = DefaultUserID
	}
	return &Session{
		ID:        fmt.Sprintf("session_%d", start.Unix()),
		UserID:    userID,
		StartTime: start,
		Tags:      tags,
	}
}
