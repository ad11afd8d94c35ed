package session

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("session not found")

// State is what a browser session remembers between actions: the uploaded
// file names, the extracted contract text and its chunks.
type State struct {
	Files        []string  `json:"files"`
	Pages        int       `json:"pages"`
	ContractText string    `json:"contract_text"`
	Chunks       []string  `json:"chunks"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Ready reports whether a contract has been processed for this session.
func (s State) Ready() bool { return len(s.Chunks) > 0 }

// Store keeps session state for a bounded time.
type Store interface {
	// Get returns ErrNotFound for unknown or expired sessions.
	Get(ctx context.Context, id string) (State, error)
	// Save replaces the state and restarts its TTL.
	Save(ctx context.Context, id string, state State) error
	Delete(ctx context.Context, id string) error
	Close() error
}
