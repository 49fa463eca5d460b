package internal

import (
	"context"
	"sync"
)

// ConnectionState reports where a ConnectionManager is in its lifecycle.
type ConnectionState int

const (
	// StateIdle means no connection attempt has finished yet.
	StateIdle ConnectionState = iota
	// StateReady means a connection attempt succeeded. Ready is final.
	StateReady
	// StateFailed means the last attempt failed. The next Initialize tries again.
	StateFailed
)

func (s ConnectionState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// ConnectionManager runs a client's connect step until it succeeds once.
// Concurrent callers share one attempt at a time; a success is remembered and a
// failure is returned only to the callers of that attempt.
type ConnectionManager struct {
	initMu sync.Mutex // serializes attempts

	mu    sync.RWMutex
	state ConnectionState
}

// NewConnectionManager creates a ConnectionManager in StateIdle.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{}
}

// Initialize runs fn unless an earlier run succeeded. Callers that arrive while
// fn runs wait for it, then return nil if it succeeded or make their own attempt
// with their own context if it failed.
func (cm *ConnectionManager) Initialize(ctx context.Context, fn func(context.Context) error) error {
	if cm.State() == StateReady {
		return nil
	}

	cm.initMu.Lock()
	defer cm.initMu.Unlock()

	if cm.State() == StateReady {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := fn(ctx)

	cm.mu.Lock()
	defer cm.mu.Unlock()
	if err != nil {
		cm.state = StateFailed
		return err
	}
	cm.state = StateReady
	return nil
}

// State returns the current state without triggering a connection.
func (cm *ConnectionManager) State() ConnectionState {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.state
}
