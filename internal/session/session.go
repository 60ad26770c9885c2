// Package session is the Session Registry: an in-memory, map-backed
// store of logical sessions and the files attached to them. It is not
// durable — a separate persistence tier is an external collaborator
// that would consume a one-way stream of change events, which this
// package does not implement (spec.md §4.E).
package session

import (
	"sync"
	"time"

	"sandboxcore/internal/apierr"
)

// Status is a Session's lifecycle state.
type Status string

const (
	StatusActive     Status = "active"
	StatusIdle       Status = "idle"
	StatusTerminated Status = "terminated"
	StatusError      Status = "error"
)

// FileInfo describes one file attached to a session. Filename must
// already be in its sanitized form (internal/coordinator owns
// sanitization).
type FileInfo struct {
	ID        string
	Filename  string
	Size      int64
	MIME      string
	CreatedAt time.Time
	Path      string
}

// Session is the registry's unit of record.
type Session struct {
	ID           string
	Status       Status
	CreatedAt    time.Time
	LastActivity time.Time
	ExpiresAt    time.Time
	WorkingDir   string
	Files        map[string]FileInfo // keyed by filename
}

const defaultWorkingDir = "/mnt/data"

// Registry is the in-memory Session Registry.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

// New constructs a Registry whose sessions expire ttl after creation unless
// an explicit ExpiresAt is supplied at Create. Activity does not extend
// ExpiresAt.
func New(ttl time.Duration) *Registry {
	return &Registry{sessions: make(map[string]*Session), ttl: ttl}
}

// Create registers a new session, defaulting ExpiresAt to now+ttl when
// expiresAt is the zero value.
func (r *Registry) Create(id string, expiresAt time.Time) *Session {
	now := time.Now().UTC()
	if expiresAt.IsZero() {
		expiresAt = now.Add(r.ttl)
	}

	s := &Session{
		ID:           id,
		Status:       StatusActive,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    expiresAt,
		WorkingDir:   defaultWorkingDir,
		Files:        make(map[string]FileInfo),
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return s
}

// Get returns the session for id, or SessionNotFound.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, apierr.NewSessionNotFound(id)
	}
	return s, nil
}

// Touch updates last_activity to now. RegisterFile and ExpireIfDue set
// last_activity themselves under the same lock, so every mutation in this
// package bumps it.
func (r *Registry) Touch(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return apierr.NewSessionNotFound(id)
	}
	s.LastActivity = time.Now().UTC()
	return nil
}

// RegisterFile attaches fi to the session's file index, keyed by its
// (already sanitized) filename, and bumps last_activity.
func (r *Registry) RegisterFile(id string, fi FileInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return apierr.NewSessionNotFound(id)
	}
	s.Files[fi.Filename] = fi
	s.LastActivity = time.Now().UTC()
	return nil
}

// FindFileByID scans the session's file index for the file with the
// given ID, under the registry's read lock, so callers never range over
// a *Session's Files map while RegisterFile might be mutating it
// concurrently.
func (r *Registry) FindFileByID(id, fileID string) (FileInfo, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return FileInfo{}, false, apierr.NewSessionNotFound(id)
	}
	for _, fi := range s.Files {
		if fi.ID == fileID {
			return fi, true, nil
		}
	}
	return FileInfo{}, false, nil
}

// ListFiles returns every file attached to the session.
func (r *Registry) ListFiles(id string) ([]FileInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, apierr.NewSessionNotFound(id)
	}
	out := make([]FileInfo, 0, len(s.Files))
	for _, fi := range s.Files {
		out = append(out, fi)
	}
	return out, nil
}

// ExpireIfDue marks the session terminated if expires_at has passed,
// returning whether it did.
func (r *Registry) ExpireIfDue(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false, apierr.NewSessionNotFound(id)
	}
	now := time.Now().UTC()
	if now.After(s.ExpiresAt) {
		s.Status = StatusTerminated
		s.LastActivity = now
		return true, nil
	}
	return false, nil
}

// Reap terminates and removes every session past its expires_at. Intended
// to be driven by a periodic external reaper, mirroring the Sandbox
// Manager's cleanup_aged contract.
func (r *Registry) Reap() int {
	now := time.Now().UTC()
	var n int

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if now.After(s.ExpiresAt) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}
