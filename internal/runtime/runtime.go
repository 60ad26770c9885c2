// Package runtime is the Runtime Adapter: a thin, uniform surface over a
// container runtime (local Docker daemon today; a cluster pod API can
// satisfy the same interface without the Sandbox Manager or Pool knowing
// the difference).
package runtime

import (
	"context"
	"time"
)

// Sandbox is the runtime-level descriptor for one container. It carries
// only what the adapter itself produces — session/pool bookkeeping lives
// one layer up, in the Sandbox Manager and Pool.
type Sandbox struct {
	ID        string
	Name      string
	Language  string
	ImageRef  string
	Labels    map[string]string
	CreatedAt time.Time
}

// CreateSpec describes a sandbox creation request.
type CreateSpec struct {
	Image       string
	SessionID   string
	WorkingDir  string
	Env         map[string]string
	Language    string
	Hardening   Hardening
	Interactive bool
	Labels      map[string]string
	Command     []string // idle-loop command; the Sandbox Manager chooses it
}

// ExecResult is the outcome of one Exec call.
type ExecResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Stats is a point-in-time resource reading for a sandbox.
type Stats struct {
	MemMB      float64
	MemLimitMB float64
	CPUPercent float64
	Ts         time.Time
}

// Adapter is the uniform capability surface every backend (local Docker
// daemon, cluster pod API) must implement. All operations are suspension
// points and must honor ctx cancellation/deadlines.
type Adapter interface {
	// ResolveImage tries {configured, local-build prefix, public-registry
	// prefix} in order, deduplicated, and returns the first ref the
	// runtime can locate. Fails with apierr ImageUnavailable(tried) if
	// none resolve.
	ResolveImage(ctx context.Context, language string) (string, error)

	// EnsureImage inspects ref locally and pulls it if missing. The
	// Sandbox Manager calls this against the ref ResolveImage returned,
	// before Create, so a cold daemon can still serve a language it has
	// never run before.
	EnsureImage(ctx context.Context, ref string) error

	// Create produces a named, not-yet-started sandbox.
	Create(ctx context.Context, spec CreateSpec) (*Sandbox, error)

	// Start starts the sandbox and polls until three consecutive
	// "running" reads are observed within 2s (50ms interval), or fails.
	Start(ctx context.Context, sb *Sandbox) error

	// Exec streams combined stdout/stderr of command until exit or
	// timeout. On timeout the caller must destroy the sandbox.
	Exec(ctx context.Context, sb *Sandbox, command []string, timeout time.Duration, cwd string, stdin []byte) (*ExecResult, error)

	// PutArchive streams a tar archive into destDir without touching the
	// host filesystem.
	PutArchive(ctx context.Context, sb *Sandbox, destDir string, tarBytes []byte) error

	// GetArchive streams a tar archive out of path.
	GetArchive(ctx context.Context, sb *Sandbox, path string) ([]byte, error)

	// Stop gracefully stops the sandbox within graceSeconds.
	Stop(ctx context.Context, sb *Sandbox, graceSeconds int) error

	// Remove force-removes the sandbox.
	Remove(ctx context.Context, sb *Sandbox, force bool) error

	// ListByLabel returns every sandbox whose labels are a superset of kv.
	ListByLabel(ctx context.Context, kv map[string]string) ([]*Sandbox, error)

	// Stats returns a point-in-time resource reading.
	Stats(ctx context.Context, sb *Sandbox) (*Stats, error)
}
