// Package coordinator implements the Execution Coordinator: the 7-step
// flow that turns (session_id, language, code, attached files, timeout)
// into a captured execution result plus any files the program produced
// (spec.md §4.D).
package coordinator

import (
	"context"
	"time"

	"sandboxcore/internal/apierr"
	"sandboxcore/internal/logging"
	"sandboxcore/internal/metrics"
	"sandboxcore/internal/pool"
	"sandboxcore/internal/runtime"
	"sandboxcore/internal/session"
)

// Status is an execution's terminal state.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
)

// Request is one execution request.
type Request struct {
	SessionID       string
	Language        string
	Code            string
	AttachedFileIDs []string
	Timeout         time.Duration
	ReplMode        bool

	// CreateSessionIfMissing lets the caller stand up a session inline
	// when SessionID does not already exist, instead of failing
	// SessionNotFound (spec.md §4.D step 1).
	CreateSessionIfMissing bool
	SessionTTL             time.Duration
}

// OutputFile is one harvested file attached to the execution response.
type OutputFile struct {
	ID       string
	Filename string
	Size     int64
}

// Result is the Coordinator's ExecutionResult.
type Result struct {
	Status      Status
	ExitCode    int
	Stdout      []byte
	Stderr      []byte
	Files       []OutputFile
	PoolOrigin  string // "pool_hit" | "pool_miss"
	PartialFiles bool
	StartedAt   time.Time
	EndedAt     time.Time
}

// objectStore is the narrow surface the Coordinator needs from
// internal/objectstore.Client.
type objectStore interface {
	Fetch(ctx context.Context, id string) ([]byte, error)
	Put(ctx context.Context, id string, data []byte) error
}

// Coordinator wires together the Pool, Session Registry, and object
// store to run one execution end to end.
type Coordinator struct {
	pool     *pool.Pool
	sessions *session.Registry
	store    objectStore
	metrics  *metrics.Metrics
}

// New constructs a Coordinator. store only needs to satisfy the narrow
// objectStore surface above, so tests can substitute a fake without a
// real S3-compatible endpoint.
func New(p *pool.Pool, sessions *session.Registry, store objectStore) *Coordinator {
	return &Coordinator{pool: p, sessions: sessions, store: store, metrics: metrics.Get()}
}

const defaultWorkingDir = "/mnt/data"

// Execute runs the full acquire -> stage -> exec -> harvest -> release
// cycle for req.
func (c *Coordinator) Execute(ctx context.Context, req Request) (*Result, error) {
	c.metrics.ExecutionsInFlight.Inc()
	defer c.metrics.ExecutionsInFlight.Dec()

	sess, err := c.resolveSession(req)
	if err != nil {
		return nil, err
	}

	runner, ok := runnerFor(req.Language)
	if !ok {
		return nil, apierr.NewInputFileError(req.Language, nil)
	}

	sb, origin, err := c.pool.Acquire(ctx, req.Language, sess.ID, req.ReplMode)
	if err != nil {
		c.metrics.ExecutionsTotal.WithLabelValues(req.Language, "failed").Inc()
		return nil, apierr.NewSandboxUnavailable(err)
	}

	adapter := c.pool.Adapter()
	log := logging.Sandbox(sb.ID, sess.ID, req.Language)

	inbound, err := c.stageAttachedFiles(ctx, adapter, sb, sess, req.AttachedFileIDs)
	if err != nil {
		c.pool.Release(ctx, sb)
		c.metrics.ExecutionsTotal.WithLabelValues(req.Language, "failed").Inc()
		return nil, err
	}

	srcTar, err := runtime.BuildTarSingleFile(runner.Filename, []byte(req.Code), 0o644, time.Now().UTC())
	if err != nil {
		c.pool.Release(ctx, sb)
		return nil, apierr.NewInternalError(err)
	}
	if err := adapter.PutArchive(ctx, sb, defaultWorkingDir, srcTar); err != nil {
		c.pool.Release(ctx, sb)
		return nil, apierr.NewInternalError(err)
	}

	start := time.Now().UTC()
	execRes, execErr := adapter.Exec(ctx, sb, runner.Command, req.Timeout, defaultWorkingDir, nil)

	result := &Result{PoolOrigin: origin, StartedAt: start}

	if execErr != nil && apierr.KindOf(execErr) == apierr.Timeout {
		result.Status = StatusTimedOut
		if execRes != nil {
			result.Stdout, result.Stderr = execRes.Stdout, execRes.Stderr
		}
		result.EndedAt = time.Now().UTC()
		c.pool.Release(ctx, sb)
		c.metrics.ExecutionsTotal.WithLabelValues(req.Language, string(StatusTimedOut)).Inc()
		c.metrics.ExecutionDuration.WithLabelValues(req.Language).Observe(result.EndedAt.Sub(start).Seconds())
		_ = c.sessions.Touch(sess.ID)
		return result, nil
	}
	if execErr != nil {
		c.pool.Release(ctx, sb)
		c.metrics.ExecutionsTotal.WithLabelValues(req.Language, "failed").Inc()
		return nil, apierr.NewInternalError(execErr)
	}

	result.ExitCode = execRes.ExitCode
	result.Stdout = execRes.Stdout
	result.Stderr = execRes.Stderr
	result.Status = StatusCompleted
	result.EndedAt = time.Now().UTC()

	files, partial := c.harvestOutputs(ctx, adapter, sb, sess, start, inbound, log)
	result.Files = files
	result.PartialFiles = partial

	c.pool.Release(ctx, sb)
	_ = c.sessions.Touch(sess.ID)

	c.metrics.ExecutionsTotal.WithLabelValues(req.Language, string(StatusCompleted)).Inc()
	c.metrics.ExecutionDuration.WithLabelValues(req.Language).Observe(result.EndedAt.Sub(start).Seconds())

	return result, nil
}

func (c *Coordinator) resolveSession(req Request) (*session.Session, error) {
	sess, err := c.sessions.Get(req.SessionID)
	if err == nil {
		return sess, nil
	}
	if apierr.KindOf(err) == apierr.SessionNotFound && req.CreateSessionIfMissing {
		var expiresAt time.Time
		if req.SessionTTL > 0 {
			expiresAt = time.Now().UTC().Add(req.SessionTTL)
		}
		return c.sessions.Create(req.SessionID, expiresAt), nil
	}
	return nil, err
}
