// Package sandbox is the Sandbox Manager: the policy layer above the
// Runtime Adapter. It owns hardening, image resolution, resource ceilings,
// session labeling, and batched destruction.
package sandbox

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"sandboxcore/internal/apierr"
	"sandboxcore/internal/config"
	"sandboxcore/internal/logging"
	"sandboxcore/internal/runtime"
)

// idleCommandOverrides names the images whose entrypoint has no `tail`
// binary and therefore needs a shell loop instead of the default idle
// command (original_source/services/container/manager.py).
var idleCommandOverrides = map[string][]string{
	"scratch": {"/busybox", "sh", "-c", "while true; do sleep 3600; done"},
}

func idleCommandFor(image string) []string {
	if cmd, ok := idleCommandOverrides[image]; ok {
		return cmd
	}
	return []string{"tail", "-f", "/dev/null"}
}

// Manager is the Sandbox Manager.
type Manager struct {
	adapter runtime.Adapter
	cfg     config.SandboxConfig
	rcfg    config.RuntimeConfig
}

// New constructs a Sandbox Manager over adapter.
func New(adapter runtime.Adapter, cfg config.SandboxConfig, rcfg config.RuntimeConfig) *Manager {
	return &Manager{adapter: adapter, cfg: cfg, rcfg: rcfg}
}

// hardening builds the Hardening bundle injected into every Create call.
func (m *Manager) hardening() (runtime.Hardening, error) {
	profile := runtime.DefaultSeccompProfile()
	if m.rcfg.SeccompProfile != "" {
		raw, err := os.ReadFile(m.rcfg.SeccompProfile)
		if err != nil {
			return runtime.Hardening{}, apierr.NewInternalError(err)
		}
		profile = raw
	}
	return runtime.Hardening{
		Enabled:        m.cfg.EnableHardening,
		SeccompProfile: profile,
		MaxMemoryMB:    m.cfg.MaxMemoryMB,
		MaxCPUs:        m.cfg.MaxCPUs,
		MaxPids:        m.cfg.MaxPids,
		MaxOpenFiles:   m.cfg.MaxOpenFiles,
		WANEnabled:     m.cfg.EnableWAN,
		WANNetwork:     m.rcfg.WANNetworkName,
		WANDNSServers:  m.rcfg.WANDNSServers,
		Hostname:       m.rcfg.Hostname,
	}, nil
}

// CreateForSession resolves an image for language, then creates and starts
// a sandbox labeled for sessionID (spec.md §4.B).
func (m *Manager) CreateForSession(ctx context.Context, language, sessionID string, replMode bool) (*runtime.Sandbox, error) {
	imageRef, err := m.adapter.ResolveImage(ctx, language)
	if err != nil {
		return nil, err
	}
	if err := m.adapter.EnsureImage(ctx, imageRef); err != nil {
		return nil, err
	}

	createdAt := time.Now().UTC()
	labels := runtime.Labels(sessionID, language, createdAt.Format(time.RFC3339), replMode, m.cfg.EnableWAN)

	env := map[string]string{}
	if replMode {
		env["REPL_MODE"] = "true"
	}

	hardening, err := m.hardening()
	if err != nil {
		return nil, err
	}

	spec := runtime.CreateSpec{
		Image:      imageRef,
		SessionID:  sessionID,
		WorkingDir: runtime.WorkingDir,
		Env:        env,
		Language:   language,
		Hardening:  hardening,
		Labels:     labels,
		Command:    idleCommandFor(imageRef),
	}

	sb, err := m.adapter.Create(ctx, spec)
	if err != nil {
		return nil, err
	}

	if err := m.adapter.Start(ctx, sb); err != nil {
		_ = m.adapter.Remove(context.Background(), sb, true)
		return nil, err
	}

	return sb, nil
}

// BatchDestroy partitions list into chunks of chunkSize, force-removes each
// chunk concurrently within a 30s per-chunk timeout, and returns the count
// of successful removals. Idempotent: a second call against already-gone
// sandboxes returns 0, not an error.
func (m *Manager) BatchDestroy(ctx context.Context, list []*runtime.Sandbox, chunkSize int) int {
	if chunkSize <= 0 {
		chunkSize = 50
	}

	var destroyed int64
	for start := 0; start < len(list); start += chunkSize {
		end := start + chunkSize
		if end > len(list) {
			end = len(list)
		}
		chunk := list[start:end]

		chunkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		var wg sync.WaitGroup
		for _, sb := range chunk {
			wg.Add(1)
			go func(sb *runtime.Sandbox) {
				defer wg.Done()
				if err := m.adapter.Remove(chunkCtx, sb, true); err != nil {
					logging.Sandbox(sb.ID, sb.Labels["session-id"], sb.Language).
						Warn("batch_destroy: remove failed", logging.Err(err)...)
					return
				}
				atomic.AddInt64(&destroyed, 1)
			}(sb)
		}
		wg.Wait()
		cancel()
	}

	return int(destroyed)
}

// AgeMinutes reports how long ago sb was created: it prefers the
// `created-at` label, falling back to the runtime's own creation
// timestamp; returns (0, false) if neither is parseable.
func (m *Manager) AgeMinutes(sb *runtime.Sandbox) (float64, bool) {
	if raw, ok := sb.Labels["created-at"]; ok && raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return time.Since(t).Minutes(), true
		}
	}
	if !sb.CreatedAt.IsZero() {
		return time.Since(sb.CreatedAt).Minutes(), true
	}
	return 0, false
}

// CleanupBySession force-removes every sandbox labeled with sessionID.
// Safe to call concurrently and idempotent.
func (m *Manager) CleanupBySession(ctx context.Context, sessionID string) int {
	sbs, err := m.adapter.ListByLabel(ctx, map[string]string{
		"managed":    "true",
		"session-id": sessionID,
	})
	if err != nil {
		logging.L().Warn("cleanup_by_session: list failed", logging.Err(err)...)
		return 0
	}
	return m.BatchDestroy(ctx, sbs, 50)
}

// CleanupAged force-removes every managed sandbox older than maxAgeMin.
// Safe to call concurrently and idempotent; reapers never raise, they log
// and continue (spec.md §7).
func (m *Manager) CleanupAged(ctx context.Context, maxAgeMin float64) int {
	sbs, err := m.adapter.ListByLabel(ctx, map[string]string{"managed": "true"})
	if err != nil {
		logging.L().Warn("cleanup_aged: list failed", logging.Err(err)...)
		return 0
	}

	var stale []*runtime.Sandbox
	for _, sb := range sbs {
		age, ok := m.AgeMinutes(sb)
		if ok && age >= maxAgeMin {
			stale = append(stale, sb)
		}
	}
	return m.BatchDestroy(ctx, stale, 50)
}
