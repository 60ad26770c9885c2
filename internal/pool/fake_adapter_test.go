package pool

import (
	"context"
	"sync/atomic"
	"time"

	"sandboxcore/internal/apierr"
	"sandboxcore/internal/runtime"
)

// fakeAdapter is a minimal in-memory runtime.Adapter stand-in: no Docker
// daemon involved, every operation succeeds unless the test configures it
// otherwise.
type fakeAdapter struct {
	nextID int64

	resolveErr error
	createErr  error
	startErr   error
	execResult *runtime.ExecResult
	execErr    error
}

func (f *fakeAdapter) ResolveImage(ctx context.Context, language string) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return "sandboxcore/" + language + ":latest", nil
}

func (f *fakeAdapter) EnsureImage(ctx context.Context, ref string) error {
	return nil
}

func (f *fakeAdapter) Create(ctx context.Context, spec runtime.CreateSpec) (*runtime.Sandbox, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	id := atomic.AddInt64(&f.nextID, 1)
	labels := make(map[string]string, len(spec.Labels))
	for k, v := range spec.Labels {
		labels[k] = v
	}
	return &runtime.Sandbox{
		ID:        "fake-" + time.Now().Format("150405") + "-" + itoa(id),
		Name:      "fake",
		Language:  spec.Language,
		ImageRef:  spec.Image,
		Labels:    labels,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (f *fakeAdapter) Start(ctx context.Context, sb *runtime.Sandbox) error {
	return f.startErr
}

func (f *fakeAdapter) Exec(ctx context.Context, sb *runtime.Sandbox, command []string, timeout time.Duration, cwd string, stdin []byte) (*runtime.ExecResult, error) {
	if f.execErr != nil {
		return nil, f.execErr
	}
	if f.execResult != nil {
		return f.execResult, nil
	}
	return &runtime.ExecResult{ExitCode: 0}, nil
}

func (f *fakeAdapter) PutArchive(ctx context.Context, sb *runtime.Sandbox, destDir string, tarBytes []byte) error {
	return nil
}

func (f *fakeAdapter) GetArchive(ctx context.Context, sb *runtime.Sandbox, path string) ([]byte, error) {
	return nil, apierr.NewInternalError(nil)
}

func (f *fakeAdapter) Stop(ctx context.Context, sb *runtime.Sandbox, graceSeconds int) error {
	return nil
}

func (f *fakeAdapter) Remove(ctx context.Context, sb *runtime.Sandbox, force bool) error {
	return nil
}

func (f *fakeAdapter) ListByLabel(ctx context.Context, kv map[string]string) ([]*runtime.Sandbox, error) {
	return nil, nil
}

func (f *fakeAdapter) Stats(ctx context.Context, sb *runtime.Sandbox) (*runtime.Stats, error) {
	return &runtime.Stats{Ts: time.Now().UTC()}, nil
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
