package sandbox

import (
	"context"
	"sync/atomic"
	"time"

	"sandboxcore/internal/runtime"
)

type fakeAdapter struct {
	nextID      int64
	createErr   error
	startErr    error
	removeErr   error
	removeCalls int32
	listResult  []*runtime.Sandbox
	listErr     error
}

func (f *fakeAdapter) ResolveImage(ctx context.Context, language string) (string, error) {
	return "sandboxcore/" + language + ":latest", nil
}

func (f *fakeAdapter) EnsureImage(ctx context.Context, ref string) error { return nil }

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
		ID: "fake-" + itoa(id), Language: spec.Language, ImageRef: spec.Image,
		Labels: labels, CreatedAt: time.Now().UTC(),
	}, nil
}

func (f *fakeAdapter) Start(ctx context.Context, sb *runtime.Sandbox) error { return f.startErr }

func (f *fakeAdapter) Exec(ctx context.Context, sb *runtime.Sandbox, command []string, timeout time.Duration, cwd string, stdin []byte) (*runtime.ExecResult, error) {
	return &runtime.ExecResult{ExitCode: 0}, nil
}

func (f *fakeAdapter) PutArchive(ctx context.Context, sb *runtime.Sandbox, destDir string, tarBytes []byte) error {
	return nil
}

func (f *fakeAdapter) GetArchive(ctx context.Context, sb *runtime.Sandbox, path string) ([]byte, error) {
	return nil, nil
}

func (f *fakeAdapter) Stop(ctx context.Context, sb *runtime.Sandbox, graceSeconds int) error {
	return nil
}

func (f *fakeAdapter) Remove(ctx context.Context, sb *runtime.Sandbox, force bool) error {
	atomic.AddInt32(&f.removeCalls, 1)
	return f.removeErr
}

func (f *fakeAdapter) ListByLabel(ctx context.Context, kv map[string]string) ([]*runtime.Sandbox, error) {
	return f.listResult, f.listErr
}

func (f *fakeAdapter) Stats(ctx context.Context, sb *runtime.Sandbox) (*runtime.Stats, error) {
	return &runtime.Stats{Ts: time.Now().UTC()}, nil
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
