package coordinator

import (
	"context"
	"sync/atomic"
	"time"

	"sandboxcore/internal/apierr"
	"sandboxcore/internal/runtime"
)

// fakeAdapter is a minimal in-memory runtime.Adapter stand-in shared by
// this package's Coordinator tests. Exec records what it was given and
// replays a configured result; GetArchive replays a configured tar.
type fakeAdapter struct {
	nextID int64

	execErr    error
	execResult *runtime.ExecResult
	lastCmd    []string

	archiveOut []byte
	archiveErr error

	putArchiveCalls int
}

func (f *fakeAdapter) ResolveImage(ctx context.Context, language string) (string, error) {
	return "sandboxcore/" + language + ":latest", nil
}

func (f *fakeAdapter) EnsureImage(ctx context.Context, ref string) error { return nil }

func (f *fakeAdapter) Create(ctx context.Context, spec runtime.CreateSpec) (*runtime.Sandbox, error) {
	id := atomic.AddInt64(&f.nextID, 1)
	labels := make(map[string]string, len(spec.Labels))
	for k, v := range spec.Labels {
		labels[k] = v
	}
	return &runtime.Sandbox{
		ID: "fake-" + time.Now().Format("150405") + "-" + itoa(id), Language: spec.Language,
		ImageRef: spec.Image, Labels: labels, CreatedAt: time.Now().UTC(),
	}, nil
}

func (f *fakeAdapter) Start(ctx context.Context, sb *runtime.Sandbox) error { return nil }

func (f *fakeAdapter) Exec(ctx context.Context, sb *runtime.Sandbox, command []string, timeout time.Duration, cwd string, stdin []byte) (*runtime.ExecResult, error) {
	f.lastCmd = command
	if f.execErr != nil {
		return f.execResult, f.execErr
	}
	if f.execResult != nil {
		return f.execResult, nil
	}
	return &runtime.ExecResult{ExitCode: 0}, nil
}

func (f *fakeAdapter) PutArchive(ctx context.Context, sb *runtime.Sandbox, destDir string, tarBytes []byte) error {
	f.putArchiveCalls++
	return nil
}

func (f *fakeAdapter) GetArchive(ctx context.Context, sb *runtime.Sandbox, path string) ([]byte, error) {
	if f.archiveErr != nil {
		return nil, f.archiveErr
	}
	return f.archiveOut, nil
}

func (f *fakeAdapter) Stop(ctx context.Context, sb *runtime.Sandbox, graceSeconds int) error { return nil }

func (f *fakeAdapter) Remove(ctx context.Context, sb *runtime.Sandbox, force bool) error { return nil }

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
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// fakeObjectStore is an in-memory stand-in for internal/objectstore.Client,
// satisfying the Coordinator's narrow objectStore interface.
type fakeObjectStore struct {
	data map[string][]byte
}

func newFakeObjectStore() *fakeObjectStore { return &fakeObjectStore{data: map[string][]byte{}} }

func (f *fakeObjectStore) Fetch(ctx context.Context, id string) ([]byte, error) {
	d, ok := f.data[id]
	if !ok {
		return nil, apierr.NewInputFileError(id, nil)
	}
	return d, nil
}

func (f *fakeObjectStore) Put(ctx context.Context, id string, data []byte) error {
	f.data[id] = data
	return nil
}
