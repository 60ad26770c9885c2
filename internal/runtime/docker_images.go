package runtime

import (
	"context"
	"io"

	"github.com/docker/docker/api/types/image"

	"sandboxcore/internal/apierr"
)

// EnsureImage inspects ref locally and pulls it if missing. ResolveImage
// only locates images already present; EnsureImage is the explicit pull
// step Manager.CreateForSession runs on the resolved ref before every
// Create, on warmup and on-demand creation alike.
func (d *DockerAdapter) EnsureImage(ctx context.Context, ref string) error {
	if _, _, err := d.cli.ImageInspectWithRaw(ctx, ref); err == nil {
		return nil
	}

	rc, err := d.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return apierr.NewImageUnavailable([]string{ref})
	}
	defer rc.Close()
	_, _ = io.Copy(io.Discard, rc)
	return nil
}
