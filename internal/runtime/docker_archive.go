package runtime

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"

	"sandboxcore/internal/apierr"
)

// PutArchive implements Adapter.PutArchive: streams a tar archive into
// destDir without touching the host filesystem.
func (d *DockerAdapter) PutArchive(ctx context.Context, sb *Sandbox, destDir string, tarBytes []byte) error {
	err := d.cli.CopyToContainer(ctx, sb.ID, destDir, bytes.NewReader(tarBytes), container.CopyToContainerOptions{})
	if err != nil {
		return apierr.NewInternalError(err)
	}
	return nil
}

// GetArchive implements Adapter.GetArchive.
func (d *DockerAdapter) GetArchive(ctx context.Context, sb *Sandbox, path string) ([]byte, error) {
	rc, _, err := d.cli.CopyFromContainer(ctx, sb.ID, path)
	if err != nil {
		return nil, apierr.NewInternalError(err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, apierr.NewInternalError(err)
	}
	return data, nil
}

// BuildTarSingleFile packages one file into a tar archive suitable for
// PutArchive, matching the in-memory construction the original
// implementation uses (no disk temp files).
func BuildTarSingleFile(name string, content []byte, mode int64, modTime time.Time) ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	hdr := &tar.Header{
		Name:    name,
		Mode:    mode,
		Size:    int64(len(content)),
		ModTime: modTime,
	}
	if hdr.Mode == 0 {
		hdr.Mode = 0o644
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return nil, err
	}
	if _, err := tw.Write(content); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TarEntry is one regular file extracted from a tar archive.
type TarEntry struct {
	Name    string
	Content []byte
	ModTime time.Time
}

// ExtractTarFiles parses a tar archive (as returned by GetArchive against
// dirPath via CopyFromContainer) into its regular-file entries, skipping
// directories and non-regular entries. Docker's directory-level copy
// prefixes every entry name with the last path component of dirPath (e.g.
// a copy of "/mnt/data" yields "data/result.txt"); that prefix is stripped
// so Name matches the bare, sanitized filenames used everywhere else
// (internal/coordinator/stage.go's inbound set, internal/session.FileInfo).
func ExtractTarFiles(tarBytes []byte, dirPath string) ([]TarEntry, error) {
	tr := tar.NewReader(bytes.NewReader(tarBytes))
	var out []TarEntry

	prefix := path.Base(dirPath) + "/"

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apierr.NewInternalError(err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, apierr.NewInternalError(err)
		}
		name := strings.TrimPrefix(hdr.Name, prefix)
		out = append(out, TarEntry{Name: name, Content: content, ModTime: hdr.ModTime})
	}
	return out, nil
}
