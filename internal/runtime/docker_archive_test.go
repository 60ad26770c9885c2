package runtime

import (
	"archive/tar"
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTar(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, content := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name, Size: int64(len(content)), Mode: 0o644, ModTime: time.Now().UTC(),
		}))
		_, err := tw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func TestExtractTarFiles_StripsDockerDirectoryCopyPrefix(t *testing.T) {
	tarBytes := buildTar(t, map[string][]byte{"data/result.txt": []byte("output")})

	entries, err := ExtractTarFiles(tarBytes, "/mnt/data")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "result.txt", entries[0].Name)
}

func TestExtractTarFiles_NestedEntryKeepsSubdirAfterPrefixStrip(t *testing.T) {
	tarBytes := buildTar(t, map[string][]byte{"data/sub/nested.txt": []byte("x")})

	entries, err := ExtractTarFiles(tarBytes, "/mnt/data")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sub/nested.txt", entries[0].Name)
}

func TestExtractTarFiles_SkipsDirectoryEntries(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "data/", Typeflag: tar.TypeDir, ModTime: time.Now().UTC()}))
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "data/file.txt", Size: 1, Mode: 0o644, ModTime: time.Now().UTC()}))
	_, err := tw.Write([]byte("a"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	entries, err := ExtractTarFiles(buf.Bytes(), "/mnt/data")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "file.txt", entries[0].Name)
}
