package coordinator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sandboxcore/internal/logging"
	"sandboxcore/internal/runtime"
	"sandboxcore/internal/session"
)

// harvestOutputs enumerates the working directory after the run and
// treats every entry with mtime >= start OR not present in inbound as an
// output: it is fetched, stored, and registered against the session.
// Harvest errors are logged and skip that one file rather than failing
// the execution; any skip sets partial=true (spec.md §4.D step 5).
func (c *Coordinator) harvestOutputs(ctx context.Context, adapter runtime.Adapter, sb *runtime.Sandbox, sess *session.Session, start time.Time, inbound map[string]bool, log *zap.Logger) ([]OutputFile, bool) {
	tarBytes, err := adapter.GetArchive(ctx, sb, defaultWorkingDir)
	if err != nil {
		log.Warn("harvest: get_archive failed", logging.Err(err)...)
		return nil, true
	}

	entries, err := runtime.ExtractTarFiles(tarBytes, defaultWorkingDir)
	if err != nil {
		log.Warn("harvest: tar extract failed", logging.Err(err)...)
		return nil, true
	}

	var files []OutputFile
	partial := false

	for _, entry := range entries {
		if !isOutput(entry, start, inbound) {
			continue
		}

		id := uuid.NewString()
		if err := c.store.Put(ctx, id, entry.Content); err != nil {
			log.Warn("harvest: object store put failed", append([]zap.Field{zap.String("filename", entry.Name)}, logging.Err(err)...)...)
			partial = true
			continue
		}

		fi := session.FileInfo{
			ID:        id,
			Filename:  entry.Name,
			Size:      int64(len(entry.Content)),
			CreatedAt: time.Now().UTC(),
			Path:      defaultWorkingDir + "/" + entry.Name,
		}
		if err := c.sessions.RegisterFile(sess.ID, fi); err != nil {
			log.Warn("harvest: session registration failed", append([]zap.Field{zap.String("filename", entry.Name)}, logging.Err(err)...)...)
			partial = true
			continue
		}

		files = append(files, OutputFile{ID: id, Filename: entry.Name, Size: fi.Size})
	}

	return files, partial
}

func isOutput(entry runtime.TarEntry, start time.Time, inbound map[string]bool) bool {
	if !entry.ModTime.Before(start) {
		return true
	}
	return !inbound[entry.Name]
}
