package coordinator

import (
	"context"
	"time"

	"sandboxcore/internal/apierr"
	"sandboxcore/internal/runtime"
	"sandboxcore/internal/session"
)

// stageAttachedFiles fetches each attached file's bytes from the object
// store and writes it, sanitized, into the sandbox's working directory.
// Returns the set of sanitized filenames staged this way — the "inbound
// set" step 5 uses to tell output files from untouched input files.
func (c *Coordinator) stageAttachedFiles(ctx context.Context, adapter runtime.Adapter, sb *runtime.Sandbox, sess *session.Session, attachedIDs []string) (map[string]bool, error) {
	inbound := make(map[string]bool, len(attachedIDs))
	if len(attachedIDs) == 0 {
		return inbound, nil
	}

	for _, id := range attachedIDs {
		fi, ok, err := c.sessions.FindFileByID(sess.ID, id)
		if err != nil {
			return nil, apierr.NewInputFileError(id, err)
		}
		if !ok {
			return nil, apierr.NewInputFileError(id, nil)
		}

		data, err := c.store.Fetch(ctx, id)
		if err != nil {
			return nil, apierr.NewInputFileError(id, err)
		}

		name := SanitizeFilename(fi.Filename)
		tarBytes, err := runtime.BuildTarSingleFile(name, data, 0o644, time.Now().UTC())
		if err != nil {
			return nil, apierr.NewInputFileError(id, err)
		}
		if err := adapter.PutArchive(ctx, sb, defaultWorkingDir, tarBytes); err != nil {
			return nil, apierr.NewInputFileError(id, err)
		}

		inbound[name] = true
	}

	return inbound, nil
}
