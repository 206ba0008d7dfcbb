package output

import (
	"fmt"
	"io"

	"github.com/google/renameio/v2"
)

// Stdout is the path meaning "write to the process's standard output".
const Stdout = "-"

// Write puts data at path. Files are replaced atomically so a failed run
// never leaves a truncated template behind.
func Write(path string, data []byte, stdout io.Writer) error {
	if path == Stdout {
		if _, err := stdout.Write(data); err != nil {
			return fmt.Errorf("stdout.Write: %w", err)
		}
		return nil
	}

	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("renameio.NewPendingFile(%s): %w", path, err)
	}
	defer func() {
		_ = pendingFile.Cleanup()
	}()

	if _, err = pendingFile.Write(data); err != nil {
		return fmt.Errorf("pendingFile.Write: %w", err)
	}
	if err = pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("pendingFile.CloseAtomicallyReplace: %w", err)
	}
	return nil
}
