// Package ownership re-owns mounted volume trees so the application user can
// write to them after the entrypoint drops privileges.
package ownership

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"habittracker/entrypoint/internal/sysuser"
)

type Fixer struct {
	cred sysuser.Credential
	log  *slog.Logger
}

func NewFixer(userName, groupName string, log *slog.Logger) (*Fixer, error) {
	cred, err := sysuser.Resolve(userName, groupName)
	if err != nil {
		return nil, fmt.Errorf("resolve ownership target: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Fixer{cred: cred, log: log}, nil
}

// FixPaths chowns every file under each path to the configured user and
// group. A path that does not exist is skipped: not every deployment mounts
// every volume. Any other failure is fatal.
func (f *Fixer) FixPaths(paths []string) error {
	for _, p := range paths {
		if _, err := os.Lstat(p); err != nil {
			if os.IsNotExist(err) {
				f.log.Info("ownership path does not exist, skipping", "path", p)
				continue
			}
			return fmt.Errorf("stat %s: %w", p, err)
		}
		if err := f.fixTree(p); err != nil {
			return err
		}
		f.log.Info("ownership fixed", "path", p, "uid", f.cred.UID, "gid", f.cred.GID)
	}
	return nil
}

func (f *Fixer) fixTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, err)
		}
		// Lchown so symlinks inside the volume cannot redirect the chown
		// outside of it.
		if err := os.Lchown(path, f.cred.UID, f.cred.GID); err != nil {
			return fmt.Errorf("chown %s: %w", path, err)
		}
		return nil
	})
}
