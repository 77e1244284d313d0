// Package launcher hands the container over to its real workload: it drops
// root privileges and replaces the entrypoint's process image with the target
// command, argv intact.
package launcher

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"

	"habittracker/entrypoint/internal/sysuser"
)

type Launcher struct {
	userName  string
	groupName string
	log       *slog.Logger
}

func New(userName, groupName string, log *slog.Logger) *Launcher {
	if log == nil {
		log = slog.Default()
	}
	return &Launcher{userName: userName, groupName: groupName, log: log}
}

// Exec resolves argv[0] on PATH, drops to the configured user when running as
// root, and execs. On success it does not return; the returned error always
// means the handoff failed.
func (l *Launcher) Exec(argv []string) error {
	if len(argv) == 0 {
		return errors.New("no command to exec")
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return fmt.Errorf("look up %s: %w", argv[0], err)
	}

	if os.Getuid() == 0 {
		cred, err := sysuser.Resolve(l.userName, l.groupName)
		if err != nil {
			return fmt.Errorf("resolve run-as user: %w", err)
		}
		if err := dropPrivileges(cred); err != nil {
			return err
		}
		l.log.Info("dropped privileges", "user", l.userName, "uid", cred.UID, "gid", cred.GID)
	} else {
		l.log.Info("already running unprivileged, keeping current user", "uid", os.Getuid())
	}

	l.log.Info("handing off to main process", "path", path, "args", argv)
	if err := syscall.Exec(path, argv, os.Environ()); err != nil {
		return fmt.Errorf("exec %s: %w", path, err)
	}
	return nil
}

// dropPrivileges must shed the group first: once the uid changes we no longer
// have the right to call setgid.
func dropPrivileges(cred sysuser.Credential) error {
	if err := syscall.Setgroups([]int{cred.GID}); err != nil {
		return fmt.Errorf("setgroups %d: %w", cred.GID, err)
	}
	if err := syscall.Setgid(cred.GID); err != nil {
		return fmt.Errorf("setgid %d: %w", cred.GID, err)
	}
	if err := syscall.Setuid(cred.UID); err != nil {
		return fmt.Errorf("setuid %d: %w", cred.UID, err)
	}
	return nil
}
