// Package proc provides the Linux mount-table provider backed by procfs.
//
// The resolver identifies the mount namespace of a process by the inode of
// /proc/<pid>/ns/mnt, and the table parses /proc/<pid>/mountinfo freshly on
// every walk. The kernel rewrites that file as mounts come and go, so two
// walks may observe different snapshots; that is exactly the liveness
// contract mtab.Table asks for.
package proc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/moby/sys/mountinfo"
	"golang.org/x/sys/unix"

	"github.com/marmos91/mntfs/pkg/mtab"
)

// DefaultPID selects the calling process's own namespace.
const DefaultPID = "self"

// namespace is a procfs mount namespace, identified by the inode of the
// ns/mnt magic link.
type namespace struct {
	inode uint64
}

func (n namespace) ID() uint64 {
	return n.inode
}

// dir renders a mount's root as the mount point path where it is reachable.
type dir struct {
	mountpoint string
}

func (d dir) Path() (string, error) {
	if d.mountpoint == "" {
		return "", errors.New("mount has no mount point")
	}
	return d.mountpoint, nil
}

// Resolver resolves the mount namespace of a procfs process entry.
type Resolver struct {
	pid string
}

// NewResolver builds a Resolver for the given procfs pid entry. An empty pid
// selects DefaultPID.
func NewResolver(pid string) *Resolver {
	if pid == "" {
		pid = DefaultPID
	}
	return &Resolver{pid: pid}
}

// Resolve stats /proc/<pid>/ns/mnt and uses its inode as the namespace
// identity. A process without a readable mount namespace (gone, or a kernel
// thread) reports ErrNoNamespace.
func (r *Resolver) Resolve(ctx context.Context) (mtab.Namespace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var st unix.Stat_t
	if err := unix.Stat(filepath.Join("/proc", r.pid, "ns", "mnt"), &st); err != nil {
		return nil, &mtab.Error{
			Code:    mtab.ErrNoNamespace,
			Message: fmt.Sprintf("no mount namespace for pid %s", r.pid),
		}
	}

	return namespace{inode: st.Ino}, nil
}

// Table enumerates mounts by parsing /proc/<pid>/mountinfo.
type Table struct {
	pid string

	// open is swapped in tests to parse canned mountinfo content.
	open func() (io.ReadCloser, error)
}

// NewTable builds a Table over the given procfs pid entry. An empty pid
// selects DefaultPID.
func NewTable(pid string) *Table {
	if pid == "" {
		pid = DefaultPID
	}
	t := &Table{pid: pid}
	t.open = func() (io.ReadCloser, error) {
		return os.Open(filepath.Join("/proc", t.pid, "mountinfo"))
	}
	return t
}

// Walk opens and parses the mountinfo file from scratch, then yields one
// record per parsed entry in file order. The namespace argument is only
// identity here: procfs scopes the file to the pid's namespace already.
func (t *Table) Walk(ctx context.Context, ns mtab.Namespace, fn func(mtab.Record) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := t.open()
	if err != nil {
		return &mtab.Error{
			Code:    mtab.ErrNoNamespace,
			Message: fmt.Sprintf("no mount table for pid %s", t.pid),
		}
	}
	defer f.Close()

	infos, err := mountinfo.GetMountsFromReader(f, nil)
	if err != nil {
		return fmt.Errorf("parse mountinfo for pid %s: %w", t.pid, err)
	}

	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.ID < 0 {
			continue
		}
		if !fn(mtab.Record{ID: uint64(info.ID), Root: dir{mountpoint: info.Mountpoint}}) {
			return nil
		}
	}
	return nil
}
