// Package mount implements the MOUNT v3 protocol for the single read-only
// export. MNT hands out the root file handle; the client registry behind
// DUMP is advisory bookkeeping, not access control.
package mount

import (
	"sync"

	"github.com/marmos91/mntfs/internal/protocol/rpc"
)

// Handler serves the MOUNT v3 procedures.
type Handler struct {
	exportPath string
	rootHandle []byte

	mu      sync.Mutex
	clients map[string][]string // hostname -> mounted directories
}

// NewHandler builds a Handler for one export.
func NewHandler(exportPath string, rootHandle []byte) *Handler {
	return &Handler{
		exportPath: exportPath,
		rootHandle: rootHandle,
		clients:    make(map[string][]string),
	}
}

// ExportPath returns the single exported directory path.
func (h *Handler) ExportPath() string {
	return h.exportPath
}

// AuthFlavors lists the flavors accepted on NFS calls, advertised in every
// successful MNT reply.
func (h *Handler) AuthFlavors() []uint32 {
	return []uint32{rpc.AuthNull, rpc.AuthUnix}
}

// registerClient records a successful MNT for DUMP.
func (h *Handler) registerClient(hostname, dirpath string) {
	if hostname == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, d := range h.clients[hostname] {
		if d == dirpath {
			return
		}
	}
	h.clients[hostname] = append(h.clients[hostname], dirpath)
}

// unregisterClient drops one directory for a hostname. An empty dirpath
// drops every directory the hostname has mounted.
func (h *Handler) unregisterClient(hostname, dirpath string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if dirpath == "" {
		delete(h.clients, hostname)
		return
	}

	dirs := h.clients[hostname]
	for i, d := range dirs {
		if d == dirpath {
			dirs = append(dirs[:i], dirs[i+1:]...)
			break
		}
	}
	if len(dirs) == 0 {
		delete(h.clients, hostname)
		return
	}
	h.clients[hostname] = dirs
}
