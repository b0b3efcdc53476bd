// Package nfs implements the NFS v3 procedures over a mount table view.
//
// The filesystem is two levels deep: a root directory and one symlink per
// live mount. Nothing is writable; every mutating procedure answers ROFS
// without touching the view. Attributes are synthesized per request with
// current timestamps so clients cannot cache the directory past a mount or
// unmount.
package nfs

import (
	"github.com/marmos91/mntfs/pkg/metrics"
	"github.com/marmos91/mntfs/pkg/mtab"
	"github.com/marmos91/mntfs/pkg/mtab/cache"
)

// Handler serves the NFS v3 procedures.
type Handler struct {
	view    *mtab.View
	cache   *cache.EntryCache
	metrics metrics.NFSMetrics
}

// NewHandler builds a Handler over a view.
//
// The entry cache may be nil; lookups then always go to the view. A nil
// metrics sink selects the no-op implementation.
func NewHandler(view *mtab.View, entryCache *cache.EntryCache, m metrics.NFSMetrics) *Handler {
	if m == nil {
		m = metrics.NewNoopNFSMetrics()
	}
	return &Handler{
		view:    view,
		cache:   entryCache,
		metrics: m,
	}
}

// View returns the underlying mount table view.
func (h *Handler) View() *mtab.View {
	return h.view
}

// attrForEntry synthesizes attributes for an entry identifier.
func (h *Handler) attrForEntry(entryID uint64) *FileAttr {
	if h.view.Kind(entryID) == mtab.KindDirectory {
		return RootAttr(entryID)
	}
	return SymlinkAttr(entryID)
}
