package mount

import (
	"context"

	"github.com/marmos91/mntfs/internal/logger"
)

// UmntAll drops every registry entry for the caller.
// RFC 1813 Appendix I, procedure 4
func (h *Handler) UmntAll(_ context.Context, hostname string) ([]byte, error) {
	logger.Debug("UMNTALL from '%s'", hostname)

	h.unregisterClient(hostname, "")
	return []byte{}, nil
}
