package nfs

import (
	"context"

	"github.com/marmos91/mntfs/internal/logger"
)

// Null does nothing. RFC 1813 Section 3.3.0
func (h *Handler) Null(_ context.Context) ([]byte, error) {
	logger.Debug("NULL")
	return []byte{}, nil
}
