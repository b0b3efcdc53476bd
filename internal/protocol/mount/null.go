package mount

import (
	"context"

	"github.com/marmos91/mntfs/internal/logger"
)

// Null does nothing. RFC 1813 Appendix I, procedure 0
func (h *Handler) Null(_ context.Context) ([]byte, error) {
	logger.Debug("MOUNT NULL")
	return []byte{}, nil
}
