package mount

import (
	"context"

	"github.com/marmos91/mntfs/internal/logger"
)

// UmntRequest represents a UMNT request
type UmntRequest struct {
	Dirpath  string
	Hostname string
}

// Umnt removes one registry entry for the caller. Always succeeds; the
// registry is advisory and an unknown path is not an error.
// RFC 1813 Appendix I, procedure 3
func (h *Handler) Umnt(_ context.Context, req *UmntRequest) ([]byte, error) {
	logger.Debug("UMNT for path '%s' from '%s'", req.Dirpath, req.Hostname)

	h.unregisterClient(req.Hostname, req.Dirpath)
	return []byte{}, nil
}

func DecodeUmntRequest(data []byte) (*UmntRequest, error) {
	req, err := DecodeMntRequest(data)
	if err != nil {
		return nil, err
	}
	return &UmntRequest{Dirpath: req.Dirpath}, nil
}
