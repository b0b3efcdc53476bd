package mount

import (
	"bytes"
	"context"
	"encoding/binary"

	"github.com/marmos91/mntfs/internal/logger"
)

// ExportResponse represents an EXPORT response
type ExportResponse struct {
	Dirs []string
}

// Export lists the exported directories. There is exactly one, open to
// every group.
// RFC 1813 Appendix I, procedure 5
func (h *Handler) Export(_ context.Context) (*ExportResponse, error) {
	logger.Debug("EXPORT")

	return &ExportResponse{Dirs: []string{h.exportPath}}, nil
}

func (resp *ExportResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer

	for _, dir := range resp.Dirs {
		// value_follows = TRUE
		if err := binary.Write(&buf, binary.BigEndian, uint32(1)); err != nil {
			return nil, err
		}
		if err := writeMountString(&buf, dir); err != nil {
			return nil, err
		}
		// empty group list
		if err := binary.Write(&buf, binary.BigEndian, uint32(0)); err != nil {
			return nil, err
		}
	}

	// value_follows = FALSE terminates the list
	if err := binary.Write(&buf, binary.BigEndian, uint32(0)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
