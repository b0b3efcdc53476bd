package mount

import (
	"bytes"
	"context"
	"encoding/binary"
	"sort"

	"github.com/marmos91/mntfs/internal/logger"
)

// MountBody is one entry in a DUMP response.
type MountBody struct {
	Hostname string
	Dirpath  string
}

// DumpResponse represents a DUMP response
type DumpResponse struct {
	Mounts []MountBody
}

// Dump lists clients that mounted the export and have not unmounted.
// RFC 1813 Appendix I, procedure 2
func (h *Handler) Dump(_ context.Context) (*DumpResponse, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	mounts := make([]MountBody, 0, len(h.clients))
	for hostname, dirs := range h.clients {
		for _, dir := range dirs {
			mounts = append(mounts, MountBody{Hostname: hostname, Dirpath: dir})
		}
	}
	sort.Slice(mounts, func(i, j int) bool {
		if mounts[i].Hostname != mounts[j].Hostname {
			return mounts[i].Hostname < mounts[j].Hostname
		}
		return mounts[i].Dirpath < mounts[j].Dirpath
	})

	logger.Debug("DUMP returning %d mount entries", len(mounts))

	return &DumpResponse{Mounts: mounts}, nil
}

func (resp *DumpResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer

	for _, m := range resp.Mounts {
		// value_follows = TRUE
		if err := binary.Write(&buf, binary.BigEndian, uint32(1)); err != nil {
			return nil, err
		}
		if err := writeMountString(&buf, m.Hostname); err != nil {
			return nil, err
		}
		if err := writeMountString(&buf, m.Dirpath); err != nil {
			return nil, err
		}
	}

	// value_follows = FALSE terminates the list
	if err := binary.Write(&buf, binary.BigEndian, uint32(0)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func writeMountString(buf *bytes.Buffer, s string) error {
	length := uint32(len(s))
	if err := binary.Write(buf, binary.BigEndian, length); err != nil {
		return err
	}
	buf.WriteString(s)

	padding := (4 - (length % 4)) % 4
	for i := uint32(0); i < padding; i++ {
		buf.WriteByte(0)
	}
	return nil
}
