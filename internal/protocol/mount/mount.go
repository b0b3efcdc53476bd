package mount

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/marmos91/mntfs/internal/logger"
)

// MntRequest represents a MNT request
type MntRequest struct {
	Dirpath string

	// Hostname identifies the caller for the DUMP registry. Filled by the
	// dispatch layer from the AUTH_UNIX credential when present.
	Hostname string
}

// MntResponse represents a MNT response
type MntResponse struct {
	Status      uint32
	FileHandle  []byte   // only present if Status == MNT3OK
	AuthFlavors []uint32 // only present if Status == MNT3OK
}

// Mnt resolves an export path to the root file handle.
// RFC 1813 Appendix I, procedure 1
func (h *Handler) Mnt(_ context.Context, req *MntRequest) (*MntResponse, error) {
	logger.Debug("MNT for path '%s' from '%s'", req.Dirpath, req.Hostname)

	if req.Dirpath != h.exportPath {
		logger.Warn("MNT for unknown export '%s'", req.Dirpath)
		return &MntResponse{Status: MNT3ErrNoEnt}, nil
	}

	h.registerClient(req.Hostname, req.Dirpath)

	logger.Info("MNT granted for '%s' to '%s'", req.Dirpath, req.Hostname)

	return &MntResponse{
		Status:      MNT3OK,
		FileHandle:  h.rootHandle,
		AuthFlavors: h.AuthFlavors(),
	}, nil
}

func DecodeMntRequest(data []byte) (*MntRequest, error) {
	reader := bytes.NewReader(data)

	var length uint32
	if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("read dirpath length: %w", err)
	}
	if length > MaxPathLen {
		return nil, fmt.Errorf("dirpath length %d exceeds limit", length)
	}

	dirpath := make([]byte, length)
	if err := binary.Read(reader, binary.BigEndian, &dirpath); err != nil {
		return nil, fmt.Errorf("read dirpath: %w", err)
	}

	return &MntRequest{Dirpath: string(dirpath)}, nil
}

func (resp *MntResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer

	if err := binary.Write(&buf, binary.BigEndian, resp.Status); err != nil {
		return nil, fmt.Errorf("write status: %w", err)
	}

	if resp.Status != MNT3OK {
		return buf.Bytes(), nil
	}

	handleLen := uint32(len(resp.FileHandle))
	if err := binary.Write(&buf, binary.BigEndian, handleLen); err != nil {
		return nil, fmt.Errorf("write handle length: %w", err)
	}
	buf.Write(resp.FileHandle)

	padding := (4 - (handleLen % 4)) % 4
	for i := uint32(0); i < padding; i++ {
		buf.WriteByte(0)
	}

	if err := binary.Write(&buf, binary.BigEndian, uint32(len(resp.AuthFlavors))); err != nil {
		return nil, err
	}
	for _, flavor := range resp.AuthFlavors {
		if err := binary.Write(&buf, binary.BigEndian, flavor); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}
