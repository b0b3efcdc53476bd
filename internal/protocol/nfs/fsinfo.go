package nfs

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/marmos91/mntfs/internal/logger"
)

// FSInfo property bits (RFC 1813 Section 3.3.19)
const (
	FSFLink     = 0x0001
	FSFSymlink  = 0x0002
	FSFHomogen  = 0x0008
	FSFCansetti = 0x0010
)

// FSInfoRequest represents an FSINFO request
type FSInfoRequest struct {
	Handle []byte
}

// FSInfoResponse represents an FSINFO response
type FSInfoResponse struct {
	Status     uint32
	Attr       *FileAttr // post-op attributes (optional)
	Rtmax      uint32
	Rtpref     uint32
	Rtmult     uint32
	Wtmax      uint32
	Wtpref     uint32
	Wtmult     uint32
	Dtpref     uint32
	MaxFileSz  uint64
	TimeDelta  TimeVal
	Properties uint32
}

// FSInfo reports static filesystem capabilities.
// RFC 1813 Section 3.3.19
//
// Symlinks are advertised; hard links and settable times are not.
func (h *Handler) FSInfo(_ context.Context, req *FSInfoRequest) (*FSInfoResponse, error) {
	logger.Debug("FSINFO for handle %x", req.Handle)

	entryID, err := DecodeHandle(req.Handle)
	if err != nil {
		logger.Warn("FSINFO with malformed handle: %v", err)
		return &FSInfoResponse{Status: NFS3ErrBadHandle}, nil
	}

	return &FSInfoResponse{
		Status:     NFS3OK,
		Attr:       h.attrForEntry(entryID),
		Rtmax:      MaxReadSize,
		Rtpref:     MaxReadSize,
		Rtmult:     4096,
		Wtmax:      MaxWriteSize,
		Wtpref:     MaxWriteSize,
		Wtmult:     4096,
		Dtpref:     DirTransfer,
		MaxFileSz:  0,
		TimeDelta:  TimeVal{Seconds: 0, Nseconds: 1},
		Properties: FSFSymlink | FSFHomogen,
	}, nil
}

func DecodeFSInfoRequest(data []byte) (*FSInfoRequest, error) {
	reader := bytes.NewReader(data)

	handle, err := readOpaque(reader)
	if err != nil {
		return nil, fmt.Errorf("read handle: %w", err)
	}

	return &FSInfoRequest{Handle: handle}, nil
}

func (resp *FSInfoResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer

	if err := binary.Write(&buf, binary.BigEndian, resp.Status); err != nil {
		return nil, fmt.Errorf("write status: %w", err)
	}

	if err := encodePostOpAttr(&buf, resp.Attr); err != nil {
		return nil, err
	}

	if resp.Status != NFS3OK {
		return buf.Bytes(), nil
	}

	fields := []any{
		resp.Rtmax,
		resp.Rtpref,
		resp.Rtmult,
		resp.Wtmax,
		resp.Wtpref,
		resp.Wtmult,
		resp.Dtpref,
		resp.MaxFileSz,
		resp.TimeDelta.Seconds,
		resp.TimeDelta.Nseconds,
		resp.Properties,
	}
	for _, f := range fields {
		if err := binary.Write(&buf, binary.BigEndian, f); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}
