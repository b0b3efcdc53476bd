package nfs

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/marmos91/mntfs/internal/logger"
)

// FSStatRequest represents an FSSTAT request
type FSStatRequest struct {
	Handle []byte
}

// FSStatResponse represents an FSSTAT response
type FSStatResponse struct {
	Status   uint32
	Attr     *FileAttr // post-op attributes (optional)
	Tbytes   uint64
	Fbytes   uint64
	Abytes   uint64
	Tfiles   uint64
	Ffiles   uint64
	Afiles   uint64
	Invarsec uint32
}

// FSStat reports filesystem usage.
// RFC 1813 Section 3.3.18
//
// Byte counts are zero: no bytes are stored here. The file count is the
// live mount count plus the root directory, and invarsec is zero because
// the table can change at any instant.
func (h *Handler) FSStat(ctx context.Context, req *FSStatRequest) (*FSStatResponse, error) {
	logger.Debug("FSSTAT for handle %x", req.Handle)

	entryID, err := DecodeHandle(req.Handle)
	if err != nil {
		logger.Warn("FSSTAT with malformed handle: %v", err)
		return &FSStatResponse{Status: NFS3ErrBadHandle}, nil
	}

	mounts, err := h.view.MountCount(ctx)
	if err != nil {
		status := StatusFromError(err)
		logger.Debug("FSSTAT count failed: %s", StatusString(status))
		return &FSStatResponse{Status: status}, nil
	}

	h.metrics.SetMountsVisible(mounts)

	return &FSStatResponse{
		Status:   NFS3OK,
		Attr:     h.attrForEntry(entryID),
		Tfiles:   mounts + 1,
		Invarsec: 0,
	}, nil
}

func DecodeFSStatRequest(data []byte) (*FSStatRequest, error) {
	reader := bytes.NewReader(data)

	handle, err := readOpaque(reader)
	if err != nil {
		return nil, fmt.Errorf("read handle: %w", err)
	}

	return &FSStatRequest{Handle: handle}, nil
}

func (resp *FSStatResponse) Encode() ([]byte, error) {
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
		resp.Tbytes,
		resp.Fbytes,
		resp.Abytes,
		resp.Tfiles,
		resp.Ffiles,
		resp.Afiles,
		resp.Invarsec,
	}
	for _, f := range fields {
		if err := binary.Write(&buf, binary.BigEndian, f); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}
